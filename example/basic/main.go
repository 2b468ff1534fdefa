package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	zdenrgy "github.com/aadilnoufal/zdenrgy-analytics"
)

func main() {
	cfg, err := zdenrgy.LoadConfig("./config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	rt, err := zdenrgy.NewRuntime(cfg)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("ingestion runtime exited: %v", err)
	}
}
