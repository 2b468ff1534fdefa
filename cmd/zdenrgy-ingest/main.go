package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	zdenrgy "github.com/aadilnoufal/zdenrgy-analytics"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	var err error

	switch cmd {
	case "run":
		err = runCommand(os.Args[2:])
	case "validate":
		err = validateCommand(os.Args[2:])
	case "status":
		err = statusCommand(os.Args[2:])
	case "simulate":
		err = simulateCommand(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		log.Fatalf("zdenrgy-ingest %s: %v", cmd, err)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := zdenrgy.LoadConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := zdenrgy.NewRuntime(cfg)
	if err != nil {
		return fmt.Errorf("build runtime: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return rt.Run(ctx)
}

func validateCommand(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	cfgPath := fs.String("config", "./config.yaml", "Path to configuration file to validate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := zdenrgy.LoadConfig(*cfgPath); err != nil {
		return err
	}
	fmt.Printf("config %s looks good\n", *cfgPath)
	return nil
}

func statusCommand(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	url := fs.String("url", "http://localhost:9100/healthz", "Health endpoint")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := http.Get(*url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var snap zdenrgy.HealthSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("decode health snapshot: %w", err)
	}

	out, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service unhealthy (%s)", resp.Status)
	}
	return nil
}

// simulateCommand plays the role of the sensor gateway: it dials the
// ingestion listener and streams synthetic newline-delimited frames.
func simulateCommand(args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ExitOnError)
	addr := fs.String("addr", "localhost:6000", "Ingestion listener address")
	sensor := fs.String("sensor", "sim-01", "Sensor ID to report")
	interval := fs.Duration("interval", 2*time.Second, "Delay between frames")
	if err := fs.Parse(args); err != nil {
		return err
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := bufio.NewWriter(conn)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	fmt.Printf("Streaming frames to %s as %s (Ctrl+C to stop)\n", *addr, *sensor)
	var sent int
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\nsent %d frames\n", sent)
			return nil
		case <-ticker.C:
			frame := fmt.Sprintf(
				`{"id":%q,"time":%q,"temp":%.2f,"rh":%.2f,"lux":%.2f}`,
				*sensor,
				time.Now().Format("2006-01-02 15:04:05"),
				22+6*rand.Float64(),
				40+20*rand.Float64(),
				200+600*rand.Float64(),
			)
			if _, err := w.WriteString(frame + "\n"); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("flush frame: %w", err)
			}
			sent++
		}
	}
}

func printUsage() {
	fmt.Printf(`zdenrgy ingestion service

Usage:
  zdenrgy-ingest <command> [flags]

Commands:
  run        Start the ingestion runtime using the provided config
  validate   Load and validate a config file without starting the runtime
  status     Fetch and print the health snapshot from a running instance
  simulate   Stream synthetic sensor frames at a running listener

Examples:
  zdenrgy-ingest run -config ./config.yaml
  zdenrgy-ingest validate -config ./config.yaml
  zdenrgy-ingest status -url http://localhost:9100/healthz
  zdenrgy-ingest simulate -addr localhost:6000 -sensor sim-01 -interval 1s
`)
}
