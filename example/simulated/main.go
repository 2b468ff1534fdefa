// Runs the ingestion runtime without hardware or a database: a synthetic
// collector feeds readings directly into the pipeline and a no-op store
// swallows the write-through, so the recent-window query surface can be
// exercised standalone.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	zdenrgy "github.com/aadilnoufal/zdenrgy-analytics"
)

func main() {
	cfg := &zdenrgy.Config{
		Buffer:      zdenrgy.BufferConfig{Capacity: 256},
		Store:       zdenrgy.StoreConfig{ConnString: "unused"},
		CivilZone:   zdenrgy.CivilZoneConfig{Name: "AST", Offset: "+03:00"},
		Calibration: zdenrgy.CalibrationConfig{LuxToIrradiance: 127.0},
		Metrics:     zdenrgy.MetricsConfig{Addr: "127.0.0.1:9100"},
	}

	rt, err := zdenrgy.NewRuntime(cfg,
		zdenrgy.WithCollector(&simCollector{interval: time.Second}),
		zdenrgy.WithStore(&discardStore{}),
	)
	if err != nil {
		log.Fatalf("build runtime: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(); err != nil {
		log.Fatalf("start runtime: %v", err)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rt.Shutdown(shutdownCtx); err != nil {
				log.Fatalf("shutdown: %v", err)
			}
			return
		case <-ticker.C:
			recent := rt.RecentWindow(ctx, time.Minute)
			snap := rt.Health(ctx)
			fmt.Printf("last minute: %d readings, buffered total: %d\n",
				len(recent), snap.BufferedReadings)
		}
	}
}

// simCollector emits one synthetic reading per interval.
type simCollector struct {
	interval time.Duration
	cancel   context.CancelFunc
}

func (s *simCollector) Start(out chan<- *zdenrgy.Reading) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-ticker.C:
				r := &zdenrgy.Reading{
					SensorID:    "sim-01",
					Timestamp:   t,
					Temperature: zdenrgy.Float(24 + float64(t.Second()%5)),
					Humidity:    zdenrgy.Float(50),
					Lux:         zdenrgy.Float(600),
				}
				select {
				case out <- r:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return nil
}

func (s *simCollector) Stop() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// discardStore satisfies the store contract without persistence.
type discardStore struct{}

func (discardStore) Insert(ctx context.Context, r *zdenrgy.Reading) (int64, error) { return 0, nil }

func (discardStore) QueryWindow(ctx context.Context, start, end time.Time) ([]*zdenrgy.Reading, error) {
	return nil, nil
}

func (discardStore) QueryDay(ctx context.Context, date string) ([]*zdenrgy.Reading, error) {
	return nil, nil
}

func (discardStore) DateRange(ctx context.Context) (string, string, error) { return "", "", nil }

func (discardStore) Stats(ctx context.Context) (zdenrgy.StoreStats, error) {
	return zdenrgy.StoreStats{}, nil
}

func (discardStore) Ping(ctx context.Context) error { return nil }

func (discardStore) Close() error { return nil }
