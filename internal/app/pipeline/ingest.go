// Package pipeline connects the ingestion listener to the dual stores:
// every decoded reading lands in the in-memory recent buffer first and is
// then written through to Postgres. Storage is fail-soft: an insert error
// is counted and logged, never retried, and never blocks the buffer.
package pipeline

import (
	"context"
	"time"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

const insertTimeout = 5 * time.Second

// RunIngest drains readings from in until the channel closes or ctx is
// cancelled. It is the single writer of both the buffer and the store.
func RunIngest(ctx context.Context, in <-chan *domain.Reading, buf ports.ReadingBuffer, st ports.Store, obs ports.Observability) {
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-in:
			if !ok {
				return
			}
			ingestOne(ctx, r, buf, st, obs)
		}
	}
}

func ingestOne(ctx context.Context, r *domain.Reading, buf ports.ReadingBuffer, st ports.Store, obs ports.Observability) {
	buf.Push(r)
	obs.SetGauge("zdenrgy_buffer_size", float64(buf.Len()))

	insertCtx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	start := time.Now()
	if _, err := st.Insert(insertCtx, r); err != nil {
		obs.IncCounter("zdenrgy_store_errors_total", 1)
		obs.LogError("store insert failed, reading kept in buffer only", err,
			ports.Field{Key: "sensor", Value: r.SensorID},
			ports.Field{Key: "timestamp", Value: r.Timestamp})
		return
	}
	obs.ObserveLatency("zdenrgy_store_insert_latency_seconds", time.Since(start).Seconds())
	obs.IncCounter("zdenrgy_store_inserts_total", 1)
}
