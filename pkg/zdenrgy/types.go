package zdenrgy

import (
	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/health"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

// Reading is one decoded sensor frame. It is exported so custom collectors
// and stores can produce and consume pipeline data directly.
type Reading = domain.Reading

// Collector streams readings from any transport into the pipeline.
type Collector = ports.Collector

// ReadingBuffer is the bounded in-memory window of recent readings.
type ReadingBuffer = ports.ReadingBuffer

// Store persists readings and answers historical queries.
type Store = ports.Store

// StoreStats summarizes the persisted dataset.
type StoreStats = ports.StoreStats

// Observability emits metrics and structured logs for the pipeline.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// HealthSnapshot is the point-in-time operational state served by Health.
type HealthSnapshot = health.Snapshot

// SessionStats summarizes one gateway connection.
type SessionStats = health.SessionStats

// Float wraps a literal for the Reading pointer fields.
func Float(v float64) *float64 { return domain.Float(v) }
