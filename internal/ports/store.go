package ports

import (
	"context"
	"time"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
)

// StoreStats summarizes the persisted dataset for the health surface.
type StoreStats struct {
	TotalReadings int64
	Oldest        time.Time
	Newest        time.Time
}

// Store is the durable write-through reading store. Insert is best-effort:
// a failure is reported to the caller and never crashes the process, and the
// in-memory buffer remains the independent source for recent data.
type Store interface {
	// Insert persists one reading and returns the server-generated record id.
	Insert(ctx context.Context, r *domain.Reading) (int64, error)

	// QueryWindow returns readings with timestamps in [start, end],
	// ordered oldest to newest.
	QueryWindow(ctx context.Context, start, end time.Time) ([]*domain.Reading, error)

	// QueryDay returns all readings for one civil date ("2006-01-02").
	QueryDay(ctx context.Context, date string) ([]*domain.Reading, error)

	// DateRange returns the earliest and latest civil dates with data,
	// both empty when the store holds no readings.
	DateRange(ctx context.Context) (minDate, maxDate string, err error)

	// Stats reports dataset totals for the status surface.
	Stats(ctx context.Context) (StoreStats, error)

	// Ping is a lightweight connectivity probe.
	Ping(ctx context.Context) error

	// Close releases the connection pool.
	Close() error
}
