package ports

import (
	"time"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
)

// ReadingBuffer holds the most recent readings for low-latency access.
// Push never blocks and never fails; the buffer only evicts oldest-first
// when capacity is exceeded.
type ReadingBuffer interface {
	// Push appends a reading, evicting the oldest entry when full.
	Push(r *domain.Reading)

	// Snapshot returns a point-in-time copy ordered oldest to newest.
	// A positive window keeps only readings newer than now-window.
	Snapshot(window time.Duration) []*domain.Reading

	// Len returns the current number of buffered readings.
	Len() int

	// Capacity returns the fixed upper bound.
	Capacity() int

	// Evictions returns the total number of readings evicted so far.
	Evictions() uint64

	// OldestTimestamp returns the timestamp of the oldest buffered reading,
	// or false when the buffer is empty.
	OldestTimestamp() (time.Time, bool)
}
