// Package buffer provides the fixed-capacity recent-readings buffer: a
// thread-safe FIFO ring that evicts oldest-first and cannot fail.
package buffer

import (
	"sync"
	"time"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

// RecentBuffer is a circular buffer of readings. A single mutex guards
// mutation; Snapshot copies under the lock so readers never observe a torn
// structure and Push never waits on a slow reader.
type RecentBuffer struct {
	mu        sync.RWMutex
	items     []*domain.Reading
	capacity  int
	size      int
	head      int // next write position
	tail      int // oldest entry
	evictions uint64
}

// NewRecentBuffer creates a buffer holding at most capacity readings.
func NewRecentBuffer(capacity int) *RecentBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RecentBuffer{
		items:    make([]*domain.Reading, capacity),
		capacity: capacity,
	}
}

// Push appends a reading, evicting the oldest entry when the buffer is full.
func (b *RecentBuffer) Push(r *domain.Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.size == b.capacity {
		b.items[b.tail] = nil
		b.tail = (b.tail + 1) % b.capacity
		b.size--
		b.evictions++
	}
	b.items[b.head] = r
	b.head = (b.head + 1) % b.capacity
	b.size++
}

// Snapshot returns a fresh copy ordered oldest to newest. A positive window
// keeps only readings newer than now-window.
func (b *RecentBuffer) Snapshot(window time.Duration) []*domain.Reading {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var cutoff time.Time
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}

	out := make([]*domain.Reading, 0, b.size)
	for i := 0; i < b.size; i++ {
		r := b.items[(b.tail+i)%b.capacity]
		if window > 0 && r.Timestamp.Before(cutoff) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Len returns the current number of buffered readings.
func (b *RecentBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// Capacity returns the fixed upper bound.
func (b *RecentBuffer) Capacity() int { return b.capacity }

// Evictions returns the total number of readings evicted so far.
func (b *RecentBuffer) Evictions() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.evictions
}

// OldestTimestamp returns the timestamp of the oldest buffered reading.
func (b *RecentBuffer) OldestTimestamp() (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.size == 0 {
		return time.Time{}, false
	}
	return b.items[b.tail].Timestamp, true
}

var _ ports.ReadingBuffer = (*RecentBuffer)(nil)
