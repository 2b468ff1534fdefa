package zdenrgy

import (
	"context"
	"time"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

// RecentWindow returns readings observed within the trailing window, newest
// last. The in-memory buffer answers when it still covers the whole window;
// otherwise the store is consulted, falling back to whatever the buffer
// holds if the store is unreachable. The result is best effort and never
// fails the caller.
func (rt *Runtime) RecentWindow(ctx context.Context, window time.Duration) []*domain.Reading {
	if window <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-window)

	if rt.bufferCovers(cutoff) {
		return rt.buf.Snapshot(window)
	}

	rows, err := rt.store.QueryWindow(ctx, cutoff, time.Now())
	if err != nil {
		rt.obs.LogWarn("window query fell back to buffer",
			ports.Field{Key: "window", Value: window.String()},
			ports.Field{Key: "error", Value: err.Error()})
		return rt.buf.Snapshot(window)
	}
	return rows
}

// bufferCovers reports whether the buffer holds every reading observable
// since cutoff. True when its oldest entry is at or before the cutoff, or
// when this process has been ingesting since before the cutoff without an
// eviction. A freshly started process answers false even though it has
// evicted nothing: the store may hold in-window readings from before the
// restart that the buffer never saw.
func (rt *Runtime) bufferCovers(cutoff time.Time) bool {
	if oldest, ok := rt.buf.OldestTimestamp(); ok && !oldest.After(cutoff) {
		return true
	}
	return rt.buf.Evictions() == 0 && !rt.startedAt.After(cutoff)
}

// ByCivilDate returns all persisted readings for one civil calendar day,
// formatted 2006-01-02 in the reporting zone.
func (rt *Runtime) ByCivilDate(ctx context.Context, date string) ([]*domain.Reading, error) {
	return rt.store.QueryDay(ctx, date)
}

// AvailableDateRange returns the civil dates of the oldest and newest
// persisted readings. Both strings are empty when the store holds no data.
func (rt *Runtime) AvailableDateRange(ctx context.Context) (string, string, error) {
	return rt.store.DateRange(ctx)
}

// StoreStats reports aggregate statistics over the persisted dataset.
func (rt *Runtime) StoreStats(ctx context.Context) (ports.StoreStats, error) {
	return rt.store.Stats(ctx)
}

// Health assembles the operational snapshot: listener counters from the
// tracker, live store connectivity, and current buffer fill.
func (rt *Runtime) Health(ctx context.Context) HealthSnapshot {
	snap := rt.tracker.Snapshot()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	snap.StoreConnected = rt.store.Ping(pingCtx) == nil
	snap.BufferedReadings = rt.buf.Len()
	return snap
}
