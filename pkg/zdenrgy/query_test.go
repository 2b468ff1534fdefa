package zdenrgy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/buffer"
)

func newQueryRuntime(t *testing.T, buf ReadingBuffer, st Store) *Runtime {
	t.Helper()
	rt, err := NewRuntime(
		testConfig(),
		WithCollector(&stubCollector{}),
		WithStore(st),
		WithBuffer(buf),
		WithObservability(&stubObservability{}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	return rt
}

func TestRecentWindowServedFromBuffer(t *testing.T) {
	buf := buffer.NewRecentBuffer(16)
	st := &stubStore{}
	rt := newQueryRuntime(t, buf, st)
	rt.startedAt = time.Now().Add(-time.Hour)

	now := time.Now()
	for i := 0; i < 3; i++ {
		buf.Push(&Reading{SensorID: "esp32-01", Timestamp: now.Add(time.Duration(i-3) * time.Minute)})
	}

	got := rt.RecentWindow(context.Background(), 10*time.Minute)
	if len(got) != 3 {
		t.Fatalf("expected 3 readings from buffer, got %d", len(got))
	}
	if st.windowCalls != 0 {
		t.Fatalf("expected store untouched while buffer covers the window, got %d calls", st.windowCalls)
	}
}

func TestRecentWindowConsultsStoreAfterEviction(t *testing.T) {
	buf := buffer.NewRecentBuffer(2)
	now := time.Now()
	for i := 0; i < 3; i++ {
		buf.Push(&Reading{SensorID: "esp32-01", Timestamp: now.Add(time.Duration(i-3) * time.Minute)})
	}

	stored := []*Reading{
		{SensorID: "esp32-01", Timestamp: now.Add(-9 * time.Minute)},
		{SensorID: "esp32-01", Timestamp: now.Add(-2 * time.Minute)},
		{SensorID: "esp32-01", Timestamp: now.Add(-1 * time.Minute)},
	}
	st := &stubStore{windowRows: stored}
	rt := newQueryRuntime(t, buf, st)

	got := rt.RecentWindow(context.Background(), 10*time.Minute)
	if st.windowCalls != 1 {
		t.Fatalf("expected one store window query, got %d", st.windowCalls)
	}
	if len(got) != 3 {
		t.Fatalf("expected store rows to be returned, got %d", len(got))
	}
}

func TestRecentWindowFreshStartConsultsStore(t *testing.T) {
	buf := buffer.NewRecentBuffer(16)
	now := time.Now()
	stored := []*Reading{
		{SensorID: "esp32-01", Timestamp: now.Add(-8 * time.Minute)},
		{SensorID: "esp32-01", Timestamp: now.Add(-4 * time.Minute)},
	}
	st := &stubStore{windowRows: stored}
	rt := newQueryRuntime(t, buf, st)

	got := rt.RecentWindow(context.Background(), 10*time.Minute)
	if st.windowCalls != 1 {
		t.Fatalf("expected one store window query after a fresh start, got %d", st.windowCalls)
	}
	if len(got) != 2 {
		t.Fatalf("expected stored readings to be returned, got %d", len(got))
	}
}

func TestRecentWindowStoreFailureFallsBackToBuffer(t *testing.T) {
	buf := buffer.NewRecentBuffer(2)
	now := time.Now()
	for i := 0; i < 3; i++ {
		buf.Push(&Reading{SensorID: "esp32-01", Timestamp: now.Add(time.Duration(i-3) * time.Minute)})
	}

	st := &stubStore{windowErr: errors.New("connection refused")}
	rt := newQueryRuntime(t, buf, st)

	got := rt.RecentWindow(context.Background(), 10*time.Minute)
	if len(got) != 2 {
		t.Fatalf("expected buffer fallback with 2 readings, got %d", len(got))
	}
}

func TestRecentWindowZeroWindow(t *testing.T) {
	rt := newQueryRuntime(t, buffer.NewRecentBuffer(4), &stubStore{})
	if got := rt.RecentWindow(context.Background(), 0); got != nil {
		t.Fatalf("expected nil for zero window, got %d readings", len(got))
	}
}

func TestByCivilDateDelegatesToStore(t *testing.T) {
	st := &stubStore{
		dayRows: []*Reading{{SensorID: "esp32-01", Timestamp: time.Now()}},
	}
	rt := newQueryRuntime(t, buffer.NewRecentBuffer(4), st)

	got, err := rt.ByCivilDate(context.Background(), "2026-08-30")
	if err != nil {
		t.Fatalf("ByCivilDate returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 reading, got %d", len(got))
	}
	if st.dayDate != "2026-08-30" {
		t.Fatalf("expected date to pass through, got %s", st.dayDate)
	}
}

func TestAvailableDateRange(t *testing.T) {
	st := &stubStore{minDate: "2026-08-01", maxDate: "2026-08-30"}
	rt := newQueryRuntime(t, buffer.NewRecentBuffer(4), st)

	minDate, maxDate, err := rt.AvailableDateRange(context.Background())
	if err != nil {
		t.Fatalf("AvailableDateRange returned error: %v", err)
	}
	if minDate != "2026-08-01" || maxDate != "2026-08-30" {
		t.Fatalf("unexpected range %s..%s", minDate, maxDate)
	}
}

func TestHealthStampsStoreAndBuffer(t *testing.T) {
	buf := buffer.NewRecentBuffer(4)
	buf.Push(&Reading{SensorID: "esp32-01", Timestamp: time.Now()})

	st := &stubStore{pingErr: errors.New("connection refused")}
	rt := newQueryRuntime(t, buf, st)

	snap := rt.Health(context.Background())
	if snap.StoreConnected {
		t.Fatal("expected StoreConnected false when ping fails")
	}
	if snap.BufferedReadings != 1 {
		t.Fatalf("expected 1 buffered reading, got %d", snap.BufferedReadings)
	}

	st.pingErr = nil
	snap = rt.Health(context.Background())
	if !snap.StoreConnected {
		t.Fatal("expected StoreConnected true when ping succeeds")
	}
}

type stubCollector struct {
	started bool
	stopped bool
}

func (s *stubCollector) Start(out chan<- *Reading) error {
	s.started = true
	return nil
}

func (s *stubCollector) Stop() error {
	s.stopped = true
	return nil
}

type stubStore struct {
	windowRows  []*Reading
	windowErr   error
	windowCalls int
	dayRows     []*Reading
	dayDate     string
	minDate     string
	maxDate     string
	pingErr     error
	closed      bool
}

func (s *stubStore) Insert(ctx context.Context, r *Reading) (int64, error) { return 1, nil }

func (s *stubStore) QueryWindow(ctx context.Context, start, end time.Time) ([]*Reading, error) {
	s.windowCalls++
	return s.windowRows, s.windowErr
}

func (s *stubStore) QueryDay(ctx context.Context, date string) ([]*Reading, error) {
	s.dayDate = date
	return s.dayRows, nil
}

func (s *stubStore) DateRange(ctx context.Context) (string, string, error) {
	return s.minDate, s.maxDate, nil
}

func (s *stubStore) Stats(ctx context.Context) (StoreStats, error) {
	return StoreStats{TotalReadings: int64(len(s.dayRows))}, nil
}

func (s *stubStore) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubStore) Close() error {
	s.closed = true
	return nil
}

type stubBuffer struct {
	readings []*Reading
}

func (s *stubBuffer) Push(r *Reading) { s.readings = append(s.readings, r) }

func (s *stubBuffer) Snapshot(window time.Duration) []*Reading { return s.readings }

func (s *stubBuffer) Len() int { return len(s.readings) }

func (s *stubBuffer) Capacity() int { return 16 }

func (s *stubBuffer) Evictions() uint64 { return 0 }

func (s *stubBuffer) OldestTimestamp() (time.Time, bool) {
	if len(s.readings) == 0 {
		return time.Time{}, false
	}
	return s.readings[0].Timestamp, true
}

type stubObservability struct{}

func (s *stubObservability) LogInfo(msg string, fields ...Field) {}

func (s *stubObservability) LogWarn(msg string, fields ...Field) {}

func (s *stubObservability) LogError(msg string, err error, fields ...Field) {}

func (s *stubObservability) IncCounter(name string, v float64) {}

func (s *stubObservability) SetGauge(name string, v float64) {}

func (s *stubObservability) ObserveLatency(name string, seconds float64) {}
