// Package health tracks process-wide ingestion liveness: counters, the
// last-activity timestamp, and a point-in-time snapshot for health-check
// collaborators. The tracker is an injected dependency, not a singleton, so
// lifecycle and tests stay explicit.
package health

import (
	"sync"
	"time"
)

// rawCaptureLimit bounds the stored copy of the last seen frames.
const rawCaptureLimit = 500

// SessionStats is the roll-up of one gateway connection, carried alongside
// the live counters for per-session disconnect logging.
type SessionStats struct {
	ID         string
	AcceptedAt time.Time
	Bytes      uint64
	Lines      uint64
}

// Snapshot is a read-only projection of the tracker, rebuilt on every call.
// Store connectivity and buffer fill are stamped in by the caller, which owns
// those collaborators.
type Snapshot struct {
	ListenerAlive        bool      `json:"listener_alive"`
	LastActivity         time.Time `json:"last_activity,omitempty"`
	SecondsSinceActivity float64   `json:"seconds_since_activity"`
	ConnectionsAccepted  uint64    `json:"connections_accepted"`
	LinesParsed          uint64    `json:"lines_parsed"`
	LinesRejected        uint64    `json:"lines_rejected"`
	BytesReceived        uint64    `json:"bytes_received"`
	ListenerRestarts     uint64    `json:"listener_restarts"`
	StoreConnected       bool      `json:"store_connected"`
	BufferedReadings     int       `json:"buffered_readings"`
	StartedAt            time.Time `json:"started_at"`
	LastValidRaw         string    `json:"last_valid_raw,omitempty"`
	LastInvalidRaw       string    `json:"last_invalid_raw,omitempty"`
}

// Tracker accumulates ingestion counters. A single mutex guards mutation;
// the listener is the only writer and health queries read concurrently.
type Tracker struct {
	mu             sync.Mutex
	startedAt      time.Time
	listenerAlive  bool
	lastActivity   time.Time
	connections    uint64
	linesParsed    uint64
	linesRejected  uint64
	bytesReceived  uint64
	restarts       uint64
	lastValidRaw   string
	lastInvalidRaw string
}

// NewTracker returns a tracker stamped with the process start time.
func NewTracker() *Tracker {
	return &Tracker{startedAt: time.Now()}
}

// MarkListenerUp records the listener entering its accept loop.
func (t *Tracker) MarkListenerUp() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listenerAlive = true
	t.lastActivity = time.Now()
}

// MarkListenerDown records the listener leaving its accept loop for good.
func (t *Tracker) MarkListenerDown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listenerAlive = false
}

// RecordConnection counts an accepted gateway connection.
func (t *Tracker) RecordConnection() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connections++
	t.lastActivity = time.Now()
}

// RecordParsed counts a successfully decoded frame and keeps a truncated
// copy of it for the status surface.
func (t *Tracker) RecordParsed(raw string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.linesParsed++
	t.lastValidRaw = truncate(raw)
	t.lastActivity = time.Now()
}

// RecordRejected counts a discarded frame and keeps a truncated copy.
func (t *Tracker) RecordRejected(raw string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.linesRejected++
	t.lastInvalidRaw = truncate(raw)
	t.lastActivity = time.Now()
}

// RecordBytes adds received wire bytes to the process total.
func (t *Tracker) RecordBytes(n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bytesReceived += uint64(n)
}

// RecordRestart counts a supervised accept-loop restart.
func (t *Tracker) RecordRestart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.restarts++
}

// Snapshot rebuilds the read-only projection.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idle float64
	if !t.lastActivity.IsZero() {
		idle = time.Since(t.lastActivity).Seconds()
	}
	return Snapshot{
		ListenerAlive:        t.listenerAlive,
		LastActivity:         t.lastActivity,
		SecondsSinceActivity: idle,
		ConnectionsAccepted:  t.connections,
		LinesParsed:          t.linesParsed,
		LinesRejected:        t.linesRejected,
		BytesReceived:        t.bytesReceived,
		ListenerRestarts:     t.restarts,
		StartedAt:            t.startedAt,
		LastValidRaw:         t.lastValidRaw,
		LastInvalidRaw:       t.lastInvalidRaw,
	}
}

func truncate(s string) string {
	if len(s) > rawCaptureLimit {
		return s[:rawCaptureLimit]
	}
	return s
}
