// Package gateway implements the ingestion listener: a TCP server that
// accepts one connection at a time from the sensor gateway, frames the byte
// stream into newline-delimited lines, and feeds decoded readings into the
// ingest pipeline. Ingestion uptime is the primary reliability contract, so
// the accept loop is supervised: an error escaping per-line handling
// restarts the loop with backoff instead of taking the process down.
package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/codec"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/health"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

const (
	defaultReadTimeout    = 30 * time.Second
	defaultBackoffInitial = 500 * time.Millisecond
	defaultBackoffMax     = 30 * time.Second
	readChunkSize         = 4096
)

// Config holds the listener's network parameters.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Listener accepts sequential gateway connections and streams decoded
// readings to the out channel handed to Start.
type Listener struct {
	cfg     Config
	dec     *codec.Decoder
	tracker *health.Tracker
	obs     ports.Observability

	mu      sync.Mutex
	started bool
	ln      net.Listener
	conn    net.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewListener builds a listener. The tracker and observability backend are
// injected so lifecycle and tests stay explicit.
func NewListener(cfg Config, dec *codec.Decoder, tracker *health.Tracker, obs ports.Observability) *Listener {
	return &Listener{cfg: cfg, dec: dec, tracker: tracker, obs: obs}
}

// Addr returns the bound address once Start has succeeded.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Start binds the TCP port and launches the supervised accept loop.
func (l *Listener) Start(out chan<- *domain.Reading) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return fmt.Errorf("gateway listener already started")
	}
	ln, err := net.Listen("tcp", l.cfg.Addr)
	if err != nil {
		l.mu.Unlock()
		return fmt.Errorf("gateway listen %s: %w", l.cfg.Addr, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	l.ln = ln
	l.cancel = cancel
	l.started = true
	l.mu.Unlock()

	l.tracker.MarkListenerUp()
	l.obs.LogInfo("gateway listener started", ports.Field{Key: "addr", Value: ln.Addr().String()})

	l.wg.Add(1)
	go l.supervise(ctx, out)
	return nil
}

// Stop closes the listening socket and any active connection, then waits
// for the accept loop to exit.
func (l *Listener) Stop() error {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return nil
	}
	l.started = false
	cancel := l.cancel
	ln := l.ln
	conn := l.conn
	l.mu.Unlock()

	cancel()
	err := ln.Close()
	if conn != nil {
		_ = conn.Close()
	}
	l.wg.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// supervise restarts the accept loop with exponential backoff whenever an
// error escapes it, counting each restart for the health snapshot.
func (l *Listener) supervise(ctx context.Context, out chan<- *domain.Reading) {
	defer l.wg.Done()
	defer l.tracker.MarkListenerDown()

	backoff := l.cfg.BackoffInitial
	if backoff <= 0 {
		backoff = defaultBackoffInitial
	}
	maxBackoff := l.cfg.BackoffMax
	if maxBackoff <= 0 {
		maxBackoff = defaultBackoffMax
	}

	for {
		err := l.acceptLoop(ctx, out)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			return
		}

		l.tracker.RecordRestart()
		l.obs.IncCounter("zdenrgy_listener_restarts_total", 1)
		l.obs.LogError("accept loop failed, restarting", err,
			ports.Field{Key: "backoff", Value: backoff.String()})

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// acceptLoop services one connection at a time. There is a single physical
// gateway, so a second inbound attempt simply queues behind the accept call
// until the first session ends. A panic is converted into an error so the
// supervisor can restart the loop.
func (l *Listener) acceptLoop(ctx context.Context, out chan<- *domain.Reading) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("accept loop panic: %v", r)
		}
	}()

	for {
		conn, aerr := l.ln.Accept()
		if aerr != nil {
			if ctx.Err() != nil {
				return nil
			}
			return aerr
		}
		l.setConn(conn)
		l.serve(ctx, conn, out)
		l.setConn(nil)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (l *Listener) setConn(conn net.Conn) {
	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()
}

func (l *Listener) readTimeout() time.Duration {
	if l.cfg.ReadTimeout > 0 {
		return l.cfg.ReadTimeout
	}
	return defaultReadTimeout
}

// serve streams one session: read chunks, split on newline, route each
// complete line through the codec. A read timeout without data is not an
// error; only a hard socket failure or peer close ends the session.
func (l *Listener) serve(ctx context.Context, conn net.Conn, out chan<- *domain.Reading) {
	defer conn.Close()

	sess := health.SessionStats{ID: uuid.NewString(), AcceptedAt: time.Now()}
	l.tracker.RecordConnection()
	l.obs.IncCounter("zdenrgy_connections_total", 1)
	l.obs.LogInfo("gateway connected",
		ports.Field{Key: "session", Value: sess.ID},
		ports.Field{Key: "remote", Value: conn.RemoteAddr().String()})

	buf := make([]byte, readChunkSize)
	var pending []byte

	for ctx.Err() == nil {
		_ = conn.SetReadDeadline(time.Now().Add(l.readTimeout()))
		n, err := conn.Read(buf)
		if n > 0 {
			sess.Bytes += uint64(n)
			l.tracker.RecordBytes(n)
			l.obs.IncCounter("zdenrgy_bytes_received_total", float64(n))

			pending = append(pending, buf[:n]...)
			for {
				idx := bytes.IndexByte(pending, '\n')
				if idx < 0 {
					break
				}
				line := pending[:idx]
				pending = pending[idx+1:]
				l.handleLine(ctx, line, &sess, out)
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				l.obs.LogInfo("gateway idle, waiting for data",
					ports.Field{Key: "session", Value: sess.ID})
				continue
			}
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				l.obs.LogError("gateway read failed", err,
					ports.Field{Key: "session", Value: sess.ID})
			}
			break
		}
	}

	// The gateway may close without terminating its final frame.
	if len(pending) > 0 {
		l.handleLine(ctx, pending, &sess, out)
	}

	l.obs.LogInfo("gateway disconnected",
		ports.Field{Key: "session", Value: sess.ID},
		ports.Field{Key: "lines", Value: sess.Lines},
		ports.Field{Key: "bytes", Value: sess.Bytes},
		ports.Field{Key: "duration", Value: time.Since(sess.AcceptedAt).String()})
}

// handleLine decodes one frame and forwards it. Decode failures are counted
// and dropped; they never terminate the session.
func (l *Listener) handleLine(ctx context.Context, line []byte, sess *health.SessionStats, out chan<- *domain.Reading) {
	r, err := l.dec.Decode(line)
	if err != nil {
		if errors.Is(err, codec.ErrEmptyFrame) {
			return
		}
		l.tracker.RecordRejected(string(line))
		l.obs.IncCounter("zdenrgy_frames_rejected_total", 1)
		l.obs.LogWarn("frame rejected",
			ports.Field{Key: "session", Value: sess.ID},
			ports.Field{Key: "reason", Value: err.Error()})
		return
	}

	sess.Lines++
	l.tracker.RecordParsed(string(line))
	l.obs.IncCounter("zdenrgy_frames_parsed_total", 1)
	l.obs.SetGauge("zdenrgy_last_activity_timestamp", float64(time.Now().Unix()))

	select {
	case out <- r:
	case <-ctx.Done():
	}
}

var _ ports.Collector = (*Listener)(nil)
