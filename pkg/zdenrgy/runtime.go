package zdenrgy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/buffer"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/codec"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/gateway"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/observability"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/adapters/store"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/app/pipeline"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/civiltime"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/health"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	store         Store
	buffer        ReadingBuffer
	observability Observability
}

// WithCollector injects a custom collector implementation (UDP, MQTT,
// simulators, etc.) in place of the TCP gateway listener.
func WithCollector(col Collector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithStore injects a custom store so readings can be persisted anywhere.
func WithStore(s Store) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.store = s
	}
}

// WithBuffer injects a custom recent-readings buffer.
func WithBuffer(b ReadingBuffer) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.buffer = b
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// Runtime wires the gateway listener, recent buffer, and Postgres store
// into the ingest pipeline and exposes the query surface over them.
type Runtime struct {
	cfg       *Config
	zone      *civiltime.Zone
	obs       ports.Observability
	tracker   *health.Tracker
	buf       ports.ReadingBuffer
	store     ports.Store
	col       ports.Collector
	startedAt time.Time

	mu           sync.Mutex
	started      bool
	metricsSrv   *http.Server
	gaugeStopCh  chan struct{}
	ingestCancel context.CancelFunc
	ingestDoneCh chan struct{}
}

// NewRuntime bootstraps the default adapters (TCP gateway listener, ring
// buffer, Postgres store, Prometheus observability). RuntimeOption values
// override any dependency for embedding or testing.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var overrides runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&overrides)
		}
	}

	zone, err := cfg.Zone()
	if err != nil {
		return nil, err
	}

	obs := overrides.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	tracker := health.NewTracker()

	buf := overrides.buffer
	if buf == nil {
		buf = buffer.NewRecentBuffer(cfg.Buffer.Capacity)
	}

	st := overrides.store
	if st == nil {
		st, err = store.Open(store.Config{
			ConnString:      cfg.Store.ConnString,
			Table:           cfg.Store.Table,
			MinConns:        cfg.Store.MinConns,
			MaxConns:        cfg.Store.MaxConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
			EnsureSchema:    cfg.Store.EnsureSchema,
		}, zone, obs)
		if err != nil {
			return nil, err
		}
	}

	col := overrides.collector
	if col == nil {
		dec := codec.NewDecoder(zone, cfg.Calibration.LuxToIrradiance)
		col = gateway.NewListener(gateway.Config{
			Addr:           cfg.Listener.Addr,
			ReadTimeout:    cfg.Listener.ReadTimeout,
			BackoffInitial: cfg.Listener.BackoffInitial,
			BackoffMax:     cfg.Listener.BackoffMax,
		}, dec, tracker, obs)
	}

	return &Runtime{
		cfg:       cfg,
		zone:      zone,
		obs:       obs,
		tracker:   tracker,
		buf:       buf,
		store:     st,
		col:       col,
		startedAt: time.Now(),
	}, nil
}

// Zone returns the configured civil reporting zone.
func (rt *Runtime) Zone() *civiltime.Zone { return rt.zone }

// Start launches the listener, the ingest pipeline, and the metrics server.
// It returns immediately; call Run to block on a context instead.
func (rt *Runtime) Start() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.started {
		return fmt.Errorf("runtime already started")
	}

	ch := make(chan *domain.Reading, rt.cfg.Buffer.Capacity)
	if err := rt.col.Start(ch); err != nil {
		return err
	}

	ingestCtx, cancel := context.WithCancel(context.Background())
	rt.ingestCancel = cancel
	rt.ingestDoneCh = make(chan struct{})
	go func() {
		pipeline.RunIngest(ingestCtx, ch, rt.buf, rt.store, rt.obs)
		close(rt.ingestDoneCh)
	}()

	rt.startMetrics()
	rt.started = true
	return nil
}

// Run starts the runtime and blocks until the provided context is
// cancelled, then attempts a graceful shutdown.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return rt.Shutdown(shutdownCtx)
}

// Shutdown stops the listener, drains the pipeline, and closes the store.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.started {
		return nil
	}
	rt.started = false

	var errs []error

	if err := rt.col.Stop(); err != nil {
		errs = append(errs, err)
	}

	if rt.ingestCancel != nil {
		rt.ingestCancel()
		select {
		case <-rt.ingestDoneCh:
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("ingest pipeline did not drain: %w", ctx.Err()))
		}
	}

	if rt.gaugeStopCh != nil {
		close(rt.gaugeStopCh)
		rt.gaugeStopCh = nil
	}

	if rt.metricsSrv != nil {
		if err := rt.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
		rt.metricsSrv = nil
	}

	if err := rt.store.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func (rt *Runtime) startMetrics() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		snap := rt.Health(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if !snap.ListenerAlive {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(snap)
	})

	rt.metricsSrv = &http.Server{
		Addr:    rt.cfg.Metrics.Addr,
		Handler: mux,
	}

	go func() {
		if err := rt.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()

	rt.gaugeStopCh = make(chan struct{})
	go rt.recordResourceGauges(rt.gaugeStopCh, 15*time.Second)
}

func (rt *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rt.obs.SetGauge("zdenrgy_buffer_size", float64(rt.buf.Len()))

			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			connected := 0.0
			if rt.store.Ping(pingCtx) == nil {
				connected = 1.0
			}
			cancel()
			rt.obs.SetGauge("zdenrgy_store_connected", connected)
		}
	}
}
