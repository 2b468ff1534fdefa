package observability

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

// PromObs backs the observability port with Prometheus metrics and
// structured slog output. Metric names are looked up by key so callers
// stay decoupled from the registry.
type PromObs struct {
	logger   *slog.Logger
	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer
}

func NewPromObs() *PromObs {
	framesParsed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_frames_parsed_total",
		Help: "Frames decoded into valid readings.",
	})
	framesRejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_frames_rejected_total",
		Help: "Frames dropped by the codec as malformed or out of range.",
	})
	connections := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_connections_total",
		Help: "Gateway connections accepted.",
	})
	bytesReceived := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_bytes_received_total",
		Help: "Raw bytes read from the gateway socket.",
	})
	restarts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_listener_restarts_total",
		Help: "Supervised restarts of the accept loop.",
	})
	inserts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_store_inserts_total",
		Help: "Readings written through to the store.",
	})
	storeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zdenrgy_store_errors_total",
		Help: "Store writes that failed and were skipped.",
	})
	bufferSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zdenrgy_buffer_size",
		Help: "Readings currently held in the in-memory recent buffer.",
	})
	storeConnected := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zdenrgy_store_connected",
		Help: "1 when the store answers ping, 0 otherwise.",
	})
	lastActivity := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zdenrgy_last_activity_timestamp",
		Help: "Unix time of the most recently parsed frame.",
	})
	insertLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zdenrgy_store_insert_latency_seconds",
		Help:    "Latency of a single write-through insert.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	prometheus.MustRegister(framesParsed, framesRejected, connections,
		bytesReceived, restarts, inserts, storeErrors,
		bufferSize, storeConnected, lastActivity, insertLatency)

	return &PromObs{
		logger: slog.New(slog.NewTextHandler(os.Stderr, nil)),
		counters: map[string]prometheus.Counter{
			"zdenrgy_frames_parsed_total":     framesParsed,
			"zdenrgy_frames_rejected_total":   framesRejected,
			"zdenrgy_connections_total":       connections,
			"zdenrgy_bytes_received_total":    bytesReceived,
			"zdenrgy_listener_restarts_total": restarts,
			"zdenrgy_store_inserts_total":     inserts,
			"zdenrgy_store_errors_total":      storeErrors,
		},
		gauges: map[string]prometheus.Gauge{
			"zdenrgy_buffer_size":             bufferSize,
			"zdenrgy_store_connected":         storeConnected,
			"zdenrgy_last_activity_timestamp": lastActivity,
		},
		histos: map[string]prometheus.Observer{
			"zdenrgy_store_insert_latency_seconds": insertLatency,
		},
	}
}

func attrs(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, attrs(fields)...)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	p.logger.Warn(msg, attrs(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := attrs(fields)
	if err != nil {
		args = append(args, "err", err)
	}
	p.logger.Error(msg, args...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

var _ ports.Observability = (*PromObs)(nil)
