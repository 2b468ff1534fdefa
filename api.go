package zdenrgy

import (
	base "github.com/aadilnoufal/zdenrgy-analytics/pkg/zdenrgy"
)

// Type aliases so consumers can import
// github.com/aadilnoufal/zdenrgy-analytics directly.
type (
	Config            = base.Config
	ListenerConfig    = base.ListenerConfig
	BufferConfig      = base.BufferConfig
	StoreConfig       = base.StoreConfig
	CivilZoneConfig   = base.CivilZoneConfig
	CalibrationConfig = base.CalibrationConfig
	MetricsConfig     = base.MetricsConfig
	Runtime           = base.Runtime
	RuntimeOption     = base.RuntimeOption
	Reading           = base.Reading
	Collector         = base.Collector
	ReadingBuffer     = base.ReadingBuffer
	Store             = base.Store
	StoreStats        = base.StoreStats
	Observability     = base.Observability
	Field             = base.Field
	HealthSnapshot    = base.HealthSnapshot
	SessionStats      = base.SessionStats
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

func WithCollector(col Collector) RuntimeOption {
	return base.WithCollector(col)
}

func WithStore(s Store) RuntimeOption {
	return base.WithStore(s)
}

func WithBuffer(b ReadingBuffer) RuntimeOption {
	return base.WithBuffer(b)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

// Float wraps a literal for Reading pointer fields.
func Float(v float64) *float64 { return base.Float(v) }
