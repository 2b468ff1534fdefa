package zdenrgy

import (
	"github.com/aadilnoufal/zdenrgy-analytics/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// ListenerConfig holds the TCP ingestion endpoint parameters.
	ListenerConfig = config.ListenerConfig
	// BufferConfig sizes the in-memory recent buffer.
	BufferConfig = config.BufferConfig
	// StoreConfig configures the Postgres write-through store.
	StoreConfig = config.StoreConfig
	// CivilZoneConfig names the fixed-offset reporting zone.
	CivilZoneConfig = config.CivilZoneConfig
	// CalibrationConfig holds the lux to irradiance conversion factor.
	CalibrationConfig = config.CalibrationConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
