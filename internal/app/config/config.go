package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/civiltime"
)

// Config is the full runtime configuration, loaded from YAML with the
// store connection string overridable through the DB_CONN_STRING
// environment variable.
type Config struct {
	Listener    ListenerConfig    `yaml:"listener"`
	Buffer      BufferConfig      `yaml:"buffer"`
	Store       StoreConfig       `yaml:"store"`
	CivilZone   CivilZoneConfig   `yaml:"civil_zone"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

type ListenerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
}

type BufferConfig struct {
	Capacity int `yaml:"capacity"`
}

type StoreConfig struct {
	ConnString      string        `yaml:"conn_string"`
	Table           string        `yaml:"table"`
	MinConns        int           `yaml:"min_conns"`
	MaxConns        int           `yaml:"max_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	EnsureSchema    bool          `yaml:"ensure_schema"`
}

type CivilZoneConfig struct {
	Name   string `yaml:"name"`
	Offset string `yaml:"offset"`
}

type CalibrationConfig struct {
	LuxToIrradiance float64 `yaml:"lux_to_irradiance"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = ":6000"
	}
	if c.Listener.ReadTimeout == 0 {
		c.Listener.ReadTimeout = 30 * time.Second
	}
	if c.Listener.BackoffInitial == 0 {
		c.Listener.BackoffInitial = 500 * time.Millisecond
	}
	if c.Listener.BackoffMax == 0 {
		c.Listener.BackoffMax = 30 * time.Second
	}
	if c.Buffer.Capacity == 0 {
		c.Buffer.Capacity = 4096
	}
	if v := os.Getenv("DB_CONN_STRING"); v != "" {
		c.Store.ConnString = v
	}
	if c.Store.Table == "" {
		c.Store.Table = "sensor_readings"
	}
	if c.Store.MinConns == 0 {
		c.Store.MinConns = 1
	}
	if c.Store.MaxConns == 0 {
		c.Store.MaxConns = 10
	}
	if c.Store.ConnMaxLifetime == 0 {
		c.Store.ConnMaxLifetime = 30 * time.Minute
	}
	if c.CivilZone.Name == "" {
		c.CivilZone.Name = "AST"
	}
	if c.CivilZone.Offset == "" {
		c.CivilZone.Offset = "+03:00"
	}
	if c.Calibration.LuxToIrradiance == 0 {
		c.Calibration.LuxToIrradiance = 127.0
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
}

func (c *Config) validate() error {
	if c.Store.ConnString == "" {
		return fmt.Errorf("store.conn_string is required (or set DB_CONN_STRING)")
	}
	if c.Buffer.Capacity < 0 {
		return fmt.Errorf("buffer.capacity must not be negative, got %d", c.Buffer.Capacity)
	}
	if c.Store.MaxConns < c.Store.MinConns {
		return fmt.Errorf("store.max_conns (%d) below store.min_conns (%d)",
			c.Store.MaxConns, c.Store.MinConns)
	}
	if _, err := civiltime.ParseOffset(c.CivilZone.Offset); err != nil {
		return fmt.Errorf("civil_zone.offset: %w", err)
	}
	if c.Calibration.LuxToIrradiance < 0 {
		return fmt.Errorf("calibration.lux_to_irradiance must not be negative")
	}
	return nil
}

// Zone builds the configured civil zone. Call only after validate has run.
func (c *Config) Zone() (*civiltime.Zone, error) {
	return civiltime.NewZone(c.CivilZone.Name, c.CivilZone.Offset)
}
