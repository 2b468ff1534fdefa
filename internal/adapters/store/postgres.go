// Package store persists readings to PostgreSQL through a bounded
// connection pool. Inserts are write-through and best-effort: connectivity
// failures surface as a typed Error to the pipeline and never crash the
// process. Older installations may lack the optional sensor_id column; the
// adapter probes the column set once at startup and degrades its insert
// shape deterministically instead of sniffing errors per call.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/civiltime"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

// pgUndefinedColumn is the PostgreSQL SQLSTATE for a missing column.
const pgUndefinedColumn = "42703"

// Error wraps a store failure with the operation that produced it.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// IsSchemaDrift reports whether err is the specific "column does not exist"
// failure that triggers the degraded insert shape.
func IsSchemaDrift(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedColumn
}

// Config holds connection and pool parameters.
type Config struct {
	ConnString      string
	Table           string
	MinConns        int
	MaxConns        int
	ConnMaxLifetime time.Duration
	EnsureSchema    bool
}

// Postgres implements ports.Store on database/sql with the pgx driver.
type Postgres struct {
	db          *sql.DB
	table       string
	zone        *civiltime.Zone
	obs         ports.Observability
	hasSensorID atomic.Bool
	driftWarn   sync.Once
}

// New wraps an existing database handle. Used directly by tests; production
// callers go through Open.
func New(db *sql.DB, table string, zone *civiltime.Zone, obs ports.Observability) *Postgres {
	if table == "" {
		table = "sensor_readings"
	}
	p := &Postgres{db: db, table: table, zone: zone, obs: obs}
	p.hasSensorID.Store(true)
	return p
}

// Open dials PostgreSQL, sizes the pool, and probes the column set. The
// probe is best-effort: if the store is unreachable at boot the adapter
// still comes up and keeps the optimistic insert shape, because ingestion
// must not depend on store availability.
func Open(cfg Config, zone *civiltime.Zone, obs ports.Observability) (*Postgres, error) {
	db, err := sql.Open("pgx", cfg.ConnString)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(cfg.MinConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	p := New(db, cfg.Table, zone, obs)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if cfg.EnsureSchema {
		if err := p.EnsureSchema(ctx); err != nil {
			obs.LogWarn("store schema bootstrap failed", ports.Field{Key: "error", Value: err.Error()})
		}
	}
	p.probeColumns(ctx)
	return p, nil
}

// EnsureSchema creates the readings table and its timestamp index when they
// do not exist yet.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id SERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			sensor_id VARCHAR(100),
			temperature REAL,
			humidity REAL,
			lux REAL,
			irradiance REAL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`, p.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_timestamp ON %s (timestamp DESC)`, p.table, p.table),
	}
	for _, stmt := range ddl {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return &Error{Op: "ensure schema", Err: err}
		}
	}
	return nil
}

// probeColumns checks whether the deployed table carries the optional
// sensor_id column and fixes the insert shape accordingly.
func (p *Postgres) probeColumns(ctx context.Context) {
	var n int
	err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = 'sensor_id'`,
		p.table,
	).Scan(&n)
	if err != nil {
		p.obs.LogWarn("store column probe failed, assuming full schema",
			ports.Field{Key: "error", Value: err.Error()})
		return
	}
	if n == 0 {
		p.degrade()
	}
}

// degrade flips the adapter into the sensor_id-less insert shape, warning
// exactly once per process lifetime.
func (p *Postgres) degrade() {
	p.hasSensorID.Store(false)
	p.driftWarn.Do(func() {
		p.obs.LogWarn("sensor_id column missing, inserting without it",
			ports.Field{Key: "table", Value: p.table})
	})
}

// Insert persists one reading and returns the server-generated record id.
// A 42703 failure on the full shape degrades the adapter and retries the
// same logical insert once without the identifier; any other error is
// returned as-is so unrelated failures never loop through the fallback.
func (p *Postgres) Insert(ctx context.Context, r *domain.Reading) (int64, error) {
	if p.hasSensorID.Load() {
		id, err := p.insertFull(ctx, r)
		if err == nil {
			return id, nil
		}
		if !IsSchemaDrift(err) {
			return 0, &Error{Op: "insert", Err: err}
		}
		p.degrade()
	}

	id, err := p.insertDegraded(ctx, r)
	if err != nil {
		return 0, &Error{Op: "insert", Err: err}
	}
	return id, nil
}

func (p *Postgres) insertFull(ctx context.Context, r *domain.Reading) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (timestamp, sensor_id, temperature, humidity, lux, irradiance)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`, p.table),
		r.Timestamp,
		sql.NullString{String: r.SensorID, Valid: r.SensorID != ""},
		r.Temperature, r.Humidity, r.Lux, r.Irradiance,
	).Scan(&id)
	return id, err
}

func (p *Postgres) insertDegraded(ctx context.Context, r *domain.Reading) (int64, error) {
	var id int64
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (timestamp, temperature, humidity, lux, irradiance)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`, p.table),
		r.Timestamp, r.Temperature, r.Humidity, r.Lux, r.Irradiance,
	).Scan(&id)
	return id, err
}

// QueryWindow returns readings with timestamps in [start, end], oldest first.
func (p *Postgres) QueryWindow(ctx context.Context, start, end time.Time) ([]*domain.Reading, error) {
	idCol := "sensor_id"
	if !p.hasSensorID.Load() {
		idCol = "NULL"
	}
	rows, err := p.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s, timestamp, temperature, humidity, lux, irradiance
			FROM %s WHERE timestamp >= $1 AND timestamp <= $2 ORDER BY timestamp ASC`, idCol, p.table),
		start, end,
	)
	if err != nil {
		return nil, &Error{Op: "query window", Err: err}
	}
	defer rows.Close()
	return p.scanReadings(rows)
}

// QueryDay returns all readings for one civil date.
func (p *Postgres) QueryDay(ctx context.Context, date string) ([]*domain.Reading, error) {
	start, end, err := p.zone.DayBounds(date)
	if err != nil {
		return nil, &Error{Op: "query day", Err: err}
	}
	return p.QueryWindow(ctx, start, end)
}

// DateRange returns the earliest and latest civil dates with data.
func (p *Postgres) DateRange(ctx context.Context) (string, string, error) {
	var minTS, maxTS sql.NullTime
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT MIN(timestamp), MAX(timestamp) FROM %s`, p.table),
	).Scan(&minTS, &maxTS)
	if err != nil {
		return "", "", &Error{Op: "date range", Err: err}
	}
	if !minTS.Valid || !maxTS.Valid {
		return "", "", nil
	}
	return p.zone.FormatDate(minTS.Time), p.zone.FormatDate(maxTS.Time), nil
}

// Stats reports dataset totals for the status surface.
func (p *Postgres) Stats(ctx context.Context) (ports.StoreStats, error) {
	var (
		total          int64
		oldest, newest sql.NullTime
	)
	err := p.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM %s`, p.table),
	).Scan(&total, &oldest, &newest)
	if err != nil {
		return ports.StoreStats{}, &Error{Op: "stats", Err: err}
	}
	st := ports.StoreStats{TotalReadings: total}
	if oldest.Valid {
		st.Oldest = p.zone.Normalize(oldest.Time)
	}
	if newest.Valid {
		st.Newest = p.zone.Normalize(newest.Time)
	}
	return st, nil
}

// Ping is a lightweight connectivity probe.
func (p *Postgres) Ping(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return &Error{Op: "ping", Err: err}
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) scanReadings(rows *sql.Rows) ([]*domain.Reading, error) {
	var out []*domain.Reading
	for rows.Next() {
		var (
			sensorID sql.NullString
			ts       time.Time
			temp, rh sql.NullFloat64
			lux, irr sql.NullFloat64
		)
		if err := rows.Scan(&sensorID, &ts, &temp, &rh, &lux, &irr); err != nil {
			return nil, &Error{Op: "scan", Err: err}
		}
		r := &domain.Reading{
			SensorID:  sensorID.String,
			Timestamp: p.zone.Normalize(ts),
		}
		if temp.Valid {
			r.Temperature = &temp.Float64
		}
		if rh.Valid {
			r.Humidity = &rh.Float64
		}
		if lux.Valid {
			r.Lux = &lux.Float64
		}
		if irr.Valid {
			r.Irradiance = &irr.Float64
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "scan", Err: err}
	}
	return out, nil
}

var _ ports.Store = (*Postgres)(nil)
