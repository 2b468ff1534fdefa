package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/civiltime"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/ports"
)

const (
	insertFullSQL = `INSERT INTO sensor_readings (timestamp, sensor_id, temperature, humidity, lux, irradiance)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	insertDegradedSQL = `INSERT INTO sensor_readings (timestamp, temperature, humidity, lux, irradiance)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`
)

func testZone(t *testing.T) *civiltime.Zone {
	t.Helper()
	zone, err := civiltime.NewZone("AST", "+03:00")
	if err != nil {
		t.Fatalf("zone: %v", err)
	}
	return zone
}

func testStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db, "sensor_readings", testZone(t), &nullObs{}), mock
}

func testReading(ts time.Time) *domain.Reading {
	return &domain.Reading{
		SensorID:    "esp32-01",
		Timestamp:   ts,
		Temperature: domain.Float(24.5),
		Humidity:    domain.Float(50.0),
		Lux:         domain.Float(635.0),
		Irradiance:  domain.Float(5.0),
	}
}

func TestInsertFullShape(t *testing.T) {
	p, mock := testStore(t)
	ts := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(insertFullSQL)).
		WithArgs(ts, "esp32-01", 24.5, 50.0, 635.0, 5.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	id, err := p.Insert(context.Background(), testReading(ts))
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id != 7 {
		t.Fatalf("expected id 7, got %d", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertMissingSensorIDBecomesNull(t *testing.T) {
	p, mock := testStore(t)
	ts := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(insertFullSQL)).
		WithArgs(ts, nil, 24.5, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	r := &domain.Reading{Timestamp: ts, Temperature: domain.Float(24.5)}
	if _, err := p.Insert(context.Background(), r); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertSchemaDriftDegradesOnce(t *testing.T) {
	p, mock := testStore(t)
	ts := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(insertFullSQL)).
		WithArgs(ts, "esp32-01", 24.5, 50.0, 635.0, 5.0).
		WillReturnError(&pgconn.PgError{Code: "42703", Message: `column "sensor_id" does not exist`})
	mock.ExpectQuery(regexp.QuoteMeta(insertDegradedSQL)).
		WithArgs(ts, 24.5, 50.0, 635.0, 5.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))

	id, err := p.Insert(context.Background(), testReading(ts))
	if err != nil {
		t.Fatalf("insert after drift: %v", err)
	}
	if id != 3 {
		t.Fatalf("expected id 3, got %d", id)
	}

	// The adapter stays degraded: the next insert skips the full shape.
	mock.ExpectQuery(regexp.QuoteMeta(insertDegradedSQL)).
		WithArgs(ts, 24.5, 50.0, 635.0, 5.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(4)))

	if _, err := p.Insert(context.Background(), testReading(ts)); err != nil {
		t.Fatalf("degraded insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertUnrelatedErrorDoesNotDegrade(t *testing.T) {
	p, mock := testStore(t)
	ts := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(insertFullSQL)).
		WithArgs(ts, "esp32-01", 24.5, 50.0, 635.0, 5.0).
		WillReturnError(errors.New("connection reset by peer"))

	if _, err := p.Insert(context.Background(), testReading(ts)); err == nil {
		t.Fatal("expected insert error")
	}

	// The full shape is still in use afterwards.
	mock.ExpectQuery(regexp.QuoteMeta(insertFullSQL)).
		WithArgs(ts, "esp32-01", 24.5, 50.0, 635.0, 5.0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))

	if _, err := p.Insert(context.Background(), testReading(ts)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryDayUsesCivilBounds(t *testing.T) {
	p, mock := testStore(t)
	zone := testZone(t)

	start, end, err := zone.DayBounds("2026-08-30")
	if err != nil {
		t.Fatalf("day bounds: %v", err)
	}

	rows := sqlmock.NewRows([]string{"sensor_id", "timestamp", "temperature", "humidity", "lux", "irradiance"}).
		AddRow("esp32-01", start.Add(time.Hour), 24.5, 50.0, 635.0, 5.0).
		AddRow(nil, start.Add(2*time.Hour), 25.0, nil, nil, nil)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT sensor_id, timestamp, temperature, humidity, lux, irradiance
			FROM sensor_readings WHERE timestamp >= $1 AND timestamp <= $2 ORDER BY timestamp ASC`)).
		WithArgs(start, end).
		WillReturnRows(rows)

	got, err := p.QueryDay(context.Background(), "2026-08-30")
	if err != nil {
		t.Fatalf("query day: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readings, got %d", len(got))
	}
	if got[0].SensorID != "esp32-01" {
		t.Fatalf("expected sensor id on first row, got %q", got[0].SensorID)
	}
	if got[1].SensorID != "" {
		t.Fatalf("expected empty sensor id on null row, got %q", got[1].SensorID)
	}
	if got[1].Humidity != nil {
		t.Fatal("expected nil humidity for null column")
	}
	if _, off := got[0].Timestamp.Zone(); off != 3*3600 {
		t.Fatalf("expected timestamps normalized to +03:00, got offset %d", off)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestQueryDayRejectsBadDate(t *testing.T) {
	p, _ := testStore(t)
	if _, err := p.QueryDay(context.Background(), "30-08-2026"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestDateRange(t *testing.T) {
	p, mock := testStore(t)
	zone := testZone(t)

	minTS := time.Date(2026, 8, 1, 23, 30, 0, 0, time.UTC)
	maxTS := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MIN(timestamp), MAX(timestamp) FROM sensor_readings`)).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(minTS, maxTS))

	minDate, maxDate, err := p.DateRange(context.Background())
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	// 23:30 UTC is already the next civil day at +03:00.
	if minDate != zone.FormatDate(minTS) || minDate != "2026-08-02" {
		t.Fatalf("expected min date 2026-08-02, got %s", minDate)
	}
	if maxDate != "2026-08-30" {
		t.Fatalf("expected max date 2026-08-30, got %s", maxDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDateRangeEmptyTable(t *testing.T) {
	p, mock := testStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT MIN(timestamp), MAX(timestamp) FROM sensor_readings`)).
		WillReturnRows(sqlmock.NewRows([]string{"min", "max"}).AddRow(nil, nil))

	minDate, maxDate, err := p.DateRange(context.Background())
	if err != nil {
		t.Fatalf("date range: %v", err)
	}
	if minDate != "" || maxDate != "" {
		t.Fatalf("expected empty range, got %s..%s", minDate, maxDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestStats(t *testing.T) {
	p, mock := testStore(t)

	oldest := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	newest := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), MIN(timestamp), MAX(timestamp) FROM sensor_readings`)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "min", "max"}).AddRow(int64(1234), oldest, newest))

	st, err := p.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalReadings != 1234 {
		t.Fatalf("expected 1234 readings, got %d", st.TotalReadings)
	}
	if !st.Oldest.Equal(oldest) || !st.Newest.Equal(newest) {
		t.Fatal("expected stats bounds to match stored instants")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

type nullObs struct{}

func (nullObs) LogInfo(msg string, fields ...ports.Field) {}

func (nullObs) LogWarn(msg string, fields ...ports.Field) {}

func (nullObs) LogError(msg string, err error, fields ...ports.Field) {}

func (nullObs) IncCounter(name string, v float64) {}

func (nullObs) SetGauge(name string, v float64) {}

func (nullObs) ObserveLatency(name string, seconds float64) {}
