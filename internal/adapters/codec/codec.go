// Package codec decodes newline-delimited gateway frames into typed
// readings. Decoding is a pure function over the frame; failures are
// reported as DecodeError and counted by the caller, never fatal.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aadilnoufal/zdenrgy-analytics/internal/civiltime"
	"github.com/aadilnoufal/zdenrgy-analytics/internal/domain"
)

// ErrEmptyFrame marks a blank line between frames. Callers skip these
// without counting a rejection.
var ErrEmptyFrame = errors.New("empty frame")

// DecodeError describes why a frame was rejected.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode: %s: %v", e.Reason, e.Err)
	}
	return "decode: " + e.Reason
}

func (e *DecodeError) Unwrap() error { return e.Err }

// wireFrame is the flat key-value shape sent by the gateway. Unknown keys
// are ignored; the sensor identifier is optional.
type wireFrame struct {
	ID         string   `json:"id"`
	Time       string   `json:"time"`
	Temp       *float64 `json:"temp"`
	RH         *float64 `json:"rh"`
	Lux        *float64 `json:"lux"`
	Irradiance *float64 `json:"irradiance"`
}

// Decoder turns wire frames into normalized readings.
type Decoder struct {
	zone *civiltime.Zone
	k    float64
}

// NewDecoder builds a decoder for the given civil zone and lux-to-irradiance
// calibration constant. A non-positive k falls back to the default.
func NewDecoder(zone *civiltime.Zone, k float64) *Decoder {
	if k <= 0 {
		k = domain.DefaultCalibrationK
	}
	return &Decoder{zone: zone, k: k}
}

// Decode parses one frame. The returned reading has a normalized, non-null
// timestamp and all numeric fields range-checked.
func (d *Decoder) Decode(line []byte) (*domain.Reading, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, ErrEmptyFrame
	}

	var f wireFrame
	if err := json.Unmarshal(line, &f); err != nil {
		return nil, &DecodeError{Reason: "malformed frame", Err: err}
	}
	if f.Time == "" {
		return nil, &DecodeError{Reason: "missing timestamp"}
	}

	ts, err := d.zone.ParseWire(f.Time)
	if err != nil {
		return nil, &DecodeError{Reason: "bad timestamp", Err: err}
	}

	r := &domain.Reading{
		SensorID:    f.ID,
		Timestamp:   ts,
		Temperature: f.Temp,
		Humidity:    f.RH,
		Lux:         f.Lux,
		Irradiance:  f.Irradiance,
	}
	if !r.HasSample() {
		return nil, &DecodeError{Reason: "no sensor fields"}
	}
	if !r.InRange() {
		return nil, &DecodeError{Reason: "value out of physical range"}
	}

	r.DeriveIrradiance(d.k)
	return r, nil
}
