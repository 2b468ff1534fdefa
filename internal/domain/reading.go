package domain

import "time"

// Physical sanity bounds for incoming sensor values. Anything outside is
// treated as sensor noise and dropped at the decode boundary.
const (
	TemperatureMin = -40.0
	TemperatureMax = 85.0
	HumidityMin    = 0.0
	HumidityMax    = 100.0
	LuxMin         = 0.0
	LuxMax         = 200000.0
)

// DefaultCalibrationK converts ambient lux to irradiance (W/m²) when the
// gateway does not report irradiance itself.
const DefaultCalibrationK = 127.0

// Reading is the canonical unit of environmental telemetry. Its timestamp is
// always normalized to the deployment's fixed civil zone before the reading
// enters the buffer or the store; numeric fields are nil when the gateway
// omitted them.
type Reading struct {
	SensorID    string    `json:"id,omitempty"`
	Timestamp   time.Time `json:"time"`
	Temperature *float64  `json:"temp,omitempty"`
	Humidity    *float64  `json:"rh,omitempty"`
	Lux         *float64  `json:"lux,omitempty"`
	Irradiance  *float64  `json:"irradiance,omitempty"`
}

// HasSample reports whether at least one sensor field carries a value.
// Frames without any measurement are rejected at the wire boundary.
func (r *Reading) HasSample() bool {
	return r.Temperature != nil || r.Humidity != nil || r.Lux != nil
}

// InRange checks every present numeric field against the physical bounds.
func (r *Reading) InRange() bool {
	if r.Temperature != nil && (*r.Temperature < TemperatureMin || *r.Temperature > TemperatureMax) {
		return false
	}
	if r.Humidity != nil && (*r.Humidity < HumidityMin || *r.Humidity > HumidityMax) {
		return false
	}
	if r.Lux != nil && (*r.Lux < LuxMin || *r.Lux > LuxMax) {
		return false
	}
	return true
}

// DeriveIrradiance computes irradiance as lux/k once at ingestion when the
// gateway did not supply it. A non-positive k disables derivation.
func (r *Reading) DeriveIrradiance(k float64) {
	if r.Irradiance != nil || r.Lux == nil || k <= 0 {
		return
	}
	v := *r.Lux / k
	r.Irradiance = &v
}

// Float returns a pointer to v. Convenience for building readings in tests
// and adapters.
func Float(v float64) *float64 { return &v }
