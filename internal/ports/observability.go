package ports

// Observability carries the pipeline's logs and metrics. The default
// implementation pairs slog with Prometheus; tests plug in stubs.
type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}
