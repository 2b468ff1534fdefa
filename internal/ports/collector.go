package ports

import "github.com/aadilnoufal/zdenrgy-analytics/internal/domain"

// Collector streams decoded readings from an upstream source (the TCP
// gateway listener, or a simulator in tests) into the ingest pipeline.
type Collector interface {
	Start(out chan<- *domain.Reading) error
	Stop() error
}
