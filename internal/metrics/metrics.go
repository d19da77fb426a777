// Package metrics exposes the pipeline's prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Ingest counts batch outcomes per source. Counters move only after the
// batch transaction has committed.
type Ingest struct {
	processed *prometheus.CounterVec
	flagged   *prometheus.CounterVec
}

func NewIngest() *Ingest {
	return &Ingest{
		processed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lotsight_ingest_processed_total",
			Help: "Raw records that received an outcome, by source.",
		}, []string{"source"}),
		flagged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "lotsight_ingest_flagged_total",
			Help: "Raw records rejected with a data-quality flag, by source.",
		}, []string{"source"}),
	}
}

func (m *Ingest) ObserveBatch(source string, processed, flagged int) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(source).Add(float64(processed))
	m.flagged.WithLabelValues(source).Add(float64(flagged))
}

var Module = fx.Module("metrics",
	fx.Provide(NewIngest),
)
