package rowstore

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics are the counters/gauges the serialization step and the
// obsolete collector report through. Each Core owns its own registry
// so multiple stores in one process don't collide on metric names.
type Metrics struct {
	reg                *prometheus.Registry
	restarts           prometheus.Counter
	updatesPublished   prometheus.Counter
	insertsPublished   prometheus.Counter
	obsoleteBytesFreed prometheus.Counter
}

// NewMetrics builds a fresh, independently registered Metrics set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		reg: reg,
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowstore_restarts_total",
			Help: "Serialization-step restarts returned to callers.",
		}),
		updatesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowstore_updates_published_total",
			Help: "Update versions published to a version chain.",
		}),
		insertsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowstore_inserts_published_total",
			Help: "Insert nodes spliced into a gap skip list.",
		}),
		obsoleteBytesFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rowstore_obsolete_bytes_freed_total",
			Help: "Bytes reclaimed by the obsolete-version collector.",
		}),
	}
	reg.MustRegister(m.restarts, m.updatesPublished, m.insertsPublished, m.obsoleteBytesFreed)
	return m
}

// Registry exposes the Prometheus registry for embedding into a
// caller's own HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Snapshot is a point-in-time read of every counter, handy for tests
// and for the workload driver's end-of-run summary.
type Snapshot struct {
	Restarts           float64
	UpdatesPublished   float64
	InsertsPublished   float64
	ObsoleteBytesFreed float64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Restarts:           readCounter(m.restarts),
		UpdatesPublished:   readCounter(m.updatesPublished),
		InsertsPublished:   readCounter(m.insertsPublished),
		ObsoleteBytesFreed: readCounter(m.obsoleteBytesFreed),
	}
}

func readCounter(c prometheus.Counter) float64 {
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		return 0
	}
	return metric.GetCounter().GetValue()
}
