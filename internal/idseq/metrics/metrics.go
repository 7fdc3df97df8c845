// Package metrics exposes allocator activity as Prometheus collectors. All
// methods are safe on a nil receiver so instrumentation can be disabled by
// simply not constructing it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	IdsIssued         prometheus.Counter
	BatchAcquisitions prometheus.Counter
	StoreWrites       prometheus.Counter
	AcquireDuration   prometheus.Histogram
	RangeRemaining    prometheus.Gauge
	BatchSize         prometheus.Gauge
}

// New registers the allocator collectors with reg and returns the handle.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		IdsIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "idseq",
			Name:      "ids_issued_total",
			Help:      "Identifiers handed out by the fast path.",
		}),
		BatchAcquisitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "idseq",
			Name:      "batch_acquisitions_total",
			Help:      "Batches reserved against the durable store.",
		}),
		StoreWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "idseq",
			Name:      "store_writes_total",
			Help:      "Durable counter writes.",
		}),
		AcquireDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "idseq",
			Name:      "batch_acquire_duration_seconds",
			Help:      "Wall time of batch acquisition including the durable write.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		RangeRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "idseq",
			Name:      "range_remaining",
			Help:      "Identifiers still reserved in memory but unissued.",
		}),
		BatchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "idseq",
			Name:      "effective_batch_size",
			Help:      "Batch size the next acquisition will request.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.IdsIssued, m.BatchAcquisitions, m.StoreWrites,
		m.AcquireDuration, m.RangeRemaining, m.BatchSize,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IssuedID records a single fast-path issuance.
func (m *Metrics) IssuedID() {
	if m == nil {
		return
	}
	m.IdsIssued.Inc()
}

// BatchAcquired records a completed batch acquisition.
func (m *Metrics) BatchAcquired(size uint32, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.BatchAcquisitions.Inc()
	m.StoreWrites.Inc()
	m.AcquireDuration.Observe(elapsed.Seconds())
	m.BatchSize.Set(float64(size))
}

// SetRemaining tracks the unissued tail of the in-memory range.
func (m *Metrics) SetRemaining(n uint64) {
	if m == nil {
		return
	}
	m.RangeRemaining.Set(float64(n))
}
