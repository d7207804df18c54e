package batch

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the operational counters a Batch Engine emits so an
// operator can watch throughput and failure rate across deployments.
type Metrics struct {
	operationsTotal   *prometheus.CounterVec
	executionDuration prometheus.Histogram
}

// NewMetrics registers the batch engine's counters against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the default
// global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dagsdk",
			Subsystem: "batch",
			Name:      "operations_total",
			Help:      "Count of batch operations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		executionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dagsdk",
			Subsystem: "batch",
			Name:      "execution_duration_seconds",
			Help:      "Wall-clock duration of a full batch Run call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if err := reg.Register(m.operationsTotal); err != nil {
		panic(err)
	}
	if err := reg.Register(m.executionDuration); err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) observe(ops []Operation, results []Result, elapsedSeconds float64) {
	if m == nil {
		return
	}
	for i, r := range results {
		outcome := "success"
		if r.Err != nil {
			outcome = "failure"
		}
		m.operationsTotal.WithLabelValues(string(ops[i].Kind), outcome).Inc()
	}
	m.executionDuration.Observe(elapsedSeconds)
}

// WithMetrics attaches m to e; every Run call records per-operation
// counters and the overall duration.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}
