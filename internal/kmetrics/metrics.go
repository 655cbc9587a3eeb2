// Package kmetrics exposes prometheus collectors for the kernel
// internals: event queue depth,
// dispatch latency, per-state service gauges, dependency satisfaction,
// and the coroutine frame table size. Each kernel instance gets its own
// Metrics (labelled by kernel name) rather than sharing package-level
// globals, so multiple kernels in one process do not clobber each
// other's series.
package kmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every collector one kernel instance reports.
type Metrics struct {
	QueueDepth           prometheus.Gauge
	EventsProcessedTotal prometheus.Counter
	DispatchLatency      prometheus.Histogram
	ServiceState         *prometheus.GaugeVec // labels: state
	DependencySatisfied  *prometheus.GaugeVec // labels: interface
	CoroutineFrames      prometheus.Gauge
}

// New constructs and registers a Metrics set labelled with kernelName
// against reg. Passing a fresh prometheus.NewRegistry() (rather than the
// global DefaultRegisterer) is recommended for tests so repeated kernel
// construction does not panic on duplicate registration.
func New(reg prometheus.Registerer, kernelName string) *Metrics {
	constLabels := prometheus.Labels{"kernel": kernelName}

	m := &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ichor",
			Subsystem:   "queue",
			Name:        "depth",
			Help:        "Number of events currently queued but not yet popped.",
			ConstLabels: constLabels,
		}),
		EventsProcessedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "ichor",
			Subsystem:   "scheduler",
			Name:        "events_processed_total",
			Help:        "Total number of events popped and dispatched by the scheduler loop.",
			ConstLabels: constLabels,
		}),
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "ichor",
			Subsystem:   "scheduler",
			Name:        "dispatch_latency_seconds",
			Help:        "Time spent dispatching one popped event to its listeners.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		ServiceState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "ichor",
			Subsystem:   "service",
			Name:        "state",
			Help:        "Number of services currently in each lifecycle state.",
			ConstLabels: constLabels,
		}, []string{"state"}),
		DependencySatisfied: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   "ichor",
			Subsystem:   "dependency",
			Name:        "satisfied_count",
			Help:        "Satisfaction count of a required dependency interface, summed across services.",
			ConstLabels: constLabels,
		}, []string{"interface"}),
		CoroutineFrames: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "ichor",
			Subsystem:   "coroutine",
			Name:        "frames",
			Help:        "Number of suspended coroutine frames currently held by the scheduler.",
			ConstLabels: constLabels,
		}),
	}

	reg.MustRegister(
		m.QueueDepth,
		m.EventsProcessedTotal,
		m.DispatchLatency,
		m.ServiceState,
		m.DependencySatisfied,
		m.CoroutineFrames,
	)
	return m
}

// ObserveDispatch records how long one dispatch took.
func (m *Metrics) ObserveDispatch(start time.Time) {
	m.DispatchLatency.Observe(time.Since(start).Seconds())
}
