package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit pipeline and authorization
// decisions. All methods are nil-safe so components can run without metrics
// in tests.
type Metrics struct {
	EventsEnqueued  prometheus.Counter
	EventsDropped   prometheus.Counter
	EventsPersisted prometheus.Counter
	PersistFailures prometheus.Counter
	QueueDepth      prometheus.Gauge
	DrainBatch      prometheus.Histogram
	AuthzDecisions  *prometheus.CounterVec
}

// New creates and registers all application metrics.
func New() *Metrics {
	return &Metrics{
		EventsEnqueued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careledger_audit_events_enqueued_total",
			Help: "Total audit events accepted by the in-memory queue",
		}),
		EventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careledger_audit_events_dropped_total",
			Help: "Total audit events dropped because the queue was full",
		}),
		EventsPersisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careledger_audit_events_persisted_total",
			Help: "Total audit events written to durable storage",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "careledger_audit_persist_failures_total",
			Help: "Total audit events discarded after a storage failure",
		}),
		QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "careledger_audit_queue_depth",
			Help: "Current number of audit events buffered in memory",
		}),
		DrainBatch: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "careledger_audit_drain_batch_duration_seconds",
			Help:    "Duration of persisting one drained batch",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		AuthzDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "careledger_authz_decisions_total",
			Help: "Authorization decisions by policy and outcome",
		}, []string{"policy", "allowed"}),
	}
}

// IncEnqueued records an accepted event.
func (m *Metrics) IncEnqueued() {
	if m != nil {
		m.EventsEnqueued.Inc()
	}
}

// IncDropped records a drop-on-full event.
func (m *Metrics) IncDropped() {
	if m != nil {
		m.EventsDropped.Inc()
	}
}

// IncPersisted records n successfully stored events.
func (m *Metrics) IncPersisted(n int) {
	if m != nil {
		m.EventsPersisted.Add(float64(n))
	}
}

// IncPersistFailures records n events discarded after storage errors.
func (m *Metrics) IncPersistFailures(n int) {
	if m != nil {
		m.PersistFailures.Add(float64(n))
	}
}

// SetQueueDepth records the current buffered event count.
func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}

// ObserveDrainBatch records the duration of one batch persist.
func (m *Metrics) ObserveDrainBatch(d time.Duration) {
	if m != nil {
		m.DrainBatch.Observe(d.Seconds())
	}
}

// IncAuthzDecision records one policy evaluation outcome.
func (m *Metrics) IncAuthzDecision(policy string, allowed bool) {
	if m != nil {
		outcome := "false"
		if allowed {
			outcome = "true"
		}
		m.AuthzDecisions.WithLabelValues(policy, outcome).Inc()
	}
}
