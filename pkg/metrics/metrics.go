package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all application metrics
type Metrics struct {
	// Session metrics
	LoginAttempts      *prometheus.CounterVec
	SessionExpirations prometheus.Counter
	ActiveSession      prometheus.Gauge

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreLatency    *prometheus.HistogramVec
	CorruptReads    *prometheus.CounterVec

	// Messaging metrics
	EventsPublished *prometheus.CounterVec
}

// New creates the application metrics without registering them.
func New(namespace string) *Metrics {
	return &Metrics{
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "login_attempts_total",
			Help:      "Total number of login attempts by result",
		}, []string{"result"}),
		SessionExpirations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "expirations_total",
			Help:      "Total number of sessions force-closed by the expiry timer",
		}),
		ActiveSession: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "1 while a session is active, 0 otherwise",
		}),

		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operations_total",
			Help:      "Total number of key-value store operations",
		}, []string{"operation", "status"}),
		StoreLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of key-value store operations",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5},
		}, []string{"operation"}),
		CorruptReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "corrupt_reads_total",
			Help:      "Stored values that failed to parse and were treated as empty",
		}, []string{"key"}),

		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "messaging",
			Name:      "events_published_total",
			Help:      "Total number of change events published",
		}, []string{"type", "status"}),
	}
}

// MustRegister registers every collector on reg.
func (m *Metrics) MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(
		m.LoginAttempts,
		m.SessionExpirations,
		m.ActiveSession,
		m.StoreOperations,
		m.StoreLatency,
		m.CorruptReads,
		m.EventsPublished,
	)
}
