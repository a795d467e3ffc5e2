package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments shared across components.
type Metrics struct {
	Transitions      *prometheus.CounterVec
	GatewayLatency   *prometheus.HistogramVec
	PollerCycles     *prometheus.CounterVec
	ClaimsDiscovered prometheus.Counter
	RetriesRouted    *prometheus.CounterVec
	DeadLetters      prometheus.Counter
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers all metrics on reg. Tests pass a fresh registry so
// per-test instances never collide on the default one.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaveiro_key_transitions_total",
			Help: "Key state machine invocations by operation and outcome",
		}, []string{"operation", "outcome"}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chaveiro_directory_request_seconds",
			Help:    "Latency of directory gateway calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		PollerCycles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaveiro_claim_sync_cycles_total",
			Help: "Reconciliation poller cycles by outcome",
		}, []string{"outcome"}),
		ClaimsDiscovered: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaveiro_claims_discovered_total",
			Help: "Directory claims created or advanced by the poller",
		}),
		RetriesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chaveiro_retries_routed_total",
			Help: "Triggers re-queued after a transient gateway failure",
		}, []string{"operation"}),
		DeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Name: "chaveiro_dead_letters_total",
			Help: "Triggers routed to the dead-letter channel after exhausting retries",
		}),
	}
}

// ObserveTransition records one state machine invocation.
func (m *Metrics) ObserveTransition(operation, outcome string) {
	m.Transitions.WithLabelValues(operation, outcome).Inc()
}
