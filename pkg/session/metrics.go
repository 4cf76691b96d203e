package session

import "github.com/prometheus/client_golang/prometheus"

const namespace = "storefront_session"

// Metrics are the session's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	RefreshExchanges *prometheus.CounterVec
	RefreshJoined    prometheus.Counter
	ResponseRetries  *prometheus.CounterVec
	StateTransitions *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RefreshExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_exchanges_total",
			Help:      "Renewal token exchanges with the issuing service, by outcome.",
		}, []string{"outcome"}),
		RefreshJoined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_joined_total",
			Help:      "Refresh callers whose exchange was shared with at least one other caller.",
		}),
		ResponseRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "response_retries_total",
			Help:      "Requests rejected with 401 and what happened next, by outcome.",
		}, []string{"outcome"}),
		StateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Session state transitions, by target state.",
		}, []string{"to"}),
	}

	if reg != nil {
		reg.MustRegister(m.RefreshExchanges, m.RefreshJoined, m.ResponseRetries, m.StateTransitions)
	}
	return m
}

// Exchange outcomes.
const (
	outcomeSuccess = "success"
	outcomeRotated = "rotated"
	outcomeFailure = "failure"
	outcomeRetry   = "retry"
)

// Response retry outcomes.
const (
	retryReplayed      = "replayed"
	retryRefreshFailed = "refresh_failed"
	retryUnreplayable  = "unreplayable"
)

func (m *Metrics) exchange(outcome string) {
	if m != nil {
		m.RefreshExchanges.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) joined() {
	if m != nil {
		m.RefreshJoined.Inc()
	}
}

func (m *Metrics) retry(outcome string) {
	if m != nil {
		m.ResponseRetries.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) transition(to State) {
	if m != nil {
		m.StateTransitions.WithLabelValues(to.String()).Inc()
	}
}
