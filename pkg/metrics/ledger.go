package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records lifecycle activity on ledger entries.
type LedgerMetrics struct {
	transitions  *prometheus.CounterVec
	rejections   *prometheus.CounterVec
	retryAnomaly prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transitions_total",
		Help: "Ledger entry state transitions by target status.",
	}, []string{"to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_transition_rejections_total",
		Help: "Rejected ledger transitions by reason.",
	}, []string{"reason"})
	retryAnomaly := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_retry_cap_exceeded_total",
		Help: "Failures recorded past the advisory retry cap.",
	})
	reg.MustRegister(transitions, rejections, retryAnomaly)
	return &LedgerMetrics{
		transitions:  transitions,
		rejections:   rejections,
		retryAnomaly: retryAnomaly,
	}
}

// IncTransition counts a successful transition into the given status.
func (m *LedgerMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// IncRejection counts a rejected transition.
func (m *LedgerMetrics) IncRejection(reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(reason).Inc()
}

// IncRetryAnomaly counts a failure recorded beyond the advisory retry cap.
func (m *LedgerMetrics) IncRetryAnomaly() {
	if m == nil || m.retryAnomaly == nil {
		return
	}
	m.retryAnomaly.Inc()
}
