package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

var (
	walletConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "wallet_connected",
		Help:      "1 while the session wallet is connected.",
	})
	investAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "invest",
		Name:      "attempts_total",
		Help:      "Investment attempts by outcome.",
	}, []string{"outcome"})
	investConfirmationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "invest",
		Name:      "confirmation_seconds",
		Help:      "Time from submission to a confirmed transaction.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})
)

// Outcome labels of rwax_invest_attempts_total.
const (
	OutcomeStarted   = "started"
	OutcomeConfirmed = "confirmed"
)

// Session tracks connection and investment lifecycle metrics.
type Session struct{}

// NewSession constructs a metrics collector for the session.
func NewSession() *Session {
	return &Session{}
}

// ObserveConnection records the current connection state.
func (Session) ObserveConnection(s domain.ConnectionState) {
	if s.Connected {
		walletConnected.Set(1)
		return
	}
	walletConnected.Set(0)
}

// ObserveAttempt records a lifecycle transition. Only phase entries that end
// or start an attempt are counted.
func (Session) ObserveAttempt(a domain.InvestmentAttempt) {
	switch a.Phase {
	case domain.PhaseSubmitting:
		investAttemptsTotal.WithLabelValues(OutcomeStarted).Inc()
	case domain.PhaseConfirmed:
		investAttemptsTotal.WithLabelValues(OutcomeConfirmed).Inc()
		if !a.StartedAt.IsZero() {
			investConfirmationSeconds.Observe(a.UpdatedAt.Sub(a.StartedAt).Seconds())
		}
	case domain.PhaseFailed:
		kind := "unknown"
		if a.Err != nil {
			kind = domain.ErrorKindName(a.Err.Kind)
		}
		investAttemptsTotal.WithLabelValues(kind).Inc()
	}
}
