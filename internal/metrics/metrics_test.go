package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

func delta(t *testing.T, collector prometheus.Collector, observe func()) float64 {
	t.Helper()

	before := testutil.ToFloat64(collector)
	observe()
	after := testutil.ToFloat64(collector)
	return after - before
}

func TestChainClientRecords(t *testing.T) {
	m := NewChainClient()
	start := time.Now().Add(-time.Second)

	assert.Equal(t, 1.0, delta(t, chainOperationsTotal.WithLabelValues("send_transaction", "success"), func() {
		m.Observe("send_transaction", nil, start)
	}))
	assert.Equal(t, 1.0, delta(t, chainOperationsTotal.WithLabelValues("estimate_gas", "error"), func() {
		m.Observe("estimate_gas", errors.New("execution reverted"), start)
	}))
}

func TestSessionConnection(t *testing.T) {
	m := NewSession()

	m.ObserveConnection(domain.ConnectionState{Connected: true, Account: "0x1", ChainID: 1})
	assert.Equal(t, 1.0, testutil.ToFloat64(walletConnected))

	m.ObserveConnection(domain.ConnectionState{})
	assert.Equal(t, 0.0, testutil.ToFloat64(walletConnected))
}

func TestSessionAttempts(t *testing.T) {
	m := NewSession()
	start := time.Now()

	assert.Equal(t, 1.0, delta(t, investAttemptsTotal.WithLabelValues(OutcomeStarted), func() {
		m.ObserveAttempt(domain.InvestmentAttempt{Phase: domain.PhaseSubmitting, StartedAt: start, UpdatedAt: start})
	}))
	assert.Equal(t, 0.0, delta(t, investAttemptsTotal.WithLabelValues(OutcomeStarted), func() {
		m.ObserveAttempt(domain.InvestmentAttempt{Phase: domain.PhaseAwaitingConfirmation})
	}))
	assert.Equal(t, 1.0, delta(t, investAttemptsTotal.WithLabelValues(OutcomeConfirmed), func() {
		m.ObserveAttempt(domain.InvestmentAttempt{Phase: domain.PhaseConfirmed, StartedAt: start, UpdatedAt: start.Add(12 * time.Second)})
	}))
	assert.Equal(t, 1.0, delta(t, investAttemptsTotal.WithLabelValues("transaction_reverted"), func() {
		m.ObserveAttempt(domain.InvestmentAttempt{
			Phase: domain.PhaseFailed,
			Err:   &domain.AttemptError{Kind: domain.ErrTransactionReverted},
		})
	}))
}
