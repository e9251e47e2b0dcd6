package session

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/rwaexchange/internal/catalog"
	"github.com/alanyoungcy/rwaexchange/internal/config"
	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

func newTestSession(t *testing.T) (*Session, *fixture) {
	t.Helper()
	f := newFixture(t)
	cat, err := catalog.FromConfig(config.DemoAssets())
	require.NoError(t, err)
	return New(f.gate, f.life, cat), f
}

func TestSession_DisclosureFollowsConnection(t *testing.T) {
	s, f := newTestSession(t)

	assets := s.Assets()
	require.Len(t, assets, 4)
	for _, a := range assets {
		assert.True(t, a.TotalValue.Redacted(), a.ID)
		assert.True(t, a.MinInvestment.Redacted(), a.ID)
	}
	assert.True(t, s.Overview().TotalValue.Redacted())

	f.connect(t)

	a, err := s.Asset("1")
	require.NoError(t, err)
	v, ok := a.MinInvestment.Get()
	require.True(t, ok)
	assert.True(t, v.Equal(decimal.NewFromInt(5000)))

	_, err = s.Asset("99")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_InvestDefaultsToMinimum(t *testing.T) {
	s, f := newTestSession(t)
	f.connect(t)

	a, err := s.Invest(context.Background(), "1", nil)
	require.NoError(t, err)
	assert.True(t, a.Amount.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, "2500000000000000000", a.NativeValue.String())
}

func TestSession_InvestChecks(t *testing.T) {
	s, f := newTestSession(t)

	_, err := s.Invest(context.Background(), "2", nil)
	require.ErrorIs(t, err, domain.ErrNotConnected)

	f.connect(t)

	_, err = s.Invest(context.Background(), "99", nil)
	require.ErrorIs(t, err, domain.ErrNotFound)

	low := decimal.NewFromInt(100)
	_, err = s.Invest(context.Background(), "2", &low)
	require.ErrorIs(t, err, domain.ErrInvalidAmount)

	assert.Empty(t, f.chain.submitted())
	assert.Equal(t, domain.PhaseIdle, s.Lifecycle().Current().Phase)

	more := decimal.NewFromInt(20000)
	a, err := s.Invest(context.Background(), "2", &more)
	require.NoError(t, err)
	assert.True(t, a.Amount.Equal(more))
}

func TestSession_InProgressTakesPrecedence(t *testing.T) {
	s, f := newTestSession(t)
	f.connect(t)

	first, err := s.Invest(context.Background(), "1", nil)
	require.NoError(t, err)
	require.Equal(t, domain.PhaseAwaitingConfirmation, first.Phase)

	one := decimal.NewFromInt(1)
	tests := []struct {
		name   string
		id     string
		amount *decimal.Decimal
	}{
		{name: "unknown asset", id: "99"},
		{name: "below minimum", id: "2", amount: &one},
		{name: "valid", id: "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Invest(context.Background(), tt.id, tt.amount)
			require.ErrorIs(t, err, domain.ErrAlreadyInProgress)
			assert.Equal(t, first.ID, got.ID)
		})
	}
	assert.Len(t, f.chain.submitted(), 1)
}
