package session

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/rwaexchange/internal/catalog"
	"github.com/alanyoungcy/rwaexchange/internal/disclosure"
	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// Session is the view-facing bundle of one browsing session: the catalog as
// seen through the current connection, and the investment lifecycle.
type Session struct {
	gate    *Gate
	invest  *Lifecycle
	catalog *catalog.Catalog
}

// New bundles gate, lifecycle and catalog.
func New(gate *Gate, invest *Lifecycle, cat *catalog.Catalog) *Session {
	return &Session{gate: gate, invest: invest, catalog: cat}
}

// Gate returns the connection gate the session is built on.
func (s *Session) Gate() *Gate { return s.gate }

// Lifecycle returns the investment lifecycle, for subscribing to attempts.
func (s *Session) Lifecycle() *Lifecycle { return s.invest }

// Connection returns the current connection state.
func (s *Session) Connection() domain.ConnectionState { return s.gate.State() }

// Connect asks the wallet to connect.
func (s *Session) Connect(ctx context.Context) error { return s.gate.Connect(ctx) }

// Disconnect asks the wallet to disconnect.
func (s *Session) Disconnect(ctx context.Context) error { return s.gate.Disconnect(ctx) }

// CurrentAttempt returns the current investment attempt.
func (s *Session) CurrentAttempt() domain.InvestmentAttempt { return s.invest.Current() }

// Assets returns every catalog asset disclosed under the current connection.
func (s *Session) Assets() []domain.DisplayAsset {
	return disclosure.RevealAll(s.catalog.All(), s.gate.State())
}

// Asset returns one disclosed asset.
func (s *Session) Asset(id string) (domain.DisplayAsset, error) {
	rec, err := s.catalog.Get(id)
	if err != nil {
		return domain.DisplayAsset{}, err
	}
	return disclosure.Reveal(rec, s.gate.State()), nil
}

// Overview returns the market summary under the current connection.
func (s *Session) Overview() domain.MarketOverview {
	return disclosure.Overview(s.catalog.All(), s.gate.State())
}

// Invest invests amount in the catalog asset id. A nil amount invests the
// asset's minimum; smaller amounts are refused with ErrInvalidAmount before
// any attempt is created. ErrNotConnected and then ErrAlreadyInProgress take
// precedence over catalog and amount checks.
func (s *Session) Invest(ctx context.Context, id string, amount *decimal.Decimal) (domain.InvestmentAttempt, error) {
	if !s.gate.State().Connected {
		return s.invest.Current(), domain.ErrNotConnected
	}
	if s.invest.InFlight() {
		return s.invest.Current(), domain.ErrAlreadyInProgress
	}
	rec, err := s.catalog.Get(id)
	if err != nil {
		return s.invest.Current(), err
	}

	value := rec.MinInvestment
	if amount != nil {
		if amount.LessThan(rec.MinInvestment) {
			return s.invest.Current(), fmt.Errorf("session: amount %s below minimum %s: %w",
				amount.String(), rec.MinInvestment.String(), domain.ErrInvalidAmount)
		}
		value = *amount
	}
	return s.invest.Invest(ctx, rec.ID, value)
}

// Close stops the lifecycle watchers and detaches the gate from the wallet.
func (s *Session) Close() {
	s.invest.Close()
	s.gate.Close()
}
