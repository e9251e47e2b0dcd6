// Package session holds the per-session state machines: the connection gate
// that mirrors the wallet, and the investment lifecycle that it guards.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

type stateListener struct {
	id uint64
	fn func(domain.ConnectionState)
}

// Gate tracks the wallet connection and broadcasts every change to its
// listeners. It is the only writer of the session's ConnectionState.
type Gate struct {
	wallet domain.WalletService
	logger *slog.Logger

	// dispatchMu is held from a state commit through its delivery, so
	// listeners observe states in commit order.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	state     domain.ConnectionState
	synced    bool // a wallet report has been applied
	listeners []stateListener
	nextID    uint64
	unsub     func()
}

// NewGate subscribes to wallet's reports and then mirrors its current state.
// A report delivered between the two is kept over the initial read.
func NewGate(wallet domain.WalletService, logger *slog.Logger) *Gate {
	g := &Gate{
		wallet: wallet,
		logger: logger.With(slog.String("component", "connection_gate")),
	}
	unsub := wallet.Subscribe(g.apply)
	initial := wallet.State().Normalize()

	g.mu.Lock()
	g.unsub = unsub
	if !g.synced {
		g.state = initial
	}
	g.mu.Unlock()
	return g
}

// State returns the current connection state.
func (g *Gate) State() domain.ConnectionState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Subscribe registers fn to be called synchronously, in registration order,
// after every state change. The returned function removes the listener.
func (g *Gate) Subscribe(fn func(domain.ConnectionState)) func() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.nextID++
	id := g.nextID
	g.listeners = append(g.listeners, stateListener{id: id, fn: fn})

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		for i, l := range g.listeners {
			if l.id == id {
				g.listeners = append(g.listeners[:i:i], g.listeners[i+1:]...)
				return
			}
		}
	}
}

// Connect asks the wallet to connect. The state change arrives through the
// wallet subscription; on error the gate stays disconnected.
func (g *Gate) Connect(ctx context.Context) error {
	if err := g.wallet.Connect(ctx); err != nil {
		g.logger.WarnContext(ctx, "wallet connect failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Disconnect asks the wallet to disconnect.
func (g *Gate) Disconnect(ctx context.Context) error {
	return g.wallet.Disconnect(ctx)
}

// Close stops mirroring the wallet. Listeners are dropped.
func (g *Gate) Close() {
	g.mu.Lock()
	unsub := g.unsub
	g.unsub = nil
	g.listeners = nil
	g.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// apply records a wallet report and notifies listeners outside the state
// lock.
func (g *Gate) apply(next domain.ConnectionState) {
	next = next.Normalize()

	g.dispatchMu.Lock()
	defer g.dispatchMu.Unlock()

	g.mu.Lock()
	g.synced = true
	if next == g.state {
		g.mu.Unlock()
		return
	}
	prev := g.state
	g.state = next
	listeners := make([]stateListener, len(g.listeners))
	copy(listeners, g.listeners)
	g.mu.Unlock()

	g.logger.Info("connection state changed",
		slog.Bool("connected", next.Connected),
		slog.String("account", next.Account),
		slog.Uint64("chain_id", next.ChainID),
		slog.Bool("was_connected", prev.Connected),
	)

	for _, l := range listeners {
		l.fn(next)
	}
}
