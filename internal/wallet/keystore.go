// Package wallet provides a wallet-connection service backed by a locally
// held private key.
package wallet

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/alanyoungcy/rwaexchange/internal/crypto"
	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// ChainIDReader reports the chain the RPC endpoint is on.
type ChainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

type listener struct {
	id uint64
	fn func(domain.ConnectionState)
}

// KeyWallet implements domain.WalletService. Connecting loads the key and
// reads the chain id; disconnecting forgets the key.
type KeyWallet struct {
	src    crypto.KeySource
	chain  ChainIDReader
	logger *slog.Logger

	// opMu serializes Connect, Disconnect and Refresh so listeners see
	// reports in the order they were made.
	opMu sync.Mutex

	mu        sync.Mutex
	signer    *crypto.Signer
	state     domain.ConnectionState
	listeners []listener
	nextID    uint64
}

var _ domain.WalletService = (*KeyWallet)(nil)

// New creates a disconnected wallet.
func New(src crypto.KeySource, chain ChainIDReader, logger *slog.Logger) *KeyWallet {
	return &KeyWallet{
		src:    src,
		chain:  chain,
		logger: logger.With(slog.String("component", "key_wallet")),
	}
}

// Connect loads the key and reports the connected account. Connecting an
// already connected wallet is a no-op.
func (w *KeyWallet) Connect(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if w.State().Connected {
		return nil
	}

	key, err := crypto.LoadKey(w.src)
	if err != nil {
		return fmt.Errorf("wallet: connect: %w", err)
	}
	chainID, err := w.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("wallet: connect: chain id: %w", err)
	}

	signer := crypto.NewSigner(key)
	next := domain.ConnectionState{
		Connected: true,
		Account:   signer.Address().Hex(),
		ChainID:   chainID.Uint64(),
	}

	w.mu.Lock()
	w.signer = signer
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "wallet connected",
		slog.String("account", next.Account),
		slog.Uint64("chain_id", next.ChainID),
	)
	w.report(next)
	return nil
}

// Disconnect forgets the key and reports a cleared state.
func (w *KeyWallet) Disconnect(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	was := w.state.Connected
	w.signer = nil
	w.mu.Unlock()

	if was {
		w.logger.InfoContext(ctx, "wallet disconnected")
	}
	w.report(domain.ConnectionState{})
	return nil
}

// Refresh re-reads the chain id and reports a chain switch if it changed.
func (w *KeyWallet) Refresh(ctx context.Context) error {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	cur := w.State()
	if !cur.Connected {
		return nil
	}
	chainID, err := w.chain.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("wallet: refresh: %w", err)
	}
	if chainID.Uint64() == cur.ChainID {
		return nil
	}

	w.logger.InfoContext(ctx, "chain switched",
		slog.Uint64("from", cur.ChainID),
		slog.Uint64("to", chainID.Uint64()),
	)
	cur.ChainID = chainID.Uint64()
	w.report(cur)
	return nil
}

// Watch calls Refresh every interval until ctx is done. Refresh errors are
// logged and do not stop the loop.
func (w *KeyWallet) Watch(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "wallet refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

// State returns the last reported state.
func (w *KeyWallet) State() domain.ConnectionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Subscribe registers fn for every report. The returned function removes it.
func (w *KeyWallet) Subscribe(fn func(domain.ConnectionState)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	id := w.nextID
	w.listeners = append(w.listeners, listener{id: id, fn: fn})

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, l := range w.listeners {
			if l.id == id {
				w.listeners = append(w.listeners[:i:i], w.listeners[i+1:]...)
				return
			}
		}
	}
}

// Address returns the connected account.
func (w *KeyWallet) Address() (common.Address, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.signer == nil {
		return common.Address{}, domain.ErrNotConnected
	}
	return w.signer.Address(), nil
}

// SignTx signs tx with the connected key.
func (w *KeyWallet) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	w.mu.Lock()
	signer := w.signer
	w.mu.Unlock()

	if signer == nil {
		return nil, fmt.Errorf("wallet: sign: %w", domain.ErrNotConnected)
	}
	signed, err := signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("wallet: %w: %w", domain.ErrSigningFailed, err)
	}
	return signed, nil
}

func (w *KeyWallet) report(next domain.ConnectionState) {
	w.mu.Lock()
	w.state = next
	listeners := make([]listener, len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	for _, l := range listeners {
		l.fn(next)
	}
}
