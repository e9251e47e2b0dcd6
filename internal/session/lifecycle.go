package session

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/alanyoungcy/rwaexchange/internal/native"
)

// submitTimeout bounds one Submit call, which runs detached from the
// caller's context.
const submitTimeout = 2 * time.Minute

// maxUint256 bounds asset ids accepted as contract arguments.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ConnectionSource reports the current wallet connection. *Gate satisfies it.
type ConnectionSource interface {
	State() domain.ConnectionState
}

// Target is the contract call an investment is sent as.
type Target struct {
	Contract common.Address
	Method   string
}

type attemptListener struct {
	id uint64
	fn func(domain.InvestmentAttempt)
}

// Lifecycle drives one investment attempt at a time from submission to a
// terminal outcome. Only the current attempt is kept.
type Lifecycle struct {
	conn   ConnectionSource
	chain  domain.ChainClient
	conv   *native.Converter
	target Target
	logger *slog.Logger
	now    func() time.Time

	submitTimeout time.Duration

	// watchCtx is cancelled by Close; every confirmation watcher runs on it.
	watchCtx context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	// dispatchMu is held from a state commit through its delivery, so
	// listeners observe transitions in commit order. Listeners must not call
	// Invest.
	dispatchMu sync.Mutex

	mu        sync.Mutex
	current   domain.InvestmentAttempt
	listeners []attemptListener
	nextID    uint64
	closed    bool
}

// NewLifecycle creates a lifecycle in the idle phase.
func NewLifecycle(conn ConnectionSource, chain domain.ChainClient, conv *native.Converter, target Target, logger *slog.Logger) *Lifecycle {
	ctx, cancel := context.WithCancel(context.Background())
	return &Lifecycle{
		conn:          conn,
		chain:         chain,
		conv:          conv,
		target:        target,
		logger:        logger.With(slog.String("component", "investment_lifecycle")),
		now:           time.Now,
		submitTimeout: submitTimeout,
		watchCtx:      ctx,
		cancel:        cancel,
		current:       domain.InvestmentAttempt{Phase: domain.PhaseIdle},
	}
}

// Current returns a snapshot of the current attempt.
func (l *Lifecycle) Current() domain.InvestmentAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Clone()
}

// Subscribe registers fn to receive every transition synchronously, in
// registration order. The returned function removes the listener.
func (l *Lifecycle) Subscribe(fn func(domain.InvestmentAttempt)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	id := l.nextID
	l.listeners = append(l.listeners, attemptListener{id: id, fn: fn})

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, al := range l.listeners {
			if al.id == id {
				l.listeners = append(l.listeners[:i:i], l.listeners[i+1:]...)
				return
			}
		}
	}
}

// Invest starts a new attempt to invest amount (USD) in assetID.
//
// ErrClosed, ErrNotConnected and ErrAlreadyInProgress are returned without
// creating an attempt; the returned snapshot is the attempt that was current.
// Cancelling ctx does not abandon a submission in progress; Submit runs on a
// context detached from ctx and bounded by submitTimeout. Any other
// error is a rejected submission, also recorded on the returned attempt.
// A nil error means the transaction was broadcast and is awaiting
// confirmation.
func (l *Lifecycle) Invest(ctx context.Context, assetID string, amount decimal.Decimal) (domain.InvestmentAttempt, error) {
	l.dispatchMu.Lock()
	l.mu.Lock()
	if err := l.preconditionLocked(); err != nil {
		snap := l.current.Clone()
		l.mu.Unlock()
		l.dispatchMu.Unlock()
		return snap, err
	}

	// A malformed request still passes through submitting before it fails.
	req, reqErr := l.buildRequest(assetID, amount)
	now := l.now()
	l.current = domain.InvestmentAttempt{
		ID:        uuid.New().String(),
		AssetID:   assetID,
		Amount:    amount,
		Phase:     domain.PhaseSubmitting,
		StartedAt: now,
		UpdatedAt: now,
	}
	if reqErr == nil {
		l.current.NativeValue = new(big.Int).Set(req.Value)
	}
	id := l.current.ID
	snap, listeners := l.snapshotLocked()
	l.mu.Unlock()

	l.logger.InfoContext(ctx, "investment submitting",
		slog.String("attempt_id", id),
		slog.String("asset_id", assetID),
		slog.String("amount", amount.String()),
	)
	notify(listeners, snap)
	l.dispatchMu.Unlock()

	if reqErr != nil {
		return l.fail(id, domain.ErrSubmissionRejected, reqErr), &domain.AttemptError{Kind: domain.ErrSubmissionRejected, Cause: reqErr}
	}

	submitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.submitTimeout)
	handle, err := l.chain.Submit(submitCtx, req)
	cancel()
	if err != nil {
		err = fmt.Errorf("session: submit: %w", err)
		return l.fail(id, domain.ErrSubmissionRejected, err), &domain.AttemptError{Kind: domain.ErrSubmissionRejected, Cause: err}
	}

	snap, ok := l.transition(id, func(a *domain.InvestmentAttempt) {
		a.Phase = domain.PhaseAwaitingConfirmation
		a.TxHandle = handle
	})
	if !ok {
		return snap, nil
	}
	l.logger.InfoContext(ctx, "investment broadcast",
		slog.String("attempt_id", id),
		slog.String("tx_hash", string(handle)),
		slog.String("native_value", req.Value.String()),
	)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return snap, nil
	}
	l.wg.Add(1)
	l.mu.Unlock()
	go l.watch(id, handle)

	return snap, nil
}

// Close stops all confirmation watchers and waits for them to exit. The
// current attempt is left as it is and no further transitions are emitted.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

// InFlight reports whether an attempt is submitting or awaiting confirmation.
func (l *Lifecycle) InFlight() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current.Phase.InFlight()
}

// preconditionLocked returns the error that refuses a new invest, if any.
func (l *Lifecycle) preconditionLocked() error {
	switch {
	case l.closed:
		return fmt.Errorf("session: invest: %w", domain.ErrClosed)
	case !l.conn.State().Connected:
		return domain.ErrNotConnected
	case l.current.Phase.InFlight():
		return domain.ErrAlreadyInProgress
	}
	return nil
}

func (l *Lifecycle) buildRequest(assetID string, amount decimal.Decimal) (domain.TxRequest, error) {
	id, ok := new(big.Int).SetString(assetID, 10)
	if !ok || id.Sign() < 0 || id.Cmp(maxUint256) > 0 {
		return domain.TxRequest{}, fmt.Errorf("session: asset id %q is not a uint256", assetID)
	}
	if amount.Sign() <= 0 {
		return domain.TxRequest{}, fmt.Errorf("session: amount %s: %w", amount, domain.ErrInvalidAmount)
	}
	value, err := l.conv.ToNative(amount)
	if err != nil {
		return domain.TxRequest{}, fmt.Errorf("session: convert amount: %w", err)
	}
	return domain.TxRequest{
		Contract: l.target.Contract,
		Method:   l.target.Method,
		Args:     []any{id},
		Value:    value,
	}, nil
}

func (l *Lifecycle) watch(id string, handle domain.TxHandle) {
	defer l.wg.Done()

	outcome, err := l.chain.AwaitConfirmation(l.watchCtx, handle)
	if l.watchCtx.Err() != nil {
		l.logger.Debug("confirmation watcher stopped",
			slog.String("attempt_id", id),
			slog.String("tx_hash", string(handle)),
		)
		return
	}

	if err != nil {
		l.logger.Warn("awaiting confirmation failed",
			slog.String("attempt_id", id),
			slog.String("tx_hash", string(handle)),
			slog.String("error", err.Error()),
		)
		l.fail(id, domain.ErrTransactionTimeout, err)
		return
	}

	switch outcome {
	case domain.TxConfirmed:
		if _, ok := l.transition(id, func(a *domain.InvestmentAttempt) {
			a.Phase = domain.PhaseConfirmed
		}); ok {
			l.logger.Info("investment confirmed",
				slog.String("attempt_id", id),
				slog.String("tx_hash", string(handle)),
			)
		}
	case domain.TxReverted:
		l.fail(id, domain.ErrTransactionReverted, nil)
	case domain.TxTimeout:
		l.fail(id, domain.ErrTransactionTimeout, nil)
	default:
		l.fail(id, domain.ErrTransactionTimeout, fmt.Errorf("session: unknown outcome %q", outcome))
	}
}

// fail moves attempt id to failed with the given kind.
func (l *Lifecycle) fail(id string, kind, cause error) domain.InvestmentAttempt {
	snap, ok := l.transition(id, func(a *domain.InvestmentAttempt) {
		a.Phase = domain.PhaseFailed
		a.Err = &domain.AttemptError{Kind: kind, Cause: cause}
	})
	if ok {
		attrs := []any{
			slog.String("attempt_id", id),
			slog.String("kind", domain.ErrorKindName(kind)),
		}
		if cause != nil {
			attrs = append(attrs, slog.String("error", cause.Error()))
		}
		l.logger.Warn("investment failed", attrs...)
	}
	return snap
}

// transition applies fn to the current attempt if it is still attempt id and
// not yet terminal, then notifies listeners. It reports whether fn ran.
func (l *Lifecycle) transition(id string, fn func(*domain.InvestmentAttempt)) (domain.InvestmentAttempt, bool) {
	l.dispatchMu.Lock()
	defer l.dispatchMu.Unlock()

	l.mu.Lock()
	if l.closed || l.current.ID != id || l.current.Phase.Terminal() {
		snap := l.current.Clone()
		l.mu.Unlock()
		return snap, false
	}
	fn(&l.current)
	l.current.UpdatedAt = l.now()
	snap, listeners := l.snapshotLocked()
	l.mu.Unlock()

	notify(listeners, snap)
	return snap, true
}

func (l *Lifecycle) snapshotLocked() (domain.InvestmentAttempt, []attemptListener) {
	listeners := make([]attemptListener, len(l.listeners))
	copy(listeners, l.listeners)
	return l.current.Clone(), listeners
}

func notify(listeners []attemptListener, a domain.InvestmentAttempt) {
	for _, al := range listeners {
		al.fn(a.Clone())
	}
}
