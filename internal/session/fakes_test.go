package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
	"github.com/alanyoungcy/rwaexchange/internal/native"
)

const testAccount = "0x00000000000000000000000000000000000A11CE"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeWallet is a WalletService driven by the test.
type fakeWallet struct {
	mu         sync.Mutex
	state      domain.ConnectionState
	listeners  map[int]func(domain.ConnectionState)
	order      []int
	next       int
	connectErr error
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{listeners: map[int]func(domain.ConnectionState){}}
}

func (w *fakeWallet) Connect(context.Context) error {
	if w.connectErr != nil {
		return w.connectErr
	}
	w.emit(domain.ConnectionState{Connected: true, Account: testAccount, ChainID: 1})
	return nil
}

func (w *fakeWallet) Disconnect(context.Context) error {
	w.emit(domain.ConnectionState{})
	return nil
}

func (w *fakeWallet) State() domain.ConnectionState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *fakeWallet) Subscribe(fn func(domain.ConnectionState)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.listeners[id] = fn
	w.order = append(w.order, id)
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.listeners, id)
	}
}

func (w *fakeWallet) subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.listeners)
}

// emit reports s to every subscriber, as a wallet provider would.
func (w *fakeWallet) emit(s domain.ConnectionState) {
	w.mu.Lock()
	w.state = s
	var fns []func(domain.ConnectionState)
	for _, id := range w.order {
		if fn, ok := w.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	w.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

type awaitResult struct {
	outcome domain.TxOutcome
	err     error
}

// fakeChain records submissions and blocks AwaitConfirmation until the test
// resolves it.
type fakeChain struct {
	mu        sync.Mutex
	requests  []domain.TxRequest
	submitErr error
	handle    domain.TxHandle
	awaited   []domain.TxHandle
	results   chan awaitResult

	// set by blockSubmit
	submitEntered chan struct{}
	submitRelease chan struct{}
}

func newFakeChain() *fakeChain {
	return &fakeChain{handle: "0xabc", results: make(chan awaitResult, 1)}
}

func (c *fakeChain) Submit(ctx context.Context, req domain.TxRequest) (domain.TxHandle, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	entered, release := c.submitEntered, c.submitRelease
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
		<-release
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return c.handle, nil
}

func (c *fakeChain) AwaitConfirmation(ctx context.Context, h domain.TxHandle) (domain.TxOutcome, error) {
	c.mu.Lock()
	c.awaited = append(c.awaited, h)
	c.mu.Unlock()
	select {
	case r := <-c.results:
		return r.outcome, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// blockSubmit makes Submit signal entered and then wait until release is
// closed.
func (c *fakeChain) blockSubmit() (entered, release chan struct{}) {
	entered, release = make(chan struct{}), make(chan struct{})
	c.mu.Lock()
	c.submitEntered, c.submitRelease = entered, release
	c.mu.Unlock()
	return entered, release
}

func (c *fakeChain) submitted() []domain.TxRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.TxRequest(nil), c.requests...)
}

func (c *fakeChain) resolve(outcome domain.TxOutcome, err error) {
	c.results <- awaitResult{outcome: outcome, err: err}
}

// recorder collects lifecycle transitions.
type recorder struct {
	mu       sync.Mutex
	attempts []domain.InvestmentAttempt
}

func (r *recorder) record(a domain.InvestmentAttempt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
}

func (r *recorder) phases() []domain.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Phase, 0, len(r.attempts))
	for _, a := range r.attempts {
		out = append(out, a.Phase)
	}
	return out
}

var errProviderRejected = errors.New("user rejected the request")

type fixture struct {
	wallet *fakeWallet
	chain  *fakeChain
	gate   *Gate
	life   *Lifecycle
	rec    *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conv, err := native.NewConverter(decimal.NewFromInt(2000), 18)
	require.NoError(t, err)

	f := &fixture{wallet: newFakeWallet(), chain: newFakeChain(), rec: &recorder{}}
	f.gate = NewGate(f.wallet, discardLogger())
	f.life = NewLifecycle(f.gate, f.chain, conv, Target{Method: "makeInvestment"}, discardLogger())
	f.life.Subscribe(f.rec.record)
	t.Cleanup(func() {
		f.life.Close()
		f.gate.Close()
	})
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, f.gate.Connect(context.Background()))
	require.True(t, f.gate.State().Connected)
}
