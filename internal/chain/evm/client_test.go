package evm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/rwaexchange/internal/crypto"
	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var contract = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

type receiptReply struct {
	receipt *types.Receipt
	err     error
}

type fakeBackend struct {
	mu          sync.Mutex
	chainID     *big.Int
	nonce       uint64
	tip         *big.Int
	baseFee     *big.Int
	gas         uint64
	estimateErr error
	sendErr     error
	sent        []*types.Transaction
	calls       []ethereum.CallMsg
	receipts    []receiptReply // consumed in order; the last one repeats
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(31337),
		nonce:   3,
		tip:     big.NewInt(1_000_000_000),
		baseFee: big.NewInt(10_000_000_000),
		gas:     50_000,
	}
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) { return b.chainID, nil }

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return b.tip, nil }

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, msg)
	return b.gas, b.estimateErr
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	r := b.receipts[0]
	if len(b.receipts) > 1 {
		b.receipts = b.receipts[1:]
	}
	return r.receipt, r.err
}

type keySigner struct{ s *crypto.Signer }

func (k keySigner) Address() (common.Address, error) { return k.s.Address(), nil }

func (k keySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return k.s.SignTx(tx, chainID)
}

type countingObserver struct {
	mu  sync.Mutex
	ops map[string]int
}

func (o *countingObserver) Observe(op string, err error, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ops == nil {
		o.ops = map[string]int{}
	}
	if err != nil {
		op += ":error"
	}
	o.ops[op]++
}

func newTestClient(t *testing.T, b *fakeBackend, opts Options) (*Client, keySigner) {
	t.Helper()
	key, err := crypto.LoadKey(crypto.KeySource{RawPrivateKey: devKey})
	require.NoError(t, err)
	signer := keySigner{s: crypto.NewSigner(key)}

	c, err := New(b, signer, opts, &countingObserver{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return c, signer
}

func investRequest() domain.TxRequest {
	value, _ := new(big.Int).SetString("2500000000000000000", 10)
	return domain.TxRequest{
		Contract: contract,
		Method:   MethodMakeInvestment,
		Args:     []any{big.NewInt(1)},
		Value:    value,
	}
}

func TestSubmit_BuildsSignedDynamicFeeTx(t *testing.T) {
	b := newFakeBackend()
	c, signer := newTestClient(t, b, Options{GasLimitMultiplier: 1.5})

	handle, err := c.Submit(context.Background(), investRequest())
	require.NoError(t, err)

	require.Len(t, b.sent, 1)
	tx := b.sent[0]
	assert.Equal(t, string(handle), tx.Hash().Hex())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, contract, *tx.To())
	assert.Equal(t, "2500000000000000000", tx.Value().String())
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(75_000), tx.Gas())
	assert.Equal(t, 0, tx.GasTipCap().Cmp(big.NewInt(1_000_000_000)))
	assert.Equal(t, 0, tx.GasFeeCap().Cmp(big.NewInt(21_000_000_000)))
	assert.Equal(t, 0, tx.ChainId().Cmp(big.NewInt(31337)))

	parsed, err := AssetContractABI()
	require.NoError(t, err)
	method := parsed.Methods[MethodMakeInvestment]
	assert.Equal(t, method.ID, tx.Data()[:4])
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, 0, args[0].(*big.Int).Cmp(big.NewInt(1)))

	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	require.NoError(t, err)
	addr, _ := signer.Address()
	assert.Equal(t, addr, from)

	require.Len(t, b.calls, 1)
	assert.Equal(t, addr, b.calls[0].From)
}

func TestSubmit_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fakeBackend)
		req   func() domain.TxRequest
	}{
		{
			name: "unknown method",
			req: func() domain.TxRequest {
				r := investRequest()
				r.Method = "withdraw"
				return r
			},
		},
		{
			name: "bad argument",
			req: func() domain.TxRequest {
				r := investRequest()
				r.Args = []any{"one"}
				return r
			},
		},
		{
			name:  "estimate reverts",
			setup: func(b *fakeBackend) { b.estimateErr = errors.New("execution reverted") },
			req:   investRequest,
		},
		{
			name:  "send fails",
			setup: func(b *fakeBackend) { b.sendErr = errors.New("insufficient funds for gas * price + value") },
			req:   investRequest,
		},
		{
			name:  "pre-london chain",
			setup: func(b *fakeBackend) { b.baseFee = nil },
			req:   investRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			if tt.setup != nil {
				tt.setup(b)
			}
			c, _ := newTestClient(t, b, Options{})

			handle, err := c.Submit(context.Background(), tt.req())
			require.Error(t, err)
			assert.Empty(t, handle)
			assert.Empty(t, b.sent)
		})
	}
}

func TestAwaitConfirmation(t *testing.T) {
	const hash = domain.TxHandle("0x2c6ec8d9a7b1fbd0e0d4cc3f6d3a6e58a1e7b0a7f7ef0b6c0fba0b56bd07f1a3")

	tests := []struct {
		name     string
		receipts []receiptReply
		want     domain.TxOutcome
	}{
		{
			name: "confirmed after pending",
			receipts: []receiptReply{
				{err: ethereum.NotFound},
				{err: errors.New("connection reset by peer")},
				{receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful}},
			},
			want: domain.TxConfirmed,
		},
		{
			name:     "reverted",
			receipts: []receiptReply{{receipt: &types.Receipt{Status: types.ReceiptStatusFailed}}},
			want:     domain.TxReverted,
		},
		{
			name: "timeout",
			want: domain.TxTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend()
			b.receipts = tt.receipts
			c, _ := newTestClient(t, b, Options{PollInterval: time.Millisecond, ConfirmTimeout: 200 * time.Millisecond})

			got, err := c.AwaitConfirmation(context.Background(), hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAwaitConfirmation_Cancelled(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend(), Options{PollInterval: time.Millisecond, ConfirmTimeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.AwaitConfirmation(ctx, "0x2c6ec8d9a7b1fbd0e0d4cc3f6d3a6e58a1e7b0a7f7ef0b6c0fba0b56bd07f1a3")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAwaitConfirmation_MalformedHandle(t *testing.T) {
	c, _ := newTestClient(t, newFakeBackend(), Options{})

	for _, h := range []domain.TxHandle{"", "0xabc", "2c6ec8d9a7b1fbd0e0d4cc3f6d3a6e58a1e7b0a7f7ef0b6c0fba0b56bd07f1a3ff", "0xzz6ec8d9a7b1fbd0e0d4cc3f6d3a6e58a1e7b0a7f7ef0b6c0fba0b56bd07f1a3"} {
		_, err := c.AwaitConfirmation(context.Background(), h)
		assert.Error(t, err, h)
	}
}

func TestAssetContractABI(t *testing.T) {
	parsed, err := AssetContractABI()
	require.NoError(t, err)
	for _, m := range []string{MethodCreateAsset, MethodMakeInvestment, MethodGetAssetInfo} {
		assert.Contains(t, parsed.Methods, m)
	}
	assert.True(t, parsed.Methods[MethodMakeInvestment].IsPayable())
	assert.Len(t, parsed.Methods[MethodGetAssetInfo].Outputs, 11)
}
