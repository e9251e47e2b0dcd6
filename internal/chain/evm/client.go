// Package evm implements the chain client on an EVM JSON-RPC endpoint.
package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

const (
	defaultPollInterval   = 4 * time.Second
	defaultConfirmTimeout = 3 * time.Minute
)

// Backend is the subset of *ethclient.Client the client uses.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

var _ Backend = (*ethclient.Client)(nil)

// Signer provides the sending account and signs its transactions.
type Signer interface {
	Address() (common.Address, error)
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Observer records chain call outcomes. *metrics.ChainClient satisfies it.
type Observer interface {
	Observe(operation string, err error, started time.Time)
}

// Options tunes fees and confirmation polling. Zero values select defaults.
type Options struct {
	PollInterval       time.Duration
	ConfirmTimeout     time.Duration
	GasLimitMultiplier float64
}

// Client implements domain.ChainClient with EIP-1559 transactions.
type Client struct {
	backend  Backend
	signer   Signer
	abi      abi.ABI
	opts     Options
	observer Observer
	logger   *slog.Logger
}

var _ domain.ChainClient = (*Client)(nil)

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", rpcURL, err)
	}
	return c, nil
}

// New creates a Client. observer may be nil.
func New(backend Backend, signer Signer, opts Options, observer Observer, logger *slog.Logger) (*Client, error) {
	parsed, err := AssetContractABI()
	if err != nil {
		return nil, fmt.Errorf("evm: parse abi: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}
	if opts.GasLimitMultiplier < 1 {
		opts.GasLimitMultiplier = 1
	}
	return &Client{
		backend:  backend,
		signer:   signer,
		abi:      parsed,
		opts:     opts,
		observer: observer,
		logger:   logger.With(slog.String("component", "evm_client")),
	}, nil
}

// Submit packs, signs and broadcasts req. The handle is the tx hash.
func (c *Client) Submit(ctx context.Context, req domain.TxRequest) (domain.TxHandle, error) {
	input, err := c.abi.Pack(req.Method, req.Args...)
	if err != nil {
		return "", fmt.Errorf("evm: pack %s: %w", req.Method, err)
	}
	from, err := c.signer.Address()
	if err != nil {
		return "", fmt.Errorf("evm: sender: %w", err)
	}
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	var chainID *big.Int
	if err := c.call("chain_id", func() (err error) {
		chainID, err = c.backend.ChainID(ctx)
		return err
	}); err != nil {
		return "", fmt.Errorf("evm: chain id: %w", err)
	}

	var nonce uint64
	if err := c.call("pending_nonce", func() (err error) {
		nonce, err = c.backend.PendingNonceAt(ctx, from)
		return err
	}); err != nil {
		return "", fmt.Errorf("evm: nonce: %w", err)
	}

	tipCap, feeCap, err := c.fees(ctx)
	if err != nil {
		return "", err
	}

	contract := req.Contract
	var gas uint64
	if err := c.call("estimate_gas", func() (err error) {
		gas, err = c.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:      from,
			To:        &contract,
			GasTipCap: tipCap,
			GasFeeCap: feeCap,
			Value:     value,
			Data:      input,
		})
		return err
	}); err != nil {
		return "", fmt.Errorf("evm: estimate gas: %w", err)
	}
	gas = uint64(float64(gas) * c.opts.GasLimitMultiplier)

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &contract,
		Value:     value,
		Data:      input,
	})
	signed, err := c.signer.SignTx(tx, chainID)
	if err != nil {
		return "", fmt.Errorf("evm: sign: %w", err)
	}

	if err := c.call("send_transaction", func() error {
		return c.backend.SendTransaction(ctx, signed)
	}); err != nil {
		return "", fmt.Errorf("evm: send: %w", err)
	}

	hash := signed.Hash().Hex()
	c.logger.InfoContext(ctx, "transaction sent",
		slog.String("tx_hash", hash),
		slog.String("method", req.Method),
		slog.String("to", contract.Hex()),
		slog.String("value", value.String()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas", gas),
	)
	return domain.TxHandle(hash), nil
}

// AwaitConfirmation polls for the receipt of h until it is mined, the
// confirm timeout elapses (TxTimeout) or ctx is done (ctx.Err()). Receipt
// lookups that fail for reasons other than "not found" are logged and retried.
func (c *Client) AwaitConfirmation(ctx context.Context, h domain.TxHandle) (domain.TxOutcome, error) {
	hash, err := parseHandle(h)
	if err != nil {
		return "", err
	}

	deadline := time.NewTimer(c.opts.ConfirmTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		var receipt *types.Receipt
		err := c.call("transaction_receipt", func() (err error) {
			receipt, err = c.backend.TransactionReceipt(ctx, hash)
			if errors.Is(err, ethereum.NotFound) {
				return nil
			}
			return err
		})
		switch {
		case ctx.Err() != nil:
			return "", ctx.Err()
		case err != nil:
			c.logger.WarnContext(ctx, "receipt lookup failed",
				slog.String("tx_hash", hash.Hex()),
				slog.String("error", err.Error()),
			)
		case receipt != nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				c.logger.InfoContext(ctx, "transaction confirmed",
					slog.String("tx_hash", hash.Hex()),
					slog.Uint64("gas_used", receipt.GasUsed),
				)
				return domain.TxConfirmed, nil
			}
			c.logger.WarnContext(ctx, "transaction reverted", slog.String("tx_hash", hash.Hex()))
			return domain.TxReverted, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-deadline.C:
			c.logger.WarnContext(ctx, "transaction not confirmed in time",
				slog.String("tx_hash", hash.Hex()),
				slog.Duration("timeout", c.opts.ConfirmTimeout),
			)
			return domain.TxTimeout, nil
		case <-ticker.C:
		}
	}
}

// fees returns the tip cap and a fee cap of tip + 2 * base fee.
func (c *Client) fees(ctx context.Context) (tip, feeCap *big.Int, err error) {
	if err := c.call("suggest_tip", func() (err error) {
		tip, err = c.backend.SuggestGasTipCap(ctx)
		return err
	}); err != nil {
		return nil, nil, fmt.Errorf("evm: tip cap: %w", err)
	}

	var head *types.Header
	if err := c.call("latest_header", func() (err error) {
		head, err = c.backend.HeaderByNumber(ctx, nil)
		return err
	}); err != nil {
		return nil, nil, fmt.Errorf("evm: latest header: %w", err)
	}
	if head.BaseFee == nil {
		return nil, nil, errors.New("evm: chain does not report a base fee (pre-London)")
	}

	feeCap = new(big.Int).Mul(head.BaseFee, big.NewInt(2))
	feeCap.Add(feeCap, tip)
	return tip, feeCap, nil
}

func (c *Client) call(operation string, fn func() error) error {
	started := time.Now()
	err := fn()
	if c.observer != nil {
		c.observer.Observe(operation, err, started)
	}
	return err
}

func parseHandle(h domain.TxHandle) (common.Hash, error) {
	s := string(h)
	if len(s) != 2+2*common.HashLength || s[:2] != "0x" {
		return common.Hash{}, fmt.Errorf("evm: malformed tx hash %q", s)
	}
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("evm: malformed tx hash %q", s)
	}
	return common.BytesToHash(b), nil
}
