package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// TxRequest is a contract call to be signed and broadcast by the chain client.
type TxRequest struct {
	Contract common.Address
	Method   string
	Args     []any
	Value    *big.Int // native value in base units
}

// TxHandle identifies a broadcast transaction (its hash, hex encoded).
type TxHandle string

// TxOutcome is the terminal state reported for a broadcast transaction.
type TxOutcome string

const (
	TxConfirmed TxOutcome = "confirmed"
	TxReverted  TxOutcome = "reverted"
	TxTimeout   TxOutcome = "timeout"
)

// ChainClient submits transactions and reports their outcome. Submit returns
// an error when the request is refused before broadcast. AwaitConfirmation
// blocks until the transaction is final under the client's own timeout policy;
// it returns ctx.Err() when the caller gives up first.
type ChainClient interface {
	Submit(ctx context.Context, req TxRequest) (TxHandle, error)
	AwaitConfirmation(ctx context.Context, h TxHandle) (TxOutcome, error)
}
