package domain

import (
	"encoding/json"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Phase tracks an investment attempt through its lifecycle.
type Phase string

const (
	PhaseIdle                 Phase = "idle"
	PhaseSubmitting           Phase = "submitting"
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
	PhaseConfirmed            Phase = "confirmed"
	PhaseFailed               Phase = "failed"
)

// InFlight reports whether an attempt in this phase blocks new invest actions.
func (p Phase) InFlight() bool {
	return p == PhaseSubmitting || p == PhaseAwaitingConfirmation
}

// Terminal reports whether no further automatic transition follows p.
func (p Phase) Terminal() bool {
	return p == PhaseConfirmed || p == PhaseFailed
}

// InvestmentAttempt is one invest action as tracked by the lifecycle. Values
// handed out are snapshots; mutating them has no effect on the lifecycle.
type InvestmentAttempt struct {
	ID          string
	AssetID     string
	Amount      decimal.Decimal // USD
	NativeValue *big.Int        // base units, set once the request is built
	Phase       Phase
	TxHandle    TxHandle
	Err         *AttemptError
	StartedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy of a.
func (a InvestmentAttempt) Clone() InvestmentAttempt {
	if a.NativeValue != nil {
		a.NativeValue = new(big.Int).Set(a.NativeValue)
	}
	if a.Err != nil {
		e := *a.Err
		a.Err = &e
	}
	return a
}

// StatusText is the label shown on the invest button.
func (a InvestmentAttempt) StatusText(connected bool) string {
	switch {
	case a.Phase.InFlight():
		return "Processing..."
	case a.Phase == PhaseConfirmed:
		return "Investment Confirmed!"
	case !connected:
		return "Connect Wallet"
	default:
		return "Invest Now"
	}
}

type attemptJSON struct {
	ID          string `json:"id,omitempty"`
	AssetID     string `json:"asset_id,omitempty"`
	Amount      string `json:"amount,omitempty"`
	NativeValue string `json:"native_value,omitempty"`
	Phase       Phase  `json:"phase"`
	TxHandle    string `json:"tx_hash,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	UpdatedAt   string `json:"updated_at,omitempty"`
}

// MarshalJSON renders the attempt for the view layer.
func (a InvestmentAttempt) MarshalJSON() ([]byte, error) {
	out := attemptJSON{
		ID:       a.ID,
		AssetID:  a.AssetID,
		Phase:    a.Phase,
		TxHandle: string(a.TxHandle),
	}
	if out.Phase == "" {
		out.Phase = PhaseIdle
	}
	if !a.Amount.IsZero() {
		out.Amount = a.Amount.String()
	}
	if a.NativeValue != nil {
		out.NativeValue = a.NativeValue.String()
	}
	if a.Err != nil {
		out.ErrorKind = ErrorKindName(a.Err.Kind)
		out.Error = a.Err.Error()
	}
	if !a.StartedAt.IsZero() {
		out.StartedAt = a.StartedAt.UTC().Format(time.RFC3339Nano)
	}
	if !a.UpdatedAt.IsZero() {
		out.UpdatedAt = a.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	return json.Marshal(out)
}

// ErrorKindName maps an investment error kind to a stable identifier.
func ErrorKindName(kind error) string {
	switch kind {
	case ErrNotConnected:
		return "not_connected"
	case ErrAlreadyInProgress:
		return "already_in_progress"
	case ErrSubmissionRejected:
		return "submission_rejected"
	case ErrTransactionReverted:
		return "transaction_reverted"
	case ErrTransactionTimeout:
		return "transaction_timeout"
	default:
		return "unknown"
	}
}

// AttemptView is an attempt as shown to the view layer, with its button label.
type AttemptView struct {
	Attempt    InvestmentAttempt `json:"attempt"`
	StatusText string            `json:"status_text"`
}

// NewAttemptView labels a for the given connection.
func NewAttemptView(a InvestmentAttempt, connected bool) AttemptView {
	return AttemptView{Attempt: a, StatusText: a.StatusText(connected)}
}
