package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrSigningFailed = errors.New("signing failed")
	ErrClosed        = errors.New("closed")

	// Investment error kinds.
	ErrNotConnected        = errors.New("wallet not connected")
	ErrAlreadyInProgress   = errors.New("investment already in progress")
	ErrSubmissionRejected  = errors.New("submission rejected")
	ErrTransactionReverted = errors.New("transaction reverted")
	ErrTransactionTimeout  = errors.New("transaction not confirmed in time")
)

// AttemptError is the failure recorded on an InvestmentAttempt. Kind is one of
// the investment sentinels above; Cause is the provider or chain error, if any.
// errors.Is matches either.
type AttemptError struct {
	Kind  error
	Cause error
}

// Error renders the kind, followed by the cause when there is one.
func (e *AttemptError) Error() string {
	if e.Cause == nil {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Cause.Error()
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *AttemptError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}
