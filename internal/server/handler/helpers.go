package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

// SessionService is the browsing session the API exposes. *session.Session
// satisfies it.
type SessionService interface {
	Connection() domain.ConnectionState
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Assets() []domain.DisplayAsset
	Asset(id string) (domain.DisplayAsset, error)
	Overview() domain.MarketOverview
	Invest(ctx context.Context, assetID string, amount *decimal.Decimal) (domain.InvestmentAttempt, error)
	CurrentAttempt() domain.InvestmentAttempt
}

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmissionRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a single JSON object from the request body into dst.
// Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
