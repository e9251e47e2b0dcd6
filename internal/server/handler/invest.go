package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/rwaexchange/internal/domain"
)

// InvestHandler starts investments and reports the current attempt.
type InvestHandler struct {
	svc    SessionService
	logger *slog.Logger
}

// NewInvestHandler creates an InvestHandler.
func NewInvestHandler(svc SessionService, logger *slog.Logger) *InvestHandler {
	return &InvestHandler{svc: svc, logger: logger.With(slog.String("handler", "invest"))}
}

type investRequest struct {
	AssetID string `json:"asset_id"`
	Amount  string `json:"amount,omitempty"` // USD; defaults to the asset minimum
}

type investResponse struct {
	domain.AttemptView
	Error string `json:"error,omitempty"`
}

// Invest starts an investment. The attempt is returned with 202 once the
// transaction is broadcast; confirmation arrives on the ch:invest channel.
// POST /api/invest
func (h *InvestHandler) Invest(w http.ResponseWriter, r *http.Request) {
	var req investRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.AssetID = strings.TrimSpace(req.AssetID)
	if req.AssetID == "" {
		writeError(w, http.StatusBadRequest, "asset_id is required")
		return
	}

	var amount *decimal.Decimal
	if s := strings.TrimSpace(req.Amount); s != "" {
		d, err := decimal.NewFromString(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "amount must be a decimal number")
			return
		}
		amount = &d
	}

	attempt, err := h.svc.Invest(r.Context(), req.AssetID, amount)
	connected := h.svc.Connection().Connected
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "invest failed", slog.String("error", err.Error()))
		}
		var attemptErr *domain.AttemptError
		if errors.As(err, &attemptErr) || errors.Is(err, domain.ErrAlreadyInProgress) {
			writeJSON(w, status, investResponse{
				AttemptView: domain.NewAttemptView(attempt, connected),
				Error:       err.Error(),
			})
			return
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, investResponse{AttemptView: domain.NewAttemptView(attempt, connected)})
}

// Current returns the current attempt.
// GET /api/invest
func (h *InvestHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, domain.NewAttemptView(h.svc.CurrentAttempt(), h.svc.Connection().Connected))
}
