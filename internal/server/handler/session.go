package handler

import (
	"log/slog"
	"net/http"
)

// SessionHandler serves the wallet connection endpoints.
type SessionHandler struct {
	svc    SessionService
	logger *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(svc SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, logger: logger.With(slog.String("handler", "session"))}
}

// GetSession returns the connection state.
// GET /api/session
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Connection())
}

// Connect connects the wallet and returns the new state. A wallet error is a
// 502: the provider, not the request, failed.
// POST /api/wallet/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Connect(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "connect failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Connection())
}

// Disconnect disconnects the wallet.
// POST /api/wallet/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Disconnect(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Connection())
}
