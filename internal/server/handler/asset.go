package handler

import (
	"log/slog"
	"net/http"
)

// AssetHandler serves the catalog as disclosed to the current session.
type AssetHandler struct {
	svc    SessionService
	logger *slog.Logger
}

// NewAssetHandler creates an AssetHandler.
func NewAssetHandler(svc SessionService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{svc: svc, logger: logger.With(slog.String("handler", "asset"))}
}

// ListAssets returns every asset. Confidential figures are redacted while the
// wallet is disconnected.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Assets())
}

// GetAsset returns one asset.
// GET /api/assets/{id}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Asset(r.PathValue("id"))
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Overview returns the market summary.
// GET /api/overview
func (h *AssetHandler) Overview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Overview())
}
