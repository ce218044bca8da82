package api

import (
	"net/http"

	"github.com/okian/mjledger/internal/domain/types"
	"github.com/okian/mjledger/pkg/logger"
)

// ReloadHandler rebuilds the ledger from its document on request.
type ReloadHandler struct {
	deps   ReloadDependencies
	logger logger.Logger
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(deps ReloadDependencies, l logger.Logger) *ReloadHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &ReloadHandler{deps: deps, logger: l}
}

// HandleReload handles POST /reload requests.
func (h *ReloadHandler) HandleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.deps.Reload(r.Context())
	if err != nil {
		h.logger.Warn(r.Context(), "reload request failed", logger.Error(err))
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.ReloadResponse{Events: len(snap.Events), LoadedAt: snap.LoadedAt})
}
