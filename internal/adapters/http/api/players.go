package api

import (
	"net/http"

	"github.com/okian/mjledger/internal/domain/types"
)

// PlayersHandler handles per-player requests.
type PlayersHandler struct {
	deps QueryDependencies
}

// NewPlayersHandler creates a new players handler.
func NewPlayersHandler(deps QueryDependencies) *PlayersHandler {
	return &PlayersHandler{deps: deps}
}

// HandleListPlayers handles GET /players requests.
func (h *PlayersHandler) HandleListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.deps.Players(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, types.PlayersResponse{Players: players})
}

// HandleGetPlayer handles GET /players/{name} requests.
func (h *PlayersHandler) HandleGetPlayer(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(h.deps, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	row, err := h.deps.Player(r.Context(), r.PathValue("name"), f)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// HandleGetChart handles GET /players/{name}/chart.png requests.
func (h *PlayersHandler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(h.deps, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	png, err := h.deps.Chart(r.Context(), r.PathValue("name"), f)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
