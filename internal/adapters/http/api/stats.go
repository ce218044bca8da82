package api

import (
	"fmt"
	"net/http"

	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/domain/stats"
)

// StatsHandler handles stats table requests.
type StatsHandler struct {
	deps QueryDependencies
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(deps QueryDependencies) *StatsHandler {
	return &StatsHandler{deps: deps}
}

// HandleGetStats handles GET /stats?from=&to=&chips=&sort=&order= requests.
func (h *StatsHandler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(h.deps, r)
	if err != nil {
		writeFailure(w, err)
		return
	}
	q := r.URL.Query()
	col, ok := stats.ParseColumn(q.Get("sort"))
	if !ok {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: unknown sort column %q", ErrBadRequest, q.Get("sort")))
		return
	}
	var desc bool
	switch q.Get("order") {
	case "":
		desc = col != stats.ColumnName
	case "desc":
		desc = true
	case "asc":
	default:
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: order must be asc or desc", ErrBadRequest))
		return
	}

	rows, err := h.deps.Stats(r.Context(), service.Query{Filter: f, Sort: col, Desc: desc})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
