package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/types"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/okian/mjledger/pkg/metrics"
)

// RecordsHandler handles record submissions.
type RecordsHandler struct {
	deps    RecordDependencies
	limiter *IPRateLimiter
	logger  logger.Logger
}

// NewRecordsHandler creates a new records handler. A nil limiter accepts
// every request.
func NewRecordsHandler(deps RecordDependencies, limiter *IPRateLimiter, l logger.Logger) *RecordsHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &RecordsHandler{deps: deps, limiter: limiter, logger: l}
}

// HandlePostRecord handles POST /records requests.
//
// 201 means the round was written, 200 that the id was already accepted.
// Validation and capacity failures answer with the unsuccessful result.
func (h *RecordsHandler) HandlePostRecord(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.GetLimiter(clientIP(r)).Allow() {
		metrics.RecordRateLimited("records")
		writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
		return
	}

	var req types.RecordRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	date, err := h.deps.ParseDate(req.Date)
	if err != nil {
		writeResult(w, model.AppendResult{ID: req.ID, Message: err.Error()}, err)
		return
	}
	sub, err := req.Submission(date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}

	res, replay, err := h.deps.AddRecord(r.Context(), sub)
	switch {
	case err != nil && !res.Success:
		writeResult(w, res, err)
	case err != nil:
		// written, but the snapshot is stale until the next reload
		h.logger.Error(r.Context(), "record written but reload failed", logger.String("sheet", res.Sheet), logger.Error(err))
		writeJSON(w, http.StatusCreated, res)
	case replay:
		writeJSON(w, http.StatusOK, res)
	default:
		writeJSON(w, http.StatusCreated, res)
	}
}

// writeResult answers a failed submission with its result body.
func writeResult(w http.ResponseWriter, res model.AppendResult, err error) {
	status, _ := classify(err)
	res.Success = false
	if res.Message == "" {
		res.Message = err.Error()
	}
	writeJSON(w, status, res)
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
