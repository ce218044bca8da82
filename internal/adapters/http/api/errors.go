package api

import (
	"errors"
	"net/http"

	repository "github.com/okian/mjledger/internal/adapters/repository"
	service "github.com/okian/mjledger/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limited")
)

// classify maps an error to a status code and a stable error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidQuery):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrPlayerNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidSubmission):
		return http.StatusUnprocessableEntity, "invalid_submission"
	case errors.Is(err, repository.ErrSheetFull), errors.Is(err, repository.ErrNoSheetName):
		return http.StatusConflict, "sheet_full"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
