package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted        = errors.New("service not started")
	ErrInvalidSubmission = errors.New("invalid submission")
	ErrInvalidQuery      = errors.New("invalid query")
	ErrPlayerNotFound    = errors.New("player not found")
)
