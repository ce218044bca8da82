package api

import (
	"net/http"
)

// StatusProvider defines the interface for getting service statistics.
type StatusProvider interface {
	GetStats() map[string]interface{}
}

// StatusHandler handles service status requests.
type StatusHandler struct {
	statusProvider StatusProvider
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(statusProvider StatusProvider) *StatusHandler {
	return &StatusHandler{statusProvider: statusProvider}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.statusProvider.GetStats())
}
