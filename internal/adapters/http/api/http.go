// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	service "github.com/okian/mjledger/internal/app"
	"github.com/okian/mjledger/internal/domain/ledger"
	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/stats"
	"github.com/okian/mjledger/internal/domain/types"
	"github.com/okian/mjledger/pkg/logger"
	"golang.org/x/time/rate"
)

// Default limits for the API.
const (
	DefaultMaxLeaderboardLimit = 100
	maxRecordBodyBytes         = 64 << 10
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	QueryDependencies
	RecordDependencies
	ReloadDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statusHandler      *StatusHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	playersHandler     *PlayersHandler
	recordsHandler     *RecordsHandler
	reloadHandler      *ReloadHandler

	maxLimit    int
	recordRate  rate.Limit
	recordBurst int
	logger      logger.Logger
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*Server)

// WithMaxLeaderboardLimit caps GET /leaderboard?limit.
func WithMaxLeaderboardLimit(n int) ServerOption {
	return func(s *Server) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithRecordRateLimit limits POST /records per client IP. A zero rate
// disables the limiter.
func WithRecordRateLimit(perSecond float64, burst int) ServerOption {
	return func(s *Server) {
		s.recordRate = rate.Limit(perSecond)
		s.recordBurst = burst
	}
}

// WithLogger sets the logger used by the handlers.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statusProvider StatusProvider, opts ...ServerOption) *Server {
	s := &Server{
		maxLimit: DefaultMaxLeaderboardLimit,
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	var limiter *IPRateLimiter
	if s.recordRate > 0 {
		limiter = NewIPRateLimiter(s.recordRate, max(s.recordBurst, 1))
	}

	s.healthHandler = NewHealthHandler()
	s.statusHandler = NewStatusHandler(statusProvider)
	s.statsHandler = NewStatsHandler(deps)
	s.leaderboardHandler = NewLeaderboardHandler(deps, s.maxLimit)
	s.playersHandler = NewPlayersHandler(deps)
	s.recordsHandler = NewRecordsHandler(deps, limiter, s.logger)
	s.reloadHandler = NewReloadHandler(deps, s.logger)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /status", MetricsMiddleware(s.statusHandler.HandleStatus, "status"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleGetStats, "stats"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /players", MetricsMiddleware(s.playersHandler.HandleListPlayers, "players"))
	mux.HandleFunc("GET /players/{name}", MetricsMiddleware(s.playersHandler.HandleGetPlayer, "player"))
	mux.HandleFunc("GET /players/{name}/chart.png", MetricsMiddleware(s.playersHandler.HandleGetChart, "player_chart"))
	mux.HandleFunc("POST /records", MetricsMiddleware(s.recordsHandler.HandlePostRecord, "records"))
	mux.HandleFunc("POST /reload", MetricsMiddleware(s.reloadHandler.HandleReload, "reload"))
}

// QueryDependencies defines the read side of the ledger.
type QueryDependencies interface {
	Filter(from, to, chips string) (stats.Filter, error)
	Stats(ctx context.Context, q service.Query) ([]stats.Row, error)
	Leaderboard(ctx context.Context, f stats.Filter, limit int) ([]stats.Standing, error)
	Players(ctx context.Context) ([]string, error)
	Player(ctx context.Context, name string, f stats.Filter) (stats.Row, error)
	Chart(ctx context.Context, name string, f stats.Filter) ([]byte, error)
}

// RecordDependencies defines the write side of the ledger.
type RecordDependencies interface {
	ParseDate(v string) (time.Time, error)
	AddRecord(ctx context.Context, sub model.Submission) (model.AppendResult, bool, error)
}

// ReloadDependencies rebuilds the ledger snapshot.
type ReloadDependencies interface {
	Reload(ctx context.Context) (ledger.Snapshot, error)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeFailure classifies err and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

// filterFrom reads from, to and chips query parameters.
func filterFrom(deps QueryDependencies, r *http.Request) (stats.Filter, error) {
	q := r.URL.Query()
	return deps.Filter(q.Get("from"), q.Get("to"), q.Get("chips"))
}
