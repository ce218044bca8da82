// Package service provides the ledger service that implements the
// dependencies required by the HTTP API and the operator CLI.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/mjledger/internal/adapters/chart"
	repository "github.com/okian/mjledger/internal/adapters/repository"
	"github.com/okian/mjledger/internal/domain/dedupe"
	"github.com/okian/mjledger/internal/domain/ledger"
	"github.com/okian/mjledger/internal/domain/period"
	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/domain/sheet"
	"github.com/okian/mjledger/pkg/logger"
)

// Service owns the ledger snapshot and everything that reads or writes it.
type Service struct {
	mu sync.RWMutex
	// serializes AddRecord so a replayed id never appends twice
	recordMu sync.Mutex

	// Core components
	ledger    *ledger.Ledger
	source    ledger.Source
	deduper   dedupe.Deduper
	converter *scoring.Converter
	renderer  *chart.Renderer
	dates     *period.Parser

	// Configuration
	ledgerPath   string
	storeOptions []repository.Option
	scoringOpts  []scoring.Option
	keyFormat    sheet.KeyFormat
	dedupeSize   int
	location     *time.Location
	now          func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLedgerPath sets the workbook the service reads and writes.
func WithLedgerPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.ledgerPath = path
		}
	}
}

// WithStoreOptions passes options to the workbook store built on Start.
func WithStoreOptions(opts ...repository.Option) Option {
	return func(s *Service) {
		s.storeOptions = append(s.storeOptions, opts...)
	}
}

// WithSource replaces the workbook store with another ledger source.
func WithSource(src ledger.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithScoring sets the score-derivation convention.
func WithScoring(opts ...scoring.Option) Option {
	return func(s *Service) {
		s.scoringOpts = append(s.scoringOpts, opts...)
	}
}

// WithKeyFormat sets the date key format used for new sheet names.
func WithKeyFormat(f sheet.KeyFormat) Option {
	return func(s *Service) {
		if f != "" {
			s.keyFormat = f
		}
	}
}

// WithDedupeSize sets the number of remembered submission ids.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLocation sets the time zone that decides "today" and relative dates.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithChartRenderer replaces the PNG renderer used for player charts.
func WithChartRenderer(r *chart.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		ledgerPath: "mahjong_results.xlsx",
		keyFormat:  sheet.KeyShort,
		dedupeSize: dedupe.DefaultMaxSize,
		location:   time.Local,
		now:        time.Now,
		renderer:   chart.NewRenderer(),
		logger:     nil, // resolved on Start
	}

	for _, opt := range opts {
		opt(s)
	}

	s.converter = scoring.NewConverter(s.scoringOpts...)
	s.dates = period.NewParser(s.location)
	return s
}

// Start builds the ledger and performs the initial load. A missing
// document starts an empty ledger; an unreadable one is an error.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting ledger service...", logger.String("ledger", s.ledgerPath))

	src := s.source
	if src == nil {
		opts := append([]repository.Option{repository.WithLogger(s.logger.Named("repository"))}, s.storeOptions...)
		src = repository.NewWorkbookStore(s.ledgerPath, opts...)
	}
	s.ledger = ledger.New(src,
		ledger.WithLogger(s.logger.Named("ledger")),
		ledger.WithClock(s.now),
	)
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)

	if err := s.ledger.Reload(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	s.started = true
	snap := s.ledger.Snapshot()
	s.logger.Info(ctx, "ledger service started",
		logger.Int("events", len(snap.Events)),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.String("keyFormat", string(s.keyFormat)),
	)
	return nil
}

// Stop marks the service stopped. The ledger holds no open handles between
// operations, so there is nothing else to release.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "ledger service stopped")
}

// Reload rebuilds the snapshot from the document and returns it.
func (s *Service) Reload(ctx context.Context) (ledger.Snapshot, error) {
	l, err := s.current()
	if err != nil {
		return ledger.Snapshot{}, err
	}
	start := time.Now()
	if err := l.Reload(ctx); err != nil {
		s.logger.Error(ctx, "reload failed", logger.Error(err))
		return ledger.Snapshot{}, err
	}
	snap := l.Snapshot()
	s.logger.Info(ctx, "ledger reloaded",
		logger.Int("events", len(snap.Events)),
		logger.Duration("took", time.Since(start)),
	)
	return snap, nil
}

// Snapshot returns the current ledger snapshot.
func (s *Service) Snapshot() (ledger.Snapshot, error) {
	l, err := s.current()
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return l.Snapshot(), nil
}

// LedgerPath returns the workbook path.
func (s *Service) LedgerPath() string { return s.ledgerPath }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"ledgerPath": s.ledgerPath,
		"dedupeSize": s.dedupeSize,
		"keyFormat":  string(s.keyFormat),
		"pointTotal": s.converter.PointTotal(),
	}

	if s.started {
		snap := s.ledger.Snapshot()
		players := make(map[string]struct{})
		sheets := make(map[string]struct{})
		for _, e := range snap.Events {
			players[e.Player] = struct{}{}
			sheets[e.Sheet] = struct{}{}
		}
		stats["events"] = len(snap.Events)
		stats["players"] = len(players)
		stats["sheets"] = len(sheets)
		stats["loadedAt"] = snap.LoadedAt.Format(time.RFC3339)
		stats["rememberedSubmissions"] = s.deduper.Size()
	}

	return stats
}

// current returns the ledger once the service is started.
func (s *Service) current() (*ledger.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.ledger, nil
}

// today is the current calendar date in the service time zone.
func (s *Service) today() time.Time {
	return period.Day(s.now().In(s.location))
}
