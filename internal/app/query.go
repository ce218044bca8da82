package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/stats"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/okian/mjledger/pkg/metrics"
)

// Query selects and orders a stats table.
type Query struct {
	Filter stats.Filter
	Sort   stats.Column
	Desc   bool
}

// Filter builds a stats filter from user input. Dates accept the absolute
// forms and natural language understood by the period parser.
func (s *Service) Filter(from, to, chips string) (stats.Filter, error) {
	cf, ok := model.ParseChipFilter(chips)
	if !ok {
		return stats.Filter{}, fmt.Errorf("%w: chips must be all, with or without, got %q", ErrInvalidQuery, chips)
	}
	f, t, err := s.dates.Range(from, to, s.now())
	if err != nil {
		return stats.Filter{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return stats.Filter{From: f, To: t, Chips: cf}, nil
}

// Stats returns one row per player surviving the filter.
func (s *Service) Stats(ctx context.Context, q Query) ([]stats.Row, error) {
	defer observe("stats", time.Now())
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	rows := stats.Aggregate(snap.Events, q.Filter)
	if q.Sort != "" {
		stats.Sort(rows, q.Sort, q.Desc)
	}
	s.logger.Debug(ctx, "stats computed", logger.Int("rows", len(rows)))
	return rows, nil
}

// Leaderboard ranks players by total under f and keeps the first limit.
func (s *Service) Leaderboard(ctx context.Context, f stats.Filter, limit int) ([]stats.Standing, error) {
	defer observe("leaderboard", time.Now())
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return stats.Leaderboard(stats.Aggregate(snap.Events, f), limit), nil
}

// Players lists every player in the ledger, collated.
func (s *Service) Players(ctx context.Context) ([]string, error) {
	defer observe("players", time.Now())
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return stats.Players(snap.Events), nil
}

// Player returns one player's row under f. A player who is in the ledger
// but has nothing in range gets an empty row; an unknown name is
// ErrPlayerNotFound.
func (s *Service) Player(ctx context.Context, name string, f stats.Filter) (stats.Row, error) {
	defer observe("player", time.Now())
	snap, err := s.Snapshot()
	if err != nil {
		return stats.Row{}, err
	}
	if !hasPlayer(snap.Events, name) {
		return stats.Row{}, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}
	row, ok := stats.PlayerRow(snap.Events, name, f)
	if !ok {
		return stats.Row{Player: name}, nil
	}
	return row, nil
}

// History returns the player's per-day running total under f.
func (s *Service) History(ctx context.Context, name string, f stats.Filter) ([]stats.Point, error) {
	defer observe("history", time.Now())
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	if !hasPlayer(snap.Events, name) {
		return nil, fmt.Errorf("%w: %q", ErrPlayerNotFound, name)
	}
	return stats.History(snap.Events, name, f), nil
}

// Chart renders the player's history as a PNG.
func (s *Service) Chart(ctx context.Context, name string, f stats.Filter) ([]byte, error) {
	points, err := s.History(ctx, name, f)
	if err != nil {
		return nil, err
	}
	png, err := s.renderer.History(points)
	if err != nil {
		metrics.RecordErrorByComponent("chart", "render")
		s.logger.Error(ctx, "chart render failed", logger.String("player", name), logger.Error(err))
		return nil, err
	}
	return png, nil
}

func hasPlayer(events []model.Event, name string) bool {
	for _, e := range events {
		if e.Player == name {
			return true
		}
	}
	return false
}

func observe(view string, start time.Time) {
	metrics.RecordStatsQuery(view, float64(time.Since(start).Microseconds())/1000)
}
