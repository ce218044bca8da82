// Package ledger holds the in-memory event snapshot of a ledger document.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/okian/mjledger/pkg/metrics"
)

// Source reads and writes the underlying document.
type Source interface {
	Load(ctx context.Context) ([]model.Event, error)
	Append(ctx context.Context, entry model.Entry) (model.AppendResult, error)
}

// Snapshot is an immutable view of the ledger at one load.
type Snapshot struct {
	Events   []model.Event
	LoadedAt time.Time
}

// Ledger owns the current snapshot. Reads share it; Append holds the write
// lock across the document write and the reload that follows it.
type Ledger struct {
	mu   sync.RWMutex
	src  Source
	snap Snapshot
	log  logger.Logger
	now  func() time.Time
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithLogger sets the ledger's logger.
func WithLogger(l logger.Logger) Option {
	return func(lg *Ledger) {
		if l != nil {
			lg.log = l
		}
	}
}

// WithClock replaces the clock used for load timestamps.
func WithClock(now func() time.Time) Option {
	return func(lg *Ledger) {
		if now != nil {
			lg.now = now
		}
	}
}

// New creates an empty ledger over src. Call Reload to populate it.
func New(src Source, opts ...Option) *Ledger {
	l := &Ledger{
		src:  src,
		log:  logger.Nop(),
		now:  time.Now,
		snap: Snapshot{Events: []model.Event{}},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Reload rebuilds the snapshot from the document. On error the previous
// snapshot is kept.
func (l *Ledger) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reloadLocked(ctx)
}

func (l *Ledger) reloadLocked(ctx context.Context) error {
	events, err := l.src.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	l.snap = Snapshot{Events: events, LoadedAt: l.now()}
	metrics.UpdateLedgerPlayers(countPlayers(events))
	l.log.Debug(ctx, "ledger snapshot replaced", logger.Int("events", len(events)))
	return nil
}

// Snapshot returns the current snapshot. Callers must not modify Events.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snap
}

// Events returns the current events. Callers must not modify the slice.
func (l *Ledger) Events() []model.Event {
	return l.Snapshot().Events
}

// LoadedAt reports when the snapshot was built; zero before the first load.
func (l *Ledger) LoadedAt() time.Time {
	return l.Snapshot().LoadedAt
}

// Append writes entry to the document and reloads. A failed reload after a
// successful write is reported with the write's result, since the record is
// already on disk.
func (l *Ledger) Append(ctx context.Context, entry model.Entry) (model.AppendResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	res, err := l.src.Append(ctx, entry)
	if err != nil {
		return res, err
	}
	if err := l.reloadLocked(ctx); err != nil {
		l.log.Error(ctx, "record saved but reload failed", logger.String("sheet", res.Sheet), logger.Error(err))
		return res, err
	}
	return res, nil
}

func countPlayers(events []model.Event) int {
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[e.Player] = struct{}{}
	}
	return len(seen)
}
