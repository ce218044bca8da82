package simulate

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/domain/stats"
	"github.com/okian/mjledger/internal/domain/types"
	"github.com/okian/mjledger/pkg/logger"
)

const tolerance = 1e-6

// Runner plays generated sessions against a ledger.
type Runner struct {
	ledger Ledger
	conv   *scoring.Converter
	log    logger.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConverter sets the converter used to derive expected totals. It must
// match the ledger's scoring rules.
func WithConverter(c *scoring.Converter) Option {
	return func(r *Runner) { r.conv = c }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// NewRunner creates a runner against l.
func NewRunner(l Ledger, opts ...Option) *Runner {
	r := &Runner{ledger: l, conv: scoring.NewConverter(), log: logger.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// tally collects outcomes from concurrent workers.
type tally struct {
	submitted, created, appended, replayed, rejected, failed atomic.Int64

	mu       sync.Mutex
	expected map[string]float64
	problems []string
}

func (t *tally) problem(format string, args ...any) {
	t.mu.Lock()
	t.problems = append(t.problems, fmt.Sprintf(format, args...))
	t.mu.Unlock()
}

// Run generates cfg.Sessions sessions, submits them and verifies the
// ledger's stats moved by exactly what was written.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	start := time.Now()
	r.log.Info(ctx, "starting simulation",
		logger.Int("sessions", cfg.Sessions),
		logger.Int("rounds", cfg.Rounds),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed))

	before, err := r.ledger.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("baseline stats: %w", err)
	}

	gen := NewGenerator(cfg.Seed, cfg.PoolSize, r.conv.PointTotal())
	sessions := make([]Session, cfg.Sessions)
	for i := range sessions {
		prefix := fmt.Sprintf("sim-%d-s%d", cfg.Seed, i+1)
		sessions[i] = gen.Session(prefix, cfg.Start.AddDate(0, 0, i), cfg.Rounds, cfg.ReplayPct)
	}

	t := &tally{expected: make(map[string]float64)}
	jobs := make(chan Session)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range jobs {
				r.play(ctx, cfg, s, t)
			}
		}()
	}
	for _, s := range sessions {
		select {
		case jobs <- s:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	after, err := r.ledger.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("final stats: %w", err)
	}

	rep := &Report{
		Seed:       cfg.Seed,
		Sessions:   cfg.Sessions,
		Submitted:  int(t.submitted.Load()),
		Created:    int(t.created.Load()),
		Appended:   int(t.appended.Load()),
		Replayed:   int(t.replayed.Load()),
		Rejected:   int(t.rejected.Load()),
		Failed:     int(t.failed.Load()),
		Mismatches: append(t.problems, verify(before, after, t.expected)...),
		Duration:   time.Since(start),
	}
	r.display(ctx, rep)
	return rep, nil
}

// play submits a session's rounds in order.
func (r *Runner) play(ctx context.Context, cfg Config, s Session, t *tally) {
	first := 0 // round number of the first round, which is 1 unless the sheet existed
	for i, req := range s.Rounds {
		if ctx.Err() != nil {
			return
		}
		t.submitted.Add(1)
		res, outcome, err := r.ledger.Record(ctx, req)
		switch outcome {
		case OutcomeWritten:
			if res.Created {
				t.created.Add(1)
			} else {
				t.appended.Add(1)
			}
			if first == 0 {
				first = res.Round - i
			}
			if res.Round != first+i {
				t.problem("%s: written as round %d, want %d", req.ID, res.Round, first+i)
			}
			r.expect(req, t)
		case OutcomeReplayed:
			t.replayed.Add(1)
			t.problem("%s: first submission reported as replay", req.ID)
		case OutcomeRejected:
			t.rejected.Add(1)
			r.log.Warn(ctx, "round rejected", logger.String("id", req.ID), logger.Error(err))
			continue
		default:
			t.failed.Add(1)
			r.log.Error(ctx, "round failed", logger.String("id", req.ID), logger.Error(err))
			continue
		}
		if cfg.Verbose {
			r.log.Info(ctx, "round recorded",
				logger.String("id", req.ID),
				logger.String("sheet", res.Sheet),
				logger.Int("round", res.Round))
		}

		if !s.Replay[i] {
			continue
		}
		t.submitted.Add(1)
		again, outcome, err := r.ledger.Record(ctx, req)
		switch {
		case outcome == OutcomeReplayed:
			t.replayed.Add(1)
			if again.Sheet != res.Sheet || again.Round != res.Round {
				t.problem("%s: replay returned %s/%d, want %s/%d", req.ID, again.Sheet, again.Round, res.Sheet, res.Round)
			}
		case err != nil:
			t.failed.Add(1)
			t.problem("%s: replay failed: %v", req.ID, err)
		default:
			t.problem("%s: replay was written again", req.ID)
			r.expect(req, t)
		}
	}
}

// expect adds a written round to the expected totals.
func (r *Runner) expect(req types.RecordRequest, t *tally) {
	var pts [model.Seats]int
	for i, seat := range req.Seats {
		pts[i] = seat.Points
	}
	scores, err := r.conv.Derive(pts)
	if err != nil {
		t.problem("%s: %v", req.ID, err)
		return
	}
	t.mu.Lock()
	for i, seat := range req.Seats {
		t.expected[seat.Name] += scores[i] + float64(seat.Chip)
	}
	t.mu.Unlock()
}

// verify compares the change in totals with what was written. Every
// written round is zero-sum, so the table as a whole must not move.
func verify(before, after []stats.Row, expected map[string]float64) []string {
	totals := func(rows []stats.Row) map[string]float64 {
		m := make(map[string]float64, len(rows))
		for _, row := range rows {
			m[row.Player] = row.Total
		}
		return m
	}
	was, now := totals(before), totals(after)

	var out []string
	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		got := now[name] - was[name]
		if math.Abs(got-expected[name]) > tolerance {
			out = append(out, fmt.Sprintf("%s: total moved by %.1f, want %.1f", name, got, expected[name]))
		}
	}

	sum := 0.0
	for _, v := range now {
		sum += v
	}
	for _, v := range was {
		sum -= v
	}
	if math.Abs(sum) > tolerance {
		out = append(out, fmt.Sprintf("table total moved by %.1f", sum))
	}
	return out
}

// display logs the final statistics of a run.
func (r *Runner) display(ctx context.Context, rep *Report) {
	var perSecond float64
	if rep.Duration > 0 {
		perSecond = float64(rep.Submitted) / rep.Duration.Seconds()
	}
	r.log.Info(ctx, "final statistics",
		logger.Int("submitted", rep.Submitted),
		logger.Int("created", rep.Created),
		logger.Int("appended", rep.Appended),
		logger.Int("replayed", rep.Replayed),
		logger.Int("rejected", rep.Rejected),
		logger.Int("failed", rep.Failed),
		logger.Int("mismatches", len(rep.Mismatches)),
		logger.Duration("duration", rep.Duration),
		logger.Float64("roundsPerSecond", perSecond))
}
