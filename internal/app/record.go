package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	repository "github.com/okian/mjledger/internal/adapters/repository"
	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/period"
	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/domain/sheet"
	"github.com/okian/mjledger/pkg/logger"
	"github.com/okian/mjledger/pkg/metrics"
)

// AddRecord validates a submitted round, derives its scores and appends it
// to the ledger.
//
// A submission carrying an id already accepted returns the stored result
// with replay set and writes nothing. Submissions without an id get a fresh
// one, returned in the result. Validation and capacity failures come back
// as an unsuccessful result alongside the error.
func (s *Service) AddRecord(ctx context.Context, sub model.Submission) (res model.AppendResult, replay bool, err error) {
	l, err := s.current()
	if err != nil {
		return model.AppendResult{Message: err.Error()}, false, err
	}

	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RecordAppendLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if sub.ID != "" {
		if prev, ok := s.deduper.Lookup(ctx, sub.ID); ok {
			metrics.RecordAppend(metrics.OutcomeDuplicate)
			s.logger.Debug(ctx, "submission replayed", logger.String("id", sub.ID))
			return prev, true, nil
		}
	} else {
		sub.ID = uuid.NewString()
	}

	entry, err := s.entry(sub)
	if err != nil {
		metrics.RecordAppend(metrics.OutcomeInvalid)
		s.logger.Info(ctx, "submission rejected", logger.String("id", sub.ID), logger.Error(err))
		return model.AppendResult{ID: sub.ID, Message: err.Error()}, false, err
	}

	res, err = l.Append(ctx, entry)
	res.ID = sub.ID
	if err != nil && !res.Success {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, repository.ErrSheetFull) || errors.Is(err, repository.ErrNoSheetName) {
			outcome = metrics.OutcomeFull
		}
		metrics.RecordAppend(outcome)
		metrics.RecordErrorByComponent("service", outcome)
		s.logger.Warn(ctx, "append failed",
			logger.String("id", sub.ID),
			logger.String("dateKey", entry.DateKey),
			logger.Error(err),
		)
		res.Message = err.Error()
		return res, false, err
	}

	// the record is on disk even if the reload after it failed
	s.deduper.Record(ctx, sub.ID, res)
	if res.Created {
		metrics.RecordAppend(metrics.OutcomeCreated)
	} else {
		metrics.RecordAppend(metrics.OutcomeAppended)
	}
	return res, false, err
}

// entry turns a submission into the lines the appender writes.
func (s *Service) entry(sub model.Submission) (model.Entry, error) {
	// cells are trimmed when read back, so names are trimmed before writing
	for i := range sub.Seats {
		sub.Seats[i].Name = strings.TrimSpace(sub.Seats[i].Name)
	}
	if err := validateSeats(sub.Seats); err != nil {
		return model.Entry{}, err
	}

	var values [model.Seats]int
	for i, seat := range sub.Seats {
		values[i] = seat.Points
	}

	var scores [model.Seats]float64
	switch sub.Mode {
	case model.ModePoints, "":
		derived, err := s.converter.Derive(values)
		if err != nil {
			return model.Entry{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		scores = derived
	case model.ModeScores:
		if err := scoring.ValidateScores(values); err != nil {
			return model.Entry{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
		for i, v := range values {
			scores[i] = float64(v)
		}
	default:
		return model.Entry{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidSubmission, sub.Mode)
	}

	date := sub.Date
	if date.IsZero() {
		date = s.today()
	}
	entry := model.Entry{DateKey: sheet.FormatKey(period.Day(date), s.keyFormat)}
	for i, seat := range sub.Seats {
		entry.Lines[i] = model.Line{Player: seat.Name, Score: scores[i], Chip: seat.Chip}
	}
	return entry, nil
}

// validateSeats requires four present, distinct names. Names are compared
// exactly, case included.
func validateSeats(seats [model.Seats]model.Seat) error {
	seen := make(map[string]int, model.Seats)
	for i, seat := range seats {
		if seat.Name == "" {
			return fmt.Errorf("%w: seat %d has no player name", ErrInvalidSubmission, i+1)
		}
		if j, dup := seen[seat.Name]; dup {
			return fmt.Errorf("%w: player %q appears in seats %d and %d", ErrInvalidSubmission, seat.Name, j+1, i+1)
		}
		seen[seat.Name] = i
	}
	return nil
}

// ParseDate resolves a submission date. Empty input is today.
func (s *Service) ParseDate(v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return s.today(), nil
	}
	d, err := s.dates.Parse(v, s.now())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date: %w", ErrInvalidSubmission, err)
	}
	return d, nil
}
