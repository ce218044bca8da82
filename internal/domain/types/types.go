// Package types contains the request and response shapes shared by the
// HTTP API and its clients.
package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
)

// ErrSeatCount reports a record request without exactly four seats.
var ErrSeatCount = errors.New("a round needs exactly four seats")

// SeatInput is one seat of a submitted round.
type SeatInput struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
	Chip   int    `json:"chip,omitempty"`
}

// RecordRequest is the body of POST /records.
type RecordRequest struct {
	ID    string      `json:"id,omitempty"`
	Date  string      `json:"date,omitempty"` // empty means today
	Mode  string      `json:"mode,omitempty"` // points (default) or scores
	Seats []SeatInput `json:"seats"`
}

// Submission converts the request for a resolved session date.
func (r RecordRequest) Submission(date time.Time) (model.Submission, error) {
	if len(r.Seats) != model.Seats {
		return model.Submission{}, fmt.Errorf("%w: got %d", ErrSeatCount, len(r.Seats))
	}
	sub := model.Submission{ID: r.ID, Date: date, Mode: model.Mode(r.Mode)}
	if sub.Mode == "" {
		sub.Mode = model.ModePoints
	}
	for i, s := range r.Seats {
		sub.Seats[i] = model.Seat{Name: s.Name, Points: s.Points, Chip: s.Chip}
	}
	return sub, nil
}

// ErrorResponse is the body of every non-record error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlayersResponse is the body of GET /players.
type PlayersResponse struct {
	Players []string `json:"players"`
}

// ReloadResponse is the body of POST /reload.
type ReloadResponse struct {
	Events   int       `json:"events"`
	LoadedAt time.Time `json:"loaded_at"`
}
