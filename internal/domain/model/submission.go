package model

import "time"

// Seats is the fixed table size.
const Seats = 4

// Mode selects how submitted seat values are interpreted.
type Mode string

// Submission modes.
const (
	// ModePoints treats Seat.Points as holding points that go through score derivation.
	ModePoints Mode = "points"
	// ModeScores treats Seat.Points as already-derived zero-sum scores.
	ModeScores Mode = "scores"
)

// Seat is one player's line of a submitted round.
type Seat struct {
	Name   string
	Points int
	Chip   int
}

// Submission is a round result as entered by a user.
type Submission struct {
	ID    string // optional idempotency key
	Date  time.Time
	Mode  Mode
	Seats [Seats]Seat
}

// Names returns the seat names in submission order.
func (s Submission) Names() []string {
	names := make([]string, 0, Seats)
	for _, seat := range s.Seats {
		names = append(names, seat.Name)
	}
	return names
}

// Line is one player's derived result ready to be written.
type Line struct {
	Player string
	Score  float64
	Chip   int
}

// Entry is what the record appender writes: a date key and four lines.
type Entry struct {
	DateKey string
	Lines   [Seats]Line
}

// Players returns the entry's player names in order.
func (e Entry) Players() []string {
	names := make([]string, 0, Seats)
	for _, l := range e.Lines {
		names = append(names, l.Player)
	}
	return names
}

// Scores returns the entry's scores in order.
func (e Entry) Scores() []float64 {
	scores := make([]float64, 0, Seats)
	for _, l := range e.Lines {
		scores = append(scores, l.Score)
	}
	return scores
}

// AppendResult reports where a record landed.
type AppendResult struct {
	ID      string `json:"id,omitempty"` // submission id, generated when the client sent none
	Success bool   `json:"success"`
	Sheet   string `json:"sheet,omitempty"`
	Round   int    `json:"round,omitempty"`
	Created bool   `json:"created,omitempty"`
	Message string `json:"message"`
}
