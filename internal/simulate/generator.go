package simulate

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/scoring"
	"github.com/okian/mjledger/internal/domain/types"
)

// Bounds for generated values.
const (
	pointStep   = 100
	maxWeight   = 600
	maxChipSwap = 5
)

// Session is one generated table: a roster, a date and its rounds.
type Session struct {
	Date   time.Time
	Roster [model.Seats]string
	Rounds []types.RecordRequest
	Replay []bool // resubmit the round with the same id
}

// Generator produces reproducible sessions from a seed.
type Generator struct {
	faker      *gofakeit.Faker
	pool       []string
	pointTotal int
}

// NewGenerator creates a generator with a pool of distinct player names.
func NewGenerator(seed int64, poolSize, pointTotal int) *Generator {
	g := &Generator{
		faker:      gofakeit.New(uint64(seed)),
		pointTotal: pointTotal,
	}
	seen := make(map[string]struct{}, poolSize)
	for len(g.pool) < poolSize {
		name := g.faker.FirstName()
		if _, dup := seen[name]; dup {
			name = fmt.Sprintf("%s%d", name, len(g.pool))
		}
		seen[name] = struct{}{}
		g.pool = append(g.pool, name)
	}
	return g
}

// Pool returns the player names sessions are drawn from.
func (g *Generator) Pool() []string { return g.pool }

// Session builds a session of n rounds on date. Rounds of points mode sum
// to the point total; chips settle on the last round and sum to zero.
// Roughly replayPct percent of the rounds are marked for resubmission.
func (g *Generator) Session(idPrefix string, date time.Time, n, replayPct int) Session {
	s := Session{Date: date}
	names := append([]string(nil), g.pool...)
	g.faker.ShuffleAnySlice(names)
	copy(s.Roster[:], names)

	for r := 0; r < n; r++ {
		pts := g.points()
		var chips [model.Seats]int
		if r == n-1 {
			chips = g.chips()
		}
		req := types.RecordRequest{
			ID:   fmt.Sprintf("%s-r%d", idPrefix, r+1),
			Date: date.Format(time.DateOnly),
			Mode: string(model.ModePoints),
		}
		for i, name := range s.Roster {
			req.Seats = append(req.Seats, types.SeatInput{Name: name, Points: pts[i], Chip: chips[i]})
		}
		s.Rounds = append(s.Rounds, req)
		s.Replay = append(s.Replay, g.faker.Number(1, 100) <= replayPct)
	}
	return s
}

// points splits the point total into four shares in steps of pointStep.
func (g *Generator) points() [model.Seats]int {
	var w [model.Seats]int
	sum := 0
	for i := range w {
		w[i] = g.faker.Number(1, maxWeight)
		sum += w[i]
	}
	var out [model.Seats]int
	rest := g.pointTotal
	for i := 0; i < model.Seats-1; i++ {
		out[i] = g.pointTotal * w[i] / sum / pointStep * pointStep
		rest -= out[i]
	}
	out[model.Seats-1] = rest
	return out
}

// chips returns a zero-sum chip settlement.
func (g *Generator) chips() [model.Seats]int {
	var out [model.Seats]int
	rest := 0
	for i := 0; i < model.Seats-1; i++ {
		out[i] = g.faker.Number(-maxChipSwap, maxChipSwap)
		rest -= out[i]
	}
	out[model.Seats-1] = rest
	return out
}

// Expected returns the per-player totals the session adds to the ledger.
func (s Session) Expected(conv *scoring.Converter) (map[string]float64, error) {
	out := make(map[string]float64, model.Seats)
	for _, req := range s.Rounds {
		var pts [model.Seats]int
		for i, seat := range req.Seats {
			pts[i] = seat.Points
		}
		scores, err := conv.Derive(pts)
		if err != nil {
			return nil, err
		}
		for i, seat := range req.Seats {
			out[seat.Name] += scores[i] + float64(seat.Chip)
		}
	}
	return out, nil
}
