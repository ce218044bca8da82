package sheet

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/okian/mjledger/internal/domain/scoring"
)

// Round is one parsed round of a sheet.
type Round struct {
	Index  int // 1-based sequence among parsed rounds
	Row    int // sheet row the round was read from
	Scores [model.Seats]float64
	Ranks  [model.Seats]int
}

// Parsed is the normalized content of one session sheet.
type Parsed struct {
	Name     Name
	Sheet    string
	Players  [model.Seats]string
	Rounds   []Round
	Chips    [model.Seats]int
	Category model.Category
}

// Parse reads a raw sheet grid (as returned by a spreadsheet reader, row
// major, 0-indexed) into a Parsed sheet.
//
// Errors are skip conditions: ErrNotDataSheet for names that are not dates,
// ErrEmptySheet when the header has no first player, ErrMalformedSheet when
// the chip-balance row holds non-numeric values.
func Parse(name string, rows [][]string, layout Layout) (Parsed, error) {
	n, err := ParseName(name)
	if err != nil {
		return Parsed{}, err
	}
	p := Parsed{Name: n, Sheet: name}

	if cellAt(rows, layout.PlayerCols[0], layout.HeaderRow) == "" {
		return Parsed{}, fmt.Errorf("%w: %q", ErrEmptySheet, name)
	}
	// names are exact identities once surrounding spaces are dropped
	for i, col := range layout.PlayerCols {
		p.Players[i] = cellAt(rows, col, layout.HeaderRow)
	}

	m := layout.Locate(rows)
	end := m.LastData + 1
	switch {
	case m.Chip > 0:
		end = m.Chip
	case m.Total > 0:
		end = m.Total
	}

	index := 0
	for row := layout.FirstRoundRow; row < end; row++ {
		if cellAt(rows, layout.PlayerCols[0], row) == "" {
			continue
		}
		scores, ok := numericRow(rows, layout.PlayerCols, row)
		if !ok {
			continue
		}
		index++
		r := Round{Index: index, Row: row, Scores: scores}
		copy(r.Ranks[:], scoring.Ranks(scores[:]))
		p.Rounds = append(p.Rounds, r)
	}

	if m.Chip > 0 {
		for i, col := range layout.PlayerCols {
			v := cellAt(rows, col, m.Chip)
			if v == "" {
				continue
			}
			f, ok := ParseNumber(v)
			if !ok || f != math.Trunc(f) || math.Abs(f) > maxChip {
				return Parsed{}, fmt.Errorf("%w: %q: chip balance %q for %s", ErrMalformedSheet, name, v, p.Players[i])
			}
			p.Chips[i] = int(f)
		}
	}

	p.Category = model.WithoutChips
	abs := 0
	for _, c := range p.Chips {
		if c < 0 {
			c = -c
		}
		abs += c
	}
	if abs != 0 {
		p.Category = model.WithChips
	}
	return p, nil
}

// numericRow parses the player cells of a row; ok is false unless all of
// them are numbers.
func numericRow(rows [][]string, cols [model.Seats]int, row int) ([model.Seats]float64, bool) {
	var out [model.Seats]float64
	for i, col := range cols {
		f, ok := ParseNumber(cellAt(rows, col, row))
		if !ok {
			return out, false
		}
		out[i] = f
	}
	return out, true
}

// maxChip bounds a chip balance cell.
const maxChip = 1e9

// ParseNumber reads a finite decimal cell value. Hex floats, NaN and
// infinities are refused.
func ParseNumber(v string) (float64, bool) {
	digits := strings.TrimLeft(v, "+-")
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Events flattens the sheet into ledger events: four round events per round,
// then one chip-only event per player with a non-zero balance.
func (p Parsed) Events() []model.Event {
	events := make([]model.Event, 0, len(p.Rounds)*model.Seats+model.Seats)
	for _, r := range p.Rounds {
		for i, player := range p.Players {
			events = append(events, model.Event{
				Date:     p.Name.Date,
				Sheet:    p.Sheet,
				Round:    r.Index,
				Player:   player,
				Score:    r.Scores[i],
				Rank:     r.Ranks[i],
				Category: p.Category,
			})
		}
	}
	for i, player := range p.Players {
		if p.Chips[i] == 0 {
			continue
		}
		events = append(events, model.Event{
			Date:     p.Name.Date,
			Sheet:    p.Sheet,
			Player:   player,
			Chip:     p.Chips[i],
			Category: p.Category,
		})
	}
	return events
}
