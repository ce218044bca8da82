// Package model contains domain models passed between layers.
package model

import "time"

// Category tags a whole session sheet by whether chips were settled on it.
type Category string

// Chip-presence categories.
const (
	WithChips    Category = "with-chips"
	WithoutChips Category = "without-chips"
)

// Event is one row of the normalized ledger.
// Round events carry Score and Rank; chip-only events carry Chip and no rank.
type Event struct {
	Date     time.Time // session date, UTC midnight
	Sheet    string    // sheet the event was read from
	Round    int       // 1-based positional round index; 0 for chip-only events
	Player   string    // exact-string identity
	Score    float64   // round score delta, 0 for chip-only events
	Chip     int       // chip settlement, 0 for round events
	Rank     int       // 1..4, 0 when absent
	Category Category
}

// HasRank reports whether the event is a scored round.
func (e Event) HasRank() bool { return e.Rank > 0 }

// IsChipOnly reports whether the event only carries a chip settlement.
func (e Event) IsChipOnly() bool { return e.Round == 0 }

// ChipFilter selects events by their sheet-level chip category.
type ChipFilter string

// Chip filters accepted by the stats queries.
const (
	ChipsAll     ChipFilter = "all"
	ChipsWith    ChipFilter = "with"
	ChipsWithout ChipFilter = "without"
)

// ParseChipFilter maps user input to a ChipFilter. Empty input selects all.
func ParseChipFilter(s string) (ChipFilter, bool) {
	switch s {
	case "", "all":
		return ChipsAll, true
	case "with", "with-chips":
		return ChipsWith, true
	case "without", "without-chips":
		return ChipsWithout, true
	default:
		return "", false
	}
}

// Match reports whether a category passes the filter.
func (f ChipFilter) Match(c Category) bool {
	switch f {
	case ChipsWith:
		return c == WithChips
	case ChipsWithout:
		return c == WithoutChips
	default:
		return true
	}
}
