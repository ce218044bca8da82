// Package sheet describes the session sheet schema and turns a raw sheet grid
// into ledger events.
package sheet

import (
	"regexp"
	"strings"

	"github.com/okian/mjledger/internal/domain/model"
	"github.com/xuri/excelize/v2"
)

// Default schema values.
const (
	DefaultMaxRounds  = 20
	DefaultChipLabel  = "チップ収支"
	DefaultTotalLabel = "合計"
)

var (
	chipLabelPattern  = regexp.MustCompile(`(?i)chip|チップ`)
	totalLabelPattern = regexp.MustCompile(`(?i)total|合計`)
)

// Layout names the rows and columns of a session sheet. Both the parser and
// the appender read positions from here. Rows and columns are 1-based.
type Layout struct {
	HeaderRow     int
	FirstRoundRow int
	LabelCol      int
	PlayerCols    [model.Seats]int
	RankCols      [model.Seats]int
	MaxRounds     int
	// ChipLabel and TotalLabel are written into the label column of new sheets.
	ChipLabel  string
	TotalLabel string
}

// LayoutOption applies a configuration option to the Layout.
type LayoutOption func(*Layout)

// WithMaxRounds caps the number of rounds a sheet may hold.
func WithMaxRounds(n int) LayoutOption {
	return func(l *Layout) {
		if n > 0 {
			l.MaxRounds = n
		}
	}
}

// WithLabels sets the labels written for the chip-balance and total rows.
// Written labels must still be recognized by the label matchers.
func WithLabels(chip, total string) LayoutOption {
	return func(l *Layout) {
		if chip != "" && chipLabelPattern.MatchString(chip) {
			l.ChipLabel = chip
		}
		if total != "" && totalLabelPattern.MatchString(total) && !chipLabelPattern.MatchString(total) {
			l.TotalLabel = total
		}
	}
}

// NewLayout returns the standard layout: header on row 1, label in column A,
// players in B..E and ranks in I..L.
func NewLayout(opts ...LayoutOption) Layout {
	l := Layout{
		HeaderRow:     1,
		FirstRoundRow: 2,
		LabelCol:      1,
		PlayerCols:    [model.Seats]int{2, 3, 4, 5},
		RankCols:      [model.Seats]int{9, 10, 11, 12},
		MaxRounds:     DefaultMaxRounds,
		ChipLabel:     DefaultChipLabel,
		TotalLabel:    DefaultTotalLabel,
	}
	for _, opt := range opts {
		opt(&l)
	}
	return l
}

// Cell returns the A1-style name of a cell.
func (l Layout) Cell(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		// only reachable with non-positive coordinates, which Layout never produces
		panic(err)
	}
	return name
}

// IsChipLabel reports whether a label-column value marks the chip-balance row.
func (l Layout) IsChipLabel(v string) bool {
	return chipLabelPattern.MatchString(v)
}

// IsTotalLabel reports whether a label-column value marks the total row.
func (l Layout) IsTotalLabel(v string) bool {
	return !chipLabelPattern.MatchString(v) && totalLabelPattern.MatchString(v)
}

// Markers holds the located special rows of a sheet; 0 means not found.
type Markers struct {
	Chip     int
	Total    int
	LastData int
}

// Locate scans a sheet grid for the chip-balance and total rows and the last
// non-blank row.
func (l Layout) Locate(rows [][]string) Markers {
	var m Markers
	for i := range rows {
		row := i + 1
		if !rowBlank(rows[i]) {
			m.LastData = row
		}
		if row <= l.HeaderRow {
			continue
		}
		label := cellAt(rows, l.LabelCol, row)
		switch {
		case m.Chip == 0 && l.IsChipLabel(label):
			m.Chip = row
		case m.Total == 0 && l.IsTotalLabel(label):
			m.Total = row
		}
	}
	return m
}

// rawCellAt returns the value at a 1-based position, or "" when the grid is
// shorter.
func rawCellAt(rows [][]string, col, row int) string {
	if row < 1 || row > len(rows) {
		return ""
	}
	r := rows[row-1]
	if col < 1 || col > len(r) {
		return ""
	}
	return r[col-1]
}

func cellAt(rows [][]string, col, row int) string {
	return strings.TrimSpace(rawCellAt(rows, col, row))
}

func rowBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
