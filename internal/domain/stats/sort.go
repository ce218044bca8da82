package stats

import (
	"slices"
	"sort"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Column names a sortable stats column.
type Column string

// Sortable columns.
const (
	ColumnName    Column = "name"
	ColumnTotal   Column = "total"
	ColumnChip    Column = "chip"
	ColumnAvgRank Column = "avg_rank"
	ColumnGames   Column = "games"
)

// ParseColumn maps a query value to a Column; "" means total.
func ParseColumn(s string) (Column, bool) {
	switch Column(s) {
	case "", ColumnTotal:
		return ColumnTotal, true
	case ColumnName, "player":
		return ColumnName, true
	case ColumnChip, ColumnAvgRank, ColumnGames:
		return Column(s), true
	default:
		return "", false
	}
}

// newCollator orders player names the way a Japanese reader expects. A
// collator is not safe for concurrent use, so each sort builds its own.
func newCollator() *collate.Collator {
	return collate.New(language.Japanese)
}

// Sort orders rows in place by column. Ties fall back to player name,
// ascending.
func Sort(rows []Row, column Column, descending bool) {
	c := newCollator()
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if column == ColumnName {
			cmp := c.CompareString(a.Player, b.Player)
			if descending {
				return cmp > 0
			}
			return cmp < 0
		}
		if d := compareColumn(a, b, column); d != 0 {
			if descending {
				return d > 0
			}
			return d < 0
		}
		return c.CompareString(a.Player, b.Player) < 0
	})
}

func compareColumn(a, b Row, column Column) int {
	var x, y float64
	switch column {
	case ColumnChip:
		x, y = float64(a.Chip), float64(b.Chip)
	case ColumnAvgRank:
		x, y = a.AvgRank, b.AvgRank
	case ColumnGames:
		x, y = float64(a.Games), float64(b.Games)
	default:
		x, y = a.Total, b.Total
	}
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

// Players lists the distinct players in events, collated.
func Players(events []model.Event) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range events {
		if _, ok := seen[e.Player]; ok {
			continue
		}
		seen[e.Player] = struct{}{}
		out = append(out, e.Player)
	}
	newCollator().SortStrings(out)
	return out
}

func sortTimes(ts []time.Time) {
	slices.SortFunc(ts, func(a, b time.Time) int { return a.Compare(b) })
}
