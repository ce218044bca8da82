// Package stats aggregates ledger events into per-player statistics.
package stats

import (
	"math"
	"time"

	"github.com/okian/mjledger/internal/domain/model"
)

// Filter narrows the events an aggregate is computed over. Zero bounds are
// open; both bounds are inclusive calendar dates.
type Filter struct {
	From  time.Time
	To    time.Time
	Chips model.ChipFilter
}

// Match reports whether e survives the filter.
func (f Filter) Match(e model.Event) bool {
	if !f.Chips.Match(e.Category) {
		return false
	}
	d := day(e.Date)
	if !f.From.IsZero() && d.Before(day(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(day(f.To)) {
		return false
	}
	return true
}

// day drops the clock part, keeping the calendar date as written.
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Row is one player's line of the stats table.
type Row struct {
	Player  string  `json:"player"`
	Total   float64 `json:"total"`
	Chip    int     `json:"chip"`
	AvgRank float64 `json:"avg_rank"`
	Games   int     `json:"games"`
}

type acc struct {
	total   float64
	chip    int
	rankSum int
	ranked  int
	games   int
}

// Aggregate groups the surviving events by player. Rows come back ordered by
// total, highest first. An empty result is an empty, non-nil slice.
func Aggregate(events []model.Event, f Filter) []Row {
	byPlayer := make(map[string]*acc)
	order := make([]string, 0)
	for _, e := range events {
		if !f.Match(e) {
			continue
		}
		a, ok := byPlayer[e.Player]
		if !ok {
			a = &acc{}
			byPlayer[e.Player] = a
			order = append(order, e.Player)
		}
		a.total += e.Score + float64(e.Chip)
		a.chip += e.Chip
		if e.HasRank() {
			a.rankSum += e.Rank
			a.ranked++
		}
		if e.Score != 0 {
			a.games++
		}
	}

	rows := make([]Row, 0, len(order))
	for _, p := range order {
		a := byPlayer[p]
		r := Row{Player: p, Total: a.total, Chip: a.chip, Games: a.games}
		if a.ranked > 0 {
			r.AvgRank = round2(float64(a.rankSum) / float64(a.ranked))
		}
		rows = append(rows, r)
	}
	Sort(rows, ColumnTotal, true)
	return rows
}

// PlayerRow returns one player's row under f.
func PlayerRow(events []model.Event, player string, f Filter) (Row, bool) {
	only := make([]model.Event, 0)
	for _, e := range events {
		if e.Player == player {
			only = append(only, e)
		}
	}
	rows := Aggregate(only, f)
	if len(rows) == 0 {
		return Row{}, false
	}
	return rows[0], true
}

// Standing is a leaderboard line.
type Standing struct {
	Position int `json:"position"`
	Row
}

// Leaderboard ranks rows by total, highest first, and keeps the first limit
// (all when limit <= 0). Equal totals share the better position.
func Leaderboard(rows []Row, limit int) []Standing {
	sorted := append([]Row(nil), rows...)
	Sort(sorted, ColumnTotal, true)
	out := make([]Standing, 0, len(sorted))
	for i, r := range sorted {
		pos := i + 1
		if i > 0 && r.Total == sorted[i-1].Total {
			pos = out[i-1].Position
		}
		out = append(out, Standing{Position: pos, Row: r})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Point is one day of a player's running total.
type Point struct {
	Date       time.Time `json:"date"`
	Delta      float64   `json:"delta"`
	Cumulative float64   `json:"cumulative"`
}

// History returns the player's per-date totals and running sum, oldest first.
func History(events []model.Event, player string, f Filter) []Point {
	perDay := make(map[time.Time]float64)
	for _, e := range events {
		if e.Player != player || !f.Match(e) {
			continue
		}
		perDay[day(e.Date)] += e.Score + float64(e.Chip)
	}
	days := make([]time.Time, 0, len(perDay))
	for d := range perDay {
		days = append(days, d)
	}
	sortTimes(days)

	out := make([]Point, 0, len(days))
	run := 0.0
	for _, d := range days {
		run += perDay[d]
		out = append(out, Point{Date: d, Delta: perDay[d], Cumulative: run})
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
