// Package period turns user-entered date bounds into calendar dates.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Sentinel kinds for date input errors.
var (
	ErrUnrecognized  = errors.New("unrecognized date")
	ErrInvertedRange = errors.New("range start is after its end")
)

var layouts = []string{
	"2006-01-02",
	"2006/01/02",
	"20060102",
	"060102",
}

// Parser resolves absolute and relative date expressions.
type Parser struct {
	w   *when.Parser
	loc *time.Location
}

// NewParser creates a parser that resolves relative input in loc (UTC when nil).
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Parser{w: w, loc: loc}
}

// Parse resolves s relative to now. Absolute forms (2006-01-02, yyyymmdd,
// yymmdd) are tried before natural language such as "yesterday" or
// "2 weeks ago". The result is the calendar date at UTC midnight; empty
// input yields the zero time.
func (p *Parser) Parse(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range layouts {
		if len(s) != len(layout) {
			continue
		}
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	r, err := p.w.Parse(strings.ToLower(s), now.In(p.loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrUnrecognized, s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnrecognized, s)
	}
	return Day(r.Time.In(p.loc)), nil
}

// Range parses both bounds and checks their order.
func (p *Parser) Range(from, to string, now time.Time) (time.Time, time.Time, error) {
	f, err := p.Parse(from, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("from: %w", err)
	}
	t, err := p.Parse(to, now)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("to: %w", err)
	}
	if !f.IsZero() && !t.IsZero() && f.After(t) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %s > %s", ErrInvertedRange, f.Format(time.DateOnly), t.Format(time.DateOnly))
	}
	return f, t, nil
}

// Day returns the calendar date of t as UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
