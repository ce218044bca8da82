// Package scoring converts holding points into zero-sum round scores and
// assigns round ranks.
package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/mjledger/internal/domain/model"
)

// Default conversion constants.
const (
	DefaultPointTotal   = 100_000
	DefaultReturnPoints = 30_000
	DefaultPointUnit    = 1_000
)

// DefaultUma holds the rank bonuses for positions 2, 3 and 4.
// Position 1 has no entry: its score is the negation of the other three.
var DefaultUma = [model.Seats - 1]int{10, -10, -30}

// Option applies a configuration option to the Converter.
type Option func(*Converter)

// WithPointTotal sets the constant the four holding point totals must sum to.
func WithPointTotal(total int) Option {
	return func(c *Converter) {
		if total > 0 {
			c.pointTotal = total
		}
	}
}

// WithReturnPoints sets the baseline subtracted from holding points.
func WithReturnPoints(points int) Option {
	return func(c *Converter) {
		if points > 0 {
			c.returnPoints = points
		}
	}
}

// WithPointUnit sets the divisor that turns points into score units.
func WithPointUnit(unit int) Option {
	return func(c *Converter) {
		if unit > 0 {
			c.pointUnit = unit
		}
	}
}

// WithUma sets the bonuses for positions 2..4. Slices of any other length are ignored.
func WithUma(uma []int) Option {
	return func(c *Converter) {
		if len(uma) == len(c.uma) {
			copy(c.uma[:], uma)
		}
	}
}

// Converter derives round scores from holding points.
type Converter struct {
	pointTotal   int
	returnPoints int
	pointUnit    int
	uma          [model.Seats - 1]int
}

// NewConverter creates a Converter with the default convention applied
// before the given options.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{
		pointTotal:   DefaultPointTotal,
		returnPoints: DefaultReturnPoints,
		pointUnit:    DefaultPointUnit,
		uma:          DefaultUma,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PointTotal returns the configured holding point total.
func (c *Converter) PointTotal() int { return c.pointTotal }

// Validate checks that the four holding point totals sum to the configured constant.
func (c *Converter) Validate(points [model.Seats]int) error {
	sum := 0
	for _, p := range points {
		sum += p
	}
	if sum != c.pointTotal {
		return fmt.Errorf("%w: got %d, want %d", ErrPointTotal, sum, c.pointTotal)
	}
	return nil
}

// Derive converts holding points into four zero-sum scores, returned in seat order.
//
// Positions 2..4 are converted with the linear formula plus uma, position 1
// takes the negation of their sum. Seats with identical points share the mean
// of their provisional positional scores. The four results sum to exactly
// zero in any order of addition.
func (c *Converter) Derive(points [model.Seats]int) ([model.Seats]float64, error) {
	var out [model.Seats]float64
	if err := c.Validate(points); err != nil {
		return out, err
	}

	order := []int{0, 1, 2, 3}
	sort.SliceStable(order, func(i, j int) bool {
		return points[order[i]] > points[order[j]]
	})

	// provisional scores in twelfths, so means over groups of 2, 3 or 4 stay integral
	var provisional [model.Seats]int64
	rest := int64(0)
	for pos := 1; pos < model.Seats; pos++ {
		p := points[order[pos]]
		units := int64(math.Round(float64(p-c.returnPoints)/float64(c.pointUnit))) + int64(c.uma[pos-1])
		provisional[pos] = units * twelfths
		rest += provisional[pos]
	}
	provisional[0] = -rest

	alone := order[0]
	for start := 0; start < model.Seats; {
		end := start + 1
		for end < model.Seats && points[order[end]] == points[order[start]] {
			end++
		}
		if end-start == 1 {
			alone = order[start]
		} else {
			sum := int64(0)
			for pos := start; pos < end; pos++ {
				sum += provisional[pos]
			}
			mean := sum / int64(end-start)
			for pos := start; pos < end; pos++ {
				provisional[pos] = mean
			}
		}
		start = end
	}

	var exact [model.Seats]int64
	for pos, seat := range order {
		exact[seat] = provisional[pos]
	}
	return settle(exact, alone), nil
}

const twelfths = 12

// settle turns scores held in twelfths into floats on a binary grid fine
// enough that every partial sum of them is exact. Only a three-way tie has a
// mean that is not a binary fraction; the rounding residue it leaves goes to
// the seat alone, which then keeps the total at zero without splitting the tie.
func settle(v [model.Seats]int64, alone int) [model.Seats]float64 {
	bound := 1.0
	for _, x := range v {
		bound += math.Abs(float64(x)) / twelfths
	}
	_, exp := math.Frexp(bound)
	grid := math.Ldexp(1, exp-53)

	var out [model.Seats]float64
	residue := 0.0
	for i, x := range v {
		out[i] = math.Round(float64(x)/twelfths/grid) * grid
		residue += out[i]
	}
	out[alone] -= residue
	return out
}

// ValidateScores checks that already-derived scores are zero-sum.
func ValidateScores(scores [model.Seats]int) error {
	sum := 0
	for _, s := range scores {
		sum += s
	}
	if sum != 0 {
		return fmt.Errorf("%w: got %d", ErrScoreSum, sum)
	}
	return nil
}
