// Package chart renders player score histories as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/mjledger/internal/domain/stats"
)

// Palette holds the colors of a rendered chart.
type Palette struct {
	Background drawing.Color
	Line       drawing.Color
	Dot        drawing.Color
	Zero       drawing.Color
	Text       drawing.Color
}

// DefaultPalette is a felt-table green on white.
var DefaultPalette = Palette{
	Background: drawing.ColorWhite,
	Line:       drawing.ColorFromHex("1b5e20"),
	Dot:        drawing.ColorFromHex("c62828"),
	Zero:       drawing.ColorFromHex("9e9e9e"),
	Text:       drawing.ColorFromHex("212121"),
}

// Renderer draws history charts at a fixed size.
type Renderer struct {
	Width   int
	Height  int
	Palette Palette
}

// NewRenderer returns a Renderer with the default size and palette.
func NewRenderer() *Renderer {
	return &Renderer{Width: 800, Height: 400, Palette: DefaultPalette}
}

// History renders the cumulative total of points as a PNG line chart. The
// line starts from zero the day before the first session. An empty history
// renders a placeholder image.
func (r *Renderer) History(points []stats.Point) ([]byte, error) {
	if len(points) == 0 {
		return r.placeholder("No sessions in range")
	}

	xs := make([]time.Time, 0, len(points)+1)
	ys := make([]float64, 0, len(points)+1)
	xs = append(xs, points[0].Date.AddDate(0, 0, -1))
	ys = append(ys, 0)
	lo, hi := 0.0, 0.0
	for _, p := range points {
		xs = append(xs, p.Date)
		ys = append(ys, p.Cumulative)
		lo = min(lo, p.Cumulative)
		hi = max(hi, p.Cumulative)
	}
	if lo == hi {
		lo, hi = lo-1, hi+1
	}

	series := gochart.TimeSeries{
		Name:    "Cumulative total",
		XValues: xs,
		YValues: ys,
		Style: gochart.Style{
			StrokeColor: r.Palette.Line,
			StrokeWidth: 2,
			DotWidth:    4,
			DotColor:    r.Palette.Dot,
		},
	}
	zero := gochart.TimeSeries{
		Name:    "Zero",
		XValues: []time.Time{xs[0], xs[len(xs)-1]},
		YValues: []float64{0, 0},
		Style: gochart.Style{
			StrokeColor:     r.Palette.Zero,
			StrokeWidth:     1,
			StrokeDashArray: []float64{4, 4},
		},
	}

	graph := gochart.Chart{
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{FillColor: r.Palette.Background},
		Canvas:     gochart.Style{FillColor: r.Palette.Background},
		XAxis: gochart.XAxis{
			Name:           "Date",
			ValueFormatter: gochart.TimeValueFormatterWithFormat("2006-01-02"),
			Style:          gochart.Style{FontColor: r.Palette.Text},
		},
		YAxis: gochart.YAxis{
			Name:  "Total",
			Style: gochart.Style{FontColor: r.Palette.Text},
			Range: &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []gochart.Series{zero, series},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render history chart: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) placeholder(msg string) ([]byte, error) {
	graph := gochart.Chart{
		Width:      r.Width / 2,
		Height:     r.Height / 2,
		Background: gochart.Style{FillColor: r.Palette.Background},
		Canvas:     gochart.Style{FillColor: r.Palette.Background},
		Elements: []gochart.Renderable{
			func(rd gochart.Renderer, cb gochart.Box, _ gochart.Style) {
				rd.SetFontColor(r.Palette.Text)
				rd.SetFontSize(12.0)
				tb := rd.MeasureText(msg)
				rd.Text(msg, (cb.Width()-tb.Width())/2, (cb.Height()+tb.Height())/2)
			},
		},
	}
	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render placeholder: %w", err)
	}
	return buf.Bytes(), nil
}
