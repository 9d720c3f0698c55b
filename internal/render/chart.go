// Package render draws chart series as PNG images.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/seenimoa/bazaar/pkg/models"
	"github.com/seenimoa/bazaar/pkg/utils"
)

// ErrTooFewPoints is returned when a series cannot be drawn as a line.
var ErrTooFewPoints = errors.New("need at least 2 data points")

// Default image size in pixels.
const (
	DefaultWidth  = 900
	DefaultHeight = 400
)

// ChartPNG renders the close prices of s as a line chart. The x axis is
// the point index, labelled with the series' own labels.
func ChartPNG(s *models.ChartSeries, width, height int) ([]byte, error) {
	if s == nil || s.Len() < 2 {
		n := 0
		if s != nil {
			n = s.Len()
		}
		return nil, fmt.Errorf("%w, got %d", ErrTooFewPoints, n)
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	xs := make([]float64, 0, s.Len())
	ys := make([]float64, 0, s.Len())
	for i, p := range s.Points() {
		xs = append(xs, float64(i))
		ys = append(ys, p.Price)
	}

	color := "16a34a" // green-600
	if ys[len(ys)-1] < ys[0] {
		color = "dc2626" // red-600
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("%s (%s)", s.Symbol, s.Period),
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			Ticks: labelTicks(s.Labels, 8),
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return utils.FormatINR(f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: s.Symbol,
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex(color),
					StrokeWidth: 2,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}
	return buf.Bytes(), nil
}

// labelTicks picks about limit evenly spaced labels, always including the
// first and last.
func labelTicks(labels []string, limit int) []chart.Tick {
	n := len(labels)
	if n == 0 {
		return nil
	}
	if limit < 2 {
		limit = 2
	}
	step := 1
	if n > limit {
		step = int(math.Ceil(float64(n-1) / float64(limit-1)))
	}
	ticks := make([]chart.Tick, 0, limit)
	for i := 0; i < n; i += step {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: labels[i]})
	}
	if last := n - 1; ticks[len(ticks)-1].Value != float64(last) {
		ticks = append(ticks, chart.Tick{Value: float64(last), Label: labels[last]})
	}
	return ticks
}
