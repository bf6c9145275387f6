package charts

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Format is an output encoding for a rendered chart.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// ParseFormat validates an image format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, FormatSVG:
		return Format(s), nil
	}
	return "", fmt.Errorf("unsupported chart format: %q", s)
}

// ContentType returns the HTTP media type for the format.
func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

// Canvas size used when a handle is created without an explicit size.
const (
	DefaultWidth  = 1024
	DefaultHeight = 400
)

var (
	canvasColor = drawing.ColorFromHex("1e293b")
	axisColor   = drawing.ColorFromHex("94a3b8")
	gridColor   = drawing.Color{R: 255, G: 255, B: 255, A: 26}

	seriesColors = map[Kind]drawing.Color{
		KindHistogram:  {R: 6, G: 182, B: 212, A: 255},
		KindCDF:        {R: 139, G: 92, B: 246, A: 255},
		KindLine:       {R: 16, G: 185, B: 129, A: 255},
		KindCumulative: {R: 245, G: 158, B: 11, A: 255},
	}

	// fill opacity under each series, out of 255
	fillAlpha = map[Kind]uint8{
		KindHistogram:  179,
		KindCDF:        51,
		KindLine:       26,
		KindCumulative: 26,
	}
)

// Render draws a view onto a fresh surface of the given size and format.
func Render(v View, format Format, width, height int) ([]byte, error) {
	if v.Len() == 0 {
		return nil, ErrEmptyView
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	var buf bytes.Buffer
	var err error
	if v.Kind == KindHistogram {
		err = histogramChart(v, width, height).Render(format.provider(), &buf)
	} else {
		err = lineChart(v, width, height).Render(format.provider(), &buf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to render %s chart: %w", v.Kind, err)
	}
	return buf.Bytes(), nil
}

func backgroundStyle() chart.Style {
	return chart.Style{
		FillColor: canvasColor,
		Padding:   chart.Box{Top: 40, Left: 16, Right: 24, Bottom: 16},
	}
}

func axisStyle() chart.Style {
	return chart.Style{
		FontColor:   axisColor,
		StrokeColor: axisColor,
		FontSize:    9,
	}
}

func histogramChart(v View, width, height int) chart.BarChart {
	col := seriesColors[v.Kind]
	bars := make([]chart.Value, len(v.Y))
	maxCount := 1.0
	for i, count := range v.Y {
		bars[i] = chart.Value{
			Label: v.Labels[i],
			Value: count,
			Style: chart.Style{
				FillColor:   col.WithAlpha(fillAlpha[v.Kind]),
				StrokeColor: col,
				StrokeWidth: 1,
			},
		}
		maxCount = math.Max(maxCount, count)
	}

	xStyle := axisStyle()
	xStyle.TextRotationDegrees = 45

	barWidth := int(float64(width) / float64(len(bars)) * 0.7)
	if barWidth < 1 {
		barWidth = 1
	}

	return chart.BarChart{
		Title:      v.Title,
		TitleStyle: chart.Style{FontColor: axisColor},
		Width:      width,
		Height:     height,
		Background: backgroundStyle(),
		Canvas:     chart.Style{FillColor: canvasColor},
		BarWidth:   barWidth,
		XAxis:      xStyle,
		YAxis: chart.YAxis{
			Name:           v.YTitle,
			Style:          axisStyle(),
			Range:          &chart.ContinuousRange{Min: 0, Max: maxCount},
			ValueFormatter: countTicks,
		},
		Bars: bars,
	}
}

func lineChart(v View, width, height int) chart.Chart {
	col := seriesColors[v.Kind]
	xs, ys := v.X, v.Y
	if len(xs) == 1 {
		// A single point has no extent; stretch it into a flat segment.
		xs = []float64{xs[0], xs[0] + 1}
		ys = []float64{ys[0], ys[0]}
	}

	xAxis := chart.XAxis{
		Name:           v.XTitle,
		NameStyle:      chart.Style{FontColor: axisColor},
		Style:          axisStyle(),
		GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		Range:          paddedRange(xs),
		ValueFormatter: indexTicks,
	}
	yAxis := chart.YAxis{
		Name:           v.YTitle,
		NameStyle:      chart.Style{FontColor: axisColor},
		Style:          axisStyle(),
		GridMajorStyle: chart.Style{StrokeColor: gridColor, StrokeWidth: 1},
		Range:          paddedRange(ys),
		ValueFormatter: currencyTicks,
	}

	switch v.Kind {
	case KindCDF:
		xAxis.ValueFormatter = currencyTicks
		yAxis.ValueFormatter = percentTicks
	}

	return chart.Chart{
		Title:      v.Title,
		TitleStyle: chart.Style{FontColor: axisColor},
		Width:      width,
		Height:     height,
		Background: backgroundStyle(),
		Canvas:     chart.Style{FillColor: canvasColor},
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: v.Title,
				Style: chart.Style{
					StrokeColor: col,
					StrokeWidth: 2,
					FillColor:   col.WithAlpha(fillAlpha[v.Kind]),
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}
}

// paddedRange returns an explicit axis range only when the data has no
// spread; go-chart refuses to draw a zero-width range.
func paddedRange(values []float64) chart.Range {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil
	}
	pad := math.Max(math.Abs(lo)*0.05, 1)
	return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
}

func currencyTicks(v interface{}) string {
	if f, ok := v.(float64); ok {
		return FormatCurrency(f)
	}
	return ""
}

func percentTicks(v interface{}) string {
	if f, ok := v.(float64); ok {
		return toFixed(f, 0) + "%"
	}
	return ""
}

func indexTicks(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(math.Round(f)))
	}
	return ""
}

func countTicks(v interface{}) string {
	if f, ok := v.(float64); ok {
		return strconv.Itoa(int(math.Round(f)))
	}
	return ""
}
