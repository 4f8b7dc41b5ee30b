package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"math"

	"vizninja/domain/dataset"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var (
	seriesColor = drawing.Color{R: 66, G: 99, B: 235, A: 255}
	lineColor   = drawing.Color{R: 224, G: 49, B: 49, A: 255}
)

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// rasterize renders a go-chart chart to an image, falling back to a
// placeholder when the data cannot be drawn (e.g. a zero value range).
func rasterize(c renderable, w, h int, title string) image.Image {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		log.Printf("[render] %s chart render error: %v; using placeholder", title, err)
		return placeholder(w, h, title, "cannot be drawn")
	}
	img, err := png.Decode(&buf)
	if err != nil {
		log.Printf("[render] %s chart decode error: %v; using placeholder", title, err)
		return placeholder(w, h, title, "cannot be drawn")
	}
	return img
}

// Histogram bins values into equal-width buckets and draws their counts.
func Histogram(title string, values []float64, bins, w, h int) image.Image {
	if len(values) == 0 {
		return placeholder(w, h, title, "no values")
	}
	counts, lo, width := binCounts(values, bins)

	bars := make([]chart.Value, len(counts))
	for i, c := range counts {
		bars[i] = chart.Value{Value: float64(c)}
	}
	bars[0].Label = compact(lo)
	bars[len(bars)-1].Label = compact(lo + width*float64(len(counts)))

	barWidth := max((w-80)/len(bars)-1, 1)
	return rasterize(chart.BarChart{
		Title:      truncate(title, w/8),
		Width:      w,
		Height:     h,
		BarWidth:   barWidth,
		BarSpacing: 1,
		Background: chart.Style{Padding: chart.Box{Top: 36, Left: 8, Right: 8, Bottom: 8}},
		Bars:       bars,
	}, w, h, title)
}

func binCounts(values []float64, bins int) ([]int, float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return []int{len(values)}, lo - 0.5, 1
	}
	width := (hi - lo) / float64(bins)
	counts := make([]int, bins)
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= bins {
			i = bins - 1
		}
		counts[i]++
	}
	return counts, lo, width
}

// Scatter plots y against x as points. With diagonal set the y = x line is added.
func Scatter(title, xName, yName string, x, y []float64, w, h int, diagonal bool) image.Image {
	if len(x) < 2 {
		return placeholder(w, h, title, "not enough points")
	}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    title,
			XValues: x,
			YValues: y,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColor:    seriesColor,
			},
		},
	}
	if diagonal {
		lo, hi := math.Inf(1), math.Inf(-1)
		for i := range x {
			lo = math.Min(lo, math.Min(x[i], y[i]))
			hi = math.Max(hi, math.Max(x[i], y[i]))
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "ideal",
			XValues: []float64{lo, hi},
			YValues: []float64{lo, hi},
			Style:   chart.Style{StrokeWidth: 2, StrokeColor: lineColor},
		})
	}
	return rasterize(chart.Chart{
		Title:      truncate(title, w/8),
		Width:      w,
		Height:     h,
		Background: chart.Style{Padding: chart.Box{Top: 36, Left: 12, Right: 12, Bottom: 8}},
		XAxis:      chart.XAxis{Name: xName},
		YAxis:      chart.YAxis{Name: yName},
		Series:     series,
	}, w, h, title)
}

// Importance draws the ranked feature weights as a bar chart.
func Importance(data []dataset.FeatureImportance, w, h int) image.Image {
	const title = "Feature Importance"
	if len(data) == 0 {
		return placeholder(w, h, title, "no features")
	}
	bars := make([]chart.Value, len(data))
	for i, fi := range data {
		bars[i] = chart.Value{Value: fi.Importance, Label: truncate(fi.Feature, 12)}
	}
	return rasterize(chart.BarChart{
		Title:      title,
		Width:      w,
		Height:     h,
		BarWidth:   max(min((w-100)/len(bars)-8, 80), 4),
		BarSpacing: 8,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 8, Right: 8, Bottom: 8}},
		Bars:       bars,
	}, w, h, title)
}

func axisTitle(x, y string) string {
	return fmt.Sprintf("%s vs %s", truncate(y, 10), truncate(x, 10))
}
