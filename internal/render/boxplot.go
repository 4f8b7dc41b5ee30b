package render

import (
	"fmt"
	"image"
	"sort"

	"github.com/montanaflynn/stats"
)

// boxStats summarises one column. Whiskers extend to the furthest points
// within 1.5 IQR of the box; anything beyond is an outlier.
type boxStats struct {
	Q1, Median, Q3 float64
	Low, High      float64
	Outliers       []float64
}

func summarizeBox(values []float64) (boxStats, error) {
	q, err := stats.Quartile(values)
	if err != nil {
		return boxStats{}, err
	}
	iqr := q.Q3 - q.Q1
	lo, hi := q.Q1-1.5*iqr, q.Q3+1.5*iqr

	b := boxStats{Q1: q.Q1, Median: q.Q2, Q3: q.Q3, Low: q.Q1, High: q.Q3}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	for _, v := range sorted {
		if v < lo || v > hi {
			b.Outliers = append(b.Outliers, v)
			continue
		}
		b.Low = min(b.Low, v)
		b.High = max(b.High, v)
	}
	return b, nil
}

// Boxplot draws one box per column, each on its own scale.
func Boxplot(title string, values []float64, w, h int) image.Image {
	if len(values) < 2 {
		return placeholder(w, h, title, "not enough values")
	}
	b, err := summarizeBox(values)
	if err != nil {
		return placeholder(w, h, title, err.Error())
	}

	img := canvas(w, h)
	outline(img, img.Bounds(), colorMissing)
	labelCentered(img, w/2, 16, truncate(title, w/glyphWidth-2), colorText)

	top, bottom := 28, h-18
	lo, hi := b.Low, b.High
	for _, o := range b.Outliers {
		lo = min(lo, o)
		hi = max(hi, o)
	}
	if hi == lo {
		hi, lo = hi+1, lo-1
	}
	y := func(v float64) int {
		return bottom - int((v-lo)/(hi-lo)*float64(bottom-top))
	}

	cx := w / 2
	half := w / 6
	vline(img, cx, y(b.High), y(b.Q3), colorText)
	vline(img, cx, y(b.Q1), y(b.Low), colorText)
	hline(img, cx-half/2, cx+half/2, y(b.High), colorText)
	hline(img, cx-half/2, cx+half/2, y(b.Low), colorText)

	box := image.Rect(cx-half, y(b.Q3), cx+half+1, y(b.Q1)+1)
	fillRect(img, box, colorAccentFill)
	outline(img, box, colorAccent)
	hline(img, cx-half, cx+half, y(b.Median), colorText)

	for _, o := range b.Outliers {
		oy := y(o)
		fillRect(img, image.Rect(cx-2, oy-2, cx+3, oy+3), colorAccent)
	}

	label(img, 4, top+10, compact(hi), colorMuted)
	label(img, 4, bottom, compact(lo), colorMuted)
	return img
}

func compact(v float64) string {
	switch {
	case v >= 1e6 || v <= -1e6:
		return fmt.Sprintf("%.2gM", v/1e6)
	case v >= 1e4 || v <= -1e4:
		return fmt.Sprintf("%.0fk", v/1e3)
	case v >= 100 || v <= -100:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
