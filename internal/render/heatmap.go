package render

import (
	"fmt"
	"image"
	"math"

	"vizninja/internal/analysis"
)

// Heatmap draws a correlation matrix with the value printed in every cell.
func Heatmap(c *analysis.Correlation) image.Image {
	n := len(c.Columns)
	if n == 0 {
		return placeholder(480, 240, "Correlation Heatmap", "no numeric columns")
	}

	const (
		cell   = 56
		left   = 112
		top    = 36
		bottom = 24
		legend = 48
	)
	w := left + n*cell + legend
	h := top + n*cell + bottom
	img := canvas(w, h)
	labelCentered(img, w/2, 22, "Correlation Heatmap", colorText)

	for i, name := range c.Columns {
		y := top + i*cell
		label(img, 6, y+cell/2+4, truncate(name, (left-10)/glyphWidth), colorText)
		labelCentered(img, left+i*cell+cell/2, top+n*cell+16, truncate(name, cell/glyphWidth), colorText)

		for j := range c.Columns {
			v := c.Values[i][j]
			r := image.Rect(left+j*cell, y, left+(j+1)*cell, y+cell)
			fillRect(img, r, diverging(v))
			outline(img, r, colorBackground)

			text := "nan"
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			fg := colorText
			if math.Abs(v) > 0.6 {
				fg = colorBackground
			}
			labelCentered(img, r.Min.X+cell/2, r.Min.Y+cell/2+4, text, fg)
		}
	}

	// colour scale from +1 at the top to -1 at the bottom
	x := left + n*cell + 14
	span := n * cell
	for k := 0; k < span; k++ {
		v := 1 - 2*float64(k)/float64(max(span-1, 1))
		hline(img, x, x+12, top+k, diverging(v))
	}
	label(img, x-2, top-4, "1", colorMuted)
	label(img, x-4, top+span+14, "-1", colorMuted)
	return img
}
