package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	colorBackground = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	colorText       = color.RGBA{R: 33, G: 37, B: 41, A: 255}
	colorMuted      = color.RGBA{R: 134, G: 142, B: 150, A: 255}
	colorAccent     = color.RGBA{R: 66, G: 99, B: 235, A: 255}
	colorAccentFill = color.RGBA{R: 165, G: 184, B: 255, A: 255}
	colorMissing    = color.RGBA{R: 222, G: 226, B: 230, A: 255}
)

const (
	glyphWidth  = 7
	glyphHeight = 13
)

func canvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)
	return img
}

// label draws text with its baseline at (x, y).
func label(img *image.RGBA, x, y int, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// labelCentered draws text horizontally centred on cx.
func labelCentered(img *image.RGBA, cx, y int, text string, c color.Color) {
	label(img, cx-len(text)*glyphWidth/2, y, text, c)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "~"
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func hline(img *image.RGBA, x0, x1, y int, c color.Color) {
	fillRect(img, image.Rect(min(x0, x1), y, max(x0, x1)+1, y+1), c)
}

func vline(img *image.RGBA, x, y0, y1 int, c color.Color) {
	fillRect(img, image.Rect(x, min(y0, y1), x+1, max(y0, y1)+1), c)
}

func outline(img *image.RGBA, r image.Rectangle, c color.Color) {
	hline(img, r.Min.X, r.Max.X-1, r.Min.Y, c)
	hline(img, r.Min.X, r.Max.X-1, r.Max.Y-1, c)
	vline(img, r.Min.X, r.Min.Y, r.Max.Y-1, c)
	vline(img, r.Max.X-1, r.Min.Y, r.Max.Y-1, c)
}

// placeholder is drawn in place of a chart that cannot be rendered.
func placeholder(w, h int, title, message string) image.Image {
	img := canvas(w, h)
	outline(img, img.Bounds(), colorMissing)
	labelCentered(img, w/2, 18, truncate(title, w/glyphWidth-2), colorText)
	labelCentered(img, w/2, h/2, truncate(message, w/glyphWidth-2), colorMuted)
	return img
}

// grid lays tiles out left to right, top to bottom under a title bar.
func grid(title string, tiles []image.Image, cols int) *image.RGBA {
	if cols < 1 {
		cols = 1
	}
	tw, th := 0, 0
	for _, t := range tiles {
		b := t.Bounds()
		tw = max(tw, b.Dx())
		th = max(th, b.Dy())
	}
	rows := (len(tiles) + cols - 1) / cols
	const header = 28
	img := canvas(max(cols*tw, 200), header+rows*th)
	labelCentered(img, img.Bounds().Dx()/2, 19, title, colorText)
	for i, t := range tiles {
		x := (i % cols) * tw
		y := header + (i/cols)*th
		b := t.Bounds()
		draw.Draw(img, image.Rect(x, y, x+b.Dx(), y+b.Dy()), t, b.Min, draw.Over)
	}
	return img
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// diverging maps v in [-1, 1] onto a blue-white-red scale.
func diverging(v float64) color.RGBA {
	if math.IsNaN(v) {
		return colorMissing
	}
	v = math.Max(-1, math.Min(1, v))
	lerp := func(a, b uint8, t float64) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	if v < 0 {
		t := -v
		return color.RGBA{R: lerp(247, 59, t), G: lerp(247, 76, t), B: lerp(247, 192, t), A: 255}
	}
	return color.RGBA{R: lerp(247, 180, v), G: lerp(247, 4, v), B: lerp(247, 38, v), A: 255}
}

// Placeholder renders a labelled blank chart as PNG bytes.
func Placeholder(w, h int, title, message string) ([]byte, error) {
	return encodePNG(placeholder(w, h, title, message))
}
