package annotators

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var labelFont *truetype.Font

func init() {
	var err error
	labelFont, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// newFace returns a fresh face; truetype faces cache glyphs and must not be
// shared between goroutines.
func newFace(size float64) font.Face {
	return truetype.NewFace(labelFont, &truetype.Options{Size: size})
}

// newContext wraps scene so gg draws straight into its pixels.
func newContext(scene *image.RGBA) *gg.Context {
	return gg.NewContextForRGBA(scene)
}

func strokeRect(dc *gg.Context, r [4]float64, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawRectangle(r[0], r[1], r[2]-r[0], r[3]-r[1])
	dc.Stroke()
}

// blend paints c over scene inside r at the given opacity, limited by mask
// when it is not nil.
func blend(scene *image.RGBA, r image.Rectangle, c color.RGBA, opacity float64, mask image.Image) {
	r = r.Intersect(scene.Bounds())
	if r.Empty() || opacity <= 0 {
		return
	}
	if opacity > 1 {
		opacity = 1
	}
	src := image.NewUniform(color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(opacity*255 + 0.5)})
	if mask == nil {
		draw.Draw(scene, r, src, image.Point{}, draw.Over)
		return
	}
	draw.DrawMask(scene, r, src, image.Point{}, mask, r.Min, draw.Over)
}

// clipRegion converts an xyxy region into a pixel rectangle inside bounds.
// Coordinates are clamped before conversion so huge values cannot overflow.
func clipRegion(r [4]float64, bounds image.Rectangle) image.Rectangle {
	minX, maxX := float64(bounds.Min.X), float64(bounds.Max.X)
	minY, maxY := float64(bounds.Min.Y), float64(bounds.Max.Y)
	rect := image.Rect(
		int(clampf(r[0], minX, maxX)),
		int(clampf(r[1], minY, maxY)),
		int(clampf(r[2]+0.5, minX, maxX)),
		int(clampf(r[3]+0.5, minY, maxY)),
	)
	return rect.Intersect(bounds)
}
