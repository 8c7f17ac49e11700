package annotators

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// DotConfig holds configuration for anchor dots
type DotConfig struct {
	Colors   Colors
	Radius   float64
	Position types.Position
}

// Dot draws a filled circle at an anchor of every region.
type Dot struct {
	config DotConfig
}

// NewDot creates a Dot annotator with default configuration
func NewDot() *Dot {
	return NewDotWithConfig(DotConfig{Position: types.Center})
}

// NewDotWithConfig creates a Dot annotator with custom configuration
func NewDotWithConfig(config DotConfig) *Dot {
	if config.Radius <= 0 {
		config.Radius = 4
	}
	return &Dot{config: config}
}

func (a *Dot) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	dc := newContext(scene)
	for i := range detections.XYXY {
		c, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		x, y := detections.Anchor(i, a.config.Position)
		dc.SetColor(c)
		dc.DrawCircle(x, y, a.config.Radius)
		dc.Fill()
	}
	return scene, nil
}

// Blur applies a gaussian blur inside every region.
type Blur struct {
	Sigma float64
}

// NewBlur creates a Blur annotator; sigma <= 0 means 15.
func NewBlur(sigma float64) *Blur {
	if sigma <= 0 {
		sigma = 15
	}
	return &Blur{Sigma: sigma}
}

func (a *Blur) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	for _, r := range detections.XYXY {
		rect := clipRegion(r, scene.Bounds())
		if rect.Empty() {
			continue
		}
		blurred := imaging.Blur(scene.SubImage(rect), a.Sigma)
		draw.Draw(scene, rect, blurred, blurred.Bounds().Min, draw.Src)
	}
	return scene, nil
}

// Pixelate replaces every region with coarse blocks of PixelSize pixels.
type Pixelate struct {
	PixelSize int
}

// NewPixelate creates a Pixelate annotator; size <= 0 means 20.
func NewPixelate(size int) *Pixelate {
	if size <= 0 {
		size = 20
	}
	return &Pixelate{PixelSize: size}
}

func (a *Pixelate) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	for _, r := range detections.XYXY {
		rect := clipRegion(r, scene.Bounds())
		if rect.Empty() {
			continue
		}
		w, h := rect.Dx(), rect.Dy()
		small := imaging.Resize(scene.SubImage(rect), max(1, w/a.PixelSize), max(1, h/a.PixelSize), imaging.Box)
		blocks := imaging.Resize(small, w, h, imaging.NearestNeighbor)
		draw.Draw(scene, rect, blocks, blocks.Bounds().Min, draw.Src)
	}
	return scene, nil
}
