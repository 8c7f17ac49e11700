package annotators

import (
	"image"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// BoxConfig holds configuration for box strokes
type BoxConfig struct {
	Colors    Colors
	Thickness float64
}

// Box draws the outline of every region.
type Box struct {
	config BoxConfig
}

// NewBox creates a Box annotator with default configuration
func NewBox() *Box {
	return NewBoxWithConfig(BoxConfig{Thickness: 2})
}

// NewBoxWithConfig creates a Box annotator with custom configuration
func NewBoxWithConfig(config BoxConfig) *Box {
	if config.Thickness <= 0 {
		config.Thickness = 2
	}
	return &Box{config: config}
}

func (a *Box) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	dc := newContext(scene)
	for i, r := range detections.XYXY {
		c, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		strokeRect(dc, r, c, a.config.Thickness)
	}
	return scene, nil
}

// BoxCornerConfig holds configuration for corner markers
type BoxCornerConfig struct {
	Colors       Colors
	Thickness    float64
	CornerLength float64
}

// BoxCorner draws L-shaped marks at the four corners of every region.
type BoxCorner struct {
	config BoxCornerConfig
}

// NewBoxCorner creates a BoxCorner annotator with default configuration
func NewBoxCorner() *BoxCorner {
	return NewBoxCornerWithConfig(BoxCornerConfig{})
}

// NewBoxCornerWithConfig creates a BoxCorner annotator with custom configuration
func NewBoxCornerWithConfig(config BoxCornerConfig) *BoxCorner {
	if config.Thickness <= 0 {
		config.Thickness = 4
	}
	if config.CornerLength <= 0 {
		config.CornerLength = 15
	}
	return &BoxCorner{config: config}
}

func (a *BoxCorner) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	dc := newContext(scene)
	dc.SetLineWidth(a.config.Thickness)
	for i, r := range detections.XYXY {
		c, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		// Corners never overlap on small boxes.
		lx := min(a.config.CornerLength, (r[2]-r[0])/2)
		ly := min(a.config.CornerLength, (r[3]-r[1])/2)

		dc.SetColor(c)
		corners := [4][4]float64{
			{r[0], r[1], 1, 1},
			{r[2], r[1], -1, 1},
			{r[0], r[3], 1, -1},
			{r[2], r[3], -1, -1},
		}
		for _, k := range corners {
			x, y, sx, sy := k[0], k[1], k[2], k[3]
			dc.MoveTo(x+sx*lx, y)
			dc.LineTo(x, y)
			dc.LineTo(x, y+sy*ly)
			dc.Stroke()
		}
	}
	return scene, nil
}

// ColorFillConfig holds configuration for translucent box fills
type ColorFillConfig struct {
	Colors  Colors
	Opacity float64 // 0 means 0.5
}

// ColorFill paints every region with a translucent color.
type ColorFill struct {
	config ColorFillConfig
}

// NewColorFill creates a ColorFill annotator with default configuration
func NewColorFill() *ColorFill {
	return NewColorFillWithConfig(ColorFillConfig{Opacity: 0.5})
}

// NewColorFillWithConfig creates a ColorFill annotator with custom configuration
func NewColorFillWithConfig(config ColorFillConfig) *ColorFill {
	if config.Opacity == 0 {
		config.Opacity = 0.5
	}
	return &ColorFill{config: config}
}

func (a *ColorFill) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	for i, r := range detections.XYXY {
		c, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		blend(scene, clipRegion(r, scene.Bounds()), c, a.config.Opacity, nil)
	}
	return scene, nil
}
