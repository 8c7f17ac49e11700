package annotators

import (
	"image"
	"image/color"
	"strconv"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// LabelFormatter returns the text drawn for detection i.
type LabelFormatter func(d *types.Detections, i int) string

// DefaultLabel uses the class name when present, else the class id, else
// the detection index.
func DefaultLabel(d *types.Detections, i int) string {
	if d.ClassName != nil && d.ClassName[i] != "" {
		return d.ClassName[i]
	}
	if d.ClassID != nil {
		return strconv.Itoa(d.ClassID[i])
	}
	return strconv.Itoa(i)
}

// LabelWithConfidence appends the confidence to DefaultLabel.
func LabelWithConfidence(d *types.Detections, i int) string {
	s := DefaultLabel(d, i)
	if d.Confidence != nil {
		s += " " + strconv.FormatFloat(d.Confidence[i], 'f', 2, 64)
	}
	return s
}

// LabelConfig holds configuration for text labels
type LabelConfig struct {
	Colors      Colors
	TextColor   color.Color // nil picks black or white per background
	TextScale   float64     // font size in points
	TextPadding float64
	Position    types.Position
	Formatter   LabelFormatter
}

// Label draws a filled text box for every detection.
type Label struct {
	config LabelConfig
}

// NewLabel creates a Label annotator with default configuration
func NewLabel() *Label {
	return NewLabelWithConfig(LabelConfig{Position: types.TopLeft})
}

// NewLabelWithConfig creates a Label annotator with custom configuration
func NewLabelWithConfig(config LabelConfig) *Label {
	if config.TextScale <= 0 {
		config.TextScale = 13
	}
	if config.TextPadding < 0 {
		config.TextPadding = 0
	} else if config.TextPadding == 0 {
		config.TextPadding = 6
	}
	if config.Formatter == nil {
		config.Formatter = DefaultLabel
	}
	return &Label{config: config}
}

func (a *Label) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() {
		return scene, nil
	}
	dc := newContext(scene)
	dc.SetFontFace(newFace(a.config.TextScale))
	fw, fh := float64(dc.Width()), float64(dc.Height())
	pad := a.config.TextPadding

	for i := range detections.XYXY {
		bg, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		text := a.config.Formatter(detections, i)
		if text == "" {
			continue
		}
		tw, th := dc.MeasureString(text)
		w, h := tw+2*pad, th+2*pad

		x, y := a.backgroundOrigin(detections, i, w, h)
		// Keep the label on screen when the box touches an edge.
		x = clampf(x, 0, max(0, fw-w))
		y = clampf(y, 0, max(0, fh-h))

		dc.SetColor(bg)
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()

		fg := a.config.TextColor
		if fg == nil {
			fg = contrastColor(bg)
		}
		dc.SetColor(fg)
		dc.DrawStringAnchored(text, x+pad, y+pad, 0, 1)
	}
	return scene, nil
}

// backgroundOrigin returns the top-left corner of a w x h text box placed
// at the configured anchor. Top anchors sit above the region.
func (a *Label) backgroundOrigin(d *types.Detections, i int, w, h float64) (float64, float64) {
	ax, ay := d.Anchor(i, a.config.Position)
	switch a.config.Position {
	case types.TopLeft:
		return ax, ay - h
	case types.TopCenter:
		return ax - w/2, ay - h
	case types.TopRight:
		return ax - w, ay - h
	case types.BottomLeft:
		return ax, ay
	case types.BottomCenter:
		return ax - w/2, ay
	case types.BottomRight:
		return ax - w, ay
	case types.CenterLeft:
		return ax, ay - h/2
	case types.CenterRight:
		return ax - w, ay - h/2
	default:
		return ax - w/2, ay - h/2
	}
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
