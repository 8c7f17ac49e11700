package annotators

import (
	"image"
	"sort"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// MaskConfig holds configuration for mask overlays
type MaskConfig struct {
	Colors  Colors
	Opacity float64 // 0 means 0.5
}

// Mask blends every detection mask with its color. Detections without
// masks leave the frame untouched.
type Mask struct {
	config MaskConfig
}

// NewMask creates a Mask annotator with default configuration
func NewMask() *Mask {
	return NewMaskWithConfig(MaskConfig{Opacity: 0.5})
}

// NewMaskWithConfig creates a Mask annotator with custom configuration
func NewMaskWithConfig(config MaskConfig) *Mask {
	if config.Opacity == 0 {
		config.Opacity = 0.5
	}
	return &Mask{config: config}
}

func (a *Mask) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections.IsEmpty() || detections.Mask == nil {
		return scene, nil
	}

	// Largest first so small objects stay visible on top.
	order := make([]int, detections.Len())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(x, y int) bool {
		return detections.Area(order[x]) > detections.Area(order[y])
	})

	for _, i := range order {
		m := detections.Mask[i]
		if m == nil {
			continue
		}
		c, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		blend(scene, m.Bounds(), c, a.config.Opacity, m)
	}
	return scene, nil
}

// RegionMask builds a rectangular mask covering region i, clipped to bounds.
// It is useful for detectors that do not produce segmentation.
func RegionMask(d *types.Detections, i int, bounds image.Rectangle) *image.Alpha {
	m := image.NewAlpha(bounds)
	r := clipRegion(d.XYXY[i], bounds)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[m.PixOffset(r.Min.X, y):m.PixOffset(r.Max.X, y)]
		for x := range row {
			row[x] = 0xff
		}
	}
	return m
}
