package config

import (
	"image"

	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/annotators"
	"github.com/menta2k/frame-annotator/pkg/types"
)

// BuildPipeline assembles the configured annotators, in order, into a
// composite. Each call returns fresh annotators, so trace history is not
// shared between pipelines.
func (c *Config) BuildPipeline() (*annotators.Composite, error) {
	colors, err := c.colors()
	if err != nil {
		return nil, err
	}

	pipeline := annotators.NewComposite()
	for _, name := range c.Annotators {
		a, err := c.buildAnnotator(name, colors)
		if err != nil {
			return nil, errors.Wrapf(err, "annotator %q", name)
		}
		pipeline.Append(a)
	}
	return pipeline, nil
}

func (c *Config) colors() (annotators.Colors, error) {
	var colors annotators.Colors
	if len(c.Palette) > 0 {
		palette, err := annotators.ParsePalette(c.Palette)
		if err != nil {
			return colors, err
		}
		colors.Palette = palette
	}
	lookup, err := annotators.ParseColorLookup(c.ColorLookup)
	if err != nil {
		return colors, err
	}
	colors.Lookup = lookup
	return colors, nil
}

func (c *Config) buildAnnotator(name string, colors annotators.Colors) (annotators.Annotator, error) {
	switch name {
	case "box":
		return annotators.NewBoxWithConfig(annotators.BoxConfig{
			Colors:    colors,
			Thickness: c.Box.Thickness,
		}), nil

	case "corner":
		return annotators.NewBoxCornerWithConfig(annotators.BoxCornerConfig{
			Colors:       colors,
			Thickness:    c.Corner.Thickness,
			CornerLength: c.Corner.CornerLength,
		}), nil

	case "fill":
		return annotators.NewColorFillWithConfig(annotators.ColorFillConfig{
			Colors:  colors,
			Opacity: c.Fill.Opacity,
		}), nil

	case "mask":
		mask := annotators.NewMaskWithConfig(annotators.MaskConfig{
			Colors:  colors,
			Opacity: c.Mask.Opacity,
		})
		if c.Mask.FromBoxes {
			return boxMasks(mask), nil
		}
		return mask, nil

	case "label":
		pos, err := parsePosition(c.Label.Position, types.TopLeft)
		if err != nil {
			return nil, err
		}
		cfg := annotators.LabelConfig{
			Colors:      colors,
			TextScale:   c.Label.TextScale,
			TextPadding: c.Label.TextPadding,
			Position:    pos,
		}
		if c.Label.TextColor != "" {
			text, err := annotators.ParsePalette([]string{c.Label.TextColor})
			if err != nil {
				return nil, err
			}
			cfg.TextColor = text[0]
		}
		if c.Label.ShowConfidence {
			cfg.Formatter = annotators.LabelWithConfidence
		}
		return annotators.NewLabelWithConfig(cfg), nil

	case "dot":
		pos, err := parsePosition(c.Dot.Position, types.Center)
		if err != nil {
			return nil, err
		}
		return annotators.NewDotWithConfig(annotators.DotConfig{
			Colors:   colors,
			Radius:   c.Dot.Radius,
			Position: pos,
		}), nil

	case "trace":
		pos, err := parsePosition(c.Trace.Position, types.Center)
		if err != nil {
			return nil, err
		}
		return annotators.NewTraceWithConfig(annotators.TraceConfig{
			Colors:      colors,
			Thickness:   c.Trace.Thickness,
			TraceLength: c.Trace.TraceLength,
			Position:    pos,
		})

	case "blur":
		return annotators.NewBlur(c.Blur.Sigma), nil

	case "pixelate":
		return annotators.NewPixelate(c.Pixelate.PixelSize), nil
	}
	return nil, errors.Errorf("unknown annotator %q", name)
}

func parsePosition(s string, fallback types.Position) (types.Position, error) {
	if s == "" {
		return fallback, nil
	}
	return types.ParsePosition(s)
}

// boxMasks wraps a mask annotator so detections without masks get a
// rectangular mask covering their box. The caller's detections are not
// modified.
func boxMasks(mask annotators.Annotator) annotators.Annotator {
	return annotators.AnnotatorFunc(func(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
		if err := annotators.Validate(scene, detections); err != nil {
			return nil, err
		}
		if detections.IsEmpty() {
			return scene, nil
		}
		filled := *detections
		filled.Mask = make([]*image.Alpha, detections.Len())
		for i := range filled.Mask {
			if detections.Mask != nil && detections.Mask[i] != nil {
				filled.Mask[i] = detections.Mask[i]
				continue
			}
			filled.Mask[i] = annotators.RegionMask(detections, i, scene.Bounds())
		}
		return mask.Annotate(scene, &filled)
	})
}
