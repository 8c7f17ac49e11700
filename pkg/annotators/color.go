package annotators

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/types"
)

var (
	// ErrMissingClassID is returned by ColorByClass lookups on detections
	// without class ids.
	ErrMissingClassID = errors.New("annotators: class_id required for class color lookup")
	// ErrMissingTrackerID is returned by ColorByTrack lookups on detections
	// without tracker ids.
	ErrMissingTrackerID = errors.New("annotators: tracker_id required for track color lookup")
)

// DefaultPaletteHex is the palette used when none is configured.
var DefaultPaletteHex = []string{
	"#a351fb", "#e6194b", "#3cb44b", "#ffe119", "#0082c8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#d2f53c", "#fabebe", "#008080",
	"#e6beff", "#aa6e28", "#fffac8", "#800000", "#aaffc3",
}

// Palette is an ordered list of colors, indexed modulo its length.
type Palette []color.RGBA

// DefaultPalette returns a fresh copy of the default palette.
func DefaultPalette() Palette {
	p, err := ParsePalette(DefaultPaletteHex)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePalette parses "#rrggbb" strings.
func ParsePalette(hex []string) (Palette, error) {
	if len(hex) == 0 {
		return nil, errors.New("palette is empty")
	}
	p := make(Palette, 0, len(hex))
	for _, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, errors.Wrapf(err, "palette color %q", h)
		}
		r, g, b := c.RGB255()
		p = append(p, color.RGBA{R: r, G: g, B: b, A: 255})
	}
	return p, nil
}

// At returns the color for index i; negative indices wrap as well.
func (p Palette) At(i int) color.RGBA {
	n := len(p)
	return p[((i%n)+n)%n]
}

// ColorLookup selects which index picks a palette color.
type ColorLookup int

const (
	ColorByClass ColorLookup = iota
	ColorByIndex
	ColorByTrack
)

func (l ColorLookup) String() string {
	switch l {
	case ColorByIndex:
		return "index"
	case ColorByTrack:
		return "track"
	default:
		return "class"
	}
}

// ParseColorLookup parses "class", "index" or "track".
func ParseColorLookup(s string) (ColorLookup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "class":
		return ColorByClass, nil
	case "index":
		return ColorByIndex, nil
	case "track":
		return ColorByTrack, nil
	}
	return ColorByClass, fmt.Errorf("unknown color lookup %q", s)
}

// Colors holds the palette and lookup shared by most annotators.
type Colors struct {
	Palette Palette
	Lookup  ColorLookup
}

func (c Colors) palette() Palette {
	if len(c.Palette) == 0 {
		return defaultPalette
	}
	return c.Palette
}

// Resolve returns the color for detection i.
func (c Colors) Resolve(d *types.Detections, i int) (color.RGBA, error) {
	switch c.Lookup {
	case ColorByIndex:
		return c.palette().At(i), nil
	case ColorByTrack:
		if d.TrackerID == nil {
			return color.RGBA{}, ErrMissingTrackerID
		}
		return c.palette().At(d.TrackerID[i]), nil
	default:
		if d.ClassID == nil {
			return color.RGBA{}, ErrMissingClassID
		}
		return c.palette().At(d.ClassID[i]), nil
	}
}

// contrastColor picks black or white text for a background.
func contrastColor(bg color.Color) color.Color {
	c, _ := colorful.MakeColor(bg)
	l, _, _ := c.Lab()
	if l > 0.6 {
		return color.Black
	}
	return color.White
}

var defaultPalette = DefaultPalette()
