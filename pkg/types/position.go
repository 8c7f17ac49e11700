package types

import (
	"fmt"
	"strings"
)

// Position names an anchor point of a region.
type Position int

const (
	Center Position = iota
	CenterLeft
	CenterRight
	TopCenter
	TopLeft
	TopRight
	BottomLeft
	BottomCenter
	BottomRight
)

var positionNames = map[Position]string{
	Center:       "center",
	CenterLeft:   "center_left",
	CenterRight:  "center_right",
	TopCenter:    "top_center",
	TopLeft:      "top_left",
	TopRight:     "top_right",
	BottomLeft:   "bottom_left",
	BottomCenter: "bottom_center",
	BottomRight:  "bottom_right",
}

func (p Position) String() string {
	if s, ok := positionNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Position(%d)", int(p))
}

// ParsePosition parses names such as "top_left" or "BOTTOM_CENTER".
func ParsePosition(s string) (Position, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for p, name := range positionNames {
		if name == key {
			return p, nil
		}
	}
	return Center, fmt.Errorf("unknown position %q", s)
}

// Anchor returns the pixel coordinates of position p on region i.
func (d *Detections) Anchor(i int, p Position) (float64, float64) {
	r := d.XYXY[i]
	x0, y0, x1, y1 := r[0], r[1], r[2], r[3]
	cx, cy := (x0+x1)/2, (y0+y1)/2
	switch p {
	case CenterLeft:
		return x0, cy
	case CenterRight:
		return x1, cy
	case TopCenter:
		return cx, y0
	case TopLeft:
		return x0, y0
	case TopRight:
		return x1, y0
	case BottomLeft:
		return x0, y1
	case BottomCenter:
		return cx, y1
	case BottomRight:
		return x1, y1
	default:
		return cx, cy
	}
}
