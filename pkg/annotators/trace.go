package annotators

import (
	"image"
	"image/color"
	"sync"

	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/types"
)

type tracePoint struct {
	x, y  float64
	frame int
}

// TraceHistory keeps recent anchor points per tracker id. It belongs to one
// video stream; annotating unrelated streams with the same history mixes
// their tracks.
type TraceHistory struct {
	mu       sync.Mutex
	length   int
	position types.Position
	frame    int
	points   map[int][]tracePoint
}

// NewTraceHistory keeps points seen within the last length frames.
func NewTraceHistory(length int, position types.Position) (*TraceHistory, error) {
	if length < 1 {
		return nil, errors.Errorf("trace length must be at least 1, got %d", length)
	}
	return &TraceHistory{
		length:   length,
		position: position,
		points:   map[int][]tracePoint{},
	}, nil
}

// Update records the anchors of all tracked detections as a new frame and
// evicts points that fell out of the window.
func (h *TraceHistory) Update(d *types.Detections) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame++
	if d != nil && d.TrackerID != nil {
		for i, id := range d.TrackerID {
			x, y := d.Anchor(i, h.position)
			h.points[id] = append(h.points[id], tracePoint{x: x, y: y, frame: h.frame})
		}
	}
	oldest := h.frame - h.length + 1
	for id, pts := range h.points {
		k := 0
		for k < len(pts) && pts[k].frame < oldest {
			k++
		}
		if k == len(pts) {
			delete(h.points, id)
		} else if k > 0 {
			h.points[id] = append([]tracePoint(nil), pts[k:]...)
		}
	}
}

// Points returns a copy of the points held for a tracker id.
func (h *TraceHistory) Points(id int) [][2]float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	pts := h.points[id]
	out := make([][2]float64, len(pts))
	for i, p := range pts {
		out[i] = [2]float64{p.x, p.y}
	}
	return out
}

// Tracks returns the number of tracker ids with history.
func (h *TraceHistory) Tracks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.points)
}

// Reset drops all history.
func (h *TraceHistory) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = 0
	h.points = map[int][]tracePoint{}
}

// TraceConfig holds configuration for motion traces
type TraceConfig struct {
	Colors      Colors
	Thickness   float64
	TraceLength int
	Position    types.Position
}

// Trace draws the recent path of every tracked detection. Detections
// without tracker ids are ignored.
type Trace struct {
	config  TraceConfig
	history *TraceHistory
}

// NewTrace creates a Trace annotator with default configuration
func NewTrace() *Trace {
	t, err := NewTraceWithConfig(TraceConfig{Position: types.Center})
	if err != nil {
		panic(err)
	}
	return t
}

// NewTraceWithConfig creates a Trace annotator with custom configuration.
// A zero TraceLength means 30 frames.
func NewTraceWithConfig(config TraceConfig) (*Trace, error) {
	if config.Thickness <= 0 {
		config.Thickness = 2
	}
	if config.TraceLength == 0 {
		config.TraceLength = 30
	}
	history, err := NewTraceHistory(config.TraceLength, config.Position)
	if err != nil {
		return nil, err
	}
	return &Trace{config: config, history: history}, nil
}

// History exposes the accumulated track history.
func (a *Trace) History() *TraceHistory {
	return a.history
}

func (a *Trace) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	if detections == nil || detections.TrackerID == nil {
		return scene, nil
	}
	colors := make([]color.RGBA, len(detections.TrackerID))
	for i := range detections.TrackerID {
		c, err := a.config.Colors.Resolve(detections, i)
		if err != nil {
			return nil, err
		}
		colors[i] = c
	}
	a.history.Update(detections)

	dc := newContext(scene)
	dc.SetLineWidth(a.config.Thickness)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()
	for i, id := range detections.TrackerID {
		pts := a.history.Points(id)
		if len(pts) < 2 {
			continue
		}
		dc.SetColor(colors[i])
		dc.MoveTo(pts[0][0], pts[0][1])
		for _, p := range pts[1:] {
			dc.LineTo(p[0], p[1])
		}
		dc.Stroke()
	}
	return scene, nil
}
