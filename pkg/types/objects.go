package types

import "strings"

// Box represents a normalized bounding box with coordinates in [0,1] range
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Object is a single object reported by a vision model
type Object struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// ObjectList is the JSON document vision models are asked to return
type ObjectList struct {
	Objects     []Object `json:"objects"`
	Description string   `json:"description"`
}

// ClassTable assigns stable integer class ids to labels.
// Unknown labels get the next free id when the table is not frozen.
type ClassTable struct {
	ids    map[string]int
	names  []string
	Frozen bool
}

// NewClassTable creates a table preloaded with names; name i gets id i.
func NewClassTable(names ...string) *ClassTable {
	t := &ClassTable{ids: map[string]int{}}
	for _, n := range names {
		t.Lookup(n)
	}
	return t
}

// Lookup returns the id for label, registering it if needed. The second
// return value is false when the table is frozen and the label is unknown.
func (t *ClassTable) Lookup(label string) (int, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if id, ok := t.ids[key]; ok {
		return id, true
	}
	if t.Frozen {
		return -1, false
	}
	id := len(t.names)
	t.ids[key] = id
	t.names = append(t.names, key)
	return id, true
}

// Name returns the label registered for id.
func (t *ClassTable) Name(id int) string {
	if id < 0 || id >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// FromObjects converts normalized model objects into pixel-space detections
// for a frame of the given size. Objects with labels unknown to a frozen
// table are dropped.
func FromObjects(objects []Object, width, height int, classes *ClassTable) *Detections {
	d := &Detections{
		XYXY:       [][4]float64{},
		Confidence: []float64{},
		ClassID:    []int{},
		ClassName:  []string{},
	}
	fw, fh := float64(width), float64(height)
	for _, o := range objects {
		id, ok := classes.Lookup(o.Label)
		if !ok {
			continue
		}
		b := o.Box
		x0 := clamp(b.X, 0, 1) * fw
		y0 := clamp(b.Y, 0, 1) * fh
		x1 := clamp(b.X+b.W, 0, 1) * fw
		y1 := clamp(b.Y+b.H, 0, 1) * fh
		d.XYXY = append(d.XYXY, [4]float64{x0, y0, x1, y1})
		d.Confidence = append(d.Confidence, clamp(o.Confidence, 0, 1))
		d.ClassID = append(d.ClassID, id)
		d.ClassName = append(d.ClassName, classes.Name(id))
	}
	return d
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
