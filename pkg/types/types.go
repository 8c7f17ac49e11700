package types

import (
	"image"
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrLengthMismatch is returned when the parallel sequences of a
	// Detections value disagree in length.
	ErrLengthMismatch = errors.New("detections: sequence lengths differ")
	// ErrInvalidRegion is returned for regions with non-finite coordinates
	// or with max < min.
	ErrInvalidRegion = errors.New("detections: invalid region")
	// ErrInvalidConfidence is returned for confidence scores outside [0,1].
	ErrInvalidConfidence = errors.New("detections: confidence out of range")
)

// Detections holds index-aligned detection results for one frame.
// XYXY is required; the other sequences are optional and a nil slice means
// the field is absent.
type Detections struct {
	XYXY       [][4]float64   `json:"xyxy"`
	Confidence []float64      `json:"confidence,omitempty"`
	ClassID    []int          `json:"class_id,omitempty"`
	TrackerID  []int          `json:"tracker_id,omitempty"`
	ClassName  []string       `json:"class_name,omitempty"`
	Mask       []*image.Alpha `json:"-"`
}

// Len returns the number of detected objects.
func (d *Detections) Len() int {
	if d == nil {
		return 0
	}
	return len(d.XYXY)
}

// IsEmpty reports whether there are no detections.
func (d *Detections) IsEmpty() bool {
	return d.Len() == 0
}

// Validate checks that every present sequence matches len(XYXY), that
// all regions are well formed and that confidences lie in [0,1].
func (d *Detections) Validate() error {
	if d == nil {
		return nil
	}
	n := len(d.XYXY)
	check := func(name string, present bool, l int) error {
		if present && l != n {
			return errors.Wrapf(ErrLengthMismatch, "%s has %d entries, xyxy has %d", name, l, n)
		}
		return nil
	}
	if err := check("confidence", d.Confidence != nil, len(d.Confidence)); err != nil {
		return err
	}
	if err := check("class_id", d.ClassID != nil, len(d.ClassID)); err != nil {
		return err
	}
	if err := check("tracker_id", d.TrackerID != nil, len(d.TrackerID)); err != nil {
		return err
	}
	if err := check("class_name", d.ClassName != nil, len(d.ClassName)); err != nil {
		return err
	}
	if err := check("mask", d.Mask != nil, len(d.Mask)); err != nil {
		return err
	}

	for i, r := range d.XYXY {
		for _, v := range r {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Wrapf(ErrInvalidRegion, "region %d has non-finite coordinate", i)
			}
		}
		if r[2] < r[0] || r[3] < r[1] {
			return errors.Wrapf(ErrInvalidRegion, "region %d: max < min (%v)", i, r)
		}
	}
	for i, c := range d.Confidence {
		if !(c >= 0 && c <= 1) {
			return errors.Wrapf(ErrInvalidConfidence, "detection %d has confidence %v", i, c)
		}
	}
	return nil
}

// Region returns region i as an integer rectangle. Coordinates are rounded
// to the nearest pixel and are not clipped.
func (d *Detections) Region(i int) image.Rectangle {
	r := d.XYXY[i]
	return image.Rect(round(r[0]), round(r[1]), round(r[2]), round(r[3]))
}

// Area returns the area of region i in pixels.
func (d *Detections) Area(i int) float64 {
	r := d.XYXY[i]
	return (r[2] - r[0]) * (r[3] - r[1])
}

// Filter returns a new Detections holding only the entries for which keep
// returns true. Masks are shared, not copied.
func (d *Detections) Filter(keep func(i int) bool) *Detections {
	out := &Detections{}
	if d == nil {
		return out
	}
	if d.Confidence != nil {
		out.Confidence = []float64{}
	}
	if d.ClassID != nil {
		out.ClassID = []int{}
	}
	if d.TrackerID != nil {
		out.TrackerID = []int{}
	}
	if d.ClassName != nil {
		out.ClassName = []string{}
	}
	if d.Mask != nil {
		out.Mask = []*image.Alpha{}
	}
	out.XYXY = [][4]float64{}
	for i := range d.XYXY {
		if !keep(i) {
			continue
		}
		out.XYXY = append(out.XYXY, d.XYXY[i])
		if d.Confidence != nil {
			out.Confidence = append(out.Confidence, d.Confidence[i])
		}
		if d.ClassID != nil {
			out.ClassID = append(out.ClassID, d.ClassID[i])
		}
		if d.TrackerID != nil {
			out.TrackerID = append(out.TrackerID, d.TrackerID[i])
		}
		if d.ClassName != nil {
			out.ClassName = append(out.ClassName, d.ClassName[i])
		}
		if d.Mask != nil {
			out.Mask = append(out.Mask, d.Mask[i])
		}
	}
	return out
}

// WithMinConfidence drops detections scoring below min. Detections without
// confidence are returned unchanged.
func (d *Detections) WithMinConfidence(min float64) *Detections {
	if d == nil || d.Confidence == nil {
		return d
	}
	return d.Filter(func(i int) bool { return d.Confidence[i] >= min })
}

func round(v float64) int {
	return int(math.Round(v))
}
