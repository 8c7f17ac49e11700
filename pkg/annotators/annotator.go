// Package annotators draws detection results onto frames.
//
// Every annotator mutates the supplied *image.RGBA in place and returns the
// same pointer. Annotators can be chained with a Composite; later members
// paint over earlier ones.
package annotators

import (
	"image"

	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// ErrInvalidFrame is returned for nil frames, empty frames and frames whose
// origin is not (0,0).
var ErrInvalidFrame = errors.New("annotators: invalid frame")

// Annotator draws one kind of visual element for every detection.
type Annotator interface {
	Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error)
}

// AnnotatorFunc adapts a function to the Annotator interface.
type AnnotatorFunc func(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error)

func (f AnnotatorFunc) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	return f(scene, detections)
}

// Validate checks a frame and detection set before drawing.
func Validate(scene *image.RGBA, detections *types.Detections) error {
	if scene == nil {
		return errors.Wrap(ErrInvalidFrame, "nil frame")
	}
	b := scene.Bounds()
	if b.Empty() {
		return errors.Wrapf(ErrInvalidFrame, "empty bounds %v", b)
	}
	if b.Min != (image.Point{}) {
		return errors.Wrapf(ErrInvalidFrame, "origin %v, expected (0,0)", b.Min)
	}
	return detections.Validate()
}

// Composite applies its members in order to the same frame.
type Composite struct {
	annotators []Annotator
}

// NewComposite creates a composite; the order of annotators is kept.
func NewComposite(annotators ...Annotator) *Composite {
	c := &Composite{}
	c.Append(annotators...)
	return c
}

// Append adds annotators at the end of the pipeline. Nil values are skipped.
func (c *Composite) Append(annotators ...Annotator) {
	for _, a := range annotators {
		if a != nil {
			c.annotators = append(c.annotators, a)
		}
	}
}

// Len returns the number of members.
func (c *Composite) Len() int {
	return len(c.annotators)
}

// Annotate validates the inputs once, then runs every member in order.
// The first member error is returned as is and the remaining members are
// skipped.
func (c *Composite) Annotate(scene *image.RGBA, detections *types.Detections) (*image.RGBA, error) {
	if err := Validate(scene, detections); err != nil {
		return nil, err
	}
	for _, a := range c.annotators {
		var err error
		scene, err = a.Annotate(scene, detections)
		if err != nil {
			return nil, err
		}
	}
	return scene, nil
}
