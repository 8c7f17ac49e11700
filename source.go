package frameannotator

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/detection"
	"github.com/menta2k/frame-annotator/pkg/processing"
	"github.com/menta2k/frame-annotator/pkg/types"
	"github.com/menta2k/frame-annotator/pkg/vision"
)

// ErrSourceExhausted is returned by a queue source with no sets left.
var ErrSourceExhausted = errors.New("no detections left in source")

// Source produces the detections for an image.
type Source interface {
	Detections(ctx context.Context, img image.Image) (*types.Detections, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, img image.Image) (*types.Detections, error)

func (f SourceFunc) Detections(ctx context.Context, img image.Image) (*types.Detections, error) {
	return f(ctx, img)
}

// StaticSource returns the same detections for every image.
func StaticSource(d *types.Detections) Source {
	return SourceFunc(func(context.Context, image.Image) (*types.Detections, error) {
		return d, nil
	})
}

type queueSource struct {
	mu   sync.Mutex
	sets []*types.Detections
}

// QueueSource hands out one detection set per call, in order.
func QueueSource(sets []*types.Detections) Source {
	return &queueSource{sets: sets}
}

func (q *queueSource) Detections(context.Context, image.Image) (*types.Detections, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.sets) == 0 {
		return nil, ErrSourceExhausted
	}
	d := q.sets[0]
	q.sets = q.sets[1:]
	return d, nil
}

// SaliencySource detects salient regions without a model.
func SaliencySource(d *vision.SubjectDetector) Source {
	return SourceFunc(func(_ context.Context, img image.Image) (*types.Detections, error) {
		return d.Detect(img)
	})
}

// SendOptions controls how images are encoded for a vision model.
type SendOptions struct {
	Format  string // jpg or png
	MaxDim  int
	Quality int
}

// ModelSource asks a vision model for detections. Boxes come back in the
// coordinates of the original image regardless of the size sent.
func ModelSource(d *detection.Detector, p *processing.Processor, opts SendOptions) Source {
	return SourceFunc(func(ctx context.Context, img image.Image) (*types.Detections, error) {
		b64, err := p.PrepareImageForModel(img, opts.Format, opts.MaxDim, opts.Quality)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode image for model")
		}
		b := img.Bounds()
		det, _, err := d.Detect(ctx, b64, b.Dx(), b.Dy())
		return det, err
	})
}
