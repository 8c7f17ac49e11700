// Package frameannotator draws detection results onto video frames and
// still images.
//
// Annotators live in pkg/annotators and each draw one kind of overlay
// (boxes, labels, masks, traces and so on). A Composite runs several of
// them in order on the same frame. This package wires a pipeline to image
// I/O and to a detection Source:
//
//	pipeline := annotators.NewComposite(
//		annotators.NewBox(),
//		annotators.NewLabel(),
//	)
//	fa := frameannotator.New(pipeline, nil)
//	frame, err := fa.AnnotateImage(img, detections)
//
// Frames are modified in place. Trace annotators keep per-track history
// between calls, so the frames of one video should go through the same
// FrameAnnotator in order, for example with AnnotateSequence.
package frameannotator

import (
	"context"
	"image"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/menta2k/frame-annotator/pkg/annotators"
	"github.com/menta2k/frame-annotator/pkg/processing"
	"github.com/menta2k/frame-annotator/pkg/types"
)

// Version of the frame annotator library
const Version = "1.0.0"

// ErrSequenceLength is returned when frames and detections differ in count.
var ErrSequenceLength = errors.New("frame and detection counts differ")

// OutputOptions controls how annotated files are encoded.
type OutputOptions struct {
	Quality  int
	Lossless bool
}

// FrameAnnotator runs an annotation pipeline over images and files.
type FrameAnnotator struct {
	pipeline  annotators.Annotator
	processor *processing.Processor
	logger    *zap.SugaredLogger
	output    OutputOptions
}

// New creates a FrameAnnotator. A nil logger disables logging.
func New(pipeline annotators.Annotator, logger *zap.SugaredLogger) *FrameAnnotator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &FrameAnnotator{
		pipeline:  pipeline,
		processor: processing.NewProcessor(),
		logger:    logger,
		output:    OutputOptions{Quality: 90},
	}
}

// SetOutputOptions changes the encoding used by AnnotateFile.
func (fa *FrameAnnotator) SetOutputOptions(opts OutputOptions) {
	if opts.Quality <= 0 {
		opts.Quality = 90
	}
	fa.output = opts
}

// Pipeline returns the annotator the FrameAnnotator runs.
func (fa *FrameAnnotator) Pipeline() annotators.Annotator {
	return fa.pipeline
}

// AnnotateImage converts img to a frame and runs the pipeline on it. When
// img is already an *image.RGBA with origin (0,0) it is drawn on directly.
func (fa *FrameAnnotator) AnnotateImage(img image.Image, detections *types.Detections) (*image.RGBA, error) {
	if img == nil {
		return nil, annotators.ErrInvalidFrame
	}
	return fa.pipeline.Annotate(processing.ToFrame(img), detections)
}

// AnnotateFile loads src (a path or http(s) URL), annotates it with the
// detections from source and writes the result to dst. The output format
// follows the extension of dst. The detections used are returned.
func (fa *FrameAnnotator) AnnotateFile(ctx context.Context, src, dst string, source Source) (*types.Detections, error) {
	img, err := fa.processor.LoadImageSmart(ctx, src)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load image")
	}

	detections, err := source.Detections(ctx, img)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get detections for %s", src)
	}
	fa.logger.Debugw("detections ready", "src", src, "count", detections.Len())

	frame, err := fa.AnnotateImage(img, detections)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to annotate %s", src)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(dst)), ".")
	if err := fa.processor.SaveImage(frame, dst, format, fa.output.Quality, fa.output.Lossless); err != nil {
		return nil, errors.Wrapf(err, "failed to save %s", dst)
	}
	fa.logger.Infow("annotated", "src", src, "dst", dst, "detections", detections.Len())
	return detections, nil
}

// AnnotateSequence annotates frames in order with the matching detection
// sets. All frames go through the same pipeline, so trace history carries
// over from one frame to the next. It stops at the first error, and
// between frames when ctx is done.
func (fa *FrameAnnotator) AnnotateSequence(ctx context.Context, frames []image.Image, detections []*types.Detections) ([]*image.RGBA, error) {
	if len(frames) != len(detections) {
		return nil, errors.Wrapf(ErrSequenceLength, "%d frames, %d detection sets", len(frames), len(detections))
	}

	out := make([]*image.RGBA, 0, len(frames))
	for i, img := range frames {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		frame, err := fa.AnnotateImage(img, detections[i])
		if err != nil {
			return out, errors.Wrapf(err, "frame %d", i)
		}
		out = append(out, frame)
		fa.logger.Debugw("frame annotated", "index", i, "detections", detections[i].Len())
	}
	return out, nil
}
