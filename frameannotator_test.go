package frameannotator

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/menta2k/frame-annotator/pkg/annotators"
	"github.com/menta2k/frame-annotator/pkg/client"
	"github.com/menta2k/frame-annotator/pkg/detection"
	"github.com/menta2k/frame-annotator/pkg/processing"
	"github.com/menta2k/frame-annotator/pkg/types"
	"github.com/menta2k/frame-annotator/pkg/vision"
)

var red = annotators.Palette{{255, 0, 0, 255}}

func redBox() annotators.Annotator {
	return annotators.NewBoxWithConfig(annotators.BoxConfig{
		Colors:    annotators.Colors{Palette: red, Lookup: annotators.ColorByIndex},
		Thickness: 2,
	})
}

func oneBox() *types.Detections {
	return &types.Detections{XYXY: [][4]float64{{10, 10, 40, 40}}}
}

func TestAnnotateImageInPlace(t *testing.T) {
	fa := New(redBox(), nil)
	frame := image.NewRGBA(image.Rect(0, 0, 64, 64))

	out, err := fa.AnnotateImage(frame, oneBox())
	require.NoError(t, err)
	assert.Same(t, frame, out)
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(10, 25))
}

func TestAnnotateImageConverts(t *testing.T) {
	fa := New(redBox(), nil)
	src := image.NewNRGBA(image.Rect(0, 0, 64, 64))

	out, err := fa.AnnotateImage(src, oneBox())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), out.Bounds())
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(10, 25))

	_, err = fa.AnnotateImage(nil, oneBox())
	assert.True(t, errors.Is(err, annotators.ErrInvalidFrame))

	_, err = fa.AnnotateImage((*image.RGBA)(nil), oneBox())
	assert.True(t, errors.Is(err, annotators.ErrInvalidFrame))
}

func TestAnnotateSequenceSharesTraceHistory(t *testing.T) {
	trace, err := annotators.NewTraceWithConfig(annotators.TraceConfig{
		Colors: annotators.Colors{Palette: red, Lookup: annotators.ColorByTrack},
	})
	require.NoError(t, err)
	fa := New(trace, nil)

	var frames []image.Image
	var sets []*types.Detections
	for i := 0; i < 3; i++ {
		frames = append(frames, image.NewRGBA(image.Rect(0, 0, 100, 100)))
		x := float64(20 + 10*i)
		sets = append(sets, &types.Detections{
			XYXY:      [][4]float64{{x - 5, 45, x + 5, 55}},
			TrackerID: []int{7},
		})
	}

	out, err := fa.AnnotateSequence(context.Background(), frames, sets)
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.Equal(t, color.RGBA{}, out[0].RGBAAt(25, 50), "first frame has a single point")
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out[2].RGBAAt(25, 50))
	assert.Len(t, trace.History().Points(7), 3)
}

func TestAnnotateSequenceErrors(t *testing.T) {
	fa := New(redBox(), nil)
	frames := []image.Image{image.NewRGBA(image.Rect(0, 0, 10, 10))}

	_, err := fa.AnnotateSequence(context.Background(), frames, nil)
	assert.True(t, errors.Is(err, ErrSequenceLength))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out, err := fa.AnnotateSequence(ctx, frames, []*types.Detections{oneBox()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, out)

	bad := &types.Detections{XYXY: [][4]float64{{0, 0, 1, 1}}, ClassID: []int{1, 2}}
	_, err = fa.AnnotateSequence(context.Background(), frames, []*types.Detections{bad})
	assert.True(t, errors.Is(err, types.ErrLengthMismatch))
}

func TestAnnotateFile(t *testing.T) {
	dir := t.TempDir()
	p := processing.NewProcessor()
	src := filepath.Join(dir, "in.png")
	require.NoError(t, p.SaveImage(image.NewRGBA(image.Rect(0, 0, 64, 64)), src, "png", 90, false))

	core, logs := observer.New(zap.InfoLevel)
	fa := New(redBox(), zap.New(core).Sugar())

	dst := filepath.Join(dir, "out.png")
	det, err := fa.AnnotateFile(context.Background(), src, dst, StaticSource(oneBox()))
	require.NoError(t, err)
	assert.Equal(t, 1, det.Len())

	img, err := p.LoadImage(dst)
	require.NoError(t, err)
	r, g, b, _ := img.At(10, 25).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0, 0}, [3]uint32{r, g, b})
	assert.Equal(t, 1, logs.FilterMessage("annotated").Len())

	_, err = fa.AnnotateFile(context.Background(), filepath.Join(dir, "missing.png"), dst, StaticSource(oneBox()))
	assert.Error(t, err)

	failing := SourceFunc(func(context.Context, image.Image) (*types.Detections, error) {
		return nil, errors.New("backend down")
	})
	_, err = fa.AnnotateFile(context.Background(), src, dst, failing)
	assert.ErrorContains(t, err, "backend down")
}

func TestQueueSource(t *testing.T) {
	a, b := oneBox(), oneBox()
	q := QueueSource([]*types.Detections{a, b})

	got, err := q.Detections(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, a, got)
	got, err = q.Detections(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, b, got)
	_, err = q.Detections(context.Background(), nil)
	assert.True(t, errors.Is(err, ErrSourceExhausted))
}

func TestSaliencySource(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 50; y < 100; y++ {
		for x := 50; x < 100; x++ {
			if (x+y)%2 == 0 {
				img.SetRGBA(x, y, color.RGBA{255, 255, 255, 255})
			}
		}
	}
	det, err := SaliencySource(vision.New()).Detections(context.Background(), img)
	require.NoError(t, err)
	require.NoError(t, det.Validate())
	assert.Greater(t, det.Len(), 0)
}

type fakeVision struct {
	got client.Request
}

func (f *fakeVision) Query(_ context.Context, req client.Request) (string, error) {
	f.got = req
	return `{"objects": [{"label": "cat", "confidence": 0.9, "box": {"x": 0.25, "y": 0.5, "w": 0.5, "h": 0.25}}]}`, nil
}

func TestModelSourceUsesOriginalCoordinates(t *testing.T) {
	fv := &fakeVision{}
	det := detection.NewDetector(fv, detection.Config{Model: "m"}, nil)
	src := ModelSource(det, processing.NewProcessor(), SendOptions{Format: "jpg", MaxDim: 100, Quality: 80})

	d, err := src.Detections(context.Background(), image.NewRGBA(image.Rect(0, 0, 400, 200)))
	require.NoError(t, err)
	assert.NotEmpty(t, fv.got.ImageB64)
	require.Equal(t, 1, d.Len())
	assert.InDeltaSlice(t, []float64{100, 100, 300, 150}, d.XYXY[0][:], 1e-9)
	assert.Equal(t, []string{"cat"}, d.ClassName)
}
