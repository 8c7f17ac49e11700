package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/frame-annotator/pkg/types"
)

func testImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestToFrame(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.Same(t, rgba, ToFrame(rgba))

	sub := image.NewRGBA(image.Rect(0, 0, 10, 10)).SubImage(image.Rect(2, 2, 6, 8))
	frame := ToFrame(sub)
	assert.Equal(t, image.Rect(0, 0, 4, 6), frame.Bounds())

	assert.Nil(t, ToFrame((*image.RGBA)(nil)))

	src := testImage(8, 8)
	frame = ToFrame(src)
	assert.Equal(t, color.RGBA{3, 5, 128, 255}, frame.RGBAAt(3, 5))
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	img := testImage(32, 24)

	for _, format := range []string{"png", "jpg", "webp"} {
		path := filepath.Join(dir, "out."+format)
		require.NoError(t, p.SaveImage(img, path, format, 90, true), format)

		loaded, err := p.LoadImage(path)
		require.NoError(t, err, format)
		assert.Equal(t, 32, loaded.Bounds().Dx(), format)
		assert.Equal(t, 24, loaded.Bounds().Dy(), format)
	}

	assert.Error(t, p.SaveImage(img, filepath.Join(dir, "out.tga"), "tga", 90, false))
}

func TestLoadImageErrors(t *testing.T) {
	p := NewProcessor()
	_, err := p.LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)

	junk := filepath.Join(t.TempDir(), "junk.png")
	require.NoError(t, os.WriteFile(junk, []byte("not an image"), 0o644))
	_, err = p.LoadImage(junk)
	assert.True(t, errors.Is(err, ErrUnknownFormat))
}

func TestLoadImageFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/img.png":
			w.Header().Set("Content-Type", "image/png")
			_ = png.Encode(w, testImage(16, 16))
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	p := NewProcessor()
	ctx := context.Background()

	img, err := p.LoadImageSmart(ctx, srv.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	_, err = p.LoadImageFromURL(ctx, srv.URL+"/page")
	assert.Error(t, err)
	_, err = p.LoadImageFromURL(ctx, srv.URL+"/missing")
	assert.Error(t, err)
	_, err = p.LoadImageFromURL(ctx, "ftp://example.com/a.png")
	assert.Error(t, err)
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	b64, err := p.PrepareImageForModel(testImage(200, 100), "png", 50, 85)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(b64)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 25), decoded.Bounds())
}

func TestDetectionsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := &types.Detections{
		XYXY:       [][4]float64{{50, 50, 100, 100}},
		Confidence: []float64{0.9},
		ClassID:    []int{1},
		TrackerID:  []int{4},
	}
	path := filepath.Join(dir, "d.json")
	require.NoError(t, SaveDetections(d, path))

	loaded, err := LoadDetections(path)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)
}

func TestLoadDetectionsValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"xyxy": [[0,0,1,1],[2,2,3,3]], "confidence": [0.5]}`), 0o644))
	_, err := LoadDetections(path)
	assert.True(t, errors.Is(err, types.ErrLengthMismatch))
}

func TestLoadDetectionSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seq.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"xyxy": [[0,0,10,10]], "class_id": [0], "tracker_id": [1]},
		{"xyxy": [], "class_id": []}
	]`), 0o644))
	seq, err := LoadDetectionSequence(path)
	require.NoError(t, err)
	require.Len(t, seq, 2)
	assert.Equal(t, []int{1}, seq[0].TrackerID)
	assert.Equal(t, 0, seq[1].Len())
}
