package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// ErrUnknownFormat is returned when no decoder accepts the image data.
var ErrUnknownFormat = errors.New("image: unknown or unsupported format")

// Processor handles image I/O around annotation
type Processor struct {
	httpClient *http.Client
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{httpClient: &http.Client{Timeout: 30 * time.Second}}
}

// LoadImageFromURL downloads and loads an image from a URL
func (p *Processor) LoadImageFromURL(ctx context.Context, imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid URL")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, errors.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", "Frame-Annotator/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to download image")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("failed to download image: HTTP %s", resp.Status)
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errors.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image data")
	}
	return p.decodeImageFromBytes(imageData)
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	img, err := p.decodeImageFromBytes(data)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return img, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(ctx context.Context, source string) (image.Image, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(ctx, source)
	}
	return p.LoadImage(source)
}

// decodeImageFromBytes decodes an image from byte data with WebP support
func (p *Processor) decodeImageFromBytes(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, ErrUnknownFormat
}

// ToFrame returns img as an *image.RGBA with its origin at (0,0). An RGBA
// image that already satisfies this is returned as is. A nil *image.RGBA
// gives nil.
func ToFrame(img image.Image) *image.RGBA {
	rgba, isRGBA := img.(*image.RGBA)
	if isRGBA && rgba == nil {
		return nil
	}
	b := img.Bounds()
	if isRGBA && b.Min == (image.Point{}) {
		return rgba
	}
	frame := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(frame, frame.Bounds(), img, b.Min, draw.Src)
	return frame
}

// PrepareImageForModel converts an image to base64 for sending to vision models
func (p *Processor) PrepareImageForModel(img image.Image, format string, maxDim int, quality int) (string, error) {
	if maxDim > 0 {
		b := img.Bounds()
		w, h := b.Dx(), b.Dy()
		if w > maxDim || h > maxDim {
			if w >= h {
				img = imaging.Resize(img, maxDim, 0, imaging.Lanczos)
			} else {
				img = imaging.Resize(img, 0, maxDim, imaging.Lanczos)
			}
		}
	}

	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return "", err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return "", err
		}
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		if err := webp.Encode(f, img, opts); err != nil {
			f.Close()
			return errors.Wrapf(err, "encode %s", path)
		}
		return f.Close()
	case "png":
		return imaging.Save(img, path)
	case "jpg", "jpeg", "":
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	default:
		return errors.Errorf("unsupported output format: %s", format)
	}
}

// LoadDetections reads a detection set from a JSON file.
func LoadDetections(path string) (*types.Detections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read detections file")
	}
	var d types.Detections
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return &d, nil
}

// LoadDetectionSequence reads a JSON array of detection sets, one per frame.
func LoadDetectionSequence(path string) ([]*types.Detections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read detections file")
	}
	var seq []*types.Detections
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	for i, d := range seq {
		if err := d.Validate(); err != nil {
			return nil, errors.Wrapf(err, "%s: frame %d", path, i)
		}
	}
	return seq, nil
}

// SaveDetections writes a detection set as indented JSON. Masks are not
// serialized.
func SaveDetections(d *types.Detections, path string) error {
	js, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal detections")
	}
	return errors.Wrap(os.WriteFile(path, js, 0o644), "failed to write detections")
}
