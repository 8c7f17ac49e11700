package vision

import (
	"image"
	"math"
	"sort"

	"github.com/menta2k/frame-annotator/pkg/types"
)

// SalientClass is the class name given to saliency detections.
const SalientClass = "salient"

// SubjectDetector finds visually salient regions without a model. It is the
// offline detection source used when no vision backend is configured.
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for subject detection
type DetectionConfig struct {
	EdgeThreshold   float64
	ContrastWeight  float64
	ColorWeight     float64
	MinSubjectRatio float64
	MaxRegions      int
	// MaxOverlap is the IoU above which a lower scored region is dropped.
	MaxOverlap float64
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{
		config: DetectionConfig{
			EdgeThreshold:   0.01,
			ContrastWeight:  0.3,
			ColorWeight:     0.2,
			MinSubjectRatio: 0.05,
			MaxRegions:      10,
			MaxOverlap:      0.3,
		},
	}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	if config.MaxRegions <= 0 {
		config.MaxRegions = 10
	}
	if config.MaxOverlap <= 0 {
		config.MaxOverlap = 0.3
	}
	return &SubjectDetector{config: config}
}

// Region represents a rectangular region of interest
type Region struct {
	X      int
	Y      int
	Width  int
	Height int
	Score  float64
}

// Center returns the center point of the region
func (r Region) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Area returns the area of the region
func (r Region) Area() int {
	return r.Width * r.Height
}

// IOU returns the intersection over union of two regions.
func (r Region) IOU(b Region) float64 {
	x1 := max(r.X, b.X)
	y1 := max(r.Y, b.Y)
	x2 := min(r.X+r.Width, b.X+b.Width)
	y2 := min(r.Y+r.Height, b.Y+b.Height)
	inter := max(0, x2-x1) * max(0, y2-y1)
	union := r.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// DetectSubjects analyzes an image and returns regions of interest, best
// first.
func (d *SubjectDetector) DetectSubjects(img image.Image) ([]Region, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	integral := d.saliencyIntegral(img)
	regions := d.findImportantRegions(integral, width, height)
	regions = d.filterAndScoreRegions(regions, width, height)
	return regions, nil
}

// Detect returns the salient regions of img as a detection set. Scores are
// normalized so the best region has confidence 1.
func (d *SubjectDetector) Detect(img image.Image) (*types.Detections, error) {
	regions, err := d.DetectSubjects(img)
	if err != nil {
		return nil, err
	}
	det := &types.Detections{
		XYXY:       [][4]float64{},
		Confidence: []float64{},
		ClassID:    []int{},
		ClassName:  []string{},
	}
	if len(regions) == 0 {
		return det, nil
	}
	best := regions[0].Score
	for _, r := range regions {
		det.XYXY = append(det.XYXY, [4]float64{
			float64(r.X), float64(r.Y), float64(r.X + r.Width), float64(r.Y + r.Height),
		})
		conf := 0.0
		if best > 0 {
			conf = r.Score / best
		}
		det.Confidence = append(det.Confidence, conf)
		det.ClassID = append(det.ClassID, 0)
		det.ClassName = append(det.ClassName, SalientClass)
	}
	return det, nil
}

// saliencyIntegral computes a per-pixel saliency from edge strength and
// brightness and returns its summed-area table, (w+1) x (h+1).
func (d *SubjectDetector) saliencyIntegral(img image.Image) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	integral := make([][]float64, height+1)
	for i := range integral {
		integral[i] = make([]float64, width+1)
	}

	neighbors := [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
	for y := 0; y < height; y++ {
		var rowSum float64
		for x := 0; x < width; x++ {
			var saliency float64
			if x > 0 && y > 0 && x < width-1 && y < height-1 {
				r1, g1, b1, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()

				var edgeStrength float64
				for _, off := range neighbors {
					r2, g2, b2, _ := img.At(x+off[0]+bounds.Min.X, y+off[1]+bounds.Min.Y).RGBA()
					dr := float64(r1) - float64(r2)
					dg := float64(g1) - float64(g2)
					db := float64(b1) - float64(b2)
					edgeStrength += math.Sqrt(dr*dr + dg*dg + db*db)
				}
				edgeStrength /= 8.0 * 65535.0

				brightness := (float64(r1) + float64(g1) + float64(b1)) / (3.0 * 65535.0)
				saliency = d.config.ContrastWeight*edgeStrength + d.config.ColorWeight*brightness
			}
			rowSum += saliency
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}
	return integral
}

func (d *SubjectDetector) findImportantRegions(integral [][]float64, width, height int) []Region {
	var regions []Region

	windowSizes := []int{width / 20, width / 16, width / 12, width / 8, width / 4}
	for _, size := range windowSizes {
		if size < 10 {
			continue
		}
		step := max(1, size/8)
		for y := 0; y+size <= height; y += step {
			for x := 0; x+size <= width; x += step {
				score := windowMean(integral, x, y, size, size)
				if score > d.config.EdgeThreshold {
					regions = append(regions, Region{X: x, Y: y, Width: size, Height: size, Score: score})
				}
			}
		}
	}
	return regions
}

func windowMean(integral [][]float64, x, y, w, h int) float64 {
	sum := integral[y+h][x+w] - integral[y][x+w] - integral[y+h][x] + integral[y][x]
	return sum / float64(w*h)
}

// filterAndScoreRegions keeps large enough regions, best first, dropping
// regions that overlap a better one.
func (d *SubjectDetector) filterAndScoreRegions(regions []Region, imageWidth, imageHeight int) []Region {
	minArea := int(float64(imageWidth*imageHeight) * d.config.MinSubjectRatio)

	var candidates []Region
	for _, r := range regions {
		if r.Area() >= minArea {
			candidates = append(candidates, r)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	var kept []Region
	for _, c := range candidates {
		overlaps := false
		for _, k := range kept {
			if c.IOU(k) > d.config.MaxOverlap {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		kept = append(kept, c)
		if len(kept) == d.config.MaxRegions {
			break
		}
	}
	return kept
}
