// Package detection turns vision model replies into detection sets.
package detection

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/menta2k/frame-annotator/pkg/client"
	"github.com/menta2k/frame-annotator/pkg/types"
)

// DefaultPrompt asks for every visible object with a normalized box.
const DefaultPrompt = `You are an object detector.

Return JSON only:
{
  "objects": [
    {"label": "string", "confidence": 0.0, "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}}
  ],
  "description": "short neutral sentence (≤ 20 words)"
}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels). x,y is the top-left corner.
- One entry per distinct object; boxes should be tight.
- Labels: lowercase singular nouns (person, car, dog).
- If nothing is found, return {"objects": [], "description": "empty scene"}.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// ErrNoJSON is returned when a reply contains no JSON object.
var ErrNoJSON = errors.New("detection: no JSON object in model reply")

// Config holds detector settings.
type Config struct {
	Model         string
	Prompt        string
	MinConfidence float64
	MaxObjects    int
}

// Detector asks a vision model for objects in an image.
type Detector struct {
	client  client.VisionClient
	config  Config
	classes *types.ClassTable
}

// NewDetector creates a detector. classes may be nil, in which case ids are
// assigned in order of first appearance.
func NewDetector(c client.VisionClient, config Config, classes *types.ClassTable) *Detector {
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if classes == nil {
		classes = types.NewClassTable()
	}
	return &Detector{client: c, config: config, classes: classes}
}

// Classes returns the class table used to assign ids.
func (d *Detector) Classes() *types.ClassTable {
	return d.classes
}

// Detect queries the model with a base64 encoded image and converts the
// reply into pixel-space detections for a width x height frame.
func (d *Detector) Detect(ctx context.Context, imageB64 string, width, height int) (*types.Detections, string, error) {
	raw, err := d.client.Query(ctx, client.Request{
		Model:    d.config.Model,
		Prompt:   d.config.Prompt,
		ImageB64: imageB64,
		JSON:     true,
	})
	if err != nil {
		return nil, "", errors.Wrap(err, "vision query")
	}

	list, err := ParseObjects(raw)
	if err != nil {
		return nil, "", err
	}

	objects := cleanObjects(list.Objects)
	if d.config.MaxObjects > 0 && len(objects) > d.config.MaxObjects {
		objects = objects[:d.config.MaxObjects]
	}

	det := types.FromObjects(objects, width, height, d.classes)
	return det.WithMinConfidence(d.config.MinConfidence), list.Description, nil
}

// ParseObjects extracts the object list from a model reply, tolerating code
// fences, comments and trailing commas.
func ParseObjects(raw string) (*types.ObjectList, error) {
	cleaned := sanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return nil, ErrNoJSON
	}

	var list types.ObjectList
	if err := json.Unmarshal([]byte(cleaned), &list); err != nil {
		return nil, errors.Wrap(err, "failed to parse model reply")
	}
	return &list, nil
}

// cleanObjects drops degenerate boxes and empty labels.
func cleanObjects(objects []types.Object) []types.Object {
	out := make([]types.Object, 0, len(objects))
	for _, o := range objects {
		o.Label = strings.ToLower(strings.TrimSpace(o.Label))
		if o.Label == "" || o.Label == "none" {
			continue
		}
		if o.Box.W <= 0 || o.Box.H <= 0 {
			continue
		}
		out = append(out, o)
	}
	return out
}

var (
	reBlockComment  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLineComment   = regexp.MustCompile(`(?m)^\s*//.*$`)
	reTrailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.Trim(strings.TrimSpace(raw), "`")

	raw = reBlockComment.ReplaceAllString(raw, "")
	raw = reLineComment.ReplaceAllString(raw, "")
	raw = reTrailingComma.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
