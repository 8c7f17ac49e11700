package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Config holds the application configuration
type Config struct {
	Annotators  []string       `json:"annotators"`
	Palette     []string       `json:"palette"`
	ColorLookup string         `json:"color_lookup"`
	Box         BoxConfig      `json:"box"`
	Corner      CornerConfig   `json:"corner"`
	Label       LabelConfig    `json:"label"`
	Mask        MaskConfig     `json:"mask"`
	Fill        FillConfig     `json:"fill"`
	Dot         DotConfig      `json:"dot"`
	Trace       TraceConfig    `json:"trace"`
	Blur        BlurConfig     `json:"blur"`
	Pixelate    PixelateConfig `json:"pixelate"`
	Detector    DetectorConfig `json:"detector"`
	Output      OutputConfig   `json:"output"`
}

type BoxConfig struct {
	Thickness float64 `json:"thickness"`
}

type CornerConfig struct {
	Thickness    float64 `json:"thickness"`
	CornerLength float64 `json:"corner_length"`
}

type LabelConfig struct {
	TextScale      float64 `json:"text_scale"`
	TextPadding    float64 `json:"text_padding"`
	Position       string  `json:"position"`
	TextColor      string  `json:"text_color"` // empty for automatic contrast
	ShowConfidence bool    `json:"show_confidence"`
}

type MaskConfig struct {
	Opacity float64 `json:"opacity"`
	// FromBoxes fills in rectangular masks for detections that have none.
	FromBoxes bool `json:"from_boxes"`
}

type FillConfig struct {
	Opacity float64 `json:"opacity"`
}

type DotConfig struct {
	Radius   float64 `json:"radius"`
	Position string  `json:"position"`
}

type TraceConfig struct {
	Thickness   float64 `json:"thickness"`
	TraceLength int     `json:"trace_length"`
	Position    string  `json:"position"`
}

type BlurConfig struct {
	Sigma float64 `json:"sigma"`
}

type PixelateConfig struct {
	PixelSize int `json:"pixel_size"`
}

// DetectorConfig selects where detections come from when no detections
// file is given.
type DetectorConfig struct {
	Backend       string   `json:"backend"` // saliency, ollama or llamacpp
	URL           string   `json:"url"`
	Model         string   `json:"model"`
	Classes       []string `json:"classes"`
	MinConfidence float64  `json:"min_confidence"`
	MaxObjects    int      `json:"max_objects"`
	SendFormat    string   `json:"send_format"`
	SendSize      int      `json:"send_size"`
	SendQuality   int      `json:"send_quality"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	Format    string `json:"format"`
	Quality   int    `json:"quality"`
	Lossless  bool   `json:"lossless"`
	OutputDir string `json:"output_dir"`
	Prefix    string `json:"prefix"`
	Suffix    string `json:"suffix"`
}

// Known annotator names accepted in Config.Annotators.
var AnnotatorNames = []string{"box", "corner", "fill", "mask", "label", "dot", "trace", "blur", "pixelate"}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Annotators:  []string{"box", "label", "mask", "trace"},
		ColorLookup: "class",
		Box:         BoxConfig{Thickness: 2},
		Corner:      CornerConfig{Thickness: 4, CornerLength: 15},
		Label:       LabelConfig{TextScale: 13, TextPadding: 6, Position: "top_left"},
		Mask:        MaskConfig{Opacity: 0.5},
		Fill:        FillConfig{Opacity: 0.5},
		Dot:         DotConfig{Radius: 4, Position: "center"},
		Trace:       TraceConfig{Thickness: 2, TraceLength: 30, Position: "center"},
		Blur:        BlurConfig{Sigma: 15},
		Pixelate:    PixelateConfig{PixelSize: 20},
		Detector: DetectorConfig{
			Backend:     "saliency",
			Model:       "openbmb/minicpm-v4.5",
			SendFormat:  "jpg",
			SendSize:    1536,
			SendQuality: 85,
		},
		Output: OutputConfig{
			Format:    "png",
			Quality:   90,
			OutputDir: "./output",
			Suffix:    "_annotated",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from
// the file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}
	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config file")
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Annotators) == 0 {
		return fmt.Errorf("annotators cannot be empty")
	}
	for _, name := range c.Annotators {
		if !isKnownAnnotator(name) {
			return fmt.Errorf("unknown annotator %q (known: %s)", name, strings.Join(AnnotatorNames, ", "))
		}
	}

	if c.Mask.Opacity < 0 || c.Mask.Opacity > 1 {
		return fmt.Errorf("mask.opacity must be between 0 and 1")
	}
	if c.Fill.Opacity < 0 || c.Fill.Opacity > 1 {
		return fmt.Errorf("fill.opacity must be between 0 and 1")
	}
	if c.Trace.TraceLength < 1 {
		return fmt.Errorf("trace.trace_length must be positive")
	}

	switch c.Detector.Backend {
	case "saliency", "ollama", "llamacpp":
	default:
		return fmt.Errorf("detector.backend must be saliency, ollama or llamacpp")
	}
	if c.Detector.MinConfidence < 0 || c.Detector.MinConfidence > 1 {
		return fmt.Errorf("detector.min_confidence must be between 0 and 1")
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be between 1 and 100")
	}
	switch strings.ToLower(c.Output.Format) {
	case "png", "jpg", "jpeg", "webp":
	default:
		return fmt.Errorf("output.format must be png, jpg or webp")
	}

	// Parse errors surface here rather than at pipeline build time.
	_, err := c.BuildPipeline()
	return err
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "frame-annotator", "config.json")
}

func isKnownAnnotator(name string) bool {
	for _, n := range AnnotatorNames {
		if n == name {
			return true
		}
	}
	return false
}
