package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	frameannotator "github.com/menta2k/frame-annotator"
	"github.com/menta2k/frame-annotator/internal/config"
	"github.com/menta2k/frame-annotator/internal/utils"
	"github.com/menta2k/frame-annotator/pkg/client"
	"github.com/menta2k/frame-annotator/pkg/detection"
	"github.com/menta2k/frame-annotator/pkg/llamacpp"
	"github.com/menta2k/frame-annotator/pkg/ollama"
	"github.com/menta2k/frame-annotator/pkg/processing"
	"github.com/menta2k/frame-annotator/pkg/types"
	"github.com/menta2k/frame-annotator/pkg/vision"
)

type options struct {
	input          *string
	detections     *string
	configPath     *string
	writeConfig    *string
	annotators     *string
	backend        *string
	url            *string
	model          *string
	classes        *string
	minConfidence  *float64
	outDir         *string
	ext            *string
	quality        *int
	lossless       *bool
	saveDetections *bool
	verbose        *bool
}

func main() {
	parser := argparse.NewParser("frame-annotator", "Draw detections onto images and frame sequences")
	opts := options{
		input:          parser.String("i", "input", &argparse.Options{Help: "Input image path, URL or directory of frames", Required: true}),
		detections:     parser.String("d", "detections", &argparse.Options{Help: "Detections JSON: one set for an image, an array of sets for a directory"}),
		configPath:     parser.String("c", "config", &argparse.Options{Help: "Config file (default: " + config.GetConfigPath() + " if present)"}),
		writeConfig:    parser.String("", "write-config", &argparse.Options{Help: "Write the effective config to this path and exit"}),
		annotators:     parser.String("a", "annotators", &argparse.Options{Help: "Comma-separated annotators in drawing order: " + strings.Join(config.AnnotatorNames, ",")}),
		backend:        parser.Selector("b", "backend", []string{"saliency", "ollama", "llamacpp"}, &argparse.Options{Help: "Detection backend when no detections file is given"}),
		url:            parser.String("", "url", &argparse.Options{Help: "Vision server URL (defaults: ollama=http://localhost:11434, llamacpp=http://localhost:8080)"}),
		model:          parser.String("m", "model", &argparse.Options{Help: "Vision model name"}),
		classes:        parser.String("", "classes", &argparse.Options{Help: "Comma-separated class names; other labels are dropped"}),
		minConfidence:  parser.Float("", "min-confidence", &argparse.Options{Help: "Drop detections below this confidence", Default: -1.0}),
		outDir:         parser.String("o", "out", &argparse.Options{Help: "Output directory"}),
		ext:            parser.Selector("", "ext", []string{"png", "jpg", "webp"}, &argparse.Options{Help: "Output format"}),
		quality:        parser.Int("q", "quality", &argparse.Options{Help: "JPEG/WebP output quality (1-100)", Default: 0}),
		lossless:       parser.Flag("", "lossless", &argparse.Options{Help: "Lossless WebP output"}),
		saveDetections: parser.Flag("", "save-detections", &argparse.Options{Help: "Write the detections used next to each output image"}),
		verbose:        parser.Flag("v", "verbose", &argparse.Options{Help: "Debug logging"}),
	}
	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger := newLogger(*opts.verbose)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Errorw("failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zap.Must(cfg.Build()).Sugar()
}

func run(ctx context.Context, opts options, logger *zap.SugaredLogger) error {
	cfg, err := loadConfig(*opts.configPath, logger)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}

	if *opts.writeConfig != "" {
		if err := cfg.SaveToFile(*opts.writeConfig); err != nil {
			return err
		}
		logger.Infow("config written", "path", *opts.writeConfig)
		return nil
	}

	pipeline, err := cfg.BuildPipeline()
	if err != nil {
		return err
	}
	fa := frameannotator.New(pipeline, logger)
	fa.SetOutputOptions(frameannotator.OutputOptions{Quality: cfg.Output.Quality, Lossless: cfg.Output.Lossless})

	inputs := []string{*opts.input}
	if utils.DirExists(*opts.input) {
		if inputs, err = utils.ListImageFiles(*opts.input); err != nil {
			return errors.Wrap(err, "failed to list input frames")
		}
		if len(inputs) == 0 {
			return errors.Errorf("no images found in %s", *opts.input)
		}
	}

	source, err := newSource(cfg, *opts.detections, len(inputs) > 1 || utils.DirExists(*opts.input))
	if err != nil {
		return err
	}

	if err := utils.EnsureDir(cfg.Output.OutputDir); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	logger.Infow("starting", "frames", len(inputs), "annotators", cfg.Annotators, "backend", describeSource(cfg, *opts.detections))
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := utils.GenerateOutputFilename(in, cfg.Output.OutputDir, cfg.Output.Prefix, cfg.Output.Suffix, cfg.Output.Format)
		det, err := fa.AnnotateFile(ctx, in, dst, source)
		if err != nil {
			return err
		}
		if info, err := os.Stat(dst); err == nil {
			logger.Debugw("output written", "path", dst, "size", utils.FormatFileSize(info.Size()))
		}
		if *opts.saveDetections {
			js := strings.TrimSuffix(dst, "."+cfg.Output.Format) + ".json"
			if err := processing.SaveDetections(det, js); err != nil {
				return err
			}
		}
	}
	logger.Infow("done", "frames", len(inputs), "out", cfg.Output.OutputDir)
	return nil
}

func loadConfig(path string, logger *zap.SugaredLogger) (*config.Config, error) {
	if path == "" {
		if def := config.GetConfigPath(); utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	logger.Debugw("loading config", "path", path)
	return config.LoadFromFile(path)
}

func applyOverrides(cfg *config.Config, opts options) {
	if *opts.annotators != "" {
		cfg.Annotators = splitList(*opts.annotators)
	}
	if *opts.backend != "" {
		cfg.Detector.Backend = *opts.backend
	}
	if *opts.url != "" {
		cfg.Detector.URL = *opts.url
	}
	if *opts.model != "" {
		cfg.Detector.Model = *opts.model
	}
	if *opts.classes != "" {
		cfg.Detector.Classes = splitList(*opts.classes)
	}
	if *opts.minConfidence >= 0 {
		cfg.Detector.MinConfidence = *opts.minConfidence
	}
	if *opts.outDir != "" {
		cfg.Output.OutputDir = *opts.outDir
	}
	if *opts.ext != "" {
		cfg.Output.Format = *opts.ext
	}
	if *opts.quality > 0 {
		cfg.Output.Quality = *opts.quality
	}
	if *opts.lossless {
		cfg.Output.Lossless = true
	}
}

// newSource picks where detections come from: a detections file when one
// is given, otherwise the configured backend.
func newSource(cfg *config.Config, detectionsPath string, sequence bool) (frameannotator.Source, error) {
	if detectionsPath != "" {
		if sequence {
			seq, err := processing.LoadDetectionSequence(detectionsPath)
			if err != nil {
				return nil, err
			}
			for i, d := range seq {
				seq[i] = d.WithMinConfidence(cfg.Detector.MinConfidence)
			}
			return frameannotator.QueueSource(seq), nil
		}
		d, err := processing.LoadDetections(detectionsPath)
		if err != nil {
			return nil, err
		}
		return frameannotator.StaticSource(d.WithMinConfidence(cfg.Detector.MinConfidence)), nil
	}

	if cfg.Detector.Backend == "saliency" {
		return frameannotator.SaliencySource(vision.New()), nil
	}

	vc, err := newVisionClient(cfg.Detector)
	if err != nil {
		return nil, err
	}
	var classes *types.ClassTable
	if len(cfg.Detector.Classes) > 0 {
		classes = types.NewClassTable(cfg.Detector.Classes...)
		classes.Frozen = true
	}
	det := detection.NewDetector(vc, detection.Config{
		Model:         cfg.Detector.Model,
		MinConfidence: cfg.Detector.MinConfidence,
		MaxObjects:    cfg.Detector.MaxObjects,
	}, classes)
	return frameannotator.ModelSource(det, processing.NewProcessor(), frameannotator.SendOptions{
		Format:  cfg.Detector.SendFormat,
		MaxDim:  cfg.Detector.SendSize,
		Quality: cfg.Detector.SendQuality,
	}), nil
}

func newVisionClient(cfg config.DetectorConfig) (client.VisionClient, error) {
	switch cfg.Backend {
	case "ollama":
		url := cfg.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		c, err := ollama.NewClient(url)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Ollama client")
		}
		return c, nil
	case "llamacpp":
		c, err := llamacpp.NewClient(cfg.URL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create llama.cpp client")
		}
		return c, nil
	}
	return nil, errors.Errorf("unknown backend: %s (use saliency, ollama or llamacpp)", cfg.Backend)
}

func describeSource(cfg *config.Config, detectionsPath string) string {
	if detectionsPath != "" {
		return "file"
	}
	return cfg.Detector.Backend
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
