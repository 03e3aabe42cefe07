// linkerr measures how far a remeshed surface deviates from its input.
//
// Usage:
//
//	linkerr -input part.stl [-remesh part_remeshed.off] [-config remesh.yaml]
//	        [-png errors.png] [-hist errors.svg]
//
// Without -remesh the input is measured against itself, which reports the
// sampling noise floor.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/soypat/remesh"
	"github.com/soypat/remesh/internal/logger"
	"github.com/soypat/remesh/meshio"
	"github.com/soypat/remesh/preview"
	"go.uber.org/zap"
)

var (
	flagInput     = flag.String("input", "", "Input mesh (.stl, .off, .obj, .ply)")
	flagRemesh    = flag.String("remesh", "", "Remeshed surface to measure. Defaults to a copy of the input")
	flagConfig    = flag.String("config", "", "Path to YAML config file")
	flagThreshold = flag.Float64("threshold", 0, "Max error threshold as percent of the input bounding box diagonal")
	flagSamples   = flag.Int("samples", 0, "Samples per facet in both directions")
	flagSeed      = flag.Uint64("seed", 0, "Sampling seed")
	flagPNG       = flag.String("png", "", "Write an error map render to this PNG file")
	flagHist      = flag.String("hist", "", "Write an error histogram to this file (.png, .svg, .pdf)")
	flagDump      = flag.String("dump-config", "", "Write the effective config to this YAML file")
	flagStrict    = flag.Bool("strict", false, "Exit with status 2 when a face exceeds the error bound")
	flagLogLevel  = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flagLogFile   = flag.String("log-file", "", "Also log to this rotating file")
)

func main() {
	flag.Parse()
	if *flagInput == "" {
		fmt.Fprintln(os.Stderr, "linkerr: -input is required")
		flag.Usage()
		os.Exit(1)
	}
	var file logger.FileConfig
	if *flagLogFile != "" {
		file = logger.DefaultFileConfig(*flagLogFile)
	}
	log, err := logger.New(*flagLogLevel, file, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "linkerr:", err)
		os.Exit(1)
	}
	code, err := run(log)
	if err != nil {
		log.Error("linkerr failed", zap.Error(err))
		code = 1
	}
	_ = log.Sync()
	os.Exit(code)
}

func run(log *zap.Logger) (int, error) {
	cfg, err := loadConfig()
	if err != nil {
		return 0, err
	}
	if *flagDump != "" {
		fp, err := os.Create(*flagDump)
		if err != nil {
			return 0, err
		}
		err = remesh.WriteConfig(fp, cfg)
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return 0, err
		}
	}

	input, err := meshio.Load(*flagInput)
	if err != nil {
		return 0, fmt.Errorf("loading input: %w", err)
	}
	s, err := remesh.NewSession(cfg, input, remesh.WithLogger(log))
	if err != nil {
		return 0, err
	}
	if *flagRemesh != "" {
		m, err := meshio.Load(*flagRemesh)
		if err != nil {
			return 0, fmt.Errorf("loading remesh: %w", err)
		}
		if err := s.UseRemesh(m); err != nil {
			return 0, err
		}
	}
	log.Info("meshes loaded",
		zap.Int("input_faces", s.Input().Mesh.NumFaces()),
		zap.Int("remesh_faces", s.Remesh().Mesh.NumFaces()),
	)

	s.GenerateLinks()
	sum := s.Remesh().Summarize()
	bad, err := s.NonConforming()
	if err != nil {
		return 0, err
	}
	log.Info("error summary",
		zap.Int("faces", sum.Faces),
		zap.Int("measured", sum.Measured),
		zap.Float64("max", sum.Max),
		zap.Float64("mean", sum.Mean),
		zap.Float64("rms", sum.RMS),
		zap.Float64("median", sum.Median),
		zap.Float64("p90", sum.P90),
		zap.Int("over_bound", len(bad)),
	)

	if *flagPNG != "" {
		img := preview.Render(s.Remesh(), preview.DefaultView(), 0)
		if err := preview.SavePNG(*flagPNG, img); err != nil {
			return 0, err
		}
		log.Info("wrote error map", zap.String("path", *flagPNG))
	}
	if *flagHist != "" {
		p, err := preview.Histogram(s.Remesh(), 32)
		switch {
		case errors.Is(err, preview.ErrNoErrors):
			log.Warn("no measured errors, histogram skipped")
		case err != nil:
			return 0, err
		default:
			if err := preview.SaveHistogram(*flagHist, p); err != nil {
				return 0, err
			}
			log.Info("wrote histogram", zap.String("path", *flagHist))
		}
	}
	if *flagStrict && len(bad) > 0 {
		return 2, nil
	}
	return 0, nil
}

// loadConfig layers the config file and then flag overrides over defaults.
// Only flags present on the command line override the file.
func loadConfig() (remesh.Config, error) {
	cfg := remesh.DefaultConfig()
	if *flagConfig != "" {
		var err error
		cfg, err = remesh.LoadConfig(*flagConfig)
		if err != nil {
			return cfg, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		applyFlag(&cfg, f.Name)
	})
	return cfg, cfg.Validate()
}

func applyFlag(cfg *remesh.Config, name string) {
	switch name {
	case "threshold":
		cfg.MaxErrorThreshold = *flagThreshold
	case "samples":
		cfg.SamplesPerFacetIn = *flagSamples
		cfg.SamplesPerFacetOut = *flagSamples
	case "seed":
		cfg.Seed = *flagSeed
	}
}
