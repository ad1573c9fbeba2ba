// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command evotri approximates an image with colored triangles.
//
// Usage:
//
//	evotri [flags] -input photo.jpg -output best.png
//
// Settings may also come from a TOML file given with -config. Flags on the
// command line override the file:
//
//	generations = 5000
//	seed = 1
//
//	[params]
//	population = 128
//	triangles = 100
//	mutation_rate = 0.005
//	tournament_size = 4
//	resolution = 64
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/evotri"
	"github.com/gogpu/evotri/backend"
	_ "github.com/gogpu/evotri/backend/software" // register devices
	_ "github.com/gogpu/evotri/backend/wgpu"
	"github.com/gogpu/evotri/gpu"
	"github.com/gogpu/evotri/internal/imageio"
)

type config struct {
	Params      evotri.Params `toml:"params"`
	Generations int           `toml:"generations"`
	Seed        uint64        `toml:"seed"`
	Blend       bool          `toml:"blend"`
	Backend     string        `toml:"backend"`
	Input       string        `toml:"input"`
	Output      string        `toml:"output"`
	Diff        string        `toml:"diff"`
}

func defaultConfig() config {
	return config{
		Params:      evotri.DefaultParams(),
		Generations: 1000,
		Backend:     "auto",
		Output:      "evotri.png",
	}
}

func loadConfig(path string, cfg *config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("evotri", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "TOML settings file")
		verbose    = fs.Bool("v", false, "log every generation")
		quiet      = fs.Bool("quiet", false, "hide the progress bar")
	)
	fs.StringVar(&cfg.Input, "input", cfg.Input, "reference image (png, jpeg, gif, bmp, tiff, webp)")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "output PNG of the best individual")
	fs.StringVar(&cfg.Diff, "diff", cfg.Diff, "optional output PNG of the last difference image")
	fs.StringVar(&cfg.Backend, "backend", cfg.Backend, "device: auto, wgpu or software")
	fs.IntVar(&cfg.Generations, "generations", cfg.Generations, "number of generations")
	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed, 0 for a random run")
	fs.BoolVar(&cfg.Blend, "blend", cfg.Blend, "alpha-blend overlapping triangles")
	fs.IntVar(&cfg.Params.Population, "population", cfg.Params.Population, "individuals, a power of two")
	fs.IntVar(&cfg.Params.Triangles, "triangles", cfg.Params.Triangles, "triangles per individual")
	fs.Float64Var(&cfg.Params.MutationRate, "mutation", cfg.Params.MutationRate, "per-gene mutation rate")
	fs.IntVar(&cfg.Params.TournamentSize, "tournament", cfg.Params.TournamentSize, "tournament size")
	fs.IntVar(&cfg.Params.Resolution, "resolution", cfg.Params.Resolution, "pixels per side of one individual")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath != "" {
		if err := loadConfig(*configPath, &cfg); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		// Flags win over the file.
		if err := fs.Parse(args); err != nil {
			return err
		}
	}
	if cfg.Input == "" {
		return errors.New("missing -input")
	}
	if cfg.Generations <= 0 {
		return fmt.Errorf("generations %d must be positive", cfg.Generations)
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	evotri.SetLogger(log)
	defer evotri.SetLogger(nil)

	reference, err := imageio.Load(cfg.Input, cfg.Params.Resolution)
	if err != nil {
		return err
	}

	dev, err := backend.Open(cfg.Backend)
	if err != nil {
		return err
	}
	m := gpu.NewManager(dev)
	defer m.Close()

	opts := []evotri.Option{evotri.WithAlphaBlending(cfg.Blend)}
	if cfg.Seed != 0 {
		opts = append(opts, evotri.WithSeed(cfg.Seed))
	}
	p, err := evotri.New(m, reference, cfg.Params, opts...)
	if err != nil {
		return err
	}
	defer p.Release() //nolint:errcheck // released once

	var bar *progressbar.ProgressBar
	if !*quiet {
		bar = progressbar.Default(int64(cfg.Generations), "evolving")
		defer bar.Close()
	}

	start := time.Now()
	for range cfg.Generations {
		if _, _, err := p.Advance(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Warn("interrupted", "generation", p.Generation())
				break
			}
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if p.Generation() == 0 {
		return errors.New("no generation completed")
	}
	elapsed := time.Since(start)

	best, score := p.Best()
	img, err := p.Snapshot(best)
	if err != nil {
		return err
	}
	if err := imageio.SavePNG(cfg.Output, img); err != nil {
		return err
	}
	if cfg.Diff != "" {
		diff, err := p.Difference()
		if err != nil {
			return err
		}
		if err := imageio.SavePNG(cfg.Diff, diff); err != nil {
			return err
		}
	}

	pr := message.NewPrinter(language.English)
	pr.Fprintf(stdout, "%d generations on %s in %v (%.1f gen/s)\n",
		p.Generation(), m.Info().Name, elapsed.Round(time.Millisecond),
		float64(p.Generation())/elapsed.Seconds())
	pr.Fprintf(stdout, "best individual %d, fitness %.4f, saved to %s\n", best, score, cfg.Output)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "evotri: %v\n", err)
		os.Exit(1)
	}
}
