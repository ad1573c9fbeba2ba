// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evotri

import (
	"math/rand/v2"

	"github.com/gogpu/evotri/evolve"
	"github.com/gogpu/evotri/gpu"
)

// Option configures a Pipeline during creation.
//
// Example:
//
//	// Reproducible run with blended triangles
//	p, err := evotri.New(m, ref, params,
//	    evotri.WithSeed(42),
//	    evotri.WithAlphaBlending(true))
type Option func(*options)

// options holds optional configuration for Pipeline creation.
type options struct {
	rng   *rand.Rand
	blend gpu.BlendMode
	point evolve.CrossoverPoint
}

// defaultOptions returns the default pipeline options.
func defaultOptions() options {
	return options{
		rng:   nil, // seeded randomly in New
		blend: gpu.BlendNone,
		point: evolve.UniformPoint,
	}
}

// WithSeed makes the run reproducible: the initial population and every
// selection, crossover and mutation draw come from a PCG source seeded
// with seed.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

// WithRand sets the random source of the pipeline. The pipeline takes
// ownership of r.
func WithRand(r *rand.Rand) Option {
	return func(o *options) {
		o.rng = r
	}
}

// WithAlphaBlending composites overlapping triangles with source-over
// blending. By default a later triangle overwrites earlier ones.
func WithAlphaBlending(enabled bool) Option {
	return func(o *options) {
		if enabled {
			o.blend = gpu.BlendAlpha
		} else {
			o.blend = gpu.BlendNone
		}
	}
}

// WithCrossoverPoint replaces the uniform crossover point, for example
// with [evolve.FixedPoint] in tests.
func WithCrossoverPoint(cp evolve.CrossoverPoint) Option {
	return func(o *options) {
		if cp != nil {
			o.point = cp
		}
	}
}
