// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evotri

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/gogpu/evotri/evolve"
)

// ErrInvalidParams is wrapped by every Params validation error.
var ErrInvalidParams = errors.New("evotri: invalid parameters")

// Params configures a Pipeline.
//
// Population, Triangles and Resolution size GPU resources and are fixed
// for the life of a pipeline. MutationRate and TournamentSize may change
// between generations with [Pipeline.Tune].
type Params struct {
	// Population is the number of individuals, a power of two.
	Population int `toml:"population"`

	// Triangles is the number of triangles per individual.
	Triangles int `toml:"triangles"`

	// MutationRate is the per-gene mutation probability in [0,1].
	MutationRate float64 `toml:"mutation_rate"`

	// TournamentSize is the number of candidates per tournament, in
	// [1, Population].
	TournamentSize int `toml:"tournament_size"`

	// Resolution is the width and height of one rendered individual and of
	// the reference image, in pixels.
	Resolution int `toml:"resolution"`
}

// DefaultParams returns the parameters evotri starts from.
func DefaultParams() Params {
	return Params{
		Population:     64,
		Triangles:      50,
		MutationRate:   0.01,
		TournamentSize: 4,
		Resolution:     64,
	}
}

// Validate reports the first invalid field, wrapping ErrInvalidParams.
func (p Params) Validate() error {
	switch {
	case p.Population <= 0 || bits.OnesCount(uint(p.Population)) != 1:
		return fmt.Errorf("%w: population %d is not a power of two", ErrInvalidParams, p.Population)
	case p.Triangles <= 0:
		return fmt.Errorf("%w: triangles %d must be positive", ErrInvalidParams, p.Triangles)
	case p.Resolution <= 0:
		return fmt.Errorf("%w: resolution %d must be positive", ErrInvalidParams, p.Resolution)
	}
	return p.validateTunable()
}

func (p Params) validateTunable() error {
	if !(p.MutationRate >= 0 && p.MutationRate <= 1) {
		return fmt.Errorf("%w: mutation rate %v outside [0,1]", ErrInvalidParams, p.MutationRate)
	}
	if p.TournamentSize < 1 || p.TournamentSize > p.Population {
		return fmt.Errorf("%w: tournament size %d outside [1,%d]", ErrInvalidParams, p.TournamentSize, p.Population)
	}
	return nil
}

func (p Params) engine() evolve.Params {
	return evolve.Params{MutationRate: p.MutationRate, TournamentSize: p.TournamentSize}
}
