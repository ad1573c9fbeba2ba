// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evotri

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/gogpu/evotri/evolve"
	"github.com/gogpu/evotri/gpu"
	"github.com/gogpu/evotri/internal/fitness"
	"github.com/gogpu/evotri/internal/imageio"
	"github.com/gogpu/evotri/internal/render"
)

// ErrReleased is returned by every Pipeline method after Release.
var ErrReleased = gpu.ErrReleased

// Fitness holds one score in [0,1] per individual, in population order.
// Higher is better.
type Fitness []float32

// Pipeline evolves a population of triangle individuals toward a reference
// image. Each call to Advance renders the population, scores it on the
// device and breeds the next generation.
//
// A Pipeline claims its manager: only one pipeline may use a manager at a
// time. It is not safe for concurrent use.
type Pipeline struct {
	id     uuid.UUID
	m      *gpu.Manager
	arena  *gpu.Arena
	params Params

	renderer  *render.Renderer
	evaluator *fitness.Evaluator
	engine    *evolve.Engine

	generation int
	fitness    Fitness
	best       int

	released bool
}

// New builds a pipeline on m. The reference image is scaled to
// params.Resolution.
//
// Every resource created before a failing step is released before New
// returns, and the manager claim is dropped.
func New(m *gpu.Manager, reference image.Image, params Params, opts ...Option) (*Pipeline, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if reference == nil {
		return nil, fmt.Errorf("evotri: nil reference image")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // not for security
	}

	p := &Pipeline{id: uuid.New(), m: m, params: params, best: -1}
	if err := m.Claim(p.id.String()); err != nil {
		return nil, fmt.Errorf("evotri: %w", err)
	}
	p.arena = gpu.NewArena(m)
	if err := p.build(reference, o); err != nil {
		p.arena.Release()
		m.Unclaim(p.id.String())
		return nil, fmt.Errorf("evotri: build pipeline: %w", err)
	}

	Logger().Info("evotri: pipeline built",
		"id", p.id,
		"device", m.Info().Name,
		"population", params.Population,
		"triangles", params.Triangles,
		"resolution", params.Resolution,
		"resources", p.arena.Len())
	return p, nil
}

func (p *Pipeline) build(reference image.Image, o options) error {
	var err error
	p.renderer, err = render.New(p.arena, render.Config{
		Population: p.params.Population,
		Triangles:  p.params.Triangles,
		Resolution: p.params.Resolution,
		Blend:      o.blend,
	})
	if err != nil {
		return err
	}
	ref := imageio.Fit(reference, p.params.Resolution)
	p.evaluator, err = fitness.New(p.arena, p.params.Population, p.params.Resolution, ref)
	if err != nil {
		return err
	}
	initial := evolve.RandomPopulation(p.params.Population, p.params.Triangles, o.rng)
	p.engine = evolve.NewEngine(initial, p.params.engine(), o.rng, evolve.WithCrossoverPoint(o.point))
	return nil
}

// ID returns the unique ID of the pipeline. It is also the owner name of
// the manager claim.
func (p *Pipeline) ID() uuid.UUID { return p.id }

// Params returns the current parameters.
func (p *Pipeline) Params() Params { return p.params }

// Generation returns the number of completed generations.
func (p *Pipeline) Generation() int { return p.generation }

// Best returns the index and fitness of the fittest individual of the last
// generation, or -1 before the first one.
func (p *Pipeline) Best() (index int, score float32) {
	if p.best < 0 {
		return -1, 0
	}
	return p.best, p.fitness[p.best]
}

// Tune changes the mutation rate and tournament size of the following
// generations.
func (p *Pipeline) Tune(mutationRate float64, tournamentSize int) error {
	if p.released {
		return fmt.Errorf("evotri: tune: %w", ErrReleased)
	}
	next := p.params
	next.MutationRate, next.TournamentSize = mutationRate, tournamentSize
	if err := next.validateTunable(); err != nil {
		return err
	}
	p.params = next
	p.engine.SetParams(next.engine())
	return nil
}

// Advance runs one generation: render the population, score it and breed
// the next one.
//
// It returns the fitness of the population just scored and that
// population's genes, 18 floats per triangle, individual-major. Both are
// owned by the pipeline and valid until the next call to Advance.
//
// ctx is checked once, before any work is submitted. An error from the
// device leaves the pipeline unusable; the caller must Release it.
func (p *Pipeline) Advance(ctx context.Context) (Fitness, []float32, error) {
	if p.released {
		return nil, nil, fmt.Errorf("evotri: advance: %w", ErrReleased)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	scored := p.engine.Population()
	if err := p.renderer.Render(scored.Genes); err != nil {
		return nil, nil, fmt.Errorf("evotri: generation %d: %w", p.generation, err)
	}
	f, err := p.evaluator.Evaluate(p.renderer.Atlas().Color(0))
	if err != nil {
		return nil, nil, fmt.Errorf("evotri: generation %d: %w", p.generation, err)
	}

	p.fitness = f
	p.best = evolve.Elite(f)
	p.generation++
	Logger().Debug("evotri: generation scored",
		"generation", p.generation,
		"best", p.best,
		"fitness", f[p.best])

	// The scored population stays intact until the following Step.
	p.engine.Step(f)
	return p.fitness, scored.Genes, nil
}

// Snapshot returns the rendering of individual index from the last
// generation.
func (p *Pipeline) Snapshot(index int) (*image.RGBA, error) {
	if p.released {
		return nil, fmt.Errorf("evotri: snapshot: %w", ErrReleased)
	}
	if p.generation == 0 {
		return nil, fmt.Errorf("evotri: snapshot before the first generation")
	}
	return p.renderer.Snapshot(index)
}

// Difference returns the difference image of the last generation: one
// pixel row per 64 individuals, brighter where the renderings match the
// reference.
func (p *Pipeline) Difference() (*image.RGBA, error) {
	if p.released {
		return nil, fmt.Errorf("evotri: difference: %w", ErrReleased)
	}
	if p.generation == 0 {
		return nil, fmt.Errorf("evotri: difference before the first generation")
	}
	return p.evaluator.DifferenceImage(), nil
}

// Release frees every device resource of the pipeline and drops its claim
// on the manager. It must be called exactly once; later calls return
// ErrReleased.
func (p *Pipeline) Release() error {
	if p.released {
		return fmt.Errorf("evotri: release: %w", ErrReleased)
	}
	p.released = true
	p.arena.Release()
	p.m.Unclaim(p.id.String())
	Logger().Info("evotri: pipeline released", "id", p.id, "generations", p.generation)
	return nil
}
