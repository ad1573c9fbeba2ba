// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evolve

import (
	"fmt"
	"math/rand/v2"
)

// Params are the parameters that may change between generations.
type Params struct {
	// MutationRate is the per-gene mutation probability in [0,1].
	MutationRate float64

	// TournamentSize is the number of candidates per tournament, in [1,N].
	TournamentSize int
}

// check panics unless p is valid for a population of n.
func (p Params) check(n int) {
	if !(p.MutationRate >= 0 && p.MutationRate <= 1) {
		panic(fmt.Sprintf("evolve: mutation rate %v outside [0,1]", p.MutationRate))
	}
	if p.TournamentSize < 1 || p.TournamentSize > n {
		panic(fmt.Sprintf("evolve: tournament size %d outside [1,%d]", p.TournamentSize, n))
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithCrossoverPoint replaces the uniform crossover point.
func WithCrossoverPoint(cp CrossoverPoint) Option {
	return func(e *Engine) {
		if cp != nil {
			e.point = cp
		}
	}
}

// Engine produces generations by elitism, tournament selection, one-point
// crossover and banded mutation.
//
// The engine owns two populations. A step reads only the current one and
// writes only the next, then swaps them.
//
// Invalid parameters are programming errors: NewEngine, SetParams and Step
// panic on them.
type Engine struct {
	rng    *rand.Rand
	params Params
	point  CrossoverPoint

	current, next *Population
	generation    int
}

// NewEngine returns an engine starting from a copy of initial.
func NewEngine(initial *Population, params Params, rng *rand.Rand, opts ...Option) *Engine {
	if rng == nil {
		panic("evolve: nil random source")
	}
	params.check(initial.N)
	e := &Engine{
		rng:     rng,
		params:  params,
		point:   UniformPoint,
		current: initial.Clone(),
		next:    NewPopulation(initial.N, initial.T),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Population returns the current population. It is valid until the next
// Step.
func (e *Engine) Population() *Population { return e.current }

// Params returns the current parameters.
func (e *Engine) Params() Params { return e.params }

// SetParams changes the parameters of the following steps.
func (e *Engine) SetParams(p Params) {
	p.check(e.current.N)
	e.params = p
}

// Generation returns the number of completed steps.
func (e *Engine) Generation() int { return e.generation }

// Step breeds the next generation from the current population and its
// fitness, then makes it current. fitness[i] scores individual i.
func (e *Engine) Step(fitness []float32) *Population {
	cur, next := e.current, e.next
	if len(fitness) != cur.N {
		panic(fmt.Sprintf("evolve: %d fitness values for %d individuals", len(fitness), cur.N))
	}

	elite := Elite(fitness)
	copy(next.Individual(0), cur.Individual(elite))

	size := cur.IndividualSize()
	for k := 1; k < cur.N; k++ {
		a := Tournament(fitness, e.params.TournamentSize, e.rng)
		b := Tournament(fitness, e.params.TournamentSize, e.rng)
		child := next.Individual(k)
		Crossover(child, cur.Individual(a), cur.Individual(b), e.point(e.rng, size))
		Mutate(child, k, cur.N, e.params.MutationRate, e.rng)
	}

	e.current, e.next = next, cur
	e.generation++
	logger().Debug("evolve: generation", "n", e.generation, "elite", elite, "fitness", fitness[elite])
	return e.current
}
