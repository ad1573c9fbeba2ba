// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package evolve implements the genetic algorithm over triangle genomes.
//
// An individual is T triangles of three (x, y, r, g, b, a) vertices,
// flattened to 18·T genes. A generation keeps the fittest individual in
// slot 0 and fills every other slot k with the one-point crossover of two
// tournament winners, mutated gene by gene. Mutated x positions of slot k
// stay in the band [-1+2k/N, -1+2(k+1)/N).
//
// All randomness comes from the *rand.Rand given to [NewEngine]; a seeded
// source makes runs reproducible.
//
// Crossover cuts the flat gene slice, not triangle boundaries. A cut may
// split a vertex between its position and its color.
package evolve
