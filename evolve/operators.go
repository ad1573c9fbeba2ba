// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evolve

import (
	"math/rand/v2"

	"github.com/chewxy/math32"
)

// Elite returns the index of the greatest fitness. Ties go to the later
// index.
func Elite(fitness []float32) int {
	best := 0
	for i, f := range fitness {
		if f >= fitness[best] {
			best = i
		}
	}
	return best
}

// Tournament samples size indices uniformly from the population with
// replacement and returns the fittest. Ties go to the later sample.
func Tournament(fitness []float32, size int, rng *rand.Rand) int {
	winner := rng.IntN(len(fitness))
	for i := 1; i < size; i++ {
		c := rng.IntN(len(fitness))
		if fitness[c] >= fitness[winner] {
			winner = c
		}
	}
	return winner
}

// CrossoverPoint picks the cut of a one-point crossover over size genes.
// Genes before the cut come from the first parent.
type CrossoverPoint func(rng *rand.Rand, size int) int

// UniformPoint draws the cut uniformly from [0, size-1].
func UniformPoint(rng *rand.Rand, size int) int { return rng.IntN(size) }

// FixedPoint always cuts at p. It consumes no randomness.
func FixedPoint(p int) CrossoverPoint {
	return func(*rand.Rand, int) int { return p }
}

// Crossover writes the one-point crossover of a and b at point into dst:
// genes [0, point) from a, the rest from b.
func Crossover(dst, a, b []float32, point int) {
	point = min(max(point, 0), len(dst))
	copy(dst[:point], a[:point])
	copy(dst[point:], b[point:])
}

// Band returns the x-position range [lo, hi) of individual k of n.
func Band(k, n int) (lo, hi float32) {
	return -1 + 2*float32(k)/float32(n), -1 + 2*float32(k+1)/float32(n)
}

// Mutate resamples each gene of individual k of n with probability rate.
// x positions are drawn from the band of k, y positions from [-1,1] and
// color channels from [0,1].
func Mutate(genes []float32, k, n int, rate float64, rng *rand.Rand) {
	lo, hi := Band(k, n)
	for g := range genes {
		if rng.Float64() >= rate {
			continue
		}
		switch g % VertexFloats {
		case 0:
			x := float32((rng.Float64()+float64(k))/float64(n)*2 - 1)
			// Rounding to float32 may land on the upper bound.
			genes[g] = min(max(x, lo), math32.Nextafter(hi, lo))
		case 1:
			genes[g] = rng.Float32()*2 - 1
		default:
			genes[g] = rng.Float32()
		}
	}
}
