// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package evolve

import (
	"fmt"
	"math/rand/v2"
)

const (
	// VertexFloats is the number of genes per vertex: x, y, r, g, b, a.
	VertexFloats = 6

	// TriangleFloats is the number of genes per triangle.
	TriangleFloats = 3 * VertexFloats
)

// Population is N individuals of T triangles each, stored individual-major
// in one flat gene slice of length N*T*18.
type Population struct {
	N, T  int
	Genes []float32
}

// NewPopulation returns a population with all genes zero.
func NewPopulation(n, t int) *Population {
	if n <= 0 || t <= 0 {
		panic(fmt.Sprintf("evolve: invalid population size %d×%d", n, t))
	}
	return &Population{N: n, T: t, Genes: make([]float32, n*t*TriangleFloats)}
}

// RandomPopulation returns a population with every gene uniform in [0,1).
func RandomPopulation(n, t int, rng *rand.Rand) *Population {
	p := NewPopulation(n, t)
	for i := range p.Genes {
		p.Genes[i] = rng.Float32()
	}
	return p
}

// IndividualSize returns the number of genes per individual.
func (p *Population) IndividualSize() int { return p.T * TriangleFloats }

// Individual returns the genes of individual i. The slice aliases the
// population.
func (p *Population) Individual(i int) []float32 {
	n := p.IndividualSize()
	return p.Genes[i*n : (i+1)*n : (i+1)*n]
}

// CopyFrom overwrites p with the genes of src, which must have the same
// shape.
func (p *Population) CopyFrom(src *Population) {
	if p.N != src.N || p.T != src.T {
		panic(fmt.Sprintf("evolve: copy %d×%d population into %d×%d", src.N, src.T, p.N, p.T))
	}
	copy(p.Genes, src.Genes)
}

// Clone returns a deep copy of p.
func (p *Population) Clone() *Population {
	c := NewPopulation(p.N, p.T)
	c.CopyFrom(p)
	return c
}
