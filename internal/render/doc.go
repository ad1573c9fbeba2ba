// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render draws a population of triangle individuals into an atlas.
//
// Individual i occupies the resolution×resolution cell at column i mod 64,
// row i/64. The cell is computed in the vertex stage from the vertex index,
// so the whole population is one draw call over one vertex buffer.
package render
