// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "github.com/go-gl/mathgl/mgl32"

// VertexInput is the per-vertex input of a VertexKernel.
type VertexInput struct {
	// Index is the vertex index within the draw.
	Index int

	// Attributes holds the vertex attributes by location. Missing
	// components default to (0, 0, 0, 1).
	Attributes [MaxAttributes]mgl32.Vec4

	Uniforms *Uniforms
}

// VertexOutput is the result of a VertexKernel.
type VertexOutput struct {
	// Position is the clip-space position.
	Position mgl32.Vec4

	// Varying is interpolated across the primitive.
	Varying mgl32.Vec4
}

// VertexKernel is the CPU equivalent of a WGSL vertex entry point.
type VertexKernel func(in *VertexInput) VertexOutput

// TextureLoader reads texels of the textures bound to a draw.
type TextureLoader interface {
	// Load returns the texel at (x, y) of the given unit as normalized RGBA.
	// Out-of-range coordinates are clamped.
	Load(unit, x, y int) mgl32.Vec4

	// Size returns the dimensions of the texture bound to unit.
	Size(unit int) (width, height int)
}

// FragmentInput is the per-fragment input of a FragmentKernel.
type FragmentInput struct {
	// X and Y are the framebuffer pixel coordinates, top-left origin.
	X, Y int

	Varying  mgl32.Vec4
	Uniforms *Uniforms
	Textures TextureLoader
}

// FragmentKernel is the CPU equivalent of a WGSL fragment entry point.
// It returns straight-alpha RGBA in [0,1].
type FragmentKernel func(in *FragmentInput) mgl32.Vec4
