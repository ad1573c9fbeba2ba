// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	_ "embed"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/evotri/gpu"
)

// Columns is the maximum number of cells in one atlas row.
const Columns = 64

const (
	// VertexFloats is the number of floats per vertex: x, y, r, g, b, a.
	VertexFloats = 6

	// TriangleFloats is the number of floats per triangle.
	TriangleFloats = 3 * VertexFloats

	vertexStride = VertexFloats * 4
)

//go:embed shaders/atlas.wgsl
var atlasWGSL string

// Grid returns the number of columns and rows of the atlas of a population.
func Grid(population int) (columns, rows int) {
	return min(population, Columns), (population + Columns - 1) / Columns
}

// Size returns the atlas size in pixels for cells of resolution×resolution.
func Size(population, resolution int) (width, height int) {
	c, r := Grid(population)
	return c * resolution, r * resolution
}

// Cell returns the atlas cell of individual index.
func Cell(index int) (column, row int) {
	return index % Columns, index / Columns
}

// CellRect returns the pixel rectangle of individual index.
func CellRect(index, resolution int) gpu.Rect {
	c, r := Cell(index)
	return gpu.Rect{X: c * resolution, Y: r * resolution, Width: resolution, Height: resolution}
}

// atlasShader is the population shader. Its CPU kernels mirror the WGSL
// entry points for the software device.
var atlasShader = gpu.ShaderSource{
	Label:    "atlas",
	WGSL:     atlasWGSL,
	Vertex:   atlasVertex,
	Fragment: atlasFragment,
}

var atlasUniforms = []gpu.UniformDecl{
	{Name: "triangles", Kind: gpu.UniformInt1},
	{Name: "population", Kind: gpu.UniformInt1},
	{Name: "columns", Kind: gpu.UniformInt1},
	{Name: "rows", Kind: gpu.UniformInt1},
}

// cellPosition maps a local [-1,1] coordinate of individual index into clip
// space.
func cellPosition(local mgl32.Vec2, index, columns, rows int) mgl32.Vec4 {
	col, row := Cell(index)
	u := ((local.X()+1)*0.5 + float32(col)) / float32(columns)
	v := ((1-local.Y())*0.5 + float32(row)) / float32(rows)
	return mgl32.Vec4{u*2 - 1, 1 - v*2, 0, 1}
}

func atlasVertex(in *gpu.VertexInput) gpu.VertexOutput {
	u := in.Uniforms
	index := in.Index / int(u.Int("triangles")*3)
	pos := in.Attributes[0]
	return gpu.VertexOutput{
		Position: cellPosition(mgl32.Vec2{pos[0], pos[1]}, index, int(u.Int("columns")), int(u.Int("rows"))),
		Varying:  in.Attributes[1],
	}
}

func atlasFragment(in *gpu.FragmentInput) mgl32.Vec4 { return in.Varying }
