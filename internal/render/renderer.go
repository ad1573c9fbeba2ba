// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"image"

	"github.com/gogpu/evotri/gpu"
)

// Config sizes a Renderer.
type Config struct {
	Population int
	Triangles  int
	Resolution int

	// Blend selects how overlapping triangles combine. BlendNone lets the
	// later triangle overwrite.
	Blend gpu.BlendMode
}

// Floats returns the length of the population vertex data.
func (c Config) Floats() int { return c.Population * c.Triangles * TriangleFloats }

// Renderer draws a whole population into the atlas with one draw call.
type Renderer struct {
	m   *gpu.Manager
	cfg Config

	columns, rows int

	program  *gpu.Program
	vertices *gpu.Buffer
	layout   *gpu.VertexArray
	atlas    *gpu.Framebuffer
	uniforms []gpu.UniformBinding
}

// New creates the renderer resources in a. They are released with the
// arena.
func New(a *gpu.Arena, cfg Config) (*Renderer, error) {
	if cfg.Population <= 0 || cfg.Triangles <= 0 || cfg.Resolution <= 0 {
		return nil, fmt.Errorf("render: invalid config %+v", cfg)
	}
	r := &Renderer{m: a.Manager(), cfg: cfg}
	r.columns, r.rows = Grid(cfg.Population)

	vs, err := a.CreateShader(atlasShader, gpu.StageVertex)
	if err != nil {
		return nil, err
	}
	fs, err := a.CreateShader(atlasShader, gpu.StageFragment)
	if err != nil {
		return nil, err
	}
	r.program, err = a.CreateProgram(gpu.ProgramDescriptor{
		Label:    "atlas",
		Shaders:  []*gpu.Shader{vs, fs},
		Uniforms: atlasUniforms,
	})
	if err != nil {
		return nil, err
	}
	values := []gpu.Value{
		gpu.Int1{X: int32(cfg.Triangles)},  //nolint:gosec // validated positive
		gpu.Int1{X: int32(cfg.Population)}, //nolint:gosec // validated positive
		gpu.Int1{X: int32(r.columns)},      //nolint:gosec // at most 64
		gpu.Int1{X: int32(r.rows)},         //nolint:gosec // validated positive
	}
	for i, decl := range atlasUniforms {
		loc, err := r.m.Uniform(r.program, decl.Name)
		if err != nil {
			return nil, err
		}
		r.uniforms = append(r.uniforms, gpu.UniformBinding{Location: loc, Value: values[i]})
	}

	r.vertices, err = a.CreateBuffer(gpu.BufferDescriptor{
		Label: "population",
		Size:  cfg.Floats() * 4,
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
		Hint:  gpu.HintDynamic,
	})
	if err != nil {
		return nil, err
	}
	r.layout, err = a.CreateVertexArray(gpu.VertexArrayDescriptor{
		Label:  "population",
		Buffer: r.vertices,
		Stride: vertexStride,
		Attributes: []gpu.VertexAttribute{
			{Location: 0, Components: 2, Offset: 0},
			{Location: 1, Components: 4, Offset: 8},
		},
	})
	if err != nil {
		return nil, err
	}

	w, h := Size(cfg.Population, cfg.Resolution)
	r.atlas, err = a.CreateRenderTarget("atlas", w, h, gpu.FormatRGBA8)
	if err != nil {
		return nil, err
	}
	gpu.Logger().Debug("render: atlas created", "width", w, "height", h, "columns", r.columns, "rows", r.rows)
	return r, nil
}

// Config returns the configuration the renderer was created with.
func (r *Renderer) Config() Config { return r.cfg }

// Atlas returns the framebuffer the population is rendered into.
func (r *Renderer) Atlas() *gpu.Framebuffer { return r.atlas }

// Render uploads the population and draws it into the cleared atlas.
func (r *Renderer) Render(population []float32) error {
	if len(population) != r.cfg.Floats() {
		return fmt.Errorf("render: population has %d floats, want %d", len(population), r.cfg.Floats())
	}
	if err := r.m.UpdateBufferFloats(r.vertices, 0, population); err != nil {
		return err
	}
	return r.m.Draw(gpu.DrawCall{
		Label:       "atlas",
		Program:     r.program,
		VertexArray: r.layout,
		Vertices:    r.cfg.Population * r.cfg.Triangles * 3,
		Framebuffer: r.atlas,
		Clear:       &gpu.ClearSpec{Color: &gpu.Black},
		Uniforms:    r.uniforms,
		Blend:       r.cfg.Blend,
	})
}

// Snapshot reads back the atlas cell of individual index as it was last
// rendered.
func (r *Renderer) Snapshot(index int) (*image.RGBA, error) {
	if index < 0 || index >= r.cfg.Population {
		return nil, fmt.Errorf("render: individual %d out of range [0,%d)", index, r.cfg.Population)
	}
	img := image.NewRGBA(image.Rect(0, 0, r.cfg.Resolution, r.cfg.Resolution))
	if err := r.m.ReadPixelsInto(r.atlas, CellRect(index, r.cfg.Resolution), img.Pix); err != nil {
		return nil, err
	}
	return img, nil
}
