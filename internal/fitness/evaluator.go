// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fitness

import (
	_ "embed"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/evotri/gpu"
	"github.com/gogpu/evotri/internal/render"
)

const (
	atlasUnit     = 0
	referenceUnit = 1
)

//go:embed shaders/difference.wgsl
var differenceWGSL string

var differenceShader = gpu.ShaderSource{
	Label: "difference",
	WGSL:  differenceWGSL,
	Vertex: func(in *gpu.VertexInput) gpu.VertexOutput {
		x := float32((in.Index<<1)&2)*2 - 1
		y := float32(in.Index&2)*2 - 1
		return gpu.VertexOutput{Position: mgl32.Vec4{x, y, 0, 1}}
	},
	Fragment: differenceFragment,
}

func differenceFragment(in *gpu.FragmentInput) mgl32.Vec4 {
	r := int(in.Uniforms.Int("resolution"))
	rx := in.X % r
	var sum mgl32.Vec3
	for y := 0; y < r; y++ {
		a := in.Textures.Load(atlasUnit, in.X, in.Y*r+y).Vec3()
		b := in.Textures.Load(referenceUnit, rx, y).Vec3()
		d := a.Sub(b)
		sum = sum.Add(mgl32.Vec3{mgl32.Abs(d[0]), mgl32.Abs(d[1]), mgl32.Abs(d[2])})
	}
	avg := sum.Mul(1 / float32(r))
	return mgl32.Vec4{1 - avg[0], 1 - avg[1], 1 - avg[2], 1}
}

// Evaluator scores atlases against a reference image.
type Evaluator struct {
	m *gpu.Manager

	population int
	resolution int
	width      int // of the atlas and the difference image
	rows       int

	program   *gpu.Program
	reference *gpu.Texture
	diff      *gpu.Framebuffer
	uniforms  []gpu.UniformBinding
	pixels    []byte
}

// New creates the evaluator resources in a. reference must be
// resolution×resolution pixels.
func New(a *gpu.Arena, population, resolution int, reference image.Image) (*Evaluator, error) {
	if population <= 0 || resolution <= 0 {
		return nil, fmt.Errorf("fitness: invalid population %d or resolution %d", population, resolution)
	}
	if b := reference.Bounds(); b.Dx() != resolution || b.Dy() != resolution {
		return nil, fmt.Errorf("fitness: reference is %dx%d, want %dx%d", b.Dx(), b.Dy(), resolution, resolution)
	}
	e := &Evaluator{m: a.Manager(), population: population, resolution: resolution}
	e.width, _ = render.Size(population, resolution)
	_, e.rows = render.Grid(population)

	vs, err := a.CreateShader(differenceShader, gpu.StageVertex)
	if err != nil {
		return nil, err
	}
	fs, err := a.CreateShader(differenceShader, gpu.StageFragment)
	if err != nil {
		return nil, err
	}
	e.program, err = a.CreateProgram(gpu.ProgramDescriptor{
		Label:        "difference",
		Shaders:      []*gpu.Shader{vs, fs},
		Uniforms:     []gpu.UniformDecl{{Name: "resolution", Kind: gpu.UniformInt1}},
		TextureUnits: []int{atlasUnit, referenceUnit},
	})
	if err != nil {
		return nil, err
	}
	loc, err := e.m.Uniform(e.program, "resolution")
	if err != nil {
		return nil, err
	}
	e.uniforms = []gpu.UniformBinding{{Location: loc, Value: gpu.Int1{X: int32(resolution)}}} //nolint:gosec // validated positive

	e.reference, err = a.CreateTexture(gpu.TextureDescriptor{
		Label:     "reference",
		Width:     resolution,
		Height:    resolution,
		Format:    gpu.FormatRGBA8,
		MinFilter: gpu.FilterNearest,
		MagFilter: gpu.FilterNearest,
		Usage:     gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
		Pixels:    clone.AsRGBA(reference).Pix,
	})
	if err != nil {
		return nil, err
	}
	e.diff, err = a.CreateRenderTarget("difference", e.width, e.rows, gpu.FormatRGBA8)
	if err != nil {
		return nil, err
	}
	e.pixels = make([]byte, e.width*e.rows*4)
	return e, nil
}

// Evaluate runs the difference pass over atlas, reads the difference image
// back and reduces it. The result is ordered like the population.
func (e *Evaluator) Evaluate(atlas *gpu.Texture) ([]float32, error) {
	if atlas == nil {
		return nil, fmt.Errorf("fitness: nil atlas")
	}
	if atlas.Width() != e.width || atlas.Height() != e.rows*e.resolution {
		return nil, fmt.Errorf("fitness: atlas is %dx%d, want %dx%d",
			atlas.Width(), atlas.Height(), e.width, e.rows*e.resolution)
	}
	err := e.m.Draw(gpu.DrawCall{
		Label:       "difference",
		Program:     e.program,
		Vertices:    3,
		Framebuffer: e.diff,
		Textures: []gpu.TextureBinding{
			{Unit: atlasUnit, Texture: atlas},
			{Unit: referenceUnit, Texture: e.reference},
		},
		Uniforms: e.uniforms,
	})
	if err != nil {
		return nil, err
	}
	if err := e.m.ReadPixelsInto(e.diff, e.diff.Bounds(), e.pixels); err != nil {
		return nil, err
	}
	return Reduce(e.pixels, e.width, e.population, e.resolution), nil
}

// DifferenceImage returns a copy of the last difference image read back.
func (e *Evaluator) DifferenceImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, e.width, e.rows))
	copy(img.Pix, e.pixels)
	return img
}
