// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/evotri/gpu"
)

// passthrough treats attribute 0 as a clip-space xy and attribute 1 as the
// color.
var passthrough = gpu.ShaderSource{
	Label: "passthrough",
	Vertex: func(in *gpu.VertexInput) gpu.VertexOutput {
		p := in.Attributes[0]
		return gpu.VertexOutput{Position: mgl32.Vec4{p[0], p[1], 0, 1}, Varying: in.Attributes[1]}
	},
	Fragment: func(in *gpu.FragmentInput) mgl32.Vec4 { return in.Varying },
}

type fixture struct {
	m     *gpu.Manager
	dev   *Device
	arena *gpu.Arena
	prog  *gpu.Program
	fb    *gpu.Framebuffer
}

func newFixture(t *testing.T, w, h int) *fixture {
	t.Helper()
	dev := New()
	m := gpu.NewManager(dev)
	a := gpu.NewArena(m)
	t.Cleanup(func() {
		a.Release()
		m.Close()
	})
	vs, err := a.CreateShader(passthrough, gpu.StageVertex)
	require.NoError(t, err)
	fs, err := a.CreateShader(passthrough, gpu.StageFragment)
	require.NoError(t, err)
	prog, err := a.CreateProgram(gpu.ProgramDescriptor{Label: "passthrough", Shaders: []*gpu.Shader{vs, fs}})
	require.NoError(t, err)
	fb, err := a.CreateRenderTarget("target", w, h, gpu.FormatRGBA8)
	require.NoError(t, err)
	return &fixture{m: m, dev: dev, arena: a, prog: prog, fb: fb}
}

// vertices builds a vertex array of (x, y, r, g, b, a) vertices.
func (f *fixture) vertices(t *testing.T, verts ...[6]float32) *gpu.VertexArray {
	t.Helper()
	flat := make([]float32, 0, 6*len(verts))
	for _, v := range verts {
		flat = append(flat, v[:]...)
	}
	buf, err := f.arena.CreateBuffer(gpu.BufferDescriptor{
		Label: "vertices",
		Size:  4 * len(flat),
		Usage: gpu.BufferUsageVertex | gpu.BufferUsageCopyDst,
		Hint:  gpu.HintStatic,
	})
	require.NoError(t, err)
	require.NoError(t, f.m.UpdateBufferFloats(buf, 0, flat))
	va, err := f.arena.CreateVertexArray(gpu.VertexArrayDescriptor{
		Label:  "vertices",
		Buffer: buf,
		Stride: 24,
		Attributes: []gpu.VertexAttribute{
			{Location: 0, Components: 2, Offset: 0},
			{Location: 1, Components: 4, Offset: 8},
		},
	})
	require.NoError(t, err)
	return va
}

func (f *fixture) pixel(t *testing.T, x, y int) [4]byte {
	t.Helper()
	px, err := f.m.ReadPixels(f.fb, gpu.Rect{X: x, Y: y, Width: 1, Height: 1})
	require.NoError(t, err)
	return [4]byte{px[0], px[1], px[2], px[3]}
}

func quad(r, g, b, a float32) [][6]float32 {
	return [][6]float32{
		{-1, -1, r, g, b, a}, {1, -1, r, g, b, a}, {1, 1, r, g, b, a},
		{-1, -1, r, g, b, a}, {1, 1, r, g, b, a}, {-1, 1, r, g, b, a},
	}
}

func TestClear(t *testing.T) {
	f := newFixture(t, 4, 4)
	err := f.m.Draw(gpu.DrawCall{
		Program:     f.prog,
		Framebuffer: f.fb,
		Clear:       &gpu.ClearSpec{Color: &gpu.Color{R: 1, G: 0.5, A: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, [4]byte{255, 128, 0, 255}, f.pixel(t, 3, 3))
}

func TestFullScreenQuadCoversEveryPixelOnce(t *testing.T) {
	f := newFixture(t, 7, 5)
	va := f.vertices(t, quad(1, 1, 1, 0.5)...)

	err := f.m.Draw(gpu.DrawCall{
		Program:     f.prog,
		VertexArray: va,
		Vertices:    6,
		Framebuffer: f.fb,
		Clear:       &gpu.ClearSpec{Color: &gpu.Black},
		Blend:       gpu.BlendAlpha,
	})
	require.NoError(t, err)

	px, err := f.m.ReadPixels(f.fb, f.fb.Bounds())
	require.NoError(t, err)
	for i := 0; i < len(px); i += 4 {
		// One blend of white at half alpha over black. A pixel on the shared
		// diagonal drawn twice would come out at 191.
		require.Equal(t, byte(128), px[i], "pixel %d", i/4)
		require.Equal(t, byte(255), px[i+3], "pixel %d", i/4)
	}
}

func TestTriangleCoverage(t *testing.T) {
	f := newFixture(t, 4, 4)
	// Lower-left half in NDC, which is the bottom-left half of the image.
	va := f.vertices(t,
		[6]float32{-1, -1, 1, 0, 0, 1},
		[6]float32{1, -1, 1, 0, 0, 1},
		[6]float32{-1, 1, 1, 0, 0, 1},
	)
	err := f.m.Draw(gpu.DrawCall{
		Program:     f.prog,
		VertexArray: va,
		Vertices:    3,
		Framebuffer: f.fb,
		Clear:       &gpu.ClearSpec{Color: &gpu.Black},
	})
	require.NoError(t, err)

	assert.Equal(t, [4]byte{255, 0, 0, 255}, f.pixel(t, 0, 3), "bottom-left inside")
	assert.Equal(t, [4]byte{0, 0, 0, 255}, f.pixel(t, 3, 0), "top-right outside")
	// Centers on the hypotenuse belong to the other side: it is a right edge.
	assert.Equal(t, [4]byte{0, 0, 0, 255}, f.pixel(t, 0, 0))
	assert.Equal(t, [4]byte{0, 0, 0, 255}, f.pixel(t, 3, 3))
	assert.Equal(t, [4]byte{255, 0, 0, 255}, f.pixel(t, 2, 3))
}

func TestViewportPlacesOutput(t *testing.T) {
	f := newFixture(t, 8, 2)
	va := f.vertices(t, quad(0, 1, 0, 1)...)
	err := f.m.Draw(gpu.DrawCall{
		Program:     f.prog,
		VertexArray: va,
		Vertices:    6,
		Framebuffer: f.fb,
		Viewport:    gpu.Rect{X: 4, Y: 0, Width: 4, Height: 2},
		Clear:       &gpu.ClearSpec{Color: &gpu.Black},
	})
	require.NoError(t, err)
	assert.Equal(t, [4]byte{0, 0, 0, 255}, f.pixel(t, 3, 1))
	assert.Equal(t, [4]byte{0, 255, 0, 255}, f.pixel(t, 4, 1))
	assert.Equal(t, [4]byte{0, 255, 0, 255}, f.pixel(t, 7, 0))
}

func TestVaryingInterpolation(t *testing.T) {
	f := newFixture(t, 2, 1)
	// Left edge black, right edge white: the centers at x=0.5 and x=1.5
	// interpolate to 0.25 and 0.75.
	va := f.vertices(t,
		[6]float32{-1, -1, 0, 0, 0, 1}, [6]float32{1, -1, 1, 1, 1, 1}, [6]float32{1, 1, 1, 1, 1, 1},
		[6]float32{-1, -1, 0, 0, 0, 1}, [6]float32{1, 1, 1, 1, 1, 1}, [6]float32{-1, 1, 0, 0, 0, 1},
	)
	err := f.m.Draw(gpu.DrawCall{Program: f.prog, VertexArray: va, Vertices: 6, Framebuffer: f.fb})
	require.NoError(t, err)
	assert.Equal(t, byte(64), f.pixel(t, 0, 0)[0])
	assert.Equal(t, byte(191), f.pixel(t, 1, 0)[0])
}

func TestTextureLoad(t *testing.T) {
	dev := New()
	m := gpu.NewManager(dev)
	defer m.Close()
	a := gpu.NewArena(m)
	defer a.Release()

	copyShader := gpu.ShaderSource{
		Label: "copy",
		Vertex: func(in *gpu.VertexInput) gpu.VertexOutput {
			// Full-screen triangle from the vertex index alone.
			x := float32((in.Index<<1)&2)*2 - 1
			y := float32(in.Index&2)*2 - 1
			return gpu.VertexOutput{Position: mgl32.Vec4{x, y, 0, 1}}
		},
		Fragment: func(in *gpu.FragmentInput) mgl32.Vec4 {
			return in.Textures.Load(0, in.X, in.Y)
		},
	}
	vs, err := a.CreateShader(copyShader, gpu.StageVertex)
	require.NoError(t, err)
	fs, err := a.CreateShader(copyShader, gpu.StageFragment)
	require.NoError(t, err)
	prog, err := a.CreateProgram(gpu.ProgramDescriptor{Shaders: []*gpu.Shader{vs, fs}, TextureUnits: []int{0}})
	require.NoError(t, err)

	src := []byte{
		10, 20, 30, 255, 40, 50, 60, 255,
		70, 80, 90, 255, 100, 110, 120, 255,
	}
	tex, err := a.CreateTexture(gpu.TextureDescriptor{
		Label:  "src",
		Width:  2,
		Height: 2,
		Usage:  gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
		Pixels: src,
	})
	require.NoError(t, err)
	fb, err := a.CreateRenderTarget("dst", 2, 2, gpu.FormatRGBA8)
	require.NoError(t, err)

	err = m.Draw(gpu.DrawCall{
		Program:     prog,
		Vertices:    3,
		Framebuffer: fb,
		Textures:    []gpu.TextureBinding{{Unit: 0, Texture: tex}},
	})
	require.NoError(t, err)
	got, err := m.ReadPixels(fb, fb.Bounds())
	require.NoError(t, err)
	assert.Equal(t, src, got)
}

func TestMissingKernel(t *testing.T) {
	m := gpu.NewManager(New())
	defer m.Close()
	_, err := m.CreateShader(gpu.ShaderSource{Label: "wgsl only", WGSL: "@vertex fn vs_main() {}"}, gpu.StageVertex)
	var ce *gpu.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Log, "kernel")
}

func TestReleaseDestroysObjects(t *testing.T) {
	f := newFixture(t, 2, 2)
	assert.Positive(t, f.dev.Live())
	f.arena.Release()
	assert.Equal(t, 0, f.dev.Live())
	assert.Equal(t, 0, f.m.Live())
}

func TestUnorm8(t *testing.T) {
	tests := []struct {
		in   float32
		want uint8
	}{
		{-1, 0}, {0, 0}, {0.5, 128}, {1.0 / 255, 1}, {0.998, 254}, {1, 255}, {2, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, unorm8(tt.in), "unorm8(%v)", tt.in)
	}
}
