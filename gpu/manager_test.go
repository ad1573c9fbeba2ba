// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) (*Manager, *fakeDevice) {
	t.Helper()
	dev := &fakeDevice{}
	m := NewManager(dev)
	t.Cleanup(m.Close)
	return m, dev
}

func newTestProgram(t *testing.T, m *Manager, decls []UniformDecl, units []int) *Program {
	t.Helper()
	src := ShaderSource{Label: "test", WGSL: "// test"}
	vs, err := m.CreateShader(src, StageVertex)
	require.NoError(t, err)
	fs, err := m.CreateShader(src, StageFragment)
	require.NoError(t, err)
	p, err := m.CreateProgram(ProgramDescriptor{
		Label:        "test",
		Shaders:      []*Shader{vs, fs},
		Uniforms:     decls,
		TextureUnits: units,
	})
	require.NoError(t, err)
	return p
}

func newTestTarget(t *testing.T, m *Manager, w, h int) *Framebuffer {
	t.Helper()
	fb, err := NewArena(m).CreateRenderTarget("target", w, h, FormatRGBA8)
	require.NoError(t, err)
	return fb
}

func TestUniformLayout(t *testing.T) {
	tests := []struct {
		name    string
		decls   []UniformDecl
		offsets []int
		size    int
	}{
		{"empty", nil, []int{}, 0},
		{"scalars", []UniformDecl{
			{"triangles", UniformInt1},
			{"population", UniformInt1},
			{"columns", UniformInt1},
			{"rows", UniformInt1},
		}, []int{0, 4, 8, 12}, 16},
		{"mixed", []UniformDecl{
			{"a", UniformFloat1},
			{"b", UniformFloat2},
			{"c", UniformFloat3},
			{"d", UniformInt1},
			{"e", UniformInt4},
		}, []int{0, 8, 16, 28, 32}, 48},
		{"single scalar padded", []UniformDecl{{"r", UniformInt1}}, []int{0}, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewUniformLayout(tt.decls)
			assert.Equal(t, tt.offsets, l.Offsets)
			assert.Equal(t, tt.size, l.Size)
		})
	}
}

func TestUniformsBytes(t *testing.T) {
	u := newUniforms([]UniformDecl{{"n", UniformInt1}, {"v", UniformFloat2}})
	require.NoError(t, u.set(0, Int1{X: -3}))
	require.NoError(t, u.set(1, Float2{X: 0.5, Y: 2}))

	b := u.Bytes()
	require.Len(t, b, 16)
	assert.Equal(t, int32(-3), int32(binary.LittleEndian.Uint32(b[0:])))
	assert.Equal(t, float32(0.5), math.Float32frombits(binary.LittleEndian.Uint32(b[8:])))
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(b[12:])))

	assert.Equal(t, int32(-3), u.Int("n"))
	assert.Equal(t, float32(0.5), u.Vec2("v").X())
	assert.Equal(t, int32(0), u.Int("missing"))

	err := u.set(0, Float1{X: 1})
	assert.Error(t, err, "kind mismatch must be rejected")
	assert.Error(t, u.set(0, nil))
}

func TestCreateShader(t *testing.T) {
	m, dev := newTestManager(t)

	_, err := m.CreateShader(ShaderSource{Label: "empty"}, StageVertex)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "empty", ce.Label)

	dev.failShader = errFake
	_, err = m.CreateShader(ShaderSource{Label: "broken", WGSL: "fn"}, StageFragment)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, StageFragment, ce.Stage)
	assert.ErrorIs(t, err, errFake)
	assert.Contains(t, ce.Log, errFake.Error())

	dev.failShader = &CompileError{Label: "native", Log: "line 3: unexpected token"}
	_, err = m.CreateShader(ShaderSource{Label: "broken", WGSL: "fn"}, StageFragment)
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "line 3: unexpected token", ce.Log)
}

func TestCreateProgramLinkErrors(t *testing.T) {
	m, dev := newTestManager(t)
	src := ShaderSource{Label: "s", WGSL: "// s"}
	vs, err := m.CreateShader(src, StageVertex)
	require.NoError(t, err)
	fs, err := m.CreateShader(src, StageFragment)
	require.NoError(t, err)
	vs2, err := m.CreateShader(src, StageVertex)
	require.NoError(t, err)

	tests := []struct {
		name string
		desc ProgramDescriptor
	}{
		{"no fragment", ProgramDescriptor{Shaders: []*Shader{vs}}},
		{"two vertex", ProgramDescriptor{Shaders: []*Shader{vs, vs2, fs}}},
		{"duplicate uniform", ProgramDescriptor{
			Shaders:  []*Shader{vs, fs},
			Uniforms: []UniformDecl{{"a", UniformInt1}, {"a", UniformFloat1}},
		}},
		{"duplicate unit", ProgramDescriptor{Shaders: []*Shader{vs, fs}, TextureUnits: []int{0, 0}}},
		{"nil shader", ProgramDescriptor{Shaders: []*Shader{vs, nil}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateProgram(tt.desc)
			var le *LinkError
			assert.ErrorAs(t, err, &le)
		})
	}

	t.Run("released shader", func(t *testing.T) {
		vs2.Release()
		_, err := m.CreateProgram(ProgramDescriptor{Shaders: []*Shader{vs2, fs}})
		var le *LinkError
		require.ErrorAs(t, err, &le)
		assert.ErrorIs(t, err, ErrReleased)
	})

	t.Run("device failure", func(t *testing.T) {
		dev.failProgram = errFake
		defer func() { dev.failProgram = nil }()
		_, err := m.CreateProgram(ProgramDescriptor{Label: "p", Shaders: []*Shader{vs, fs}})
		var le *LinkError
		require.ErrorAs(t, err, &le)
		assert.ErrorIs(t, err, errFake)
	})
}

func TestUniformLookup(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestProgram(t, m, []UniformDecl{{"triangles", UniformInt1}}, nil)

	loc, err := m.Uniform(p, "triangles")
	require.NoError(t, err)
	assert.Equal(t, UniformInt1, loc.Kind())

	_, err = m.Uniform(p, "population")
	var re *ResourceError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, KindUniform, re.Kind)
	assert.Equal(t, "population", re.Label)
}

func TestCreateBufferValidation(t *testing.T) {
	m, dev := newTestManager(t)
	tests := []struct {
		name string
		desc BufferDescriptor
	}{
		{"zero size", BufferDescriptor{Usage: BufferUsageVertex}},
		{"unaligned", BufferDescriptor{Size: 6, Usage: BufferUsageVertex}},
		{"data too long", BufferDescriptor{Size: 4, Usage: BufferUsageVertex, Data: make([]byte, 8)}},
		{"no usage", BufferDescriptor{Size: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.CreateBuffer(tt.desc)
			var re *ResourceError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, KindBuffer, re.Kind)
		})
	}

	dev.failBuffer = errFake
	_, err := m.CreateBuffer(BufferDescriptor{Label: "b", Size: 4, Usage: BufferUsageVertex})
	assert.ErrorIs(t, err, errFake)
}

func TestCreateFramebufferValidation(t *testing.T) {
	m, _ := newTestManager(t)
	a := NewArena(m)
	defer a.Release()

	small, err := a.CreateTexture(TextureDescriptor{Label: "small", Width: 2, Height: 2, Usage: TextureUsageRenderTarget})
	require.NoError(t, err)
	big, err := a.CreateTexture(TextureDescriptor{Label: "big", Width: 4, Height: 4, Usage: TextureUsageRenderTarget})
	require.NoError(t, err)
	sampled, err := a.CreateTexture(TextureDescriptor{Label: "sampled", Width: 2, Height: 2, Usage: TextureUsageSampled})
	require.NoError(t, err)
	depth, err := a.CreateTexture(TextureDescriptor{
		Label: "depth", Width: 2, Height: 2, Format: FormatDepth24Stencil8, Usage: TextureUsageRenderTarget,
	})
	require.NoError(t, err)

	_, err = a.CreateFramebuffer(FramebufferDescriptor{Label: "ok", Color: []*Texture{small}, Depth: depth})
	require.NoError(t, err)

	bad := []FramebufferDescriptor{
		{Label: "none"},
		{Label: "mismatch", Color: []*Texture{small, big}},
		{Label: "not target", Color: []*Texture{sampled}},
		{Label: "depth as color", Color: []*Texture{depth}},
		{Label: "color as depth", Color: []*Texture{small}, Depth: small},
	}
	for _, desc := range bad {
		_, err := a.CreateFramebuffer(desc)
		var re *ResourceError
		assert.ErrorAs(t, err, &re, desc.Label)
	}
}

func TestReleasedHandles(t *testing.T) {
	m, dev := newTestManager(t)
	buf, err := m.CreateBuffer(BufferDescriptor{Label: "b", Size: 16, Usage: BufferUsageVertex | BufferUsageCopyDst})
	require.NoError(t, err)
	assert.Equal(t, 1, m.Live())

	require.NoError(t, m.UpdateBufferFloats(buf, 1, []float32{1, 2}))

	buf.Release()
	buf.Release()
	assert.True(t, buf.Released())
	assert.Equal(t, []string{"b"}, dev.destroyed, "release must destroy exactly once")
	assert.Equal(t, 0, m.Live())

	err = m.UpdateBuffer(buf, 0, make([]byte, 4))
	assert.ErrorIs(t, err, ErrReleased)
}

func TestUpdateBufferBounds(t *testing.T) {
	m, _ := newTestManager(t)
	buf, err := m.CreateBuffer(BufferDescriptor{Label: "b", Size: 16, Usage: BufferUsageVertex | BufferUsageCopyDst})
	require.NoError(t, err)

	assert.NoError(t, m.UpdateBuffer(buf, 12, make([]byte, 4)))
	assert.Error(t, m.UpdateBuffer(buf, 12, make([]byte, 8)))
	assert.Error(t, m.UpdateBuffer(buf, 2, make([]byte, 4)))
	assert.Error(t, m.UpdateBufferFloats(buf, 3, []float32{1, 2}))

	ro, err := m.CreateBuffer(BufferDescriptor{Label: "ro", Size: 16, Usage: BufferUsageVertex})
	require.NoError(t, err)
	assert.Error(t, m.UpdateBuffer(ro, 0, make([]byte, 4)))
}

func TestArenaReleasesInReverseOrder(t *testing.T) {
	m, dev := newTestManager(t)
	a := NewArena(m)
	for _, label := range []string{"first", "second", "third"} {
		_, err := a.CreateBuffer(BufferDescriptor{Label: label, Size: 4, Usage: BufferUsageUniform})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, a.Len())

	a.Release()
	a.Release()
	assert.Equal(t, []string{"third", "second", "first"}, dev.destroyed)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, 0, m.Live())
}

func TestManagerClose(t *testing.T) {
	dev := &fakeDevice{}
	m := NewManager(dev)
	buf, err := m.CreateBuffer(BufferDescriptor{Label: "b", Size: 4, Usage: BufferUsageUniform | BufferUsageCopyDst})
	require.NoError(t, err)

	m.Close()
	m.Close()
	assert.True(t, dev.closed)

	_, err = m.CreateBuffer(BufferDescriptor{Label: "c", Size: 4, Usage: BufferUsageUniform})
	assert.ErrorIs(t, err, ErrReleased)
	assert.ErrorIs(t, m.UpdateBuffer(buf, 0, make([]byte, 4)), ErrReleased)

	buf.Release()
	assert.Empty(t, dev.destroyed, "closed devices must not see Destroy")
}

func TestClaim(t *testing.T) {
	m, _ := newTestManager(t)
	require.NoError(t, m.Claim("run-a"))
	require.NoError(t, m.Claim("run-a"))
	assert.ErrorIs(t, m.Claim("run-b"), ErrDeviceInUse)

	m.Unclaim("run-b")
	assert.ErrorIs(t, m.Claim("run-b"), ErrDeviceInUse)

	m.Unclaim("run-a")
	assert.NoError(t, m.Claim("run-b"))
}

func TestDraw(t *testing.T) {
	m, dev := newTestManager(t)
	p := newTestProgram(t, m, []UniformDecl{{"n", UniformInt1}, {"scale", UniformFloat2}}, []int{0})
	fb := newTestTarget(t, m, 8, 4)
	src := newTestTarget(t, m, 8, 4)
	n, err := m.Uniform(p, "n")
	require.NoError(t, err)
	scale, err := m.Uniform(p, "scale")
	require.NoError(t, err)

	err = m.Draw(DrawCall{
		Label:       "first",
		Program:     p,
		Vertices:    3,
		Framebuffer: fb,
		Clear:       &ClearSpec{Color: &Black},
		Textures:    []TextureBinding{{Unit: 0, Texture: src.Color(0)}},
		Uniforms: []UniformBinding{
			{Location: n, Value: Int1{X: 7}},
			{Location: scale, Value: Float2{X: 2, Y: 3}},
		},
	})
	require.NoError(t, err)

	err = m.Draw(DrawCall{
		Label:       "second",
		Program:     p,
		Vertices:    6,
		Framebuffer: fb,
		Viewport:    Rect{X: 4, Width: 4, Height: 4},
		Textures:    []TextureBinding{{Unit: 0, Texture: src.Color(0)}},
		Uniforms:    []UniformBinding{{Location: n, Value: Int1{X: 9}}},
	})
	require.NoError(t, err)

	require.Len(t, dev.draws, 2)
	first, second := dev.draws[0], dev.draws[1]
	assert.Equal(t, Rect{Width: 8, Height: 4}, first.Viewport, "zero viewport covers the target")
	assert.Equal(t, int32(7), first.Uniforms.Int("n"), "commands snapshot uniforms")
	assert.Equal(t, int32(9), second.Uniforms.Int("n"))
	assert.Equal(t, float32(3), second.Uniforms.Vec2("scale").Y(), "uniforms persist across draws")
	assert.Equal(t, Rect{X: 4, Width: 4, Height: 4}, second.Viewport)
}

func TestDrawValidation(t *testing.T) {
	m, _ := newTestManager(t)
	p := newTestProgram(t, m, []UniformDecl{{"n", UniformInt1}}, []int{0})
	other := newTestProgram(t, m, []UniformDecl{{"n", UniformInt1}}, nil)
	fb := newTestTarget(t, m, 4, 4)
	src := newTestTarget(t, m, 4, 4)
	n, err := m.Uniform(p, "n")
	require.NoError(t, err)
	otherN, err := m.Uniform(other, "n")
	require.NoError(t, err)

	buf, err := m.CreateBuffer(BufferDescriptor{Label: "vb", Size: 24 * 3, Usage: BufferUsageVertex})
	require.NoError(t, err)
	va, err := m.CreateVertexArray(VertexArrayDescriptor{
		Label:  "va",
		Buffer: buf,
		Stride: 24,
		Attributes: []VertexAttribute{
			{Location: 0, Components: 2, Offset: 0},
			{Location: 1, Components: 4, Offset: 8},
		},
	})
	require.NoError(t, err)

	valid := func() DrawCall {
		return DrawCall{
			Program:     p,
			VertexArray: va,
			Vertices:    3,
			Framebuffer: fb,
			Textures:    []TextureBinding{{Unit: 0, Texture: src.Color(0)}},
		}
	}
	require.NoError(t, m.Draw(valid()))

	tests := []struct {
		name   string
		modify func(*DrawCall)
	}{
		{"vertex count", func(dc *DrawCall) { dc.Vertices = 4 }},
		{"buffer overrun", func(dc *DrawCall) { dc.Vertices = 6 }},
		{"unbound unit", func(dc *DrawCall) { dc.Textures = nil }},
		{"unknown unit", func(dc *DrawCall) {
			dc.Textures = append(dc.Textures, TextureBinding{Unit: 1, Texture: src.Color(0)})
		}},
		{"feedback loop", func(dc *DrawCall) { dc.Textures[0].Texture = fb.Color(0) }},
		{"kind mismatch", func(dc *DrawCall) {
			dc.Uniforms = []UniformBinding{{Location: n, Value: Float1{X: 1}}}
		}},
		{"foreign uniform", func(dc *DrawCall) {
			dc.Uniforms = []UniformBinding{{Location: otherN, Value: Int1{X: 1}}}
		}},
		{"empty viewport", func(dc *DrawCall) { dc.Viewport = Rect{X: 1} }},
		{"no target", func(dc *DrawCall) { dc.Framebuffer = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := valid()
			tt.modify(&dc)
			assert.Error(t, m.Draw(dc))
		})
	}

	t.Run("released program", func(t *testing.T) {
		p.Release()
		err := m.Draw(valid())
		assert.True(t, errors.Is(err, ErrReleased))
	})
}

func TestDrawUniformsUnchangedOnFailure(t *testing.T) {
	m, dev := newTestManager(t)
	p := newTestProgram(t, m, []UniformDecl{{"n", UniformInt1}, {"scale", UniformFloat2}}, nil)
	fb := newTestTarget(t, m, 4, 4)
	n, err := m.Uniform(p, "n")
	require.NoError(t, err)
	scale, err := m.Uniform(p, "scale")
	require.NoError(t, err)

	draw := func(bindings ...UniformBinding) error {
		return m.Draw(DrawCall{Program: p, Vertices: 3, Framebuffer: fb, Uniforms: bindings})
	}
	require.NoError(t, draw(UniformBinding{Location: n, Value: Int1{X: 1}}))

	// The second binding has the wrong kind, so the first must not stick.
	require.Error(t, draw(
		UniformBinding{Location: n, Value: Int1{X: 2}},
		UniformBinding{Location: scale, Value: Int1{X: 5}},
	))
	dev.failDraw = errFake
	err = draw(UniformBinding{Location: n, Value: Int1{X: 3}})
	require.ErrorIs(t, err, errFake)
	dev.failDraw = nil

	require.NoError(t, draw())
	last := dev.draws[len(dev.draws)-1]
	assert.Equal(t, int32(1), last.Uniforms.Int("n"))
	assert.Equal(t, int32(1), p.uniforms.Int("n"))
}

func TestReadPixels(t *testing.T) {
	m, dev := newTestManager(t)
	fb := newTestTarget(t, m, 4, 2)

	px, err := m.ReadPixels(fb, Rect{X: 1, Y: 1, Width: 2, Height: 1})
	require.NoError(t, err)
	assert.Len(t, px, 8)
	assert.Equal(t, 1, dev.reads)

	_, err = m.ReadPixels(fb, Rect{X: 3, Width: 2, Height: 1})
	assert.Error(t, err)
	assert.Error(t, m.ReadPixelsInto(fb, fb.Bounds(), make([]byte, 3)))
}

func TestClear(t *testing.T) {
	m, dev := newTestManager(t)
	fb := newTestTarget(t, m, 4, 4)

	require.NoError(t, m.Clear(fb, ClearSpec{Color: &Black}))
	require.Len(t, dev.draws, 1)
	cmd := dev.draws[0]
	assert.Nil(t, cmd.Program)
	assert.Zero(t, cmd.Vertices)
	assert.Equal(t, fb.Bounds(), cmd.Viewport)
	require.NotNil(t, cmd.Clear)
	assert.Equal(t, Black, *cmd.Clear.Color)

	fb.Release()
	assert.ErrorIs(t, m.Clear(fb, ClearSpec{Color: &Black}), ErrReleased)
}
