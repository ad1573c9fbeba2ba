// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
)

// Manager owns every resource created on a Device.
type Manager struct {
	dev    Device
	info   DeviceInfo
	live   int
	closed bool

	mu    sync.Mutex
	owner string

	scratch []byte
}

// NewManager wraps dev. The manager takes ownership: Close closes dev.
func NewManager(dev Device) *Manager {
	m := &Manager{dev: dev, info: dev.Info()}
	Logger().Info("gpu: manager created", "device", m.info.Name, "backend", m.info.Backend)
	return m
}

// Info describes the underlying device.
func (m *Manager) Info() DeviceInfo { return m.info }

// Live returns the number of handles not yet released.
func (m *Manager) Live() int { return m.live }

// Closed reports whether Close has been called.
func (m *Manager) Closed() bool { return m.closed }

// Claim reserves the manager for owner. Only one owner may hold a manager
// at a time; a second claim returns ErrDeviceInUse.
func (m *Manager) Claim(owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("gpu: claim: %w", ErrReleased)
	}
	if m.owner != "" && m.owner != owner {
		return fmt.Errorf("gpu: claim by %s, held by %s: %w", owner, m.owner, ErrDeviceInUse)
	}
	m.owner = owner
	return nil
}

// Unclaim releases a claim made by owner. Unclaiming by anyone else is a
// no-op.
func (m *Manager) Unclaim(owner string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.owner == owner {
		m.owner = ""
	}
}

// Close closes the device. Handles still live become unusable; their
// Release only marks them.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	if m.live > 0 {
		Logger().Warn("gpu: manager closed with live resources", "live", m.live)
	}
	m.closed = true
	m.dev.Close()
}

func (m *Manager) checkOpen() error {
	if m.closed {
		return fmt.Errorf("gpu: manager closed: %w", ErrReleased)
	}
	return nil
}

// CreateShader compiles one stage of src.
func (m *Manager) CreateShader(src ShaderSource, stage ShaderStage) (*Shader, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if stage != StageVertex && stage != StageFragment {
		return nil, &CompileError{Label: src.Label, Stage: stage, Log: "unknown shader stage"}
	}
	if src.WGSL == "" && src.Vertex == nil && src.Fragment == nil {
		return nil, &CompileError{Label: src.Label, Stage: stage, Log: "empty shader source"}
	}
	obj, err := m.dev.CreateShader(src, stage)
	if err != nil {
		var ce *CompileError
		if errors.As(err, &ce) {
			return nil, err
		}
		return nil, &CompileError{Label: src.Label, Stage: stage, Log: err.Error(), Err: err}
	}
	s := &Shader{stage: stage}
	s.init(m, KindShader, src.Label, obj)
	Logger().Debug("gpu: shader created", "label", src.Label, "stage", stage)
	return s, nil
}

// CreateProgram links one vertex and one fragment shader.
func (m *Manager) CreateProgram(desc ProgramDescriptor) (*Program, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	linkErr := func(err error, format string, args ...any) *LinkError {
		return &LinkError{Label: desc.Label, Log: fmt.Sprintf(format, args...), Err: err}
	}

	spec := ProgramSpec{Label: desc.Label}
	for _, s := range desc.Shaders {
		obj, err := live(s.res(), KindShader)
		if err != nil {
			return nil, linkErr(err, "%v", err)
		}
		switch s.stage {
		case StageVertex:
			if spec.Vertex != nil {
				return nil, linkErr(nil, "more than one vertex shader")
			}
			spec.Vertex = obj
		case StageFragment:
			if spec.Fragment != nil {
				return nil, linkErr(nil, "more than one fragment shader")
			}
			spec.Fragment = obj
		}
	}
	if spec.Vertex == nil || spec.Fragment == nil {
		return nil, linkErr(nil, "program needs a vertex and a fragment shader")
	}

	seen := make(map[string]bool, len(desc.Uniforms))
	for _, u := range desc.Uniforms {
		if u.Name == "" {
			return nil, linkErr(nil, "unnamed uniform")
		}
		if seen[u.Name] {
			return nil, linkErr(nil, "uniform %q declared twice", u.Name)
		}
		if u.Kind > UniformFloat4 {
			return nil, linkErr(nil, "uniform %q has unknown kind %s", u.Name, u.Kind)
		}
		seen[u.Name] = true
	}
	units := make(map[int]bool, len(desc.TextureUnits))
	for _, u := range desc.TextureUnits {
		if u < 0 || units[u] {
			return nil, linkErr(nil, "invalid or duplicate texture unit %d", u)
		}
		units[u] = true
	}

	spec.Uniforms = append([]UniformDecl(nil), desc.Uniforms...)
	spec.TextureUnits = append([]int(nil), desc.TextureUnits...)
	obj, err := m.dev.CreateProgram(spec)
	if err != nil {
		var le *LinkError
		if errors.As(err, &le) {
			return nil, err
		}
		return nil, linkErr(err, "%v", err)
	}
	p := &Program{uniforms: newUniforms(spec.Uniforms), units: spec.TextureUnits}
	p.init(m, KindProgram, desc.Label, obj)
	Logger().Debug("gpu: program linked", "label", desc.Label, "uniforms", len(spec.Uniforms))
	return p, nil
}

// Uniform looks up a uniform of p by name.
func (m *Manager) Uniform(p *Program, name string) (UniformLocation, error) {
	if _, err := live(p.res(), KindProgram); err != nil {
		return UniformLocation{}, err
	}
	for i, d := range p.uniforms.decls {
		if d.Name == name {
			return UniformLocation{program: p, index: i, name: name, kind: d.Kind}, nil
		}
	}
	return UniformLocation{}, resourceError(KindUniform, name, "not declared by program %q", p.label)
}

// CreateBuffer creates a buffer, optionally initialized from desc.Data.
func (m *Manager) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	switch {
	case desc.Size <= 0 || desc.Size%4 != 0:
		return nil, resourceError(KindBuffer, desc.Label, "size %d is not a positive multiple of 4", desc.Size)
	case len(desc.Data) > desc.Size:
		return nil, resourceError(KindBuffer, desc.Label, "%d bytes of data exceed size %d", len(desc.Data), desc.Size)
	case desc.Usage == 0:
		return nil, resourceError(KindBuffer, desc.Label, "no usage flags")
	}
	obj, err := m.dev.CreateBuffer(desc)
	if err != nil {
		return nil, &ResourceError{Kind: KindBuffer, Label: desc.Label, Err: err}
	}
	b := &Buffer{size: desc.Size, usage: desc.Usage, hint: desc.Hint}
	b.init(m, KindBuffer, desc.Label, obj)
	return b, nil
}

// CreateTexture creates a texture, optionally initialized from desc.Pixels.
func (m *Manager) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	switch {
	case desc.Width <= 0 || desc.Height <= 0:
		return nil, resourceError(KindTexture, desc.Label, "invalid size %dx%d", desc.Width, desc.Height)
	case desc.Usage == 0:
		return nil, resourceError(KindTexture, desc.Label, "no usage flags")
	case desc.Format > FormatDepth24Stencil8:
		return nil, resourceError(KindTexture, desc.Label, "unknown format %s", desc.Format)
	case desc.Format.IsDepth() && desc.Usage != TextureUsageRenderTarget:
		return nil, resourceError(KindTexture, desc.Label, "depth textures are render targets only")
	case desc.Pixels != nil && len(desc.Pixels) != desc.Width*desc.Height*4:
		return nil, resourceError(KindTexture, desc.Label, "got %d bytes of pixels, want %d", len(desc.Pixels), desc.Width*desc.Height*4)
	case desc.Pixels != nil && !desc.Usage.Contains(TextureUsageCopyDst):
		return nil, resourceError(KindTexture, desc.Label, "initial pixels need copy-dst usage")
	}
	obj, err := m.dev.CreateTexture(desc)
	if err != nil {
		return nil, &ResourceError{Kind: KindTexture, Label: desc.Label, Err: err}
	}
	t := &Texture{width: desc.Width, height: desc.Height, format: desc.Format, usage: desc.Usage}
	t.init(m, KindTexture, desc.Label, obj)
	return t, nil
}

// CreateFramebuffer creates a render target from texture attachments.
// All attachments must share one size.
func (m *Manager) CreateFramebuffer(desc FramebufferDescriptor) (*Framebuffer, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if len(desc.Color) == 0 {
		return nil, resourceError(KindFramebuffer, desc.Label, "no color attachment")
	}
	spec := FramebufferSpec{Label: desc.Label, Width: -1}
	attach := func(t *Texture, depth bool) (Object, error) {
		obj, err := live(t.res(), KindTexture)
		if err != nil {
			return nil, &ResourceError{Kind: KindFramebuffer, Label: desc.Label, Err: err}
		}
		if !t.usage.Contains(TextureUsageRenderTarget) {
			return nil, resourceError(KindFramebuffer, desc.Label, "attachment %q is not a render target", t.label)
		}
		if t.format.IsDepth() != depth {
			return nil, resourceError(KindFramebuffer, desc.Label, "attachment %q has format %s", t.label, t.format)
		}
		if spec.Width < 0 {
			spec.Width, spec.Height = t.width, t.height
		} else if t.width != spec.Width || t.height != spec.Height {
			return nil, resourceError(KindFramebuffer, desc.Label, "attachment %q is %dx%d, want %dx%d",
				t.label, t.width, t.height, spec.Width, spec.Height)
		}
		return obj, nil
	}
	for _, t := range desc.Color {
		obj, err := attach(t, false)
		if err != nil {
			return nil, err
		}
		spec.Color = append(spec.Color, obj)
	}
	if desc.Depth != nil {
		obj, err := attach(desc.Depth, true)
		if err != nil {
			return nil, err
		}
		spec.Depth = obj
	}
	obj, err := m.dev.CreateFramebuffer(spec)
	if err != nil {
		return nil, &ResourceError{Kind: KindFramebuffer, Label: desc.Label, Err: err}
	}
	f := &Framebuffer{
		width:  spec.Width,
		height: spec.Height,
		color:  append([]*Texture(nil), desc.Color...),
		depth:  desc.Depth,
	}
	f.init(m, KindFramebuffer, desc.Label, obj)
	return f, nil
}

// CreateVertexArray describes how a draw reads vertices from desc.Buffer.
func (m *Manager) CreateVertexArray(desc VertexArrayDescriptor) (*VertexArray, error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	buf, err := live(desc.Buffer.res(), KindBuffer)
	if err != nil {
		return nil, &ResourceError{Kind: KindVertexArray, Label: desc.Label, Err: err}
	}
	if desc.Buffer.usage&BufferUsageVertex == 0 {
		return nil, resourceError(KindVertexArray, desc.Label, "buffer %q lacks vertex usage", desc.Buffer.label)
	}
	if desc.Stride <= 0 || desc.Stride%4 != 0 {
		return nil, resourceError(KindVertexArray, desc.Label, "stride %d is not a positive multiple of 4", desc.Stride)
	}
	if len(desc.Attributes) == 0 {
		return nil, resourceError(KindVertexArray, desc.Label, "no attributes")
	}
	extent := 0
	var used [MaxAttributes]bool
	for _, a := range desc.Attributes {
		switch {
		case a.Location < 0 || a.Location >= MaxAttributes:
			return nil, resourceError(KindVertexArray, desc.Label, "attribute location %d out of range", a.Location)
		case used[a.Location]:
			return nil, resourceError(KindVertexArray, desc.Label, "attribute location %d used twice", a.Location)
		case a.Components < 1 || a.Components > 4:
			return nil, resourceError(KindVertexArray, desc.Label, "attribute %d has %d components", a.Location, a.Components)
		case a.Offset < 0 || a.Offset%4 != 0 || a.Offset+4*a.Components > desc.Stride:
			return nil, resourceError(KindVertexArray, desc.Label, "attribute %d at offset %d does not fit stride %d",
				a.Location, a.Offset, desc.Stride)
		}
		used[a.Location] = true
		extent = max(extent, a.Offset+4*a.Components)
	}
	obj, err := m.dev.CreateVertexArray(VertexArraySpec{
		Label:      desc.Label,
		Buffer:     buf,
		Stride:     desc.Stride,
		Attributes: append([]VertexAttribute(nil), desc.Attributes...),
	})
	if err != nil {
		return nil, &ResourceError{Kind: KindVertexArray, Label: desc.Label, Err: err}
	}
	v := &VertexArray{buffer: desc.Buffer, stride: desc.Stride, extent: extent}
	v.init(m, KindVertexArray, desc.Label, obj)
	return v, nil
}

// UpdateBuffer writes data into buf starting at byte offset.
func (m *Manager) UpdateBuffer(buf *Buffer, offset int, data []byte) error {
	obj, err := live(buf.res(), KindBuffer)
	if err != nil {
		return err
	}
	if buf.usage&BufferUsageCopyDst == 0 {
		return resourceError(KindBuffer, buf.label, "update needs copy-dst usage")
	}
	if offset < 0 || offset%4 != 0 || len(data)%4 != 0 || offset+len(data) > buf.size {
		return resourceError(KindBuffer, buf.label, "update of %d bytes at %d exceeds size %d", len(data), offset, buf.size)
	}
	if len(data) == 0 {
		return nil
	}
	if err := m.dev.WriteBuffer(obj, offset, data); err != nil {
		return fmt.Errorf("gpu: update buffer %q: %w", buf.label, err)
	}
	return nil
}

// UpdateBufferFloats writes little-endian float32 values into buf starting
// at float index first.
func (m *Manager) UpdateBufferFloats(buf *Buffer, first int, values []float32) error {
	n := 4 * len(values)
	if cap(m.scratch) < n {
		m.scratch = make([]byte, n)
	}
	b := m.scratch[:n]
	for i, v := range values {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return m.UpdateBuffer(buf, 4*first, b)
}

// WriteTexture replaces the contents of tex with tightly packed RGBA rows.
func (m *Manager) WriteTexture(tex *Texture, pixels []byte) error {
	obj, err := live(tex.res(), KindTexture)
	if err != nil {
		return err
	}
	if !tex.usage.Contains(TextureUsageCopyDst) {
		return resourceError(KindTexture, tex.label, "write needs copy-dst usage")
	}
	if len(pixels) != tex.width*tex.height*4 {
		return resourceError(KindTexture, tex.label, "got %d bytes, want %d", len(pixels), tex.width*tex.height*4)
	}
	if err := m.dev.WriteTexture(obj, pixels); err != nil {
		return fmt.Errorf("gpu: write texture %q: %w", tex.label, err)
	}
	return nil
}

// ReadPixels blocks until submitted draws complete and returns rect of the
// framebuffer's first color attachment as tightly packed RGBA rows.
func (m *Manager) ReadPixels(fb *Framebuffer, rect Rect) ([]byte, error) {
	if rect.Empty() {
		return nil, fmt.Errorf("gpu: read pixels: empty rectangle %+v", rect)
	}
	dst := make([]byte, rect.Width*rect.Height*4)
	if err := m.ReadPixelsInto(fb, rect, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// ReadPixelsInto is ReadPixels into a caller-provided slice of exactly
// rect.Width*rect.Height*4 bytes.
func (m *Manager) ReadPixelsInto(fb *Framebuffer, rect Rect, dst []byte) error {
	obj, err := live(fb.res(), KindFramebuffer)
	if err != nil {
		return err
	}
	if !fb.color[0].usage.Contains(TextureUsageCopySrc) {
		return fmt.Errorf("gpu: read pixels of %q: attachment lacks copy-src usage", fb.label)
	}
	if rect.Empty() || rect.X < 0 || rect.Y < 0 || rect.X+rect.Width > fb.width || rect.Y+rect.Height > fb.height {
		return fmt.Errorf("gpu: read pixels of %q: rectangle %+v outside %dx%d", fb.label, rect, fb.width, fb.height)
	}
	if len(dst) != rect.Width*rect.Height*4 {
		return fmt.Errorf("gpu: read pixels of %q: got %d bytes of storage, want %d",
			fb.label, len(dst), rect.Width*rect.Height*4)
	}
	if err := m.dev.ReadPixels(obj, rect, dst); err != nil {
		return fmt.Errorf("gpu: read pixels of %q: %w", fb.label, err)
	}
	return nil
}
