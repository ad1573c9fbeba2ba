// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "fmt"

// Releaser is implemented by every handle.
type Releaser interface {
	Release()
}

// resource is the state shared by all handles.
type resource struct {
	m        *Manager
	kind     ResourceKind
	label    string
	obj      Object
	released bool
}

func (r *resource) init(m *Manager, kind ResourceKind, label string, obj Object) {
	r.m = m
	r.kind = kind
	r.label = label
	r.obj = obj
	m.live++
}

// Label returns the label the resource was created with.
func (r *resource) Label() string { return r.label }

// Released reports whether Release has been called.
func (r *resource) Released() bool { return r.released }

// Release destroys the device object. It is idempotent. Releasing after
// the manager was closed only marks the handle, the device is gone.
func (r *resource) Release() {
	if r.released {
		return
	}
	r.released = true
	r.m.live--
	if !r.m.closed {
		r.m.dev.Destroy(r.obj)
	}
	r.obj = nil
}

// object returns the device object or an error wrapping ErrReleased.
func (r *resource) object() (Object, error) {
	if r.released {
		return nil, fmt.Errorf("gpu: %s %q: %w", r.kind, r.label, ErrReleased)
	}
	if r.m.closed {
		return nil, fmt.Errorf("gpu: %s %q: manager closed: %w", r.kind, r.label, ErrReleased)
	}
	return r.obj, nil
}

// Shader is a compiled shader stage.
type Shader struct {
	resource
	stage ShaderStage
}

// Stage returns the pipeline stage of the shader.
func (s *Shader) Stage() ShaderStage { return s.stage }

func (s *Shader) res() *resource {
	if s == nil {
		return nil
	}
	return &s.resource
}

// Program is a linked vertex and fragment shader pair.
type Program struct {
	resource
	uniforms *Uniforms
	units    []int
}

func (p *Program) res() *resource {
	if p == nil {
		return nil
	}
	return &p.resource
}

func (p *Program) hasUnit(unit int) bool {
	for _, u := range p.units {
		if u == unit {
			return true
		}
	}
	return false
}

// Buffer is a linear GPU buffer.
type Buffer struct {
	resource
	size  int
	usage BufferUsage
	hint  UsageHint
}

// Size returns the buffer size in bytes.
func (b *Buffer) Size() int { return b.size }

// Hint returns the usage hint the buffer was created with.
func (b *Buffer) Hint() UsageHint { return b.hint }

func (b *Buffer) res() *resource {
	if b == nil {
		return nil
	}
	return &b.resource
}

// Texture is a 2D image.
type Texture struct {
	resource
	width, height int
	format        PixelFormat
	usage         TextureUsage
}

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Format returns the pixel format.
func (t *Texture) Format() PixelFormat { return t.format }

func (t *Texture) res() *resource {
	if t == nil {
		return nil
	}
	return &t.resource
}

// Framebuffer is a render target made of texture attachments.
type Framebuffer struct {
	resource
	width, height int
	color         []*Texture
	depth         *Texture
}

// Width returns the framebuffer width in pixels.
func (f *Framebuffer) Width() int { return f.width }

// Height returns the framebuffer height in pixels.
func (f *Framebuffer) Height() int { return f.height }

// Bounds returns the full framebuffer rectangle.
func (f *Framebuffer) Bounds() Rect { return Rect{Width: f.width, Height: f.height} }

// Color returns color attachment i.
func (f *Framebuffer) Color(i int) *Texture { return f.color[i] }

func (f *Framebuffer) res() *resource {
	if f == nil {
		return nil
	}
	return &f.resource
}

func (f *Framebuffer) attaches(t *Texture) bool {
	if f.depth == t {
		return true
	}
	for _, c := range f.color {
		if c == t {
			return true
		}
	}
	return false
}

// VertexArray binds a vertex buffer to a vertex layout.
type VertexArray struct {
	resource
	buffer *Buffer
	stride int
	extent int // bytes one vertex reads past its start
}

func (v *VertexArray) res() *resource {
	if v == nil {
		return nil
	}
	return &v.resource
}

// UniformLocation identifies a uniform of one program.
type UniformLocation struct {
	program *Program
	index   int
	name    string
	kind    UniformKind
}

// Name returns the uniform name.
func (l UniformLocation) Name() string { return l.name }

// Kind returns the declared kind of the uniform.
func (l UniformLocation) Kind() UniformKind { return l.kind }

// nilHandle is returned by live for nil handles.
func nilHandle(kind ResourceKind) error {
	return fmt.Errorf("gpu: nil %s handle", kind)
}

// live resolves r to its device object.
func live(r *resource, kind ResourceKind) (Object, error) {
	if r == nil {
		return nil, nilHandle(kind)
	}
	return r.object()
}
