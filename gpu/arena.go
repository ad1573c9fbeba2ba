// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

// Arena collects handles and releases them together.
//
// Setup code creates everything through an Arena; if any step fails the
// caller releases the arena and nothing leaks. The zero Arena is not usable,
// create one with NewArena.
type Arena struct {
	m     *Manager
	items []Releaser
}

// NewArena returns an empty arena creating resources on m.
func NewArena(m *Manager) *Arena {
	return &Arena{m: m}
}

// Manager returns the manager the arena creates resources on.
func (a *Arena) Manager() *Manager { return a.m }

// Len returns the number of tracked handles.
func (a *Arena) Len() int { return len(a.items) }

// Track adds r to the arena.
func (a *Arena) Track(r Releaser) {
	a.items = append(a.items, r)
}

// Release releases every tracked handle in reverse order of creation and
// empties the arena. It is safe to call more than once.
func (a *Arena) Release() {
	for i := len(a.items) - 1; i >= 0; i-- {
		a.items[i].Release()
		a.items[i] = nil
	}
	a.items = a.items[:0]
}

// CreateShader is Manager.CreateShader tracked by the arena.
func (a *Arena) CreateShader(src ShaderSource, stage ShaderStage) (*Shader, error) {
	s, err := a.m.CreateShader(src, stage)
	if err != nil {
		return nil, err
	}
	a.Track(s)
	return s, nil
}

// CreateProgram is Manager.CreateProgram tracked by the arena.
func (a *Arena) CreateProgram(desc ProgramDescriptor) (*Program, error) {
	p, err := a.m.CreateProgram(desc)
	if err != nil {
		return nil, err
	}
	a.Track(p)
	return p, nil
}

// CreateBuffer is Manager.CreateBuffer tracked by the arena.
func (a *Arena) CreateBuffer(desc BufferDescriptor) (*Buffer, error) {
	b, err := a.m.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}
	a.Track(b)
	return b, nil
}

// CreateTexture is Manager.CreateTexture tracked by the arena.
func (a *Arena) CreateTexture(desc TextureDescriptor) (*Texture, error) {
	t, err := a.m.CreateTexture(desc)
	if err != nil {
		return nil, err
	}
	a.Track(t)
	return t, nil
}

// CreateFramebuffer is Manager.CreateFramebuffer tracked by the arena.
func (a *Arena) CreateFramebuffer(desc FramebufferDescriptor) (*Framebuffer, error) {
	f, err := a.m.CreateFramebuffer(desc)
	if err != nil {
		return nil, err
	}
	a.Track(f)
	return f, nil
}

// CreateVertexArray is Manager.CreateVertexArray tracked by the arena.
func (a *Arena) CreateVertexArray(desc VertexArrayDescriptor) (*VertexArray, error) {
	v, err := a.m.CreateVertexArray(desc)
	if err != nil {
		return nil, err
	}
	a.Track(v)
	return v, nil
}

// CreateRenderTarget creates a texture usable as render target, sampled
// texture and readback source, and a framebuffer around it. Both are
// tracked.
func (a *Arena) CreateRenderTarget(label string, width, height int, format PixelFormat) (*Framebuffer, error) {
	tex, err := a.CreateTexture(TextureDescriptor{
		Label:     label,
		Width:     width,
		Height:    height,
		Format:    format,
		MinFilter: FilterNearest,
		MagFilter: FilterNearest,
		Usage:     TextureUsageRenderTarget | TextureUsageSampled | TextureUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	return a.CreateFramebuffer(FramebufferDescriptor{Label: label, Color: []*Texture{tex}})
}
