// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "fmt"

// TextureBinding binds a texture to a program texture unit for one draw.
type TextureBinding struct {
	Unit    int
	Texture *Texture
}

// UniformBinding sets a uniform before a draw.
type UniformBinding struct {
	Location UniformLocation
	Value    Value
}

// DrawCall bundles everything one draw needs.
type DrawCall struct {
	Label string

	Program *Program

	// VertexArray is optional. Without it the vertex stage sees only the
	// vertex index.
	VertexArray *VertexArray

	// Vertices is the number of vertices to draw, a multiple of 3.
	Vertices int

	// Framebuffer is the render target.
	Framebuffer *Framebuffer

	// Viewport maps clip space onto the target. The zero Rect covers the
	// whole framebuffer.
	Viewport Rect

	// Clear, if set, clears attachments before drawing.
	Clear *ClearSpec

	// Textures binds every texture unit the program declares.
	Textures []TextureBinding

	// Uniforms are applied to the program before the draw. Uniforms not
	// listed keep the value of the previous draw.
	Uniforms []UniformBinding

	Blend BlendMode
}

// Draw validates dc and submits it to the device.
func (m *Manager) Draw(dc DrawCall) error {
	cmd, err := m.resolve(&dc)
	if err != nil {
		return fmt.Errorf("gpu: draw %q: %w", dc.Label, err)
	}
	if err := m.dev.Draw(cmd); err != nil {
		return fmt.Errorf("gpu: draw %q: %w", dc.Label, err)
	}
	dc.Program.uniforms.assign(cmd.Uniforms)
	return nil
}

// resolve turns a DrawCall into a device Command.
func (m *Manager) resolve(dc *DrawCall) (*Command, error) {
	prog, err := live(dc.Program.res(), KindProgram)
	if err != nil {
		return nil, err
	}
	target, err := live(dc.Framebuffer.res(), KindFramebuffer)
	if err != nil {
		return nil, err
	}
	if dc.Vertices < 0 || dc.Vertices%3 != 0 {
		return nil, fmt.Errorf("vertex count %d is not a multiple of 3", dc.Vertices)
	}

	cmd := &Command{
		Label:        dc.Label,
		Program:      prog,
		Vertices:     dc.Vertices,
		Target:       target,
		TargetWidth:  dc.Framebuffer.width,
		TargetHeight: dc.Framebuffer.height,
		Viewport:     dc.Viewport,
		Clear:        dc.Clear,
		Blend:        dc.Blend,
	}
	if cmd.Viewport == (Rect{}) {
		cmd.Viewport = dc.Framebuffer.Bounds()
	} else if cmd.Viewport.Empty() {
		return nil, fmt.Errorf("empty viewport %+v", cmd.Viewport)
	}
	if dc.Blend > BlendAlpha {
		return nil, fmt.Errorf("unknown blend mode %d", dc.Blend)
	}

	if dc.VertexArray != nil {
		va, err := live(dc.VertexArray.res(), KindVertexArray)
		if err != nil {
			return nil, err
		}
		if _, err := live(dc.VertexArray.buffer.res(), KindBuffer); err != nil {
			return nil, err
		}
		if dc.Vertices > 0 {
			need := (dc.Vertices-1)*dc.VertexArray.stride + dc.VertexArray.extent
			if need > dc.VertexArray.buffer.size {
				return nil, fmt.Errorf("%d vertices need %d bytes, buffer %q has %d",
					dc.Vertices, need, dc.VertexArray.buffer.label, dc.VertexArray.buffer.size)
			}
		}
		cmd.VertexArray = va
	}

	bound := make(map[int]bool, len(dc.Textures))
	for _, tb := range dc.Textures {
		tex, err := live(tb.Texture.res(), KindTexture)
		if err != nil {
			return nil, err
		}
		switch {
		case !dc.Program.hasUnit(tb.Unit):
			return nil, fmt.Errorf("program %q has no texture unit %d", dc.Program.label, tb.Unit)
		case bound[tb.Unit]:
			return nil, fmt.Errorf("texture unit %d bound twice", tb.Unit)
		case !tb.Texture.usage.Contains(TextureUsageSampled):
			return nil, fmt.Errorf("texture %q is not sampled", tb.Texture.label)
		case dc.Framebuffer.attaches(tb.Texture):
			return nil, fmt.Errorf("texture %q is both sampled and the render target", tb.Texture.label)
		}
		bound[tb.Unit] = true
		cmd.Textures = append(cmd.Textures, BoundTexture{Unit: tb.Unit, Texture: tex})
	}
	for _, u := range dc.Program.units {
		if !bound[u] {
			return nil, fmt.Errorf("texture unit %d of program %q is unbound", u, dc.Program.label)
		}
	}

	// Bindings land in a copy; the program keeps it only once the device accepts the draw.
	next := dc.Program.uniforms.snapshot()
	for _, ub := range dc.Uniforms {
		if ub.Location.program != dc.Program {
			return nil, fmt.Errorf("uniform %q belongs to another program", ub.Location.name)
		}
		if err := next.set(ub.Location.index, ub.Value); err != nil {
			return nil, err
		}
	}
	cmd.Uniforms = next
	return cmd, nil
}

// Clear clears the attachments of fb without drawing.
func (m *Manager) Clear(fb *Framebuffer, clear ClearSpec) error {
	target, err := live(fb.res(), KindFramebuffer)
	if err != nil {
		return fmt.Errorf("gpu: clear: %w", err)
	}
	cmd := &Command{
		Label:        fb.label + "_clear",
		Target:       target,
		TargetWidth:  fb.width,
		TargetHeight: fb.height,
		Viewport:     fb.Bounds(),
		Clear:        &clear,
	}
	if err := m.dev.Draw(cmd); err != nil {
		return fmt.Errorf("gpu: clear %q: %w", fb.label, err)
	}
	return nil
}
