// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

// Object is a device-native resource. Only the Device that created an
// Object may interpret it.
type Object any

// DeviceInfo describes a Device.
type DeviceInfo struct {
	// Name is the adapter name, or "software".
	Name string

	// Backend names the implementation, e.g. "vulkan" or "software".
	Backend string

	// Software reports whether rendering runs on the CPU.
	Software bool
}

// ProgramSpec is a ProgramDescriptor resolved to device objects.
type ProgramSpec struct {
	Label        string
	Vertex       Object
	Fragment     Object
	Uniforms     []UniformDecl
	TextureUnits []int
}

// FramebufferSpec is a FramebufferDescriptor resolved to device objects.
type FramebufferSpec struct {
	Label  string
	Width  int
	Height int
	Color  []Object
	Depth  Object
}

// VertexArraySpec is a VertexArrayDescriptor resolved to device objects.
type VertexArraySpec struct {
	Label      string
	Buffer     Object
	Stride     int
	Attributes []VertexAttribute
}

// BoundTexture is a texture object bound to a unit for one draw.
type BoundTexture struct {
	Unit    int
	Texture Object
}

// Command is a validated draw call ready for a device.
type Command struct {
	Label string

	// Program and Uniforms are nil for clear-only commands, which have
	// no vertices.
	Program  Object
	Uniforms *Uniforms

	// VertexArray may be nil for draws that generate vertices from the
	// vertex index alone.
	VertexArray Object
	Vertices    int

	Target       Object
	TargetWidth  int
	TargetHeight int
	Viewport     Rect

	Clear    *ClearSpec
	Textures []BoundTexture
	Blend    BlendMode
}

// Device is the backend contract of the resource layer.
//
// A Manager validates every request before it reaches the device, so
// implementations may assume well-formed descriptors and live objects.
// Creation methods return *CompileError, *LinkError or plain errors; the
// Manager wraps plain errors into *ResourceError.
type Device interface {
	Info() DeviceInfo

	CreateShader(src ShaderSource, stage ShaderStage) (Object, error)
	CreateProgram(spec ProgramSpec) (Object, error)
	CreateBuffer(desc BufferDescriptor) (Object, error)
	CreateTexture(desc TextureDescriptor) (Object, error)
	CreateFramebuffer(spec FramebufferSpec) (Object, error)
	CreateVertexArray(spec VertexArraySpec) (Object, error)

	WriteBuffer(buf Object, offset int, data []byte) error

	// WriteTexture replaces the whole texture with tightly packed RGBA rows.
	WriteTexture(tex Object, pixels []byte) error

	// Draw records and submits one draw. Work submitted by Draw is ordered
	// before any later ReadPixels.
	Draw(cmd *Command) error

	// ReadPixels blocks until all submitted work completes, then copies
	// rect of the framebuffer's first color attachment into dst as tightly
	// packed RGBA rows, top row first.
	ReadPixels(fb Object, rect Rect, dst []byte) error

	Destroy(obj Object)
	Close()
}
