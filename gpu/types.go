// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "fmt"

// ShaderStage is the pipeline stage a shader runs in.
type ShaderStage uint8

const (
	StageVertex ShaderStage = iota
	StageFragment
)

// String returns the stage name.
func (s ShaderStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderStage(%d)", s)
	}
}

// ShaderSource is compiled-in shader text. It is immutable configuration
// data: renderers declare their sources as package-level values built from
// embedded WGSL files.
type ShaderSource struct {
	// Label names the shader in diagnostics.
	Label string

	// WGSL is the shader module text.
	WGSL string

	// VertexEntry and FragmentEntry name the entry points.
	// Defaults are "vs_main" and "fs_main".
	VertexEntry   string
	FragmentEntry string

	// Vertex and Fragment are the CPU kernels equivalent to the WGSL entry
	// points. Devices that cannot execute WGSL run these instead.
	Vertex   VertexKernel
	Fragment FragmentKernel
}

// Entry returns the entry point name for the given stage.
func (s ShaderSource) Entry(stage ShaderStage) string {
	if stage == StageVertex {
		if s.VertexEntry != "" {
			return s.VertexEntry
		}
		return "vs_main"
	}
	if s.FragmentEntry != "" {
		return s.FragmentEntry
	}
	return "fs_main"
}

// ProgramDescriptor describes a program: a vertex and fragment shader
// linked together with the uniforms and texture units they use.
type ProgramDescriptor struct {
	Label   string
	Shaders []*Shader

	// Uniforms lists the program's uniform block members in declaration
	// order. The WGSL uniform struct at binding 0 must match this order.
	Uniforms []UniformDecl

	// TextureUnits lists the texture units the fragment stage reads.
	// Unit u is bound at binding 1+2u, its sampler at 2+2u.
	TextureUnits []int
}

// UsageHint tells the device how often a buffer's contents change.
type UsageHint uint8

const (
	HintStatic UsageHint = iota
	HintDynamic
	HintStream
)

// String returns the hint name.
func (h UsageHint) String() string {
	switch h {
	case HintStatic:
		return "static"
	case HintDynamic:
		return "dynamic"
	case HintStream:
		return "stream"
	default:
		return fmt.Sprintf("UsageHint(%d)", h)
	}
}

// BufferUsage specifies how a buffer can be used. Flags can be combined.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageUniform
	BufferUsageCopyDst
)

// BufferDescriptor describes a buffer.
type BufferDescriptor struct {
	Label string

	// Size is the buffer size in bytes. It must be a multiple of 4.
	Size int

	Usage BufferUsage
	Hint  UsageHint

	// Data optionally initializes the buffer. len(Data) must not exceed Size.
	Data []byte
}

// PixelFormat is a texture pixel format. Color formats are 8 bits per
// channel.
type PixelFormat uint8

const (
	FormatRGBA8 PixelFormat = iota
	FormatBGRA8

	// FormatDepth24Stencil8 is only valid for framebuffer depth attachments.
	FormatDepth24Stencil8
)

// IsDepth reports whether f is a depth format.
func (f PixelFormat) IsDepth() bool { return f == FormatDepth24Stencil8 }

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8unorm"
	case FormatBGRA8:
		return "bgra8unorm"
	case FormatDepth24Stencil8:
		return "depth24plus-stencil8"
	default:
		return fmt.Sprintf("PixelFormat(%d)", f)
	}
}

// Filter is a texture filtering mode.
type Filter uint8

const (
	FilterNearest Filter = iota
	FilterLinear
)

// TextureUsage specifies how a texture can be used. Flags can be combined.
type TextureUsage uint32

const (
	TextureUsageSampled TextureUsage = 1 << iota
	TextureUsageRenderTarget
	TextureUsageCopySrc
	TextureUsageCopyDst
)

// Contains reports whether all flags in other are set.
func (u TextureUsage) Contains(other TextureUsage) bool { return u&other == other }

// TextureDescriptor describes a 2D texture.
type TextureDescriptor struct {
	Label  string
	Width  int
	Height int
	Format PixelFormat

	// MinFilter and MagFilter select sampling filters.
	MinFilter Filter
	MagFilter Filter

	Usage TextureUsage

	// Pixels optionally initializes the texture with tightly packed RGBA
	// rows, top row first. It requires TextureUsageCopyDst.
	Pixels []byte
}

// FramebufferDescriptor describes a render target. Color attachment 0 is
// the draw target. Depth is optional and only participates in clears:
// programs never depth test.
type FramebufferDescriptor struct {
	Label string
	Color []*Texture
	Depth *Texture
}

// VertexAttribute places one shader input inside a vertex.
type VertexAttribute struct {
	// Location is the shader input location.
	Location int

	// Components is the number of float32 components (1-4).
	Components int

	// Offset is the byte offset of the attribute inside a vertex.
	Offset int
}

// VertexArrayDescriptor describes how vertices are read from one buffer.
type VertexArrayDescriptor struct {
	Label      string
	Buffer     *Buffer
	Stride     int
	Attributes []VertexAttribute
}

// MaxAttributes is the maximum number of vertex attribute locations.
const MaxAttributes = 8

// Rect is a pixel rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y          int
	Width, Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Color is a linear RGBA color with components in [0,1].
type Color struct {
	R, G, B, A float32
}

// Black is opaque black.
var Black = Color{A: 1}

// ClearSpec describes which attachments to clear before a draw.
type ClearSpec struct {
	Color *Color
	Depth *float32
}

// BlendMode selects how fragment output combines with the target.
type BlendMode uint8

const (
	// BlendNone overwrites the target with the fragment color.
	BlendNone BlendMode = iota

	// BlendAlpha composites straight-alpha fragments source-over.
	BlendAlpha
)
