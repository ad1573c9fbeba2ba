// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/evotri/gpu"
)

type shaderModule struct {
	label  string
	module hal.ShaderModule
	entry  string
	stage  gpu.ShaderStage
}

type program struct {
	label      string
	vs, fs     *shaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	units      []int

	// uniform block at binding 0; nil when the program declares no uniforms
	uniformBuf  hal.Buffer
	uniformSize uint64

	pipelines map[pipelineKey]hal.RenderPipeline
}

type buffer struct {
	buf  hal.Buffer
	size uint64
}

type texture struct {
	label   string
	tex     hal.Texture
	view    hal.TextureView
	sampler hal.Sampler // nil unless sampled
	width   uint32
	height  uint32
	format  gputypes.TextureFormat
	bgra    bool

	// state is the usage of the last operation on the texture, 0 before
	// the first one.
	state gputypes.TextureUsage
}

type framebuffer struct {
	label         string
	color         []*texture
	depth         *texture
	width, height uint32
}

type vertexArray struct {
	buf    *buffer
	layout gputypes.VertexBufferLayout
	key    string
}

// CreateShader implements gpu.Device.
func (d *Device) CreateShader(src gpu.ShaderSource, stage gpu.ShaderStage) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if src.WGSL == "" {
		return nil, &gpu.CompileError{Label: src.Label, Stage: stage, Log: "no WGSL source"}
	}
	if d.opts.validate {
		if _, err := naga.Compile(src.WGSL); err != nil {
			return nil, &gpu.CompileError{Label: src.Label, Stage: stage, Log: err.Error(), Err: err}
		}
	}
	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Label,
		Source: hal.ShaderSource{WGSL: src.WGSL},
	})
	if err != nil {
		return nil, &gpu.CompileError{Label: src.Label, Stage: stage, Log: err.Error(), Err: err}
	}
	return &shaderModule{label: src.Label, module: module, entry: src.Entry(stage), stage: stage}, nil
}

// CreateProgram implements gpu.Device. The bind group layout is binding 0
// for the uniform block, then a texture and a sampler per unit.
func (d *Device) CreateProgram(spec gpu.ProgramSpec) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	vs, ok1 := spec.Vertex.(*shaderModule)
	fs, ok2 := spec.Fragment.(*shaderModule)
	if !ok1 || !ok2 {
		return nil, &gpu.LinkError{Label: spec.Label, Log: "shaders were not created by this device"}
	}
	p := &program{
		label:     spec.Label,
		vs:        vs,
		fs:        fs,
		units:     spec.TextureUnits,
		pipelines: make(map[pipelineKey]hal.RenderPipeline),
	}

	var entries []gputypes.BindGroupLayoutEntry
	layout := gpu.NewUniformLayout(spec.Uniforms)
	if layout.Size > 0 {
		p.uniformSize = uint64(layout.Size)
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    0,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	for _, u := range spec.TextureUnits {
		entries = append(entries,
			gputypes.BindGroupLayoutEntry{
				Binding:    textureBinding(u),
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			gputypes.BindGroupLayoutEntry{
				Binding:    samplerBinding(u),
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		)
	}

	var err error
	p.bindLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   spec.Label + "_bind_layout",
		Entries: entries,
	})
	if err != nil {
		return nil, &gpu.LinkError{Label: spec.Label, Log: err.Error(), Err: err}
	}
	p.pipeLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            spec.Label + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		d.destroyProgram(p)
		return nil, &gpu.LinkError{Label: spec.Label, Log: err.Error(), Err: err}
	}
	if p.uniformSize > 0 {
		p.uniformBuf, err = d.device.CreateBuffer(&hal.BufferDescriptor{
			Label: spec.Label + "_uniforms",
			Size:  p.uniformSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			d.destroyProgram(p)
			return nil, &gpu.LinkError{Label: spec.Label, Log: err.Error(), Err: err}
		}
	}
	return p, nil
}

func textureBinding(unit int) uint32 { return uint32(1 + 2*unit) } //nolint:gosec // units are small
func samplerBinding(unit int) uint32 { return uint32(2 + 2*unit) } //nolint:gosec // units are small

// CreateBuffer implements gpu.Device.
func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	var usage gputypes.BufferUsage
	if desc.Usage&gpu.BufferUsageVertex != 0 {
		usage |= gputypes.BufferUsageVertex
	}
	if desc.Usage&gpu.BufferUsageUniform != 0 {
		usage |= gputypes.BufferUsageUniform
	}
	// Initial data is uploaded through the queue as well.
	if desc.Usage&gpu.BufferUsageCopyDst != 0 || desc.Data != nil {
		usage |= gputypes.BufferUsageCopyDst
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  uint64(desc.Size), //nolint:gosec // validated positive
		Usage: usage,
	})
	if err != nil {
		return nil, err
	}
	b := &buffer{buf: buf, size: uint64(desc.Size)} //nolint:gosec // validated positive
	if len(desc.Data) > 0 {
		d.queue.WriteBuffer(buf, 0, padded(desc.Data))
	}
	gpu.Logger().Debug("wgpu: buffer created", "label", desc.Label, "size", desc.Size, "hint", desc.Hint)
	return b, nil
}

// padded rounds data up to a multiple of 4 bytes, as queue writes require.
func padded(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	p := make([]byte, (len(data)+3)&^3)
	copy(p, data)
	return p
}

func textureFormat(f gpu.PixelFormat) gputypes.TextureFormat {
	switch f {
	case gpu.FormatBGRA8:
		return gputypes.TextureFormatBGRA8Unorm
	case gpu.FormatDepth24Stencil8:
		return gputypes.TextureFormatDepth24PlusStencil8
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

func textureUsage(u gpu.TextureUsage) gputypes.TextureUsage {
	var usage gputypes.TextureUsage
	if u.Contains(gpu.TextureUsageSampled) {
		usage |= gputypes.TextureUsageTextureBinding
	}
	if u.Contains(gpu.TextureUsageRenderTarget) {
		usage |= gputypes.TextureUsageRenderAttachment
	}
	if u.Contains(gpu.TextureUsageCopySrc) {
		usage |= gputypes.TextureUsageCopySrc
	}
	if u.Contains(gpu.TextureUsageCopyDst) {
		usage |= gputypes.TextureUsageCopyDst
	}
	return usage
}

func filterMode(f gpu.Filter) gputypes.FilterMode {
	if f == gpu.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	t := &texture{
		label:  desc.Label,
		width:  uint32(desc.Width),  //nolint:gosec // validated positive
		height: uint32(desc.Height), //nolint:gosec // validated positive
		format: textureFormat(desc.Format),
		bgra:   desc.Format == gpu.FormatBGRA8,
	}
	var err error
	t.tex, err = d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         desc.Label,
		Size:          hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         textureUsage(desc.Usage),
	})
	if err != nil {
		return nil, err
	}
	t.view, err = d.device.CreateTextureView(t.tex, &hal.TextureViewDescriptor{
		Label:         desc.Label + "_view",
		Format:        t.format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.destroyTexture(t)
		return nil, err
	}
	if desc.Usage.Contains(gpu.TextureUsageSampled) {
		t.sampler, err = d.device.CreateSampler(&hal.SamplerDescriptor{
			Label:        desc.Label + "_sampler",
			AddressModeU: gputypes.AddressModeClampToEdge,
			AddressModeV: gputypes.AddressModeClampToEdge,
			AddressModeW: gputypes.AddressModeClampToEdge,
			MagFilter:    filterMode(desc.MagFilter),
			MinFilter:    filterMode(desc.MinFilter),
			MipmapFilter: gputypes.FilterModeNearest,
		})
		if err != nil {
			d.destroyTexture(t)
			return nil, err
		}
	}
	if desc.Pixels != nil {
		d.upload(t, desc.Pixels)
	}
	return t, nil
}

// upload writes RGBA pixels into t, swizzling for BGRA textures.
func (d *Device) upload(t *texture, pixels []byte) {
	data := pixels
	if t.bgra {
		data = make([]byte, len(pixels))
		copy(data, pixels)
		swapRedBlue(data)
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, MipLevel: 0},
		data,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: t.width * 4, RowsPerImage: t.height},
		&hal.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	t.state = gputypes.TextureUsageCopyDst
}

// swapRedBlue converts between RGBA and BGRA in place.
func swapRedBlue(px []byte) {
	for i := 0; i+3 < len(px); i += 4 {
		px[i], px[i+2] = px[i+2], px[i]
	}
}

// CreateFramebuffer implements gpu.Device. Framebuffers are plain
// attachment lists; render passes are built per draw.
func (d *Device) CreateFramebuffer(spec gpu.FramebufferSpec) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	fb := &framebuffer{
		label:  spec.Label,
		width:  uint32(spec.Width),  //nolint:gosec // validated positive
		height: uint32(spec.Height), //nolint:gosec // validated positive
	}
	for _, c := range spec.Color {
		fb.color = append(fb.color, c.(*texture))
	}
	if spec.Depth != nil {
		fb.depth = spec.Depth.(*texture)
	}
	return fb, nil
}

var vertexFormats = [...]gputypes.VertexFormat{
	1: gputypes.VertexFormatFloat32,
	2: gputypes.VertexFormatFloat32x2,
	3: gputypes.VertexFormatFloat32x3,
	4: gputypes.VertexFormatFloat32x4,
}

// CreateVertexArray implements gpu.Device.
func (d *Device) CreateVertexArray(spec gpu.VertexArraySpec) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	va := &vertexArray{
		buf: spec.Buffer.(*buffer),
		layout: gputypes.VertexBufferLayout{
			ArrayStride: uint64(spec.Stride), //nolint:gosec // validated positive
			StepMode:    gputypes.VertexStepModeVertex,
		},
		key: fmt.Sprintf("%d", spec.Stride),
	}
	for _, a := range spec.Attributes {
		va.layout.Attributes = append(va.layout.Attributes, gputypes.VertexAttribute{
			Format:         vertexFormats[a.Components],
			Offset:         uint64(a.Offset),   //nolint:gosec // validated
			ShaderLocation: uint32(a.Location), //nolint:gosec // validated
		})
		va.key += fmt.Sprintf("/%d:%d@%d", a.Location, a.Components, a.Offset)
	}
	return va, nil
}

// WriteBuffer implements gpu.Device.
func (d *Device) WriteBuffer(obj gpu.Object, offset int, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.wait(); err != nil {
		return err
	}
	d.queue.WriteBuffer(obj.(*buffer).buf, uint64(offset), data) //nolint:gosec // validated
	return nil
}

// WriteTexture implements gpu.Device.
func (d *Device) WriteTexture(obj gpu.Object, pixels []byte) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.wait(); err != nil {
		return err
	}
	d.upload(obj.(*texture), pixels)
	return nil
}

// Destroy implements gpu.Device.
func (d *Device) Destroy(obj gpu.Object) {
	if d.closed {
		return
	}
	if err := d.wait(); err != nil {
		gpu.Logger().Warn("wgpu: destroy while GPU busy", "err", err)
	}
	switch o := obj.(type) {
	case *shaderModule:
		d.device.DestroyShaderModule(o.module)
	case *program:
		d.destroyProgram(o)
	case *buffer:
		d.device.DestroyBuffer(o.buf)
	case *texture:
		d.destroyTexture(o)
	case *framebuffer, *vertexArray:
		// views only; the textures and buffers are owned elsewhere
	}
}

func (d *Device) destroyProgram(p *program) {
	for _, pl := range p.pipelines {
		d.device.DestroyRenderPipeline(pl)
	}
	p.pipelines = nil
	if p.uniformBuf != nil {
		d.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.pipeLayout != nil {
		d.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		d.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
}

func (d *Device) destroyTexture(t *texture) {
	if t.sampler != nil {
		d.device.DestroySampler(t.sampler)
		t.sampler = nil
	}
	if t.view != nil {
		d.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		d.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}
