// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/evotri/gpu"
)

// copyPitchAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyPitchAlignment = 256

// pipelineKey identifies the render pipeline variant a draw needs.
type pipelineKey struct {
	vertexLayout string
	format       gputypes.TextureFormat
	attachments  int
	depth        bool
	blend        gpu.BlendMode
}

func straightAlphaBlend() gputypes.BlendState {
	return gputypes.BlendState{
		Color: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorSrcAlpha,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
		Alpha: gputypes.BlendComponent{
			SrcFactor: gputypes.BlendFactorOne,
			DstFactor: gputypes.BlendFactorOneMinusSrcAlpha,
			Operation: gputypes.BlendOperationAdd,
		},
	}
}

// pipeline returns the cached pipeline of p for key, creating it on first
// use.
func (d *Device) pipeline(p *program, va *vertexArray, fb *framebuffer, blend gpu.BlendMode) (hal.RenderPipeline, error) {
	key := pipelineKey{
		format:      fb.color[0].format,
		attachments: len(fb.color),
		depth:       fb.depth != nil,
		blend:       blend,
	}
	var buffers []gputypes.VertexBufferLayout
	if va != nil {
		key.vertexLayout = va.key
		buffers = []gputypes.VertexBufferLayout{va.layout}
	}
	if pl, ok := p.pipelines[key]; ok {
		return pl, nil
	}

	targets := make([]gputypes.ColorTargetState, len(fb.color))
	for i, c := range fb.color {
		targets[i] = gputypes.ColorTargetState{Format: c.format, WriteMask: gputypes.ColorWriteMaskNone}
	}
	// Programs have a single color output at location 0.
	targets[0].WriteMask = gputypes.ColorWriteMaskAll
	if blend == gpu.BlendAlpha {
		b := straightAlphaBlend()
		targets[0].Blend = &b
	}

	desc := &hal.RenderPipelineDescriptor{
		Label:  p.label + "_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.vs.module,
			EntryPoint: p.vs.entry,
			Buffers:    buffers,
		},
		Fragment: &hal.FragmentState{
			Module:     p.fs.module,
			EntryPoint: p.fs.entry,
			Targets:    targets,
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if fb.depth != nil {
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            fb.depth.format,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationKeep,
			},
		}
	}
	pl, err := d.device.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("create pipeline for %q: %w", p.label, err)
	}
	p.pipelines[key] = pl
	gpu.Logger().Debug("wgpu: pipeline created", "program", p.label, "format", key.format, "blend", key.blend)
	return pl, nil
}

// transition records a barrier moving t to usage. Textures that were never
// used need none.
func transition(encoder hal.CommandEncoder, t *texture, usage gputypes.TextureUsage) {
	if t.state != 0 && t.state != usage {
		encoder.TransitionTextures([]hal.TextureBarrier{{
			Texture: t.tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: t.state,
				NewUsage: usage,
			},
		}})
	}
	t.state = usage
}

// bindGroup creates the transient bind group of one draw.
func (d *Device) bindGroup(p *program, cmd *gpu.Command) (hal.BindGroup, error) {
	var entries []gputypes.BindGroupEntry
	if p.uniformBuf != nil {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding: 0,
			Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: p.uniformSize,
			},
		})
	}
	for _, bt := range cmd.Textures {
		t := bt.Texture.(*texture)
		entries = append(entries,
			gputypes.BindGroupEntry{
				Binding:  textureBinding(bt.Unit),
				Resource: gputypes.TextureViewBinding{TextureView: gputypes.TextureViewHandle(t.view.NativeHandle())},
			},
			gputypes.BindGroupEntry{
				Binding:  samplerBinding(bt.Unit),
				Resource: gputypes.SamplerBinding{Sampler: gputypes.SamplerHandle(t.sampler.NativeHandle())},
			},
		)
	}
	bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   cmd.Label + "_bind_group",
		Layout:  p.bindLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	return bg, nil
}

// Draw implements gpu.Device. Each draw is one render pass in its own
// submission.
func (d *Device) Draw(cmd *gpu.Command) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.wait(); err != nil {
		return err
	}
	fb := cmd.Target.(*framebuffer)
	var va *vertexArray
	if cmd.VertexArray != nil {
		va = cmd.VertexArray.(*vertexArray)
	}

	var (
		pl  hal.RenderPipeline
		bg  hal.BindGroup
		err error
	)
	if cmd.Vertices > 0 {
		p := cmd.Program.(*program)
		if pl, err = d.pipeline(p, va, fb, cmd.Blend); err != nil {
			return err
		}
		if p.uniformBuf != nil {
			d.queue.WriteBuffer(p.uniformBuf, 0, cmd.Uniforms.Bytes())
		}
		if bg, err = d.bindGroup(p, cmd); err != nil {
			return err
		}
		d.transient = append(d.transient, bg)
	}

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: cmd.Label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(cmd.Label); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}

	for _, bt := range cmd.Textures {
		transition(encoder, bt.Texture.(*texture), gputypes.TextureUsageTextureBinding)
	}
	rpDesc := &hal.RenderPassDescriptor{Label: cmd.Label}
	for _, c := range fb.color {
		transition(encoder, c, gputypes.TextureUsageRenderAttachment)
		att := hal.RenderPassColorAttachment{
			View:    c.view,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}
		if cmd.Clear != nil && cmd.Clear.Color != nil {
			cc := cmd.Clear.Color
			att.LoadOp = gputypes.LoadOpClear
			att.ClearValue = gputypes.Color{R: float64(cc.R), G: float64(cc.G), B: float64(cc.B), A: float64(cc.A)}
		}
		rpDesc.ColorAttachments = append(rpDesc.ColorAttachments, att)
	}
	if fb.depth != nil {
		transition(encoder, fb.depth, gputypes.TextureUsageRenderAttachment)
		ds := &hal.RenderPassDepthStencilAttachment{
			View:           fb.depth.view,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
		if cmd.Clear != nil && cmd.Clear.Depth != nil {
			ds.DepthLoadOp = gputypes.LoadOpClear
			ds.DepthClearValue = *cmd.Clear.Depth
			ds.StencilLoadOp = gputypes.LoadOpClear
		}
		rpDesc.DepthStencilAttachment = ds
	}

	rp := encoder.BeginRenderPass(rpDesc)
	if cmd.Vertices > 0 {
		vp := cmd.Viewport
		rp.SetViewport(float32(vp.X), float32(vp.Y), float32(vp.Width), float32(vp.Height), 0, 1)
		rp.SetPipeline(pl)
		rp.SetBindGroup(0, bg, nil)
		if va != nil {
			rp.SetVertexBuffer(0, va.buf.buf, 0)
		}
		rp.Draw(uint32(cmd.Vertices), 1, 0, 0) //nolint:gosec // validated non-negative
	}
	rp.End()

	if err := d.submit(encoder); err != nil {
		return fmt.Errorf("draw %q: %w", cmd.Label, err)
	}
	return nil
}

// ReadPixels implements gpu.Device.
func (d *Device) ReadPixels(obj gpu.Object, rect gpu.Rect, dst []byte) error {
	if d.closed {
		return ErrClosed
	}
	if err := d.wait(); err != nil {
		return err
	}
	t := obj.(*framebuffer).color[0]
	w, h := uint32(rect.Width), uint32(rect.Height) //nolint:gosec // validated positive
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: t.label + "_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("readback"); err != nil {
		encoder.DiscardEncoding()
		return fmt.Errorf("begin encoding: %w", err)
	}
	transition(encoder, t, gputypes.TextureUsageCopySrc)
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
		TextureBase: hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: uint32(rect.X), Y: uint32(rect.Y)}, //nolint:gosec // validated
		},
		Size: hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	}})
	if err := d.submit(encoder); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	if err := d.wait(); err != nil {
		return err
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(staging, 0, readback); err != nil {
		return fmt.Errorf("readback: %w", err)
	}
	// Strip row padding.
	for row := 0; row < rect.Height; row++ {
		src := row * int(alignedBytesPerRow)
		copy(dst[row*int(bytesPerRow):(row+1)*int(bytesPerRow)], readback[src:src+int(bytesPerRow)])
	}
	if t.bgra {
		swapRedBlue(dst)
	}
	return nil
}
