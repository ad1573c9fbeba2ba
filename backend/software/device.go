// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/naga"

	"github.com/gogpu/evotri/backend"
	"github.com/gogpu/evotri/gpu"
)

// ErrClosed is returned by every operation on a closed device.
var ErrClosed = errors.New("software: device closed")

type shader struct {
	src   gpu.ShaderSource
	stage gpu.ShaderStage
}

type program struct {
	label    string
	vertex   gpu.VertexKernel
	fragment gpu.FragmentKernel
}

type buffer struct {
	data []byte
}

type texture struct {
	label string
	pix   *pixmap
}

type framebuffer struct {
	color []*texture
	depth *texture
}

type vertexArray struct {
	buf        *buffer
	stride     int
	attributes []gpu.VertexAttribute
}

// Option configures a Device.
type Option func(*options)

type options struct {
	validate bool
}

// WithValidation makes CreateShader run the WGSL text through naga, so
// shaders that would fail on hardware also fail here.
func WithValidation(enabled bool) Option {
	return func(o *options) { o.validate = enabled }
}

// Device is a gpu.Device that renders on the CPU. Shaders must carry CPU
// kernels; their WGSL is only validated.
type Device struct {
	opts   options
	live   int
	closed bool
	raster rasterizer
}

var _ gpu.Device = (*Device)(nil)

func init() {
	backend.Register(backend.BackendSoftware, func() (gpu.Device, error) {
		return New(), nil
	})
}

// New creates a software device.
func New(opts ...Option) *Device {
	d := &Device{}
	for _, opt := range opts {
		opt(&d.opts)
	}
	gpu.Logger().Info("software: device created", "validate", d.opts.validate)
	return d
}

// Info implements gpu.Device.
func (d *Device) Info() gpu.DeviceInfo {
	return gpu.DeviceInfo{Name: "software", Backend: "software", Software: true}
}

// Live returns the number of objects created and not yet destroyed.
func (d *Device) Live() int { return d.live }

func (d *Device) created(obj gpu.Object) (gpu.Object, error) {
	d.live++
	return obj, nil
}

// CreateShader implements gpu.Device.
func (d *Device) CreateShader(src gpu.ShaderSource, stage gpu.ShaderStage) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if stage == gpu.StageVertex && src.Vertex == nil {
		return nil, &gpu.CompileError{Label: src.Label, Stage: stage, Log: "no CPU kernel for vertex stage"}
	}
	if stage == gpu.StageFragment && src.Fragment == nil {
		return nil, &gpu.CompileError{Label: src.Label, Stage: stage, Log: "no CPU kernel for fragment stage"}
	}
	if d.opts.validate && src.WGSL != "" {
		if _, err := naga.Compile(src.WGSL); err != nil {
			return nil, &gpu.CompileError{Label: src.Label, Stage: stage, Log: err.Error(), Err: err}
		}
	}
	return d.created(&shader{src: src, stage: stage})
}

// CreateProgram implements gpu.Device.
func (d *Device) CreateProgram(spec gpu.ProgramSpec) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	vs, ok1 := spec.Vertex.(*shader)
	fs, ok2 := spec.Fragment.(*shader)
	if !ok1 || !ok2 {
		return nil, &gpu.LinkError{Label: spec.Label, Log: "shaders were not created by this device"}
	}
	return d.created(&program{label: spec.Label, vertex: vs.src.Vertex, fragment: fs.src.Fragment})
}

// CreateBuffer implements gpu.Device.
func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	b := &buffer{data: make([]byte, desc.Size)}
	copy(b.data, desc.Data)
	return d.created(b)
}

// CreateTexture implements gpu.Device. Color textures are stored as RGBA
// whatever their declared format.
func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	t := &texture{label: desc.Label, pix: newPixmap(desc.Width, desc.Height, desc.Format.IsDepth())}
	copy(t.pix.data, desc.Pixels)
	return d.created(t)
}

// CreateFramebuffer implements gpu.Device.
func (d *Device) CreateFramebuffer(spec gpu.FramebufferSpec) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	fb := &framebuffer{}
	for _, c := range spec.Color {
		fb.color = append(fb.color, c.(*texture))
	}
	if spec.Depth != nil {
		fb.depth = spec.Depth.(*texture)
	}
	return d.created(fb)
}

// CreateVertexArray implements gpu.Device.
func (d *Device) CreateVertexArray(spec gpu.VertexArraySpec) (gpu.Object, error) {
	if d.closed {
		return nil, ErrClosed
	}
	return d.created(&vertexArray{
		buf:        spec.Buffer.(*buffer),
		stride:     spec.Stride,
		attributes: spec.Attributes,
	})
}

// WriteBuffer implements gpu.Device.
func (d *Device) WriteBuffer(obj gpu.Object, offset int, data []byte) error {
	if d.closed {
		return ErrClosed
	}
	copy(obj.(*buffer).data[offset:], data)
	return nil
}

// WriteTexture implements gpu.Device.
func (d *Device) WriteTexture(obj gpu.Object, pixels []byte) error {
	if d.closed {
		return ErrClosed
	}
	copy(obj.(*texture).pix.data, pixels)
	return nil
}

// Draw implements gpu.Device. Software draws complete before Draw returns.
func (d *Device) Draw(cmd *gpu.Command) error {
	if d.closed {
		return ErrClosed
	}
	fb := cmd.Target.(*framebuffer)
	if cmd.Clear != nil {
		if c := cmd.Clear.Color; c != nil {
			for _, t := range fb.color {
				t.pix.clear(mgl32.Vec4{c.R, c.G, c.B, c.A})
			}
		}
		if z := cmd.Clear.Depth; z != nil && fb.depth != nil {
			fb.depth.pix.clearDepth(*z)
		}
	}
	if cmd.Vertices == 0 {
		return nil
	}

	prog, ok := cmd.Program.(*program)
	if !ok {
		return fmt.Errorf("software: program of %q was not created by this device", cmd.Label)
	}
	var va *vertexArray
	if cmd.VertexArray != nil {
		va = cmd.VertexArray.(*vertexArray)
	}
	units := make(textureUnits, len(cmd.Textures))
	for _, bt := range cmd.Textures {
		units[bt.Unit] = bt.Texture.(*texture).pix
	}

	d.raster.reset(fb.color[0].pix, cmd, prog, units)
	for first := 0; first < cmd.Vertices; first += 3 {
		var tri [3]gpu.VertexOutput
		for i := range tri {
			tri[i] = d.raster.shadeVertex(va, first+i)
		}
		d.raster.triangle(&tri)
	}
	return nil
}

// ReadPixels implements gpu.Device.
func (d *Device) ReadPixels(obj gpu.Object, rect gpu.Rect, dst []byte) error {
	if d.closed {
		return ErrClosed
	}
	pix := obj.(*framebuffer).color[0].pix
	row := rect.Width * 4
	for y := 0; y < rect.Height; y++ {
		src := ((rect.Y+y)*pix.width + rect.X) * 4
		copy(dst[y*row:(y+1)*row], pix.data[src:src+row])
	}
	return nil
}

// Destroy implements gpu.Device.
func (d *Device) Destroy(obj gpu.Object) {
	if obj == nil {
		return
	}
	d.live--
}

// Close implements gpu.Device.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if d.live > 0 {
		gpu.Logger().Warn("software: device closed with live objects", "live", d.live)
	}
}
