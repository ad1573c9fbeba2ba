// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // register the Vulkan backend

	"github.com/gogpu/evotri/backend"
	"github.com/gogpu/evotri/gpu"
)

var (
	// ErrNoAdapter is returned by Open when no GPU adapter is available.
	ErrNoAdapter = errors.New("wgpu: no GPU adapter found")

	// ErrClosed is returned by every operation on a closed device.
	ErrClosed = errors.New("wgpu: device closed")
)

// waitTimeout bounds every fence wait.
const waitTimeout = 5 * time.Second

// Option configures a Device.
type Option func(*options)

type options struct {
	backend  gputypes.Backend
	validate bool
}

func defaultOptions() options {
	return options{
		backend:  gputypes.BackendVulkan,
		validate: true,
	}
}

// WithBackend selects the HAL backend Open uses. The default is Vulkan.
// The backend package must be linked in.
func WithBackend(b gputypes.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithValidation controls whether WGSL is checked with naga before shader
// modules are created. Validation is on by default and turns driver
// failures into readable compile logs.
func WithValidation(enabled bool) Option {
	return func(o *options) { o.validate = enabled }
}

// Device is a gpu.Device over gogpu/wgpu HAL.
//
// At most one submission is in flight: every operation that touches GPU
// memory waits for the previous submission first. Draws are therefore
// strictly ordered with uploads and readbacks.
type Device struct {
	opts options

	instance hal.Instance // nil for external devices
	device   hal.Device
	queue    hal.Queue
	external bool
	info     gpu.DeviceInfo

	fence      hal.Fence
	fenceValue uint64
	waited     uint64

	// transient objects of the in-flight submission
	transient   []hal.BindGroup
	pendingFree []hal.CommandBuffer

	closed bool
}

var _ gpu.Device = (*Device)(nil)

func init() {
	backend.Register(backend.BackendWGPU, func() (gpu.Device, error) {
		d, err := Open()
		if err != nil {
			return nil, err
		}
		return d, nil
	})
}

// Open creates a device on the first discrete or integrated adapter of the
// selected backend, falling back to the first adapter of any type.
func Open(opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	backend, ok := hal.GetBackend(o.backend)
	if !ok {
		return nil, fmt.Errorf("wgpu: backend %v not available", o.backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device: %w", err)
	}

	d, err := newDevice(o, openDev.Device, openDev.Queue, false)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.info = gpu.DeviceInfo{Name: selected.Info.Name, Backend: fmt.Sprint(o.backend)}
	gpu.Logger().Info("wgpu: device opened", "adapter", selected.Info.Name, "type", selected.Info.DeviceType)
	return d, nil
}

// FromProvider wraps the device of a host application. The provider must
// also expose its HAL objects through HalDevice() and HalQueue(). Close
// releases only what this package created; the host keeps the device.
func FromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := p.(halProvider)
	if !ok {
		return nil, fmt.Errorf("wgpu: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("wgpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("wgpu: provider HalQueue is not hal.Queue")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	d, err := newDevice(o, device, queue, true)
	if err != nil {
		return nil, err
	}
	d.info = gpu.DeviceInfo{Name: "external", Backend: "external"}
	gpu.Logger().Info("wgpu: attached to external device")
	return d, nil
}

func newDevice(o options, device hal.Device, queue hal.Queue, external bool) (*Device, error) {
	fence, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &Device{
		opts:     o,
		device:   device,
		queue:    queue,
		external: external,
		fence:    fence,
	}, nil
}

// Info implements gpu.Device.
func (d *Device) Info() gpu.DeviceInfo { return d.info }

// submit ends encoding and submits the command buffer under the next
// fence value.
func (d *Device) submit(encoder hal.CommandEncoder) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	d.fenceValue++
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, d.fence, d.fenceValue); err != nil {
		d.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("submit: %w", err)
	}
	// The command buffer stays alive until the fence passes.
	d.pendingFree = append(d.pendingFree, cmdBuf)
	return nil
}

// wait blocks until the last submission completes, then frees the
// resources it used.
func (d *Device) wait() error {
	if d.waited == d.fenceValue {
		return nil
	}
	ok, err := d.device.Wait(d.fence, d.fenceValue, waitTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("wait for GPU: timed out after %v", waitTimeout)
	}
	d.waited = d.fenceValue
	for _, bg := range d.transient {
		d.device.DestroyBindGroup(bg)
	}
	d.transient = d.transient[:0]
	for _, cb := range d.pendingFree {
		d.device.FreeCommandBuffer(cb)
	}
	d.pendingFree = d.pendingFree[:0]
	return nil
}

// Close implements gpu.Device. Objects not destroyed by their owners are
// leaked to the driver; Manager-owned handles are destroyed first by an
// Arena in normal use.
func (d *Device) Close() {
	if d.closed {
		return
	}
	if err := d.wait(); err != nil {
		gpu.Logger().Warn("wgpu: close", "err", err)
	}
	d.closed = true
	d.device.DestroyFence(d.fence)
	if d.external {
		return
	}
	d.device.Destroy()
	if d.instance != nil {
		d.instance.Destroy()
	}
	gpu.Logger().Info("wgpu: device closed")
}
