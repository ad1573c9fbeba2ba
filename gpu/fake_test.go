// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

// fakeObject is the native object of fakeDevice.
type fakeObject struct {
	id    int
	kind  string
	label string
}

// fakeDevice records calls. Set the fail fields to inject errors.
type fakeDevice struct {
	next      int
	destroyed []string
	draws     []*Command
	writes    int
	reads     int
	closed    bool

	failShader  error
	failProgram error
	failBuffer  error
	failDraw    error
}

var errFake = errors.New("fake device failure")

func (d *fakeDevice) obj(kind, label string) *fakeObject {
	d.next++
	return &fakeObject{id: d.next, kind: kind, label: label}
}

func (d *fakeDevice) Info() DeviceInfo {
	return DeviceInfo{Name: "fake", Backend: "fake", Software: true}
}

func (d *fakeDevice) CreateShader(src ShaderSource, _ ShaderStage) (Object, error) {
	if d.failShader != nil {
		return nil, d.failShader
	}
	return d.obj("shader", src.Label), nil
}

func (d *fakeDevice) CreateProgram(spec ProgramSpec) (Object, error) {
	if d.failProgram != nil {
		return nil, d.failProgram
	}
	return d.obj("program", spec.Label), nil
}

func (d *fakeDevice) CreateBuffer(desc BufferDescriptor) (Object, error) {
	if d.failBuffer != nil {
		return nil, d.failBuffer
	}
	return d.obj("buffer", desc.Label), nil
}

func (d *fakeDevice) CreateTexture(desc TextureDescriptor) (Object, error) {
	return d.obj("texture", desc.Label), nil
}

func (d *fakeDevice) CreateFramebuffer(spec FramebufferSpec) (Object, error) {
	return d.obj("framebuffer", spec.Label), nil
}

func (d *fakeDevice) CreateVertexArray(spec VertexArraySpec) (Object, error) {
	return d.obj("vertex array", spec.Label), nil
}

func (d *fakeDevice) WriteBuffer(Object, int, []byte) error {
	d.writes++
	return nil
}

func (d *fakeDevice) WriteTexture(Object, []byte) error {
	d.writes++
	return nil
}

func (d *fakeDevice) Draw(cmd *Command) error {
	if d.failDraw != nil {
		return d.failDraw
	}
	d.draws = append(d.draws, cmd)
	return nil
}

func (d *fakeDevice) ReadPixels(_ Object, _ Rect, dst []byte) error {
	d.reads++
	for i := range dst {
		dst[i] = 0xAB
	}
	return nil
}

func (d *fakeDevice) Destroy(obj Object) {
	d.destroyed = append(d.destroyed, obj.(*fakeObject).label)
}

func (d *fakeDevice) Close() { d.closed = true }
