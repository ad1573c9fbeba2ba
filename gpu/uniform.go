// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformKind is the arity and scalar type of a uniform value.
type UniformKind uint8

const (
	UniformInt1 UniformKind = iota
	UniformFloat1
	UniformInt2
	UniformFloat2
	UniformInt3
	UniformFloat3
	UniformInt4
	UniformFloat4
)

// String returns the WGSL type name of the kind.
func (k UniformKind) String() string {
	switch k {
	case UniformInt1:
		return "i32"
	case UniformFloat1:
		return "f32"
	case UniformInt2:
		return "vec2<i32>"
	case UniformFloat2:
		return "vec2<f32>"
	case UniformInt3:
		return "vec3<i32>"
	case UniformFloat3:
		return "vec3<f32>"
	case UniformInt4:
		return "vec4<i32>"
	case UniformFloat4:
		return "vec4<f32>"
	default:
		return fmt.Sprintf("UniformKind(%d)", k)
	}
}

// components returns the number of scalars in a value of this kind.
func (k UniformKind) components() int {
	return int(k)/2 + 1
}

// alignment returns the WGSL uniform address space alignment.
// vec3 aligns like vec4.
func (k UniformKind) alignment() int {
	switch k.components() {
	case 1:
		return 4
	case 2:
		return 8
	default:
		return 16
	}
}

// Value is a uniform value. The set of implementations is closed:
// Int1, Float1, Int2, Float2, Int3, Float3, Int4 and Float4.
type Value interface {
	Kind() UniformKind
	sealed()
}

type (
	Int1   struct{ X int32 }
	Float1 struct{ X float32 }
	Int2   struct{ X, Y int32 }
	Float2 struct{ X, Y float32 }
	Int3   struct{ X, Y, Z int32 }
	Float3 struct{ X, Y, Z float32 }
	Int4   struct{ X, Y, Z, W int32 }
	Float4 struct{ X, Y, Z, W float32 }
)

func (Int1) Kind() UniformKind   { return UniformInt1 }
func (Float1) Kind() UniformKind { return UniformFloat1 }
func (Int2) Kind() UniformKind   { return UniformInt2 }
func (Float2) Kind() UniformKind { return UniformFloat2 }
func (Int3) Kind() UniformKind   { return UniformInt3 }
func (Float3) Kind() UniformKind { return UniformFloat3 }
func (Int4) Kind() UniformKind   { return UniformInt4 }
func (Float4) Kind() UniformKind { return UniformFloat4 }

func (Int1) sealed()   {}
func (Float1) sealed() {}
func (Int2) sealed()   {}
func (Float2) sealed() {}
func (Int3) sealed()   {}
func (Float3) sealed() {}
func (Int4) sealed()   {}
func (Float4) sealed() {}

// scalars returns the raw 32-bit words of v.
func scalars(v Value) ([]uint32, error) {
	i := func(x int32) uint32 { return uint32(x) } //nolint:gosec // bit reinterpretation
	f := math.Float32bits
	switch v := v.(type) {
	case Int1:
		return []uint32{i(v.X)}, nil
	case Float1:
		return []uint32{f(v.X)}, nil
	case Int2:
		return []uint32{i(v.X), i(v.Y)}, nil
	case Float2:
		return []uint32{f(v.X), f(v.Y)}, nil
	case Int3:
		return []uint32{i(v.X), i(v.Y), i(v.Z)}, nil
	case Float3:
		return []uint32{f(v.X), f(v.Y), f(v.Z)}, nil
	case Int4:
		return []uint32{i(v.X), i(v.Y), i(v.Z), i(v.W)}, nil
	case Float4:
		return []uint32{f(v.X), f(v.Y), f(v.Z), f(v.W)}, nil
	default:
		return nil, fmt.Errorf("gpu: unsupported uniform value %T", v)
	}
}

// zeroValue returns the zero value of the given kind.
func zeroValue(k UniformKind) Value {
	switch k {
	case UniformInt1:
		return Int1{}
	case UniformFloat1:
		return Float1{}
	case UniformInt2:
		return Int2{}
	case UniformFloat2:
		return Float2{}
	case UniformInt3:
		return Int3{}
	case UniformFloat3:
		return Float3{}
	case UniformInt4:
		return Int4{}
	default:
		return Float4{}
	}
}

// UniformDecl declares one member of a program's uniform block.
type UniformDecl struct {
	Name string
	Kind UniformKind
}

// UniformLayout is the byte layout of a uniform block.
type UniformLayout struct {
	Offsets []int
	Size    int
}

// NewUniformLayout computes member offsets following WGSL uniform address
// space rules. The block size is rounded up to 16 bytes.
func NewUniformLayout(decls []UniformDecl) UniformLayout {
	layout := UniformLayout{Offsets: make([]int, len(decls))}
	end := 0
	for i, d := range decls {
		a := d.Kind.alignment()
		off := (end + a - 1) &^ (a - 1)
		layout.Offsets[i] = off
		end = off + 4*d.Kind.components()
	}
	if end > 0 {
		layout.Size = (end + 15) &^ 15
	}
	return layout
}

// Uniforms is the uniform state of a program as seen by a draw.
type Uniforms struct {
	decls  []UniformDecl
	values []Value
	layout UniformLayout
}

func newUniforms(decls []UniformDecl) *Uniforms {
	u := &Uniforms{
		decls:  decls,
		values: make([]Value, len(decls)),
		layout: NewUniformLayout(decls),
	}
	for i, d := range decls {
		u.values[i] = zeroValue(d.Kind)
	}
	return u
}

// Len returns the number of declared uniforms.
func (u *Uniforms) Len() int { return len(u.decls) }

// Layout returns the byte layout of the uniform block.
func (u *Uniforms) Layout() UniformLayout { return u.layout }

// Lookup returns the current value of the named uniform.
func (u *Uniforms) Lookup(name string) (Value, bool) {
	for i, d := range u.decls {
		if d.Name == name {
			return u.values[i], true
		}
	}
	return nil, false
}

// Int returns the named Int1 uniform, or 0.
func (u *Uniforms) Int(name string) int32 {
	v, _ := u.Lookup(name)
	if x, ok := v.(Int1); ok {
		return x.X
	}
	return 0
}

// Float returns the named Float1 uniform, or 0.
func (u *Uniforms) Float(name string) float32 {
	v, _ := u.Lookup(name)
	if x, ok := v.(Float1); ok {
		return x.X
	}
	return 0
}

// Vec2 returns the named Float2 uniform, or the zero vector.
func (u *Uniforms) Vec2(name string) mgl32.Vec2 {
	v, _ := u.Lookup(name)
	if x, ok := v.(Float2); ok {
		return mgl32.Vec2{x.X, x.Y}
	}
	return mgl32.Vec2{}
}

// Vec4 returns the named Float4 uniform, or the zero vector.
func (u *Uniforms) Vec4(name string) mgl32.Vec4 {
	v, _ := u.Lookup(name)
	if x, ok := v.(Float4); ok {
		return mgl32.Vec4{x.X, x.Y, x.Z, x.W}
	}
	return mgl32.Vec4{}
}

// Bytes packs the uniform block into its little-endian byte layout.
func (u *Uniforms) Bytes() []byte {
	buf := make([]byte, u.layout.Size)
	for i, v := range u.values {
		words, err := scalars(v)
		if err != nil {
			continue
		}
		off := u.layout.Offsets[i]
		for j, w := range words {
			binary.LittleEndian.PutUint32(buf[off+4*j:], w)
		}
	}
	return buf
}

// set stores v at index i after checking it matches the declaration.
func (u *Uniforms) set(i int, v Value) error {
	if v == nil {
		return fmt.Errorf("gpu: nil value for uniform %q", u.decls[i].Name)
	}
	if _, err := scalars(v); err != nil {
		return err
	}
	if v.Kind() != u.decls[i].Kind {
		return fmt.Errorf("gpu: uniform %q is %s, got %s", u.decls[i].Name, u.decls[i].Kind, v.Kind())
	}
	u.values[i] = v
	return nil
}

// assign copies the values of src, which must share u's declarations.
func (u *Uniforms) assign(src *Uniforms) {
	copy(u.values, src.values)
}

// snapshot returns an independent copy for submission.
func (u *Uniforms) snapshot() *Uniforms {
	c := &Uniforms{decls: u.decls, layout: u.layout, values: make([]Value, len(u.values))}
	copy(c.values, u.values)
	return c
}
