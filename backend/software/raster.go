// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/evotri/gpu"
)

// textureUnits maps bound units to their storage.
type textureUnits map[int]*pixmap

// Load implements gpu.TextureLoader.
func (u textureUnits) Load(unit, x, y int) mgl32.Vec4 {
	p := u[unit]
	if p == nil {
		return mgl32.Vec4{}
	}
	return p.getPixel(x, y)
}

// Size implements gpu.TextureLoader.
func (u textureUnits) Size(unit int) (width, height int) {
	p := u[unit]
	if p == nil {
		return 0, 0
	}
	return p.width, p.height
}

// screenVertex is a vertex after perspective division and the viewport
// transform. varying is pre-divided by w for perspective-correct
// interpolation.
type screenVertex struct {
	x, y    float32
	invW    float32
	varying mgl32.Vec4
}

// rasterizer runs the kernels of one draw.
//
// Coverage follows the usual GPU rules: a pixel is covered when its center
// lies inside the triangle, and pixels exactly on a shared edge belong to
// the triangle for which that edge is a top or left edge. Triangles with a
// vertex at w <= 0 are dropped; there is no near-plane clipping.
type rasterizer struct {
	target *pixmap
	cmd    *gpu.Command
	prog   *program

	// clip rectangle: the viewport intersected with the target
	x0, y0, x1, y1 int

	vin gpu.VertexInput
	fin gpu.FragmentInput
}

func (r *rasterizer) reset(target *pixmap, cmd *gpu.Command, prog *program, units textureUnits) {
	r.target = target
	r.cmd = cmd
	r.prog = prog
	vp := cmd.Viewport
	r.x0 = max(vp.X, 0)
	r.y0 = max(vp.Y, 0)
	r.x1 = min(vp.X+vp.Width, target.width)
	r.y1 = min(vp.Y+vp.Height, target.height)
	r.vin = gpu.VertexInput{Uniforms: cmd.Uniforms}
	r.fin = gpu.FragmentInput{Uniforms: cmd.Uniforms, Textures: units}
}

// shadeVertex fetches the attributes of vertex index and runs the vertex
// kernel.
func (r *rasterizer) shadeVertex(va *vertexArray, index int) gpu.VertexOutput {
	r.vin.Index = index
	for i := range r.vin.Attributes {
		r.vin.Attributes[i] = mgl32.Vec4{0, 0, 0, 1}
	}
	if va != nil {
		base := index * va.stride
		for _, a := range va.attributes {
			v := mgl32.Vec4{0, 0, 0, 1}
			for c := 0; c < a.Components; c++ {
				off := base + a.Offset + 4*c
				v[c] = math.Float32frombits(binary.LittleEndian.Uint32(va.buf.data[off:]))
			}
			r.vin.Attributes[a.Location] = v
		}
	}
	return r.prog.vertex(&r.vin)
}

func (r *rasterizer) project(o gpu.VertexOutput) (screenVertex, bool) {
	w := o.Position[3]
	if !(w > 0) {
		return screenVertex{}, false
	}
	inv := 1 / w
	nx, ny := o.Position[0]*inv, o.Position[1]*inv
	vp := r.cmd.Viewport
	return screenVertex{
		x:       float32(vp.X) + (nx+1)*0.5*float32(vp.Width),
		y:       float32(vp.Y) + (1-ny)*0.5*float32(vp.Height),
		invW:    inv,
		varying: o.Varying.Mul(inv),
	}, true
}

// edge is twice the signed area of (a, b, p).
func edge(a, b *screenVertex, px, py float32) float32 {
	return (b.x-a.x)*(py-a.y) - (b.y-a.y)*(px-a.x)
}

// topLeft reports whether a->b is a top or left edge of a triangle with
// positive area.
func topLeft(a, b *screenVertex) bool {
	dy := b.y - a.y
	return dy < 0 || (dy == 0 && b.x > a.x)
}

func inside(w float32, tl bool) bool {
	return w > 0 || (w == 0 && tl)
}

// triangle rasterizes one primitive.
func (r *rasterizer) triangle(tri *[3]gpu.VertexOutput) {
	var v [3]screenVertex
	for i := range tri {
		sv, ok := r.project(tri[i])
		if !ok {
			return
		}
		v[i] = sv
	}
	area := edge(&v[0], &v[1], v[2].x, v[2].y)
	if area == 0 || math32.IsNaN(area) {
		return
	}
	if area < 0 {
		v[1], v[2] = v[2], v[1]
		area = -area
	}

	clampf := func(x float32, lo, hi int) float32 {
		return math32.Min(math32.Max(x, float32(lo)), float32(hi))
	}
	minX := int(math32.Floor(clampf(math32.Min(v[0].x, math32.Min(v[1].x, v[2].x)), r.x0, r.x1)))
	maxX := int(math32.Ceil(clampf(math32.Max(v[0].x, math32.Max(v[1].x, v[2].x)), r.x0, r.x1)))
	minY := int(math32.Floor(clampf(math32.Min(v[0].y, math32.Min(v[1].y, v[2].y)), r.y0, r.y1)))
	maxY := int(math32.Ceil(clampf(math32.Max(v[0].y, math32.Max(v[1].y, v[2].y)), r.y0, r.y1)))
	maxX = min(maxX, r.x1-1)
	maxY = min(maxY, r.y1-1)

	tl0 := topLeft(&v[1], &v[2])
	tl1 := topLeft(&v[2], &v[0])
	tl2 := topLeft(&v[0], &v[1])
	inv := 1 / area

	for py := minY; py <= maxY; py++ {
		cy := float32(py) + 0.5
		for px := minX; px <= maxX; px++ {
			cx := float32(px) + 0.5
			w0 := edge(&v[1], &v[2], cx, cy)
			w1 := edge(&v[2], &v[0], cx, cy)
			w2 := edge(&v[0], &v[1], cx, cy)
			if !inside(w0, tl0) || !inside(w1, tl1) || !inside(w2, tl2) {
				continue
			}
			b0, b1, b2 := w0*inv, w1*inv, w2*inv
			invW := b0*v[0].invW + b1*v[1].invW + b2*v[2].invW
			varying := v[0].varying.Mul(b0).Add(v[1].varying.Mul(b1)).Add(v[2].varying.Mul(b2)).Mul(1 / invW)

			r.fin.X, r.fin.Y = px, py
			r.fin.Varying = varying
			c := r.prog.fragment(&r.fin)
			if r.cmd.Blend == gpu.BlendAlpha {
				r.target.blend(px, py, c)
			} else {
				r.target.setPixel(px, py, c)
			}
		}
	}
}
