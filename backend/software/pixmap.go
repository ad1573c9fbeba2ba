// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// pixmap is the storage of a software texture: tightly packed RGBA rows,
// top row first. Depth textures keep one float per pixel instead.
type pixmap struct {
	width  int
	height int
	data   []uint8
	depth  []float32
}

func newPixmap(width, height int, depth bool) *pixmap {
	p := &pixmap{width: width, height: height}
	if depth {
		p.depth = make([]float32, width*height)
	} else {
		p.data = make([]uint8, width*height*4)
	}
	return p
}

// unorm8 converts a normalized channel the way an 8-bit render target
// does: clamp, scale and round to nearest.
func unorm8(x float32) uint8 {
	if !(x > 0) { // also catches NaN
		return 0
	}
	if x >= 1 {
		return 255
	}
	return uint8(math32.Floor(x*255 + 0.5))
}

// setPixel stores a straight-alpha color.
func (p *pixmap) setPixel(x, y int, c mgl32.Vec4) {
	i := (y*p.width + x) * 4
	p.data[i+0] = unorm8(c[0])
	p.data[i+1] = unorm8(c[1])
	p.data[i+2] = unorm8(c[2])
	p.data[i+3] = unorm8(c[3])
}

// getPixel returns the normalized color at (x, y), clamping coordinates
// to the edge.
func (p *pixmap) getPixel(x, y int) mgl32.Vec4 {
	x = min(max(x, 0), p.width-1)
	y = min(max(y, 0), p.height-1)
	i := (y*p.width + x) * 4
	return mgl32.Vec4{
		float32(p.data[i+0]) / 255,
		float32(p.data[i+1]) / 255,
		float32(p.data[i+2]) / 255,
		float32(p.data[i+3]) / 255,
	}
}

// clear fills the pixmap with a color.
func (p *pixmap) clear(c mgl32.Vec4) {
	r, g, b, a := unorm8(c[0]), unorm8(c[1]), unorm8(c[2]), unorm8(c[3])
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// clearDepth fills the depth plane with d.
func (p *pixmap) clearDepth(d float32) {
	for i := range p.depth {
		p.depth[i] = d
	}
}

// blend composites src over the stored pixel.
func (p *pixmap) blend(x, y int, src mgl32.Vec4) {
	dst := p.getPixel(x, y)
	a := src[3]
	p.setPixel(x, y, mgl32.Vec4{
		src[0]*a + dst[0]*(1-a),
		src[1]*a + dst[1]*(1-a),
		src[2]*a + dst[2]*(1-a),
		a + dst[3]*(1-a),
	})
}
