// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fitness

import (
	"image"

	"github.com/chewxy/math32"

	"github.com/gogpu/evotri/internal/render"
)

// Reduce turns a difference image into one fitness per individual.
//
// pix holds the RGBA rows of the difference image, width pixels wide.
// Individual i owns the resolution pixels of row i/64 starting at column
// (i mod 64)*resolution; its fitness is the mean of their RGB channels.
func Reduce(pix []byte, width, population, resolution int) []float32 {
	out := make([]float32, population)
	norm := 1 / (255 * 3 * float32(resolution))
	for i := range out {
		col, row := render.Cell(i)
		start := (row*width + col*resolution) * 4
		var sum uint32
		for x := 0; x < resolution; x++ {
			p := pix[start+x*4:]
			sum += uint32(p[0]) + uint32(p[1]) + uint32(p[2])
		}
		out[i] = float32(sum) * norm
	}
	return out
}

// Difference computes the difference image on the CPU, quantized like the
// 8-bit render target. atlas is the rendered atlas and reference one
// resolution×resolution cell.
func Difference(atlas, reference *image.RGBA, resolution int) *image.RGBA {
	ab := atlas.Bounds()
	rows := ab.Dy() / resolution
	out := image.NewRGBA(image.Rect(0, 0, ab.Dx(), rows))
	rb := reference.Bounds()
	for row := 0; row < rows; row++ {
		for x := 0; x < ab.Dx(); x++ {
			var sum [3]float32
			for y := 0; y < resolution; y++ {
				a := atlas.PixOffset(ab.Min.X+x, ab.Min.Y+row*resolution+y)
				b := reference.PixOffset(rb.Min.X+x%resolution, rb.Min.Y+y)
				for c := range sum {
					sum[c] += math32.Abs(float32(atlas.Pix[a+c])/255 - float32(reference.Pix[b+c])/255)
				}
			}
			o := out.PixOffset(x, row)
			for c := range sum {
				out.Pix[o+c] = unorm8(1 - sum[c]*(1/float32(resolution)))
			}
			out.Pix[o+3] = 255
		}
	}
	return out
}

func unorm8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math32.Floor(v*255 + 0.5))
}
