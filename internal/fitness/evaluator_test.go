// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fitness

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/anthonynsimon/bild/effect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/evotri/gpu"
	"github.com/gogpu/evotri/internal/gputest"
	"github.com/gogpu/evotri/internal/render"
)

// quantum is the fitness error one 8-bit rounding step can cause.
const quantum = 1.0 / 255

func TestDifferenceShaderCompiles(t *testing.T) {
	gputest.CompileWGSL(t, differenceWGSL)
}

func TestReduce(t *testing.T) {
	// Two individuals, resolution 2: one row of four pixels.
	pix := []byte{
		255, 255, 255, 255, 255, 255, 255, 255,
		255, 0, 0, 255, 0, 0, 0, 255,
	}
	got := Reduce(pix, 4, 2, 2)
	require.Len(t, got, 2)
	assert.InDelta(t, 1.0, got[0], 1e-6)
	assert.InDelta(t, 1.0/6, got[1], 1e-6)
}

func TestReduceSecondRow(t *testing.T) {
	// 65 individuals at resolution 1: individual 64 is the first pixel of
	// the second row.
	width := 64
	pix := make([]byte, width*2*4)
	pix[width*4], pix[width*4+1], pix[width*4+2] = 255, 255, 255
	got := Reduce(pix, width, 65, 1)
	require.Len(t, got, 65)
	assert.InDelta(t, 1.0, got[64], 1e-6)
	for i := 0; i < 64; i++ {
		assert.Zero(t, got[i])
	}
}

// saturated returns a resolution×resolution reference whose channels are
// all 0 or 255, so that its inverse differs by exactly 1 everywhere.
func saturated(resolution int) *image.RGBA {
	palette := []color.RGBA{
		{255, 0, 0, 255}, {0, 255, 255, 255}, {255, 255, 255, 255}, {0, 0, 0, 255},
		{0, 255, 0, 255}, {255, 0, 255, 255},
	}
	img := image.NewRGBA(image.Rect(0, 0, resolution, resolution))
	for y := 0; y < resolution; y++ {
		for x := 0; x < resolution; x++ {
			img.SetRGBA(x, y, palette[(x+2*y)%len(palette)])
		}
	}
	return img
}

// tile repeats ref over every cell of the atlas of population.
func tile(ref *image.RGBA, population int) *image.RGBA {
	r := ref.Bounds().Dx()
	w, h := render.Size(population, r)
	atlas := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			atlas.SetRGBA(x, y, ref.RGBAAt(x%r, y%r))
		}
	}
	return atlas
}

func uploadAtlas(t *testing.T, a *gpu.Arena, img *image.RGBA) *gpu.Texture {
	t.Helper()
	tex, err := a.CreateTexture(gpu.TextureDescriptor{
		Label:  "synthetic atlas",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Format: gpu.FormatRGBA8,
		Usage:  gpu.TextureUsageSampled | gpu.TextureUsageCopyDst,
		Pixels: img.Pix,
	})
	require.NoError(t, err)
	return tex
}

func TestEvaluateSyntheticAtlas(t *testing.T) {
	tests := []struct {
		name       string
		population int
		resolution int
	}{
		{"single row", 4, 6},
		{"two rows", 70, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, a := gputest.Software(t)
			ref := saturated(tt.resolution)
			e, err := New(a, tt.population, tt.resolution, ref)
			require.NoError(t, err)

			identical := tile(ref, tt.population)
			got, err := e.Evaluate(uploadAtlas(t, a, identical))
			require.NoError(t, err)
			require.Len(t, got, tt.population)
			for i, f := range got {
				assert.InDelta(t, 1.0, f, quantum, "identical individual %d", i)
			}

			inverted := effect.Invert(identical)
			got, err = e.Evaluate(uploadAtlas(t, a, inverted))
			require.NoError(t, err)
			for i, f := range got {
				assert.InDelta(t, 0.0, f, quantum, "inverted individual %d", i)
			}
		})
	}
}

func TestEvaluateMatchesCPUDifference(t *testing.T) {
	const population, resolution = 5, 4
	_, a := gputest.Software(t)
	rng := rand.New(rand.NewPCG(1, 2))

	ref := image.NewRGBA(image.Rect(0, 0, resolution, resolution))
	for i := range ref.Pix {
		ref.Pix[i] = uint8(rng.IntN(256))
	}
	w, h := render.Size(population, resolution)
	atlas := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range atlas.Pix {
		atlas.Pix[i] = uint8(rng.IntN(256))
	}

	e, err := New(a, population, resolution, ref)
	require.NoError(t, err)
	got, err := e.Evaluate(uploadAtlas(t, a, atlas))
	require.NoError(t, err)

	want := Difference(atlas, ref, resolution)
	diff := e.DifferenceImage()
	require.Equal(t, want.Bounds(), diff.Bounds())
	for i := range want.Pix {
		assert.InDelta(t, want.Pix[i], diff.Pix[i], 1, "byte %d", i)
	}
	assert.InDeltaSlice(t, Reduce(want.Pix, w, population, resolution), got, 2*quantum)
}

func TestEvaluateRanksCloserIndividualsHigher(t *testing.T) {
	const resolution = 4
	_, a := gputest.Software(t)
	red := image.NewRGBA(image.Rect(0, 0, resolution, resolution))
	for p := 0; p < len(red.Pix); p += 4 {
		copy(red.Pix[p:], []byte{255, 0, 0, 255})
	}
	e, err := New(a, 3, resolution, red)
	require.NoError(t, err)

	// Cells: red, dark red, blue.
	w, h := render.Size(3, resolution)
	atlas := image.NewRGBA(image.Rect(0, 0, w, h))
	cells := []color.RGBA{{255, 0, 0, 255}, {128, 0, 0, 255}, {0, 0, 255, 255}}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			atlas.SetRGBA(x, y, cells[x/resolution])
		}
	}
	got, err := e.Evaluate(uploadAtlas(t, a, atlas))
	require.NoError(t, err)
	assert.Greater(t, got[0], got[1])
	assert.Greater(t, got[1], got[2])
	assert.InDelta(t, 1.0/3, got[2], quantum)
}

func TestNewValidation(t *testing.T) {
	_, a := gputest.Software(t)
	_, err := New(a, 4, 8, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.Error(t, err)

	e, err := New(a, 4, 4, image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	wrong := uploadAtlas(t, a, image.NewRGBA(image.Rect(0, 0, 8, 4)))
	_, err = e.Evaluate(wrong)
	assert.Error(t, err)
	_, err = e.Evaluate(nil)
	assert.Error(t, err)
}
