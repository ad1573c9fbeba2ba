// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package imageio loads reference images and writes results.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned for input that is not a supported image.
var ErrNotImage = errors.New("imageio: not an image")

// sniffLen is the number of bytes filetype needs to match a header.
const sniffLen = 262

var decodable = map[string]bool{
	"png": true, "jpg": true, "gif": true, "bmp": true, "webp": true, "tif": true,
}

// Sniff identifies the image format of a file header by its magic bytes
// and returns the format's usual extension.
func Sniff(head []byte) (string, error) {
	kind, err := filetype.Match(head)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if kind == filetype.Unknown || !filetype.IsImage(head) {
		return "", ErrNotImage
	}
	if !decodable[kind.Extension] {
		return "", fmt.Errorf("%w: unsupported format %s", ErrNotImage, kind.MIME.Value)
	}
	return kind.Extension, nil
}

// Decode reads an image, checking its format before decoding.
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReaderSize(r, sniffLen)
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("imageio: read header: %w", err)
	}
	format, err := Sniff(head)
	if err != nil {
		return nil, "", err
	}
	img, _, err := image.Decode(br)
	if err != nil {
		return nil, "", fmt.Errorf("imageio: decode %s: %w", format, err)
	}
	return img, format, nil
}

// Fit scales img to a resolution×resolution RGBA image. Images already at
// that size are only converted.
func Fit(img image.Image, resolution int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == resolution && b.Dy() == resolution {
		return clone.AsRGBA(img)
	}
	return transform.Resize(img, resolution, resolution, transform.Linear)
}

// Load decodes the image at path and fits it to resolution.
func Load(path string, resolution int) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("imageio: %w", err)
	}
	defer f.Close()
	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Fit(img, resolution), nil
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("imageio: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("imageio: encode %s: %w", path, err)
	}
	return f.Close()
}
