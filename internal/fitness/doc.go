// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fitness scores a rendered population against a reference image.
//
// A second draw pass samples the atlas and the reference and writes a
// difference image with one pixel per atlas column per row of cells. That
// image is small: it is the only readback of a generation. [Reduce] turns it
// into one fitness in [0,1] per individual, 1 meaning identical.
package fitness
