// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package software implements gpu.Device on the CPU.
//
// Shaders run as the Go kernels attached to each gpu.ShaderSource.
// Rasterization matches what a hardware device produces for the same
// draw: pixel-center sampling, the top-left fill rule, perspective-correct
// varyings and round-to-nearest RGBA8 output. Every draw completes before
// Draw returns, so ReadPixels never waits.
//
// The device is used by the test suites of the renderer, the fitness
// evaluator and the pipeline, and as the CLI fallback when no GPU adapter
// is available.
package software
