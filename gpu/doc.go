// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu is the resource layer of evotri.
//
// It owns creation and destruction of shaders, programs, buffers, textures,
// framebuffers and vertex arrays. No other package touches raw device
// handles: renderers ask a [Manager] for typed handles and submit work as
// [DrawCall] values.
//
// # Devices
//
// A [Manager] wraps a [Device]. Two devices ship with evotri:
//
//   - backend/wgpu: hardware rendering over gogpu/wgpu HAL (Vulkan by default)
//   - backend/software: a CPU device with the same contract, used by tests
//     and as a fallback on machines without a GPU
//
// Shaders are WGSL text plus an optional CPU kernel. The hardware device
// compiles the WGSL; the software device runs the kernel.
//
// # Ownership
//
// Every handle has a Release method. Handles created through an [Arena] are
// also released en masse, in reverse creation order, by [Arena.Release].
// Using a released handle returns [ErrReleased].
//
//	arena := gpu.NewArena(m)
//	defer arena.Release()
//
//	tex, err := arena.CreateTexture(gpu.TextureDescriptor{
//	    Label:  "atlas",
//	    Width:  512,
//	    Height: 512,
//	    Format: gpu.FormatRGBA8,
//	    Usage:  gpu.TextureUsageRenderTarget | gpu.TextureUsageSampled,
//	})
//
// # Binding state
//
// Like the APIs it models, a Manager carries implicit binding state: a
// program keeps the last uniform values it was drawn with. A Manager is not
// safe for concurrent use.
package gpu
