// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package backend selects a gpu.Device implementation by name.
//
// # Backend Registration
//
// Device packages register themselves in init(). Import them for their
// side effect:
//
//	import (
//		_ "github.com/gogpu/evotri/backend/software"
//		_ "github.com/gogpu/evotri/backend/wgpu"
//	)
//
// # Backend Selection
//
// Use Default to open the best device that works on this machine, or Open
// to request one by name:
//
//	dev, err := backend.Default()
//
//	dev, err := backend.Open("software")
//
// # Available Backends
//
//   - "wgpu": Vulkan, Metal or DX12 through gogpu/wgpu
//   - "software": CPU rasterizer (always available)
package backend
