// Package wgpu implements gpu.Device on the gogpu/wgpu HAL.
//
// The device runs WGSL shaders on Vulkan by default; other HAL backends can
// be selected with WithBackend when their package is linked in. Shader
// sources are checked with naga before a module is created, so compile
// failures carry a readable log.
//
// # Mapping
//
// Programs own a bind group layout with the uniform block at binding 0 and
// a texture/sampler pair per unit at bindings 1+2u and 2+2u. Render
// pipelines are created lazily per vertex layout, target format and blend
// mode. Every draw is one render pass in its own submission; framebuffers
// are attachment lists rather than API objects.
//
// # Synchronization
//
// A single fence orders all work. Draw, uploads, readbacks and Destroy wait
// for the previous submission before touching GPU memory, so uniform
// uploads never race the draw that reads them.
//
// # Usage
//
//	dev, err := wgpu.Open()
//	if err != nil {
//	    // fall back to backend/software
//	}
//	m := gpu.NewManager(dev)
//	defer m.Close()
package wgpu
