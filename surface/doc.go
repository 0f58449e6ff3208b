// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the texture abstraction that holds an atlas.
//
// A Surface is a fixed-size RGBA8 pixel buffer with a mip chain and a
// sampler state. The atlas store allocates surfaces through an Allocator,
// writes sprites into them row by row and regenerates mip levels after each
// write. This allows the same atlas code to work with:
//
//   - CPU-resident textures (ImageSurface)
//   - wgpu HAL textures (HALSurface)
//   - Third-party backends via registry
//
// # Orientation
//
// Surfaces are addressed in storage order: row 0 is the first row in
// memory, which a GPU samples as v = 0. Callers that lay out sprites top
// down flip rows before writing; see FlipRows.
//
// # Registry
//
// Backends register an AllocatorFactory under a name and a priority:
//
//	surface.Register("vulkan", 100, vulkanFactory, vulkanAvailable)
//
//	// Later:
//	alloc, err := surface.NewAllocator("vulkan")
//
// The CPU backend is registered as "image". A wgpu device shared through
// gpucontext is registered with RegisterHAL. Backends lists what is
// registered; DefaultAllocator picks the best available one.
//
// # Usage
//
//	alloc, _ := surface.NewAllocator("image")
//	s, _ := alloc.Allocate(1024, 256)
//	defer s.Close()
//
//	_ = s.WriteSubRegion(0, 0, icon)
//	_ = s.RegenerateMips()
package surface
