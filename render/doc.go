// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the render-system contracts the compositor drives.
//
// The compositor never touches a GPU directly. It talks to a RenderSystem
// through a small surface: create render textures and multi render targets,
// clear the frame buffer, configure the stencil unit, draw full-screen quads
// and forward scene renderables. Backends live in the backend/ tree:
//
//   - backend/soft: CPU rasterizer on *image.RGBA, used by tests and the CLI
//   - backend/halrs: textures created through a wgpu HAL device
//
// # Core Types
//
//   - RenderSystem: resource creation and immediate-mode draw calls
//   - RenderTarget, RenderTexture, MultiRenderTarget: drawing destinations
//   - Viewport, Camera: what a target shows and from where
//   - Capabilities: device limits consulted when techniques are validated
//   - QueueSet: bitset of render queue ids
//
// # Shared Bookkeeping
//
// TargetBase and BasicViewport implement the listener, viewport and flag
// bookkeeping every backend needs. Backends embed TargetBase and supply the
// storage.
//
// # Thread Safety
//
// Render systems are NOT thread-safe. A system and every target it creates
// must be used from a single goroutine.
package render
