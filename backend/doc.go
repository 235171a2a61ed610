// Package backend is the registry of render systems.
//
// Backends register a Factory from an init function and are selected by
// name at runtime:
//
//	import _ "github.com/gogpu/compositor/backend/soft"
//
//	rs, err := backend.Open("soft")
//
// # Available Backends
//
//   - "soft": CPU rasterizer on *image.RGBA (always available)
//   - "halrs": render textures on a wgpu HAL device
//
// Default returns the first registered backend in priority order.
package backend
