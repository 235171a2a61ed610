// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gputypes"
)

// DefaultMaxColorAttachments is the WebGPU baseline for simultaneous color
// attachments.
const DefaultMaxColorAttachments = 8

// Capabilities describes what the active device can render to.
//
// Technique validation consults it to decide whether a multi render target
// fits, whether every requested format has a native equivalent, and whether
// mixed bit depths are allowed across attachments.
type Capabilities struct {
	// DeviceName is informational only.
	DeviceName string

	// MaxColorAttachments bounds the formats of one texture definition.
	MaxColorAttachments int

	// MaxTextureDimension2D bounds render texture width and height.
	MaxTextureDimension2D uint32

	// MRTDifferentBitDepths allows attachments of one multi render
	// target to use formats with different bit depths.
	MRTDifferentBitDepths bool

	// RenderTargetFormats lists formats usable as render attachments.
	// A nil slice means every known format.
	RenderTargetFormats []PixelFormat

	// Texel offsets applied to full-screen quad corners. Systems that
	// sample texel centers at half-pixel offsets report 0.5 here.
	HorizontalTexelOffset float32
	VerticalTexelOffset   float32
}

// DefaultCapabilities describes a device at the WebGPU default limits.
func DefaultCapabilities() Capabilities {
	return CapabilitiesFromLimits(gputypes.DefaultLimits())
}

// CapabilitiesFromLimits derives compositor capabilities from device limits.
func CapabilitiesFromLimits(limits gputypes.Limits) Capabilities {
	return Capabilities{
		DeviceName:            "default",
		MaxColorAttachments:   DefaultMaxColorAttachments,
		MaxTextureDimension2D: limits.MaxTextureDimension2D,
		MRTDifferentBitDepths: true,
	}
}

// SupportsFormat reports whether f can be a render attachment as is.
func (c Capabilities) SupportsFormat(f PixelFormat) bool {
	if f == gputypes.TextureFormatUndefined {
		return false
	}
	if c.RenderTargetFormats == nil {
		_, ok := formatTable[f]
		return ok
	}
	for _, have := range c.RenderTargetFormats {
		if have == f {
			return true
		}
	}
	return false
}

// NativeFormat returns the format the device would actually allocate for f.
// Unsupported formats degrade along a fixed fallback order. The result is
// TextureFormatUndefined when nothing close is available.
func (c Capabilities) NativeFormat(f PixelFormat) PixelFormat {
	if c.SupportsFormat(f) {
		return f
	}
	for _, alt := range formatFallbacks[f] {
		if c.SupportsFormat(alt) {
			return alt
		}
	}
	return gputypes.TextureFormatUndefined
}

// FitsTexture reports whether a width x height texture can be allocated.
func (c Capabilities) FitsTexture(width, height int) bool {
	if c.MaxTextureDimension2D == 0 {
		return true
	}
	limit := int(c.MaxTextureDimension2D)
	return width <= limit && height <= limit
}
