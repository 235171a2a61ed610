// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sort"

	"github.com/gogpu/gputypes"
)

// PixelFormat identifies a texel layout. It is the WebGPU texture format.
type PixelFormat = gputypes.TextureFormat

// FormatUnknown is the zero format, used when no format applies.
const FormatUnknown = gputypes.TextureFormatUndefined

// formatInfo describes a pixel format known to the compositor.
type formatInfo struct {
	script string
	bits   int
	float  bool
	srgb   PixelFormat
}

var formatTable = map[PixelFormat]formatInfo{
	gputypes.TextureFormatBGRA8Unorm:          {script: "PF_A8R8G8B8", bits: 32, srgb: gputypes.TextureFormatBGRA8UnormSrgb},
	gputypes.TextureFormatBGRA8UnormSrgb:      {script: "PF_A8R8G8B8_SRGB", bits: 32},
	gputypes.TextureFormatRGBA8Unorm:          {script: "PF_R8G8B8A8", bits: 32, srgb: gputypes.TextureFormatRGBA8UnormSrgb},
	gputypes.TextureFormatRGBA8UnormSrgb:      {script: "PF_R8G8B8A8_SRGB", bits: 32},
	gputypes.TextureFormatR8Unorm:             {script: "PF_L8", bits: 8},
	gputypes.TextureFormatR16Float:            {script: "PF_FLOAT16_R", bits: 16, float: true},
	gputypes.TextureFormatRG16Float:           {script: "PF_FLOAT16_GR", bits: 32, float: true},
	gputypes.TextureFormatRGBA16Float:         {script: "PF_FLOAT16_RGBA", bits: 64, float: true},
	gputypes.TextureFormatR32Float:            {script: "PF_FLOAT32_R", bits: 32, float: true},
	gputypes.TextureFormatRG32Float:           {script: "PF_FLOAT32_GR", bits: 64, float: true},
	gputypes.TextureFormatRGBA32Float:         {script: "PF_FLOAT32_RGBA", bits: 128, float: true},
	gputypes.TextureFormatDepth24PlusStencil8: {script: "PF_DEPTH", bits: 32},
}

// Three-channel names have no WebGPU layout and map onto the four-channel
// format of the same component type.
var formatAliases = map[string]PixelFormat{
	"PF_R8G8B8":      gputypes.TextureFormatRGBA8Unorm,
	"PF_X8R8G8B8":    gputypes.TextureFormatBGRA8Unorm,
	"PF_FLOAT16_RGB": gputypes.TextureFormatRGBA16Float,
	"PF_FLOAT32_RGB": gputypes.TextureFormatRGBA32Float,
	"PF_BYTE_RGBA":   gputypes.TextureFormatRGBA8Unorm,
	"PF_SHORT_GR":    gputypes.TextureFormatRG16Float,
	"PF_R8":          gputypes.TextureFormatR8Unorm,
	"PF_DEPTH24_S8":  gputypes.TextureFormatDepth24PlusStencil8,
}

// Degradation order tried by Capabilities.NativeFormat, wider first.
var formatFallbacks = map[PixelFormat][]PixelFormat{
	gputypes.TextureFormatRGBA32Float: {gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA8Unorm},
	gputypes.TextureFormatRG32Float:   {gputypes.TextureFormatRG16Float, gputypes.TextureFormatRGBA16Float},
	gputypes.TextureFormatR32Float:    {gputypes.TextureFormatR16Float, gputypes.TextureFormatRG16Float},
	gputypes.TextureFormatRGBA16Float: {gputypes.TextureFormatRGBA8Unorm},
	gputypes.TextureFormatRG16Float:   {gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA8Unorm},
	gputypes.TextureFormatR16Float:    {gputypes.TextureFormatR8Unorm, gputypes.TextureFormatRGBA8Unorm},
	gputypes.TextureFormatBGRA8Unorm:  {gputypes.TextureFormatRGBA8Unorm},
	gputypes.TextureFormatRGBA8Unorm:  {gputypes.TextureFormatBGRA8Unorm},
	gputypes.TextureFormatR8Unorm:     {gputypes.TextureFormatRGBA8Unorm},
}

// KnownFormats returns every format the compositor can describe, ordered
// by script name.
func KnownFormats() []PixelFormat {
	out := make([]PixelFormat, 0, len(formatTable))
	for f := range formatTable {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return formatTable[out[i]].script < formatTable[out[j]].script
	})
	return out
}

// FormatBits returns the bits per texel of f, or 0 for unknown formats.
func FormatBits(f PixelFormat) int {
	return formatTable[f].bits
}

// IsFloatingPoint reports whether f stores floating point components.
func IsFloatingPoint(f PixelFormat) bool {
	return formatTable[f].float
}

// SRGBVariant returns the sRGB-encoded sibling of f, if one exists.
func SRGBVariant(f PixelFormat) (PixelFormat, bool) {
	info, ok := formatTable[f]
	if !ok || info.srgb == gputypes.TextureFormatUndefined {
		return f, false
	}
	return info.srgb, true
}

// FormatName returns the script name of f.
func FormatName(f PixelFormat) string {
	if info, ok := formatTable[f]; ok {
		return info.script
	}
	return "PF_UNKNOWN"
}

// ParseFormat resolves a script name such as PF_FLOAT16_RGBA.
func ParseFormat(name string) (PixelFormat, bool) {
	for f, info := range formatTable {
		if info.script == name {
			return f, true
		}
	}
	if f, ok := formatAliases[name]; ok {
		return f, true
	}
	return gputypes.TextureFormatUndefined, false
}
