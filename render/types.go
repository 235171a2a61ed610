// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/color"
	"math"
	"strings"
)

// Colour is a linear RGBA color with float components in [0, 1].
type Colour struct {
	R, G, B, A float32
}

// Common colours.
var (
	ColourBlack = Colour{0, 0, 0, 1}
	ColourWhite = Colour{1, 1, 1, 1}
	ColourZero  = Colour{}
)

// RGBA converts the colour to 8-bit non-premultiplied RGBA.
func (c Colour) RGBA() color.NRGBA {
	return color.NRGBA{R: unit8(c.R), G: unit8(c.G), B: unit8(c.B), A: unit8(c.A)}
}

func unit8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// FrameBufferType selects buffers to clear. Values combine as a bitmask.
type FrameBufferType uint8

// Frame buffer selectors.
const (
	FrameBufferColour FrameBufferType = 1 << iota
	FrameBufferDepth
	FrameBufferStencil
)

// String returns the buffers in script order, separated by spaces.
func (b FrameBufferType) String() string {
	var parts []string
	if b&FrameBufferColour != 0 {
		parts = append(parts, "colour")
	}
	if b&FrameBufferDepth != 0 {
		parts = append(parts, "depth")
	}
	if b&FrameBufferStencil != 0 {
		parts = append(parts, "stencil")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// CompareFunction is a stencil comparison.
type CompareFunction uint8

// Stencil comparisons.
const (
	CompareAlwaysPass CompareFunction = iota
	CompareAlwaysFail
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareNotEqual
	CompareGreaterEqual
	CompareGreater
)

var compareNames = [...]string{
	CompareAlwaysPass:   "always_pass",
	CompareAlwaysFail:   "always_fail",
	CompareLess:         "less",
	CompareLessEqual:    "less_equal",
	CompareEqual:        "equal",
	CompareNotEqual:     "not_equal",
	CompareGreaterEqual: "greater_equal",
	CompareGreater:      "greater",
}

// String returns the script name of the comparison.
func (f CompareFunction) String() string {
	if int(f) < len(compareNames) {
		return compareNames[f]
	}
	return "unknown"
}

// ParseCompareFunction resolves a script name.
func ParseCompareFunction(s string) (CompareFunction, bool) {
	for i, n := range compareNames {
		if n == s {
			return CompareFunction(i), true
		}
	}
	return CompareAlwaysPass, false
}

// Test evaluates ref against value under f, both masked.
func (f CompareFunction) Test(ref, value, mask uint32) bool {
	r, v := ref&mask, value&mask
	switch f {
	case CompareAlwaysFail:
		return false
	case CompareLess:
		return r < v
	case CompareLessEqual:
		return r <= v
	case CompareEqual:
		return r == v
	case CompareNotEqual:
		return r != v
	case CompareGreaterEqual:
		return r >= v
	case CompareGreater:
		return r > v
	default:
		return true
	}
}

// StencilOperation describes what happens to a stencil value.
type StencilOperation uint8

// Stencil operations.
const (
	StencilKeep StencilOperation = iota
	StencilZero
	StencilReplace
	StencilIncrement
	StencilDecrement
	StencilIncrementWrap
	StencilDecrementWrap
	StencilInvert
)

var stencilOpNames = [...]string{
	StencilKeep:          "keep",
	StencilZero:          "zero",
	StencilReplace:       "replace",
	StencilIncrement:     "increment",
	StencilDecrement:     "decrement",
	StencilIncrementWrap: "increment_wrap",
	StencilDecrementWrap: "decrement_wrap",
	StencilInvert:        "invert",
}

// String returns the script name of the operation.
func (op StencilOperation) String() string {
	if int(op) < len(stencilOpNames) {
		return stencilOpNames[op]
	}
	return "unknown"
}

// ParseStencilOperation resolves a script name.
func ParseStencilOperation(s string) (StencilOperation, bool) {
	for i, n := range stencilOpNames {
		if n == s {
			return StencilOperation(i), true
		}
	}
	return StencilKeep, false
}

// Apply runs op on an 8-bit stencil value.
func (op StencilOperation) Apply(current, ref uint8) uint8 {
	switch op {
	case StencilZero:
		return 0
	case StencilReplace:
		return ref
	case StencilIncrement:
		if current == math.MaxUint8 {
			return current
		}
		return current + 1
	case StencilDecrement:
		if current == 0 {
			return 0
		}
		return current - 1
	case StencilIncrementWrap:
		return current + 1
	case StencilDecrementWrap:
		return current - 1
	case StencilInvert:
		return ^current
	default:
		return current
	}
}

// StencilParams configures the stencil unit.
type StencilParams struct {
	Func        CompareFunction
	RefValue    uint32
	Mask        uint32
	FailOp      StencilOperation
	DepthFailOp StencilOperation
	PassOp      StencilOperation
	TwoSided    bool
}

// DefaultStencilParams returns always-pass parameters with a full mask.
func DefaultStencilParams() StencilParams {
	return StencilParams{Func: CompareAlwaysPass, Mask: math.MaxUint32}
}

// QuadCorners are normalized device coordinates of a screen quad.
type QuadCorners struct {
	Left, Top, Right, Bottom float32
}

// FullScreen covers the whole viewport.
var FullScreen = QuadCorners{Left: -1, Top: 1, Right: 1, Bottom: -1}

// Quad is a textured screen-space draw.
type Quad struct {
	// Label names the draw for diagnostics, usually the material.
	Label string

	Corners QuadCorners

	// Inputs are bound to texture units in order. A nil entry leaves
	// the unit unbound.
	Inputs []Texture

	// Colour tints the quad and is used alone when no input is bound.
	Colour Colour

	// FarCorners requests view-space frustum corners as vertex normals.
	FarCorners bool
}

// Renderable is a scene object submitted to a render queue.
type Renderable struct {
	Name    string
	Queue   uint8
	Bounds  QuadCorners
	Colour  Colour
	Visible uint32
}
