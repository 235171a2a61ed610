// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"reflect"
	"testing"
)

func TestQueueSet(t *testing.T) {
	var s QueueSet
	if !s.Empty() {
		t.Fatal("zero QueueSet should be empty")
	}

	s.AddRange(QueueMain, QueueMain+2)
	s.Add(QueueMax)
	s.Add(200) // out of range, ignored

	want := []uint8{50, 51, 52, 105}
	if got := s.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
	if s.Has(QueueBackground) {
		t.Error("Has(0) should be false")
	}
	if !s.Has(QueueMax) {
		t.Error("Has(QueueMax) should be true")
	}
}

func TestFrameBufferTypeString(t *testing.T) {
	tests := []struct {
		in   FrameBufferType
		want string
	}{
		{0, "none"},
		{FrameBufferColour, "colour"},
		{FrameBufferColour | FrameBufferDepth, "colour depth"},
		{FrameBufferColour | FrameBufferDepth | FrameBufferStencil, "colour depth stencil"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("%d.String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStencil(t *testing.T) {
	tests := []struct {
		fn   CompareFunction
		ref  uint32
		val  uint32
		want bool
	}{
		{CompareAlwaysPass, 0, 1, true},
		{CompareAlwaysFail, 1, 1, false},
		{CompareEqual, 3, 3, true},
		{CompareNotEqual, 3, 3, false},
		{CompareLess, 1, 2, true},
		{CompareGreaterEqual, 2, 2, true},
	}
	for _, tt := range tests {
		if got := tt.fn.Test(tt.ref, tt.val, 0xFF); got != tt.want {
			t.Errorf("%v.Test(%d, %d) = %v, want %v", tt.fn, tt.ref, tt.val, got, tt.want)
		}
	}

	if StencilIncrement.Apply(255, 0) != 255 {
		t.Error("increment should saturate")
	}
	if StencilIncrementWrap.Apply(255, 0) != 0 {
		t.Error("increment_wrap should wrap")
	}
	if StencilReplace.Apply(7, 3) != 3 {
		t.Error("replace should store ref")
	}

	for i := range stencilOpNames {
		op := StencilOperation(i)
		got, ok := ParseStencilOperation(op.String())
		if !ok || got != op {
			t.Errorf("ParseStencilOperation(%q) = %v, %v", op.String(), got, ok)
		}
	}
	for i := range compareNames {
		fn := CompareFunction(i)
		got, ok := ParseCompareFunction(fn.String())
		if !ok || got != fn {
			t.Errorf("ParseCompareFunction(%q) = %v, %v", fn.String(), got, ok)
		}
	}
}

func TestColourRGBA(t *testing.T) {
	c := Colour{R: 1, G: 0.5, B: -1, A: 2}.RGBA()
	if c.R != 255 || c.G != 128 || c.B != 0 || c.A != 255 {
		t.Errorf("RGBA() = %v", c)
	}
}
