// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrs

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/render"
)

// createNoopDevice opens a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

func newSystem(t *testing.T, opts ...Option) *System {
	t.Helper()
	device, queue := createNoopDevice(t)
	s := New(device, queue, opts...)
	t.Cleanup(s.Close)
	return s
}

func newTarget(t *testing.T, s *System, name string, w, h int) *Texture {
	t.Helper()
	rt, err := s.CreateRenderTexture(render.TextureDesc{
		Name:   name,
		Width:  w,
		Height: h,
		Format: gputypes.TextureFormatRGBA8Unorm,
	})
	if err != nil {
		t.Fatalf("CreateRenderTexture(%s) error = %v", name, err)
	}
	return rt.(*Texture)
}

func activate(s *System, tex render.RenderTarget) {
	s.SetActiveViewport(render.NewBasicViewport(s, tex, nil))
}

type recordingHook struct {
	quads       []render.Quad
	renderables []string
	passes      []*Pass
	err         error
}

func (h *recordingHook) DrawQuad(p *Pass, q render.Quad) error {
	h.quads = append(h.quads, q)
	h.passes = append(h.passes, p)
	return h.err
}

func (h *recordingHook) DrawRenderable(p *Pass, r render.Renderable) error {
	h.renderables = append(h.renderables, r.Name)
	h.passes = append(h.passes, p)
	return h.err
}

func TestRegistered(t *testing.T) {
	rs, err := backend.Open(backend.BackendHALRS)
	if err != nil {
		t.Fatalf("Open(halrs) error = %v", err)
	}
	s := rs.(*System)
	defer s.Close()
	if s.Name() != "halrs" {
		t.Errorf("Name() = %q, want halrs", s.Name())
	}
	if s.Capabilities().MaxTextureDimension2D != gputypes.DefaultLimits().MaxTextureDimension2D {
		t.Errorf("MaxTextureDimension2D = %d, want default limit", s.Capabilities().MaxTextureDimension2D)
	}
}

func TestCreateRenderTexture(t *testing.T) {
	s := newSystem(t)
	tex := newTarget(t, s, "rt", 16, 8)
	if tex.Raw() == nil || tex.View() == nil || tex.DepthView() == nil {
		t.Fatal("texture should own colour and depth resources")
	}
	if tex.Width() != 16 || tex.Height() != 8 {
		t.Errorf("size = %dx%d, want 16x8", tex.Width(), tex.Height())
	}

	_, err := s.CreateRenderTexture(render.TextureDesc{Name: "rt", Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm})
	if !errors.Is(err, ErrDuplicateTarget) {
		t.Errorf("duplicate name error = %v, want ErrDuplicateTarget", err)
	}

	s.DestroyRenderTarget(tex)
	if s.Target("rt") != nil || tex.View() != nil || tex.Raw() != nil {
		t.Error("destroy should release the target and its views")
	}
	if got := s.Stats(); got.Created != 1 || got.Destroyed != 1 {
		t.Errorf("stats = %+v, want 1 created 1 destroyed", got)
	}
}

func TestCreateRenderTextureErrors(t *testing.T) {
	caps := render.DefaultCapabilities()
	caps.MaxTextureDimension2D = 64
	caps.RenderTargetFormats = []render.PixelFormat{gputypes.TextureFormatRGBA8Unorm}
	s := newSystem(t, WithCapabilities(caps))

	tests := []struct {
		name string
		desc render.TextureDesc
		want error
	}{
		{"too large", render.TextureDesc{Name: "a", Width: 128, Height: 8, Format: gputypes.TextureFormatRGBA8Unorm}, ErrTextureTooLarge},
		{"empty", render.TextureDesc{Name: "b", Width: 0, Height: 8, Format: gputypes.TextureFormatRGBA8Unorm}, ErrTextureTooLarge},
		{"no fallback", render.TextureDesc{Name: "c", Width: 8, Height: 8, Format: gputypes.TextureFormatDepth32Float}, ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.CreateRenderTexture(tt.desc); !errors.Is(err, tt.want) {
				t.Errorf("CreateRenderTexture() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestResizeReallocates(t *testing.T) {
	s := newSystem(t)
	tex := newTarget(t, s, "rt", 8, 8)
	tex.Resize(32, 16)
	if tex.Width() != 32 || tex.Height() != 16 || tex.View() == nil {
		t.Errorf("after resize: %dx%d view=%v", tex.Width(), tex.Height(), tex.View())
	}
}

func TestClearFrameBuffer(t *testing.T) {
	s := newSystem(t)
	tex := newTarget(t, s, "rt", 8, 8)

	s.ClearFrameBuffer(render.FrameBufferColour, render.ColourWhite, 1, 0)
	if got := s.Stats(); got.Clears != 1 || got.Submits != 0 {
		t.Errorf("clear without viewport: %+v, want counted but not submitted", got)
	}

	activate(s, tex)
	s.ClearFrameBuffer(render.FrameBufferColour|render.FrameBufferDepth, render.ColourWhite, 1, 0)
	if got := s.Stats(); got.Clears != 2 || got.Submits != 1 {
		t.Errorf("stats = %+v, want 2 clears 1 submit", got)
	}
}

func TestPassDescriptor(t *testing.T) {
	s := newSystem(t)
	a := newTarget(t, s, "a", 8, 8)
	b := newTarget(t, s, "b", 8, 8)

	desc := passDescriptor("x", []*Texture{a, b}, render.FrameBufferColour|render.FrameBufferStencil, render.Colour{R: 1, A: 1}, 0.5, 3)
	if len(desc.ColorAttachments) != 2 {
		t.Fatalf("len(ColorAttachments) = %d, want 2", len(desc.ColorAttachments))
	}
	for i, ca := range desc.ColorAttachments {
		if ca.LoadOp != gputypes.LoadOpClear || ca.ClearValue.R != 1 {
			t.Errorf("attachment %d = %+v, want a red clear", i, ca)
		}
	}
	ds := desc.DepthStencilAttachment
	if ds == nil || ds.View != a.DepthView() {
		t.Fatal("depth/stencil should come from the first surface")
	}
	if ds.DepthLoadOp != gputypes.LoadOpLoad || ds.StencilLoadOp != gputypes.LoadOpClear || ds.StencilClearValue != 3 {
		t.Errorf("depth/stencil = %+v, want depth loaded and stencil cleared to 3", ds)
	}
}

func TestDrawHook(t *testing.T) {
	hook := &recordingHook{}
	s := newSystem(t, WithDrawHook(hook))
	src := newTarget(t, s, "src", 8, 8)
	dst := newTarget(t, s, "dst", 8, 8)
	activate(s, dst)

	q := render.Quad{Label: "copy", Corners: render.FullScreen, Inputs: []render.Texture{src}}
	if err := s.DrawQuad(q); err != nil {
		t.Fatalf("DrawQuad() error = %v", err)
	}
	if err := s.DrawRenderable(render.Renderable{Name: "world"}); err != nil {
		t.Fatalf("DrawRenderable() error = %v", err)
	}
	if len(hook.quads) != 1 || hook.quads[0].Inputs[0] != src {
		t.Fatalf("hook quads = %v, want the copy quad", hook.quads)
	}
	if len(hook.renderables) != 1 || hook.renderables[0] != "world" {
		t.Errorf("hook renderables = %v, want [world]", hook.renderables)
	}
	p := hook.passes[0]
	if p.Target != "dst" || p.Encoder == nil || len(p.Formats) != 1 || p.Formats[0] != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("pass = %+v, want an open pass on dst", p)
	}
	if p.DepthStencil != nil {
		t.Error("stencil state should be nil while the check is off")
	}
	if got := s.Stats(); got.Quads != 1 || got.Renderables != 1 || got.Submits != 2 {
		t.Errorf("stats = %+v", got)
	}

	hook.err = errors.New("pipeline missing")
	if err := s.DrawQuad(q); !errors.Is(err, hook.err) {
		t.Errorf("DrawQuad() = %v, want the hook error", err)
	}
}

func TestDrawWithoutHook(t *testing.T) {
	s := newSystem(t)
	activate(s, newTarget(t, s, "rt", 4, 4))
	if err := s.DrawQuad(render.Quad{Label: "q"}); err != nil {
		t.Fatal(err)
	}
	if got := s.Stats(); got.Quads != 1 || got.Submits != 0 {
		t.Errorf("stats = %+v, want the quad counted only", got)
	}
}

func TestStencilState(t *testing.T) {
	s := newSystem(t)
	if s.StencilState() != nil {
		t.Fatal("StencilState() should be nil with the check disabled")
	}
	s.SetStencilCheckEnabled(true)
	s.SetStencilBufferParams(render.StencilParams{
		Func:   render.CompareNotEqual,
		Mask:   0xFF,
		FailOp: render.StencilZero,
		PassOp: render.StencilReplace,
	})
	ds := s.StencilState()
	if ds == nil {
		t.Fatal("StencilState() = nil with the check enabled")
	}
	if ds.StencilFront.Compare != gputypes.CompareFunctionNotEqual || ds.StencilBack.Compare != gputypes.CompareFunctionNotEqual {
		t.Errorf("compare = %v/%v, want not equal", ds.StencilFront.Compare, ds.StencilBack.Compare)
	}
	if ds.StencilFront.FailOp != hal.StencilOperationZero || ds.StencilFront.PassOp != hal.StencilOperationReplace {
		t.Errorf("ops = %+v", ds.StencilFront)
	}
	if ds.Format != depthFormat {
		t.Errorf("Format = %v, want depth24plus-stencil8", ds.Format)
	}
}

func TestCompareFunctionMapping(t *testing.T) {
	tests := []struct {
		in   render.CompareFunction
		want gputypes.CompareFunction
	}{
		{render.CompareAlwaysPass, gputypes.CompareFunctionAlways},
		{render.CompareAlwaysFail, gputypes.CompareFunctionNever},
		{render.CompareLess, gputypes.CompareFunctionLess},
		{render.CompareLessEqual, gputypes.CompareFunctionLessEqual},
		{render.CompareEqual, gputypes.CompareFunctionEqual},
		{render.CompareNotEqual, gputypes.CompareFunctionNotEqual},
		{render.CompareGreaterEqual, gputypes.CompareFunctionGreaterEqual},
		{render.CompareGreater, gputypes.CompareFunctionGreater},
	}
	for _, tt := range tests {
		if got := compareFunction(tt.in); got != tt.want {
			t.Errorf("compareFunction(%s) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMultiTarget(t *testing.T) {
	hook := &recordingHook{}
	s := newSystem(t, WithDrawHook(hook))
	a := newTarget(t, s, "a", 8, 8)
	b := newTarget(t, s, "b", 8, 8)
	odd := newTarget(t, s, "odd", 4, 4)

	mrt, err := s.CreateMultiRenderTarget("mrt")
	if err != nil {
		t.Fatal(err)
	}
	if err := mrt.BindSurface(0, a); err != nil {
		t.Fatal(err)
	}
	if err := mrt.BindSurface(1, b); err != nil {
		t.Fatal(err)
	}
	if err := mrt.BindSurface(2, odd); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("BindSurface(odd) = %v, want ErrSizeMismatch", err)
	}
	if mrt.Surface(1) != b || mrt.Width() != 8 {
		t.Error("MRT surfaces not bound")
	}

	activate(s, mrt)
	if err := s.DrawQuad(render.Quad{Label: "gbuffer"}); err != nil {
		t.Fatal(err)
	}
	if got := len(hook.passes[0].Formats); got != 2 {
		t.Errorf("MRT pass formats = %d, want 2", got)
	}

	s.DestroyRenderTarget(mrt)
	if a.View() == nil {
		t.Error("destroying an MRT must not release its surfaces")
	}
}

func TestNewWindow(t *testing.T) {
	s := newSystem(t, WithWindowFormat(gputypes.TextureFormatRGBA8Unorm))
	win, err := s.NewWindow("win", 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !win.AutoUpdated() || win.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("window format = %v autoUpdated = %v", win.Format(), win.AutoUpdated())
	}
}

type mockDevice struct{}

func (m *mockDevice) Poll(wait bool) {}
func (m *mockDevice) Destroy()       {}

type mockQueue struct{}

type mockAdapter struct{}

type mockProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (m *mockProvider) Device() gpucontext.Device             { return &mockDevice{} }
func (m *mockProvider) Queue() gpucontext.Queue               { return &mockQueue{} }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return &mockAdapter{} }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

type sharedProvider struct{ mockProvider }

func (p *sharedProvider) HalDevice() any { return p.device }
func (p *sharedProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	device, queue := createNoopDevice(t)

	if _, err := NewFromProvider(nil); !errors.Is(err, ErrNilProvider) {
		t.Errorf("NewFromProvider(nil) = %v, want ErrNilProvider", err)
	}
	if _, err := NewFromProvider(&mockProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(no hal) = %v, want ErrNoHAL", err)
	}
	if _, err := NewFromProvider(&sharedProvider{}); !errors.Is(err, ErrNoHAL) {
		t.Errorf("NewFromProvider(nil device) = %v, want ErrNoHAL", err)
	}

	s, err := NewFromProvider(&sharedProvider{mockProvider{device: device, queue: queue}})
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	defer s.Close()
	if s.Device() != device || s.Queue() != queue {
		t.Error("provider device and queue not used")
	}
	win, err := s.NewWindow("win", 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if win.Format() != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("window format = %v, want the surface format", win.Format())
	}
}

func TestClose(t *testing.T) {
	s := newSystem(t)
	tex := newTarget(t, s, "rt", 4, 4)
	s.Close()
	if len(s.TargetNames()) != 0 || tex.View() != nil {
		t.Error("Close should destroy every target")
	}
	if _, err := s.CreateRenderTexture(render.TextureDesc{Name: "x", Width: 1, Height: 1, Format: gputypes.TextureFormatRGBA8Unorm}); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateRenderTexture after Close = %v, want ErrClosed", err)
	}
	s.Close()
}
