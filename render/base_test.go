// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"reflect"
	"testing"
)

// fakeSystem records calls in order.
type fakeSystem struct {
	calls  []string
	active Viewport
}

func (s *fakeSystem) Name() string                         { return "fake" }
func (s *fakeSystem) Capabilities() Capabilities           { return DefaultCapabilities() }
func (s *fakeSystem) SetActiveViewport(vp Viewport)        { s.active = vp }
func (s *fakeSystem) ActiveViewport() Viewport             { return s.active }
func (s *fakeSystem) DestroyRenderTarget(RenderTarget)     {}
func (s *fakeSystem) SetStencilCheckEnabled(bool)          {}
func (s *fakeSystem) SetStencilBufferParams(StencilParams) {}
func (s *fakeSystem) DrawQuad(Quad) error                  { return nil }
func (s *fakeSystem) DrawRenderable(Renderable) error      { return nil }

func (s *fakeSystem) CreateRenderTexture(TextureDesc) (RenderTexture, error) {
	return nil, errors.New("unsupported")
}

func (s *fakeSystem) CreateMultiRenderTarget(string) (MultiRenderTarget, error) {
	return nil, errors.New("unsupported")
}

func (s *fakeSystem) ClearFrameBuffer(buffers FrameBufferType, _ Colour, _ float32, _ uint16) {
	s.calls = append(s.calls, "clear "+buffers.String())
}

type fakeTarget struct {
	TargetBase
}

func (t *fakeTarget) AddViewport(cam Camera) Viewport { return t.AddViewportFor(t, cam) }
func (t *fakeTarget) Update() error                   { return t.UpdateFor(t) }

type fakeCamera struct {
	sys  *fakeSystem
	bias float32
	err  error
}

func (c *fakeCamera) Name() string         { return "cam" }
func (c *fakeCamera) LodBias() float32     { return c.bias }
func (c *fakeCamera) SetLodBias(b float32) { c.bias = b }
func (c *fakeCamera) RenderScene(Viewport) error {
	c.sys.calls = append(c.sys.calls, "scene")
	return c.err
}

type recordingListener struct {
	sys     *fakeSystem
	removed int
	detach  RenderTarget
}

func (l *recordingListener) PreRenderTargetUpdate(RenderTarget) {
	l.sys.calls = append(l.sys.calls, "pre-target")
}

func (l *recordingListener) PostRenderTargetUpdate(RenderTarget) {
	l.sys.calls = append(l.sys.calls, "post-target")
}

func (l *recordingListener) PreViewportUpdate(Viewport) {
	l.sys.calls = append(l.sys.calls, "pre-viewport")
}

func (l *recordingListener) PostViewportUpdate(Viewport) {
	l.sys.calls = append(l.sys.calls, "post-viewport")
}

func (l *recordingListener) ViewportRemoved(Viewport) {
	l.removed++
	if l.detach != nil {
		l.detach.RemoveListener(l)
	}
}

func TestTargetUpdateOrder(t *testing.T) {
	sys := &fakeSystem{}
	target := &fakeTarget{TargetBase: NewTargetBase(sys, "rt", 64, 32, 0, false)}
	l := &recordingListener{sys: sys}
	target.AddListener(l)
	target.AddListener(l)

	vp := target.AddViewport(&fakeCamera{sys: sys})
	if vp.Target() != RenderTarget(target) {
		t.Fatal("viewport should report the outer target")
	}
	if vp.ActualWidth() != 64 || vp.ActualHeight() != 32 {
		t.Errorf("viewport size = %dx%d, want 64x32", vp.ActualWidth(), vp.ActualHeight())
	}

	if err := target.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := []string{"pre-target", "pre-viewport", "clear colour depth", "scene", "post-viewport", "post-target"}
	if !reflect.DeepEqual(sys.calls, want) {
		t.Errorf("calls = %v, want %v", sys.calls, want)
	}
	if sys.ActiveViewport() != vp {
		t.Error("update should activate the viewport")
	}
}

func TestTargetUpdateError(t *testing.T) {
	sys := &fakeSystem{}
	target := &fakeTarget{TargetBase: NewTargetBase(sys, "rt", 8, 8, 0, false)}
	boom := errors.New("boom")
	vp := target.AddViewport(&fakeCamera{sys: sys, err: boom})
	vp.SetClearEveryFrame(false, 0)

	if err := target.Update(); !errors.Is(err, boom) {
		t.Errorf("Update() error = %v, want boom", err)
	}
	if !reflect.DeepEqual(sys.calls, []string{"scene"}) {
		t.Errorf("calls = %v, want [scene]", sys.calls)
	}
}

func TestRemoveAllViewports(t *testing.T) {
	sys := &fakeSystem{}
	target := &fakeTarget{TargetBase: NewTargetBase(sys, "rt", 8, 8, 0, false)}
	l := &recordingListener{sys: sys, detach: target}
	target.AddListener(l)
	target.AddViewport(nil)
	target.AddViewport(nil)

	target.RemoveAllViewports()

	if target.NumViewports() != 0 {
		t.Errorf("NumViewports() = %d, want 0", target.NumViewports())
	}
	// The listener detached on the first notification.
	if l.removed != 1 {
		t.Errorf("removed = %d, want 1", l.removed)
	}
	if target.Viewport(0) != nil {
		t.Error("Viewport(0) should be nil")
	}
}

func TestBasicViewportDefaults(t *testing.T) {
	vp := NewBasicViewport(&fakeSystem{}, nil, nil)
	if !vp.ClearEveryFrame() || vp.ClearBuffers() != FrameBufferColour|FrameBufferDepth {
		t.Error("viewport should clear colour and depth by default")
	}
	if vp.VisibilityMask() != 0xFFFFFFFF {
		t.Errorf("VisibilityMask() = %#x", vp.VisibilityMask())
	}
	if !vp.ShadowsEnabled() || !vp.OverlaysEnabled() {
		t.Error("shadows and overlays should default on")
	}
	if vp.DepthClear() != 1 {
		t.Errorf("DepthClear() = %v, want 1", vp.DepthClear())
	}
}
