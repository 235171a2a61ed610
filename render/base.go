// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"math"
)

// TargetBase implements the bookkeeping shared by every RenderTarget:
// dimensions, flags, viewports and listeners.
//
// Backends embed it and implement AddViewport and Update by passing the
// outer target to AddViewportFor and UpdateFor, so viewports report the
// concrete target.
type TargetBase struct {
	name        string
	width       int
	height      int
	fsaa        uint32
	gamma       bool
	autoUpdated bool
	depthPool   uint16

	rs        RenderSystem
	viewports []Viewport
	listeners []TargetListener
}

// NewTargetBase initializes the shared state of a target.
func NewTargetBase(rs RenderSystem, name string, width, height int, fsaa uint32, gamma bool) TargetBase {
	return TargetBase{
		name:        name,
		width:       width,
		height:      height,
		fsaa:        fsaa,
		gamma:       gamma,
		autoUpdated: true,
		depthPool:   1,
		rs:          rs,
	}
}

func (t *TargetBase) Name() string        { return t.name }
func (t *TargetBase) Width() int          { return t.width }
func (t *TargetBase) Height() int         { return t.height }
func (t *TargetBase) FSAA() uint32        { return t.fsaa }
func (t *TargetBase) HardwareGamma() bool { return t.gamma }
func (t *TargetBase) AutoUpdated() bool   { return t.autoUpdated }
func (t *TargetBase) DepthPool() uint16   { return t.depthPool }
func (t *TargetBase) NumViewports() int   { return len(t.viewports) }

func (t *TargetBase) SetAutoUpdated(enabled bool) { t.autoUpdated = enabled }
func (t *TargetBase) SetDepthPool(pool uint16)    { t.depthPool = pool }

// Resize changes the dimensions. Viewports follow automatically.
func (t *TargetBase) Resize(width, height int) {
	t.width, t.height = width, height
}

// Viewport returns the i-th viewport, or nil when out of range.
func (t *TargetBase) Viewport(i int) Viewport {
	if i < 0 || i >= len(t.viewports) {
		return nil
	}
	return t.viewports[i]
}

// AddViewportFor appends a BasicViewport that reports self as its target.
func (t *TargetBase) AddViewportFor(self RenderTarget, cam Camera) Viewport {
	vp := NewBasicViewport(t.rs, self, cam)
	t.viewports = append(t.viewports, vp)
	return vp
}

// AttachViewport appends an existing viewport.
func (t *TargetBase) AttachViewport(vp Viewport) {
	t.viewports = append(t.viewports, vp)
}

// RemoveAllViewports notifies listeners then drops every viewport.
func (t *TargetBase) RemoveAllViewports() {
	vps := t.viewports
	t.viewports = nil
	for _, vp := range vps {
		for _, l := range t.snapshotListeners() {
			l.ViewportRemoved(vp)
		}
	}
}

// AddListener registers l. Duplicate registrations are ignored.
func (t *TargetBase) AddListener(l TargetListener) {
	for _, have := range t.listeners {
		if have == l {
			return
		}
	}
	t.listeners = append(t.listeners, l)
}

// RemoveListener unregisters l.
func (t *TargetBase) RemoveListener(l TargetListener) {
	for i, have := range t.listeners {
		if have == l {
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

// Listeners may unregister themselves while being notified.
func (t *TargetBase) snapshotListeners() []TargetListener {
	return append([]TargetListener(nil), t.listeners...)
}

// UpdateFor renders every viewport of self with listener notifications.
// The first failing viewport aborts the update; the post-target event
// still fires.
func (t *TargetBase) UpdateFor(self RenderTarget) error {
	for _, l := range t.snapshotListeners() {
		l.PreRenderTargetUpdate(self)
	}
	var err error
	for _, vp := range append([]Viewport(nil), t.viewports...) {
		for _, l := range t.snapshotListeners() {
			l.PreViewportUpdate(vp)
		}
		err = vp.Update()
		for _, l := range t.snapshotListeners() {
			l.PostViewportUpdate(vp)
		}
		if err != nil {
			break
		}
	}
	for _, l := range t.snapshotListeners() {
		l.PostRenderTargetUpdate(self)
	}
	return err
}

// BasicViewport is a full-target viewport.
type BasicViewport struct {
	rs     RenderSystem
	target RenderTarget
	camera Camera

	background      Colour
	clearEveryFrame bool
	clearBuffers    FrameBufferType
	depthClear      float32
	visibilityMask  uint32
	materialScheme  string
	shadows         bool
	overlays        bool
}

// NewBasicViewport creates a viewport that clears colour and depth every
// frame and shows everything.
func NewBasicViewport(rs RenderSystem, target RenderTarget, cam Camera) *BasicViewport {
	return &BasicViewport{
		rs:              rs,
		target:          target,
		camera:          cam,
		background:      ColourBlack,
		clearEveryFrame: true,
		clearBuffers:    FrameBufferColour | FrameBufferDepth,
		depthClear:      1,
		visibilityMask:  math.MaxUint32,
		shadows:         true,
		overlays:        true,
	}
}

func (v *BasicViewport) Target() RenderTarget            { return v.target }
func (v *BasicViewport) Camera() Camera                  { return v.camera }
func (v *BasicViewport) ActualWidth() int                { return v.target.Width() }
func (v *BasicViewport) ActualHeight() int               { return v.target.Height() }
func (v *BasicViewport) BackgroundColour() Colour        { return v.background }
func (v *BasicViewport) SetBackgroundColour(c Colour)    { v.background = c }
func (v *BasicViewport) ClearEveryFrame() bool           { return v.clearEveryFrame }
func (v *BasicViewport) ClearBuffers() FrameBufferType   { return v.clearBuffers }
func (v *BasicViewport) DepthClear() float32             { return v.depthClear }
func (v *BasicViewport) VisibilityMask() uint32          { return v.visibilityMask }
func (v *BasicViewport) SetVisibilityMask(mask uint32)   { v.visibilityMask = mask }
func (v *BasicViewport) MaterialScheme() string          { return v.materialScheme }
func (v *BasicViewport) SetMaterialScheme(scheme string) { v.materialScheme = scheme }
func (v *BasicViewport) ShadowsEnabled() bool            { return v.shadows }
func (v *BasicViewport) SetShadowsEnabled(enabled bool)  { v.shadows = enabled }
func (v *BasicViewport) OverlaysEnabled() bool           { return v.overlays }
func (v *BasicViewport) SetOverlaysEnabled(enabled bool) { v.overlays = enabled }

// SetClearEveryFrame sets whether Update clears, and which buffers.
func (v *BasicViewport) SetClearEveryFrame(enabled bool, buffers FrameBufferType) {
	v.clearEveryFrame = enabled
	v.clearBuffers = buffers
}

// Update clears if configured, then asks the camera to render.
func (v *BasicViewport) Update() error {
	v.rs.SetActiveViewport(v)
	if v.clearEveryFrame && v.clearBuffers != 0 {
		v.rs.ClearFrameBuffer(v.clearBuffers, v.background, v.depthClear, 0)
	}
	if v.camera == nil {
		return nil
	}
	return v.camera.RenderScene(v)
}
