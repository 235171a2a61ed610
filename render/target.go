// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

// Texture is a readable image resource.
type Texture interface {
	Name() string
	Width() int
	Height() int
	Format() PixelFormat
}

// RenderTarget defines where rendering output goes.
//
// A target owns an ordered list of viewports. Update renders each viewport
// in turn and notifies listeners around the target and every viewport.
type RenderTarget interface {
	// Name returns the unique target name.
	Name() string

	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// FSAA returns the multisample count, 0 for none.
	FSAA() uint32

	// HardwareGamma reports whether writes are gamma corrected.
	HardwareGamma() bool

	// AutoUpdated reports whether the target updates every frame on
	// its own. Compositor targets are updated explicitly.
	AutoUpdated() bool
	SetAutoUpdated(enabled bool)

	// DepthPool selects the shared depth buffer group.
	DepthPool() uint16
	SetDepthPool(pool uint16)

	// AddViewport appends a viewport showing cam.
	AddViewport(cam Camera) Viewport
	NumViewports() int
	Viewport(i int) Viewport

	// RemoveAllViewports detaches every viewport, notifying listeners.
	RemoveAllViewports()

	AddListener(l TargetListener)
	RemoveListener(l TargetListener)

	// Update renders every viewport.
	Update() error
}

// RenderTexture is a render target that can also be sampled.
type RenderTexture interface {
	RenderTarget
	Format() PixelFormat
}

// MultiRenderTarget renders to several textures at once.
type MultiRenderTarget interface {
	RenderTarget

	// BindSurface attaches tex at the given color attachment index.
	BindSurface(attachment int, tex RenderTexture) error

	// Surface returns the texture at attachment, or nil.
	Surface(attachment int) RenderTexture
}

// TargetListener observes target and viewport updates.
type TargetListener interface {
	PreRenderTargetUpdate(t RenderTarget)
	PostRenderTargetUpdate(t RenderTarget)
	PreViewportUpdate(vp Viewport)
	PostViewportUpdate(vp Viewport)
	ViewportRemoved(vp Viewport)
}

// TextureDesc describes a render texture to create.
type TextureDesc struct {
	Name          string
	Width, Height int
	Format        PixelFormat
	FSAA          uint32
	HardwareGamma bool
}

// RenderSystem creates targets and executes draw calls.
type RenderSystem interface {
	// Name identifies the backend.
	Name() string

	// Capabilities returns the device capabilities.
	Capabilities() Capabilities

	CreateRenderTexture(desc TextureDesc) (RenderTexture, error)
	CreateMultiRenderTarget(name string) (MultiRenderTarget, error)

	// DestroyRenderTarget releases t. Unknown targets are ignored.
	DestroyRenderTarget(t RenderTarget)

	// SetActiveViewport directs subsequent draws at vp.
	SetActiveViewport(vp Viewport)
	ActiveViewport() Viewport

	ClearFrameBuffer(buffers FrameBufferType, colour Colour, depth float32, stencil uint16)

	SetStencilCheckEnabled(enabled bool)
	SetStencilBufferParams(p StencilParams)

	DrawQuad(q Quad) error
	DrawRenderable(r Renderable) error
}

// Camera renders a scene into a viewport.
type Camera interface {
	Name() string

	// LodBias scales level-of-detail selection; 1 is neutral.
	LodBias() float32
	SetLodBias(bias float32)

	// RenderScene draws the visible scene into vp.
	RenderScene(vp Viewport) error
}

// Viewport is a camera view rendered into a target.
type Viewport interface {
	Target() RenderTarget
	Camera() Camera

	ActualWidth() int
	ActualHeight() int

	BackgroundColour() Colour
	SetBackgroundColour(c Colour)

	// ClearEveryFrame reports whether Update clears ClearBuffers first.
	ClearEveryFrame() bool
	ClearBuffers() FrameBufferType
	SetClearEveryFrame(enabled bool, buffers FrameBufferType)
	DepthClear() float32

	// VisibilityMask filters renderables by their visibility flags.
	VisibilityMask() uint32
	SetVisibilityMask(mask uint32)

	MaterialScheme() string
	SetMaterialScheme(scheme string)

	ShadowsEnabled() bool
	SetShadowsEnabled(enabled bool)

	OverlaysEnabled() bool
	SetOverlaysEnabled(enabled bool)

	Update() error
}
