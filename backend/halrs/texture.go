// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrs

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/render"
)

// depthFormat backs the depth and stencil planes of every texture.
const depthFormat = gputypes.TextureFormatDepth24PlusStencil8

const colourUsage = gputypes.TextureUsageRenderAttachment |
	gputypes.TextureUsageTextureBinding |
	gputypes.TextureUsageCopySrc

// Texture is a HAL render texture.
type Texture struct {
	render.TargetBase

	sys    *System
	format render.PixelFormat

	tex       hal.Texture
	view      hal.TextureView
	depthTex  hal.Texture
	depthView hal.TextureView
}

// Format returns the native format of the texture.
func (t *Texture) Format() render.PixelFormat { return t.format }

// Raw returns the colour texture.
func (t *Texture) Raw() hal.Texture { return t.tex }

// View returns the colour view, for binding as a shader input.
func (t *Texture) View() hal.TextureView { return t.view }

// DepthView returns the depth/stencil view, or nil when the texture has no
// depth pool.
func (t *Texture) DepthView() hal.TextureView { return t.depthView }

// AddViewport appends a full-texture viewport.
func (t *Texture) AddViewport(cam render.Camera) render.Viewport {
	return t.AddViewportFor(t, cam)
}

// Update renders every viewport of the texture.
func (t *Texture) Update() error {
	return t.UpdateFor(t)
}

// Resize reallocates the HAL textures. Contents are lost.
func (t *Texture) Resize(width, height int) {
	t.release()
	t.TargetBase.Resize(width, height)
	if err := t.allocate(); err != nil {
		t.sys.logError("resize", t.Name(), err)
	}
}

func (t *Texture) allocate() error {
	d := t.sys.device
	size := hal.Extent3D{
		Width:              uint32(t.Width()),
		Height:             uint32(t.Height()),
		DepthOrArrayLayers: 1,
	}

	tex, err := d.CreateTexture(&hal.TextureDescriptor{
		Label:         t.Name(),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        t.format,
		Usage:         colourUsage,
	})
	if err != nil {
		return fmt.Errorf("halrs: create texture %s: %w", t.Name(), err)
	}
	t.tex = tex

	view, err := d.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: t.Name() + "_view",
	})
	if err != nil {
		t.release()
		return fmt.Errorf("halrs: create texture view %s: %w", t.Name(), err)
	}
	t.view = view

	if t.DepthPool() == 0 {
		return nil
	}
	depthTex, err := d.CreateTexture(&hal.TextureDescriptor{
		Label:         t.Name() + "_depth",
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        depthFormat,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.release()
		return fmt.Errorf("halrs: create depth texture %s: %w", t.Name(), err)
	}
	t.depthTex = depthTex

	depthView, err := d.CreateTextureView(depthTex, &hal.TextureViewDescriptor{
		Label: t.Name() + "_depth_view",
	})
	if err != nil {
		t.release()
		return fmt.Errorf("halrs: create depth view %s: %w", t.Name(), err)
	}
	t.depthView = depthView
	return nil
}

// release destroys views before their textures.
func (t *Texture) release() {
	d := t.sys.device
	if t.depthView != nil {
		d.DestroyTextureView(t.depthView)
		t.depthView = nil
	}
	if t.depthTex != nil {
		d.DestroyTexture(t.depthTex)
		t.depthTex = nil
	}
	if t.view != nil {
		d.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		d.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// MultiTarget renders into several textures of equal size.
type MultiTarget struct {
	render.TargetBase

	sys      *System
	surfaces []*Texture
}

// BindSurface attaches tex at attachment. The first surface fixes the size.
func (m *MultiTarget) BindSurface(attachment int, tex render.RenderTexture) error {
	ht, ok := tex.(*Texture)
	if !ok || ht.sys != m.sys {
		return fmt.Errorf("halrs: cannot bind foreign texture %s", tex.Name())
	}
	if attachment < 0 || attachment >= m.sys.caps.MaxColorAttachments {
		return fmt.Errorf("halrs: attachment %d out of range", attachment)
	}
	if len(m.textures()) == 0 {
		m.TargetBase.Resize(ht.Width(), ht.Height())
	} else if ht.Width() != m.Width() || ht.Height() != m.Height() {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrSizeMismatch, ht.Name(), ht.Width(), ht.Height(), m.Width(), m.Height())
	}
	for len(m.surfaces) <= attachment {
		m.surfaces = append(m.surfaces, nil)
	}
	m.surfaces[attachment] = ht
	return nil
}

// Surface returns the texture at attachment, or nil.
func (m *MultiTarget) Surface(attachment int) render.RenderTexture {
	if attachment < 0 || attachment >= len(m.surfaces) || m.surfaces[attachment] == nil {
		return nil
	}
	return m.surfaces[attachment]
}

// AddViewport appends a viewport covering every surface.
func (m *MultiTarget) AddViewport(cam render.Camera) render.Viewport {
	return m.AddViewportFor(m, cam)
}

// Update renders every viewport of the target.
func (m *MultiTarget) Update() error {
	return m.UpdateFor(m)
}

func (m *MultiTarget) textures() []*Texture {
	var out []*Texture
	for _, t := range m.surfaces {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}
