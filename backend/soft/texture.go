package soft

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/render"
)

const (
	windowFormat    = gputypes.TextureFormatBGRA8Unorm
	undefinedFormat = gputypes.TextureFormatUndefined
)

// Texture is a CPU render texture.
//
// Colour lives in an *image.RGBA whatever the declared format; depth and
// stencil are parallel planes of the same size.
type Texture struct {
	render.TargetBase

	sys     *System
	format  render.PixelFormat
	img     *image.RGBA
	depth   []float32
	stencil []uint8
}

func newTexture(s *System, desc render.TextureDesc, format render.PixelFormat) *Texture {
	n := desc.Width * desc.Height
	t := &Texture{
		TargetBase: render.NewTargetBase(s, desc.Name, desc.Width, desc.Height, desc.FSAA, desc.HardwareGamma),
		sys:        s,
		format:     format,
		img:        image.NewRGBA(image.Rect(0, 0, desc.Width, desc.Height)),
		depth:      make([]float32, n),
		stencil:    make([]uint8, n),
	}
	return t
}

// Format returns the native format of the texture.
func (t *Texture) Format() render.PixelFormat { return t.format }

// Image returns the colour plane. The image is live; it changes as the
// texture is drawn to.
func (t *Texture) Image() *image.RGBA { return t.img }

// At returns the colour at (x, y).
func (t *Texture) At(x, y int) color.RGBA { return t.img.RGBAAt(x, y) }

// StencilAt returns the stencil value at (x, y).
func (t *Texture) StencilAt(x, y int) uint8 {
	if !(image.Point{x, y}).In(t.img.Rect) {
		return 0
	}
	return t.stencil[y*t.Width()+x]
}

// DepthAt returns the depth value at (x, y).
func (t *Texture) DepthAt(x, y int) float32 {
	if !(image.Point{x, y}).In(t.img.Rect) {
		return 0
	}
	return t.depth[y*t.Width()+x]
}

// AddViewport appends a full-texture viewport.
func (t *Texture) AddViewport(cam render.Camera) render.Viewport {
	return t.AddViewportFor(t, cam)
}

// Update renders every viewport of the texture.
func (t *Texture) Update() error {
	return t.UpdateFor(t)
}

// Resize reallocates every plane. Contents are lost.
func (t *Texture) Resize(width, height int) {
	t.TargetBase.Resize(width, height)
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
	t.depth = make([]float32, width*height)
	t.stencil = make([]uint8, width*height)
}

// MultiTarget renders into several textures of equal size.
type MultiTarget struct {
	render.TargetBase

	surfaces []*Texture
}

// BindSurface attaches tex at attachment. The first surface fixes the size.
func (m *MultiTarget) BindSurface(attachment int, tex render.RenderTexture) error {
	st, ok := tex.(*Texture)
	if !ok {
		return fmt.Errorf("soft: cannot bind foreign texture %s", tex.Name())
	}
	if attachment < 0 || attachment >= st.sys.caps.MaxColorAttachments {
		return fmt.Errorf("soft: attachment %d out of range", attachment)
	}
	if len(m.textures()) == 0 {
		m.TargetBase.Resize(st.Width(), st.Height())
	} else if st.Width() != m.Width() || st.Height() != m.Height() {
		return fmt.Errorf("%w: %s is %dx%d, want %dx%d", ErrSizeMismatch, st.Name(), st.Width(), st.Height(), m.Width(), m.Height())
	}
	for len(m.surfaces) <= attachment {
		m.surfaces = append(m.surfaces, nil)
	}
	m.surfaces[attachment] = st
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
