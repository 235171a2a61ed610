package soft

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/compositor/render"
)

// ClearFrameBuffer fills the selected planes of every active surface.
func (s *System) ClearFrameBuffer(buffers render.FrameBufferType, colour render.Colour, depth float32, stencil uint16) {
	dst, name := s.surfaces()
	s.stats.Clears++
	s.record("clear %s %s", name, buffers)
	for _, t := range dst {
		if buffers&render.FrameBufferColour != 0 {
			draw.Draw(t.img, t.img.Rect, image.NewUniform(colour.RGBA()), image.Point{}, draw.Src)
		}
		if buffers&render.FrameBufferDepth != 0 {
			for i := range t.depth {
				t.depth[i] = depth
			}
		}
		if buffers&render.FrameBufferStencil != 0 {
			for i := range t.stencil {
				t.stencil[i] = uint8(stencil)
			}
		}
	}
}

// DrawQuad scales the first input into the quad rectangle, or fills it
// with the quad colour when no input is bound.
func (s *System) DrawQuad(q render.Quad) error {
	dst, name := s.surfaces()
	s.stats.Quads++
	s.record("quad %s %s", name, q.Label)

	var src *image.RGBA
	if len(q.Inputs) > 0 {
		if in, ok := q.Inputs[0].(*Texture); ok && in != nil {
			src = in.img
		}
	}
	for _, t := range dst {
		r := cornersRect(q.Corners, t.Width(), t.Height())
		if r.Empty() {
			continue
		}
		mask := s.stencilMask(t, r)
		if src == nil {
			draw.DrawMask(t.img, r, image.NewUniform(q.Colour.RGBA()), image.Point{}, mask, r.Min, draw.Src)
			continue
		}
		from := src
		if from == t.img {
			from = cloneRGBA(src)
		}
		opts := &xdraw.Options{}
		if mask != nil {
			opts.DstMask = mask
			opts.DstMaskP = r.Min
		}
		xdraw.BiLinear.Scale(t.img, r, from, from.Bounds(), xdraw.Src, opts)
	}
	return nil
}

// DrawRenderable alpha-blends the renderable colour over its bounds.
func (s *System) DrawRenderable(r render.Renderable) error {
	dst, name := s.surfaces()
	s.stats.Renderables++
	s.record("draw %s %s q%d", name, r.Name, r.Queue)
	for _, t := range dst {
		rect := cornersRect(r.Bounds, t.Width(), t.Height())
		if rect.Empty() {
			continue
		}
		mask := s.stencilMask(t, rect)
		draw.DrawMask(t.img, rect, image.NewUniform(r.Colour.RGBA()), image.Point{}, mask, rect.Min, draw.Over)
	}
	return nil
}

// stencilMask runs the stencil test over r, updates the stencil plane and
// returns the passing pixels. It returns nil when the test is off.
func (s *System) stencilMask(t *Texture, r image.Rectangle) image.Image {
	if !s.stencilCheck {
		return nil
	}
	p := s.stencilParams
	ref := uint8(p.RefValue)
	mask := image.NewAlpha(r)
	w := t.Width()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := y*w + x
			cur := t.stencil[i]
			if p.Func.Test(p.RefValue, uint32(cur), p.Mask) {
				mask.SetAlpha(x, y, color.Alpha{A: 0xFF})
				t.stencil[i] = p.PassOp.Apply(cur, ref)
			} else {
				t.stencil[i] = p.FailOp.Apply(cur, ref)
			}
		}
	}
	return mask
}

// cornersRect maps normalized device corners to pixels, clipped to the
// target.
func cornersRect(c render.QuadCorners, width, height int) image.Rectangle {
	toX := func(v float32) int {
		return int(math.Round(float64((v + 1) / 2 * float32(width))))
	}
	toY := func(v float32) int {
		return int(math.Round(float64((1 - v) / 2 * float32(height))))
	}
	r := image.Rect(toX(c.Left), toY(c.Top), toX(c.Right), toY(c.Bottom))
	return r.Intersect(image.Rect(0, 0, width, height))
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	c := image.NewRGBA(src.Rect)
	copy(c.Pix, src.Pix)
	return c
}
