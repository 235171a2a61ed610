// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrs

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/render"
)

// Pass is a render pass open on the active target while a hook draws.
type Pass struct {
	// Encoder records the draw. It is ended by the system.
	Encoder hal.RenderPassEncoder

	// Target names the render target being drawn to.
	Target string

	// Formats are the colour attachment formats in attachment order.
	Formats []render.PixelFormat

	// DepthStencil is the stencil state pipelines must use, nil when the
	// stencil check is off.
	DepthStencil *hal.DepthStencilState
}

// DrawHook records quads and renderables into an open pass. Inputs of a
// quad are *Texture values whose View can be bound.
type DrawHook interface {
	DrawQuad(p *Pass, q render.Quad) error
	DrawRenderable(p *Pass, r render.Renderable) error
}

// attachments returns the surfaces the active viewport writes to.
func (s *System) attachments() ([]*Texture, string) {
	if s.active == nil {
		return nil, ""
	}
	switch t := s.active.Target().(type) {
	case *Texture:
		return []*Texture{t}, t.Name()
	case *MultiTarget:
		return t.textures(), t.Name()
	default:
		return nil, ""
	}
}

// ClearFrameBuffer encodes a pass that clears the selected planes of the
// active target and loads the others. Failures are logged.
func (s *System) ClearFrameBuffer(buffers render.FrameBufferType, colour render.Colour, depth float32, stencil uint16) {
	s.stats.Clears++
	surfaces, name := s.attachments()
	if len(surfaces) == 0 {
		return
	}
	desc := passDescriptor("clear_"+name, surfaces, buffers, colour, depth, stencil)
	err := s.encode("clear", desc, func(hal.RenderPassEncoder) error { return nil })
	if err != nil {
		s.logError("clear", name, err)
	}
}

// DrawQuad forwards q to the draw hook inside a pass that loads the active
// target. Without a hook the draw is only counted.
func (s *System) DrawQuad(q render.Quad) error {
	s.stats.Quads++
	return s.draw("quad", func(p *Pass) error { return s.hook.DrawQuad(p, q) })
}

// DrawRenderable forwards r to the draw hook.
func (s *System) DrawRenderable(r render.Renderable) error {
	s.stats.Renderables++
	return s.draw("renderable", func(p *Pass) error { return s.hook.DrawRenderable(p, r) })
}

func (s *System) draw(label string, fn func(*Pass) error) error {
	if s.hook == nil {
		return nil
	}
	surfaces, name := s.attachments()
	if len(surfaces) == 0 {
		return nil
	}
	p := &Pass{Target: name, DepthStencil: s.StencilState()}
	for _, t := range surfaces {
		p.Formats = append(p.Formats, t.format)
	}
	desc := passDescriptor(label+"_"+name, surfaces, 0, render.ColourZero, 0, 0)
	return s.encode(label, desc, func(rp hal.RenderPassEncoder) error {
		p.Encoder = rp
		return fn(p)
	})
}

// passDescriptor clears the planes selected by buffers and loads the rest.
// Depth and stencil come from the first surface.
func passDescriptor(label string, surfaces []*Texture, buffers render.FrameBufferType, colour render.Colour, depth float32, stencil uint16) *hal.RenderPassDescriptor {
	desc := &hal.RenderPassDescriptor{Label: label}
	colourLoad := loadOp(buffers&render.FrameBufferColour != 0)
	for _, t := range surfaces {
		desc.ColorAttachments = append(desc.ColorAttachments, hal.RenderPassColorAttachment{
			View:    t.view,
			LoadOp:  colourLoad,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(colour.R),
				G: float64(colour.G),
				B: float64(colour.B),
				A: float64(colour.A),
			},
		})
	}
	if dv := surfaces[0].depthView; dv != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:              dv,
			DepthLoadOp:       loadOp(buffers&render.FrameBufferDepth != 0),
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   depth,
			StencilLoadOp:     loadOp(buffers&render.FrameBufferStencil != 0),
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: uint32(stencil),
		}
	}
	return desc
}

func loadOp(clear bool) gputypes.LoadOp {
	if clear {
		return gputypes.LoadOpClear
	}
	return gputypes.LoadOpLoad
}

// encode records one render pass and waits for its submission.
func (s *System) encode(label string, desc *hal.RenderPassDescriptor, record func(hal.RenderPassEncoder) error) error {
	if s.closed {
		return ErrClosed
	}
	encoder, err := s.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "halrs_" + label,
	})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(desc)
	recErr := record(rp)
	rp.End()
	if recErr != nil {
		encoder.DiscardEncoding()
		return recErr
	}

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer s.device.FreeCommandBuffer(cmdBuf)

	fence, err := s.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer s.device.DestroyFence(fence)

	if err := s.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := s.device.Wait(fence, 1, submitTimeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("GPU timeout after %v", submitTimeout)
	}
	s.stats.Submits++
	return nil
}

func (s *System) logError(op, target string, err error) {
	logging.Logger().Warn("halrs: "+op+" failed", "target", target, "error", err)
}

// depthStencilState maps stencil params onto a pipeline state. Both faces
// share the configuration; depth is neither tested nor written.
func depthStencilState(p render.StencilParams) *hal.DepthStencilState {
	face := hal.StencilFaceState{
		Compare:     compareFunction(p.Func),
		FailOp:      stencilOperation(p.FailOp),
		DepthFailOp: stencilOperation(p.DepthFailOp),
		PassOp:      stencilOperation(p.PassOp),
	}
	return &hal.DepthStencilState{
		Format:            depthFormat,
		DepthWriteEnabled: false,
		DepthCompare:      gputypes.CompareFunctionAlways,
		StencilFront:      face,
		StencilBack:       face,
		StencilReadMask:   p.Mask,
		StencilWriteMask:  p.Mask,
	}
}

func compareFunction(f render.CompareFunction) gputypes.CompareFunction {
	switch f {
	case render.CompareAlwaysFail:
		return gputypes.CompareFunctionNever
	case render.CompareLess:
		return gputypes.CompareFunctionLess
	case render.CompareLessEqual:
		return gputypes.CompareFunctionLessEqual
	case render.CompareEqual:
		return gputypes.CompareFunctionEqual
	case render.CompareNotEqual:
		return gputypes.CompareFunctionNotEqual
	case render.CompareGreaterEqual:
		return gputypes.CompareFunctionGreaterEqual
	case render.CompareGreater:
		return gputypes.CompareFunctionGreater
	default:
		return gputypes.CompareFunctionAlways
	}
}

func stencilOperation(op render.StencilOperation) hal.StencilOperation {
	switch op {
	case render.StencilZero:
		return hal.StencilOperationZero
	case render.StencilReplace:
		return hal.StencilOperationReplace
	case render.StencilIncrement:
		return hal.StencilOperationIncrementClamp
	case render.StencilDecrement:
		return hal.StencilOperationDecrementClamp
	case render.StencilIncrementWrap:
		return hal.StencilOperationIncrementWrap
	case render.StencilDecrementWrap:
		return hal.StencilOperationDecrementWrap
	case render.StencilInvert:
		return hal.StencilOperationInvert
	default:
		return hal.StencilOperationKeep
	}
}
