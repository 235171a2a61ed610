package compositor

import (
	"fmt"
	"math"

	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// Operation is a compiled render system operation.
type Operation interface {
	Execute(sm SceneManager, rs render.RenderSystem) error
}

// QueuedOperation is an operation issued before render queue Queue.
type QueuedOperation struct {
	Queue uint8
	Op    Operation
}

// TargetOperation is the compiled batch of one render target.
type TargetOperation struct {
	Target render.RenderTarget

	// Ops run in order, each just before its render queue starts. Any
	// left over run after the scene.
	Ops []QueuedOperation

	// Queues holds the render queues the scene renders.
	Queues render.QueueSet

	// CurrentQueue is the queue the next operation is issued before.
	CurrentQueue uint8

	VisibilityMask     uint32
	LodBias            float32
	MaterialScheme     string
	Shadows            bool
	FindVisibleObjects bool
	OnlyInitial        bool

	instance *Instance
	pass     *TargetPass
}

func newTargetOperation(target render.RenderTarget) *TargetOperation {
	return &TargetOperation{
		Target:         target,
		VisibilityMask: math.MaxUint32,
		LodBias:        1,
		Shadows:        true,
	}
}

func (op *TargetOperation) queue(o Operation) {
	op.Ops = append(op.Ops, QueuedOperation{Queue: op.CurrentQueue, Op: o})
}

// CompiledState is the result of compiling a chain.
type CompiledState struct {
	// Targets are the intermediate batches in execution order.
	Targets []*TargetOperation

	// Output is the batch merged into the viewport render. It is nil
	// until the chain compiles successfully.
	Output *TargetOperation
}

// NumOperations returns the total number of queued operations.
func (s CompiledState) NumOperations() int {
	n := 0
	for _, t := range s.Targets {
		n += len(t.Ops)
	}
	if s.Output != nil {
		n += len(s.Output.Ops)
	}
	return n
}

type clearOperation struct {
	ClearOp
}

func (o *clearOperation) Execute(_ SceneManager, rs render.RenderSystem) error {
	rs.ClearFrameBuffer(o.Buffers, o.Colour, o.Depth, o.Stencil)
	return nil
}

func (o *clearOperation) String() string {
	return fmt.Sprintf("clear %s", o.Buffers)
}

type stencilOperation struct {
	StencilOp
}

func (o *stencilOperation) Execute(_ SceneManager, rs render.RenderSystem) error {
	rs.SetStencilCheckEnabled(o.Check)
	rs.SetStencilBufferParams(o.StencilParams)
	return nil
}

func (o *stencilOperation) String() string {
	return fmt.Sprintf("stencil check=%v func=%s ref=%d", o.Check, o.Func, o.RefValue)
}

// setSchemeOperation switches the active material scheme. The matching
// restoreSchemeOperation puts the previous one back.
type setSchemeOperation struct {
	materials *material.Manager
	scheme    string
	previous  string
}

func (o *setSchemeOperation) Execute(SceneManager, render.RenderSystem) error {
	o.previous = o.materials.ActiveScheme()
	o.materials.SetActiveScheme(o.scheme)
	return nil
}

func (o *setSchemeOperation) String() string {
	return fmt.Sprintf("set_scheme %s", o.scheme)
}

type restoreSchemeOperation struct {
	set *setSchemeOperation
}

func (o *restoreSchemeOperation) Execute(SceneManager, render.RenderSystem) error {
	o.set.materials.SetActiveScheme(o.set.previous)
	return nil
}

func (o *restoreSchemeOperation) String() string {
	return "restore_scheme"
}

// quadOperation draws every pass of a local material as a quad.
type quadOperation struct {
	instance  *Instance
	passID    uint32
	mat       *material.Material
	technique *material.Technique

	corners    render.QuadCorners
	modified   bool
	farCorners bool
}

func (o *quadOperation) Execute(sm SceneManager, rs render.RenderSystem) error {
	o.instance.fireMaterialRender(o.passID, o.mat)
	corners := render.FullScreen
	if o.modified {
		corners = o.corners
		if vp := rs.ActiveViewport(); vp != nil && vp.ActualWidth() > 0 && vp.ActualHeight() > 0 {
			caps := rs.Capabilities()
			h := caps.HorizontalTexelOffset / (0.5 * float32(vp.ActualWidth()))
			v := caps.VerticalTexelOffset / (0.5 * float32(vp.ActualHeight()))
			corners = render.QuadCorners{
				Left:   corners.Left + h,
				Top:    corners.Top - v,
				Right:  corners.Right + h,
				Bottom: corners.Bottom - v,
			}
		}
	}
	if sm == nil {
		return nil
	}
	for _, p := range o.technique.Passes {
		if err := sm.InjectRenderWithPass(p, corners, o.farCorners); err != nil {
			return err
		}
	}
	return nil
}

func (o *quadOperation) String() string {
	return fmt.Sprintf("quad %s", o.mat.Name())
}
