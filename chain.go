package compositor

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/render"
)

// LastPosition appends a compositor at the end of a chain.
const LastPosition = -1

// sceneCompositorPrefix names the implicit scene compositor of a chain.
const sceneCompositorPrefix = "scene/"

// Chain is the ordered list of compositor instances of one viewport.
//
// A chain listens to the viewport's target. Before the target updates it
// recompiles if dirty and renders the intermediate targets; around the
// viewport update it applies the output batch.
type Chain struct {
	mgr      *Manager
	viewport render.Viewport

	original       *Instance
	originalScheme string
	instances      []*Instance

	dirty      bool
	anyEnabled bool
	destroyed  bool

	// savedClear holds the viewport clear settings while compositors
	// render instead.
	savedClear struct {
		every   bool
		buffers render.FrameBufferType
	}

	state    CompiledState
	listener *queueListener
	output   *targetGuard
}

func newChain(mgr *Manager, vp render.Viewport) *Chain {
	c := &Chain{
		mgr:      mgr,
		viewport: vp,
		dirty:    true,
	}
	c.listener = &queueListener{chain: c}
	c.createOriginalScene()
	vp.Target().AddListener(c)
	return c
}

// createOriginalScene builds the implicit first instance: a clear
// followed by the scene queues up to the late skies.
func (c *Chain) createOriginalScene() {
	scheme := c.viewport.MaterialScheme()
	comp := newCompositor(c.mgr, sceneCompositorPrefix+scheme)
	t := comp.CreateTechnique()
	out := t.OutputTargetPass()
	out.MaterialScheme = scheme
	out.CreatePass(NewClearOp())
	out.CreatePass(NewRenderSceneOp())
	comp.supported = []*Technique{t}
	comp.compilationRequired = false
	comp.loaded = true

	// A technique without a logic cannot fail to instantiate.
	inst, _ := newInstance(t, c)
	inst.alive = true
	inst.enabled = true
	c.original = inst
	c.originalScheme = scheme
}

// reseedOriginalScene copies the live viewport settings into the scene
// instance.
func (c *Chain) reseedOriginalScene() {
	out := c.original.technique.output
	clr := out.passes[0].Op.(*ClearOp)
	clr.Buffers, clr.Colour, clr.Depth = c.sceneClear()
	out.VisibilityMask = c.viewport.VisibilityMask()
	out.Shadows = c.viewport.ShadowsEnabled()
}

// sceneClear returns the clear the viewport itself would do.
func (c *Chain) sceneClear() (render.FrameBufferType, render.Colour, float32) {
	vp := c.viewport
	every, buffers := vp.ClearEveryFrame(), vp.ClearBuffers()
	if c.anyEnabled {
		every, buffers = c.savedClear.every, c.savedClear.buffers
	}
	if !every {
		buffers = 0
	}
	return buffers, vp.BackgroundColour(), vp.DepthClear()
}

// originalStale reports whether the viewport changed since the scene
// instance was seeded.
func (c *Chain) originalStale() bool {
	if c.originalScheme != c.viewport.MaterialScheme() {
		return true
	}
	out := c.original.technique.output
	clr := out.passes[0].Op.(*ClearOp)
	buffers, colour, depth := c.sceneClear()
	return clr.Buffers != buffers || clr.Colour != colour || clr.Depth != depth ||
		out.VisibilityMask != c.viewport.VisibilityMask() ||
		out.Shadows != c.viewport.ShadowsEnabled()
}

// Viewport returns the viewport of the chain.
func (c *Chain) Viewport() render.Viewport { return c.viewport }

// OriginalScene returns the implicit scene instance.
func (c *Chain) OriginalScene() *Instance { return c.original }

// AddCompositor loads comp and inserts an instance of its supported
// technique for scheme at position, or at the end for LastPosition. The
// instance starts disabled.
func (c *Chain) AddCompositor(comp *Compositor, position int, scheme string) (*Instance, error) {
	if c.destroyed {
		return nil, ErrChainDestroyed
	}
	if err := comp.Load(); err != nil {
		return nil, err
	}
	t := comp.SupportedTechniqueFor(scheme)
	if t == nil {
		c.mgr.logger().Error("compositor: no supported techniques",
			"compositor", comp.name,
			"scheme", scheme)
		return nil, fmt.Errorf("%w: %s scheme %q", ErrNoSupportedTechnique, comp.name, scheme)
	}
	if position == LastPosition {
		position = len(c.instances)
	}
	if position < 0 || position > len(c.instances) {
		return nil, fmt.Errorf("%w: position %d of %d", ErrOutOfRange, position, len(c.instances))
	}
	inst, err := newInstance(t, c)
	if err != nil {
		return nil, err
	}
	c.instances = append(c.instances, nil)
	copy(c.instances[position+1:], c.instances[position:])
	c.instances[position] = inst
	c.dirty = true
	c.mgr.logger().Info("compositor: added to chain",
		"compositor", comp.name,
		"target", c.viewport.Target().Name(),
		"position", position)
	return inst, nil
}

// RemoveCompositor destroys the instance at position.
func (c *Chain) RemoveCompositor(position int) error {
	if position < 0 || position >= len(c.instances) {
		return fmt.Errorf("%w: position %d of %d", ErrOutOfRange, position, len(c.instances))
	}
	inst := c.instances[position]
	err := inst.SetEnabled(false)
	inst.destroy()
	c.instances = append(c.instances[:position], c.instances[position+1:]...)
	inst.chain = nil
	c.dirty = true
	return err
}

// RemoveAllCompositors destroys every instance except the scene.
func (c *Chain) RemoveAllCompositors() {
	for _, inst := range c.instances {
		inst.destroy()
		inst.chain = nil
	}
	c.instances = nil
	c.dirty = true
}

// Len returns the number of instances, not counting the scene.
func (c *Chain) Len() int { return len(c.instances) }

// Instance returns the instance at position, or nil.
func (c *Chain) Instance(position int) *Instance {
	if position < 0 || position >= len(c.instances) {
		return nil
	}
	return c.instances[position]
}

// Instances returns a copy of the instance list.
func (c *Chain) Instances() []*Instance {
	return append([]*Instance(nil), c.instances...)
}

// InstanceByName returns the first instance of the named compositor, or
// nil.
func (c *Chain) InstanceByName(name string) *Instance {
	if i := c.index(name); i >= 0 {
		return c.instances[i]
	}
	return nil
}

func (c *Chain) index(name string) int {
	for i, inst := range c.instances {
		if inst.compositor.name == name {
			return i
		}
	}
	return -1
}

func (c *Chain) position(inst *Instance) int {
	for i, have := range c.instances {
		if have == inst {
			return i
		}
	}
	return -1
}

// SetCompositorEnabled enables or disables the instance at position.
func (c *Chain) SetCompositorEnabled(position int, enabled bool) error {
	inst := c.Instance(position)
	if inst == nil {
		return fmt.Errorf("%w: position %d of %d", ErrOutOfRange, position, len(c.instances))
	}
	return inst.SetEnabled(enabled)
}

// PreviousInstance returns the instance before inst, skipping disabled
// ones when activeOnly is set. It returns nil for the first instance.
func (c *Chain) PreviousInstance(inst *Instance, activeOnly bool) *Instance {
	for i := c.position(inst) - 1; i >= 0; i-- {
		if !activeOnly || c.instances[i].enabled {
			return c.instances[i]
		}
	}
	return nil
}

// NextInstance returns the instance after inst, skipping disabled ones
// when activeOnly is set. It returns nil for the last instance.
func (c *Chain) NextInstance(inst *Instance, activeOnly bool) *Instance {
	p := c.position(inst)
	if p < 0 {
		return nil
	}
	for i := p + 1; i < len(c.instances); i++ {
		if !activeOnly || c.instances[i].enabled {
			return c.instances[i]
		}
	}
	return nil
}

// MarkDirty schedules a recompile before the next frame.
func (c *Chain) MarkDirty() { c.dirty = true }

// Dirty reports whether the chain recompiles before the next frame.
func (c *Chain) Dirty() bool { return c.dirty }

// AnyEnabled reports whether an instance was enabled at the last compile.
func (c *Chain) AnyEnabled() bool { return c.anyEnabled }

// CompiledState returns the result of the last compile.
func (c *Chain) CompiledState() CompiledState { return c.state }

// Compile links the enabled instances and compiles the last of them, and
// through it every instance before it.
//
// On error the compiled state is empty and the viewport renders as if no
// compositor were attached until the chain changes again.
func (c *Chain) Compile() error {
	if c.destroyed {
		return ErrChainDestroyed
	}
	if c.originalScheme != c.viewport.MaterialScheme() {
		c.createOriginalScene()
	}
	c.reseedOriginalScene()

	last := c.original
	c.original.previous = nil
	enabled := false
	for _, inst := range c.instances {
		inst.previous = nil
		if inst.enabled {
			enabled = true
			inst.previous = last
			last = inst
		}
	}

	var state CompiledState
	err := last.compileTargetOperations(&state)
	if err == nil {
		state.Output = newTargetOperation(c.viewport.Target())
		err = last.compileOutputOperation(state.Output)
	}
	c.dirty = false
	if err != nil {
		c.state = CompiledState{}
		c.setAnyEnabled(false)
		return fmt.Errorf("compositor: compile chain of %s: %w", c.viewport.Target().Name(), err)
	}
	c.state = state
	c.setAnyEnabled(enabled)
	c.mgr.logger().Debug("compositor: chain compiled",
		"target", c.viewport.Target().Name(),
		"targets", len(state.Targets),
		"operations", state.NumOperations())
	return nil
}

// setAnyEnabled moves clearing from the viewport to the scene instance
// and back.
func (c *Chain) setAnyEnabled(enabled bool) {
	if enabled == c.anyEnabled {
		return
	}
	c.anyEnabled = enabled
	vp := c.viewport
	if enabled {
		c.savedClear.every, c.savedClear.buffers = vp.ClearEveryFrame(), vp.ClearBuffers()
		vp.SetClearEveryFrame(false, vp.ClearBuffers())
		return
	}
	vp.SetClearEveryFrame(c.savedClear.every, c.savedClear.buffers)
}

// NotifyViewportResized recreates the textures of every alive instance
// that follow the viewport size.
func (c *Chain) NotifyViewportResized() error {
	var errs []error
	for _, inst := range c.instances {
		if inst.alive {
			errs = append(errs, inst.NotifyResized())
		}
	}
	c.dirty = true
	return errors.Join(errs...)
}

// destroy releases every instance and detaches from the viewport.
func (c *Chain) destroy() {
	if c.destroyed {
		return
	}
	c.viewport.Target().RemoveListener(c)
	c.RemoveAllCompositors()
	c.setAnyEnabled(false)
	c.state = CompiledState{}
	c.destroyed = true
}
