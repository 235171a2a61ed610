package compositor

import (
	"math"

	"github.com/gogpu/compositor/render"
)

// PreRenderTargetUpdate compiles the chain if needed and renders every
// intermediate target. It is called by the viewport's target.
func (c *Chain) PreRenderTargetUpdate(render.RenderTarget) {
	if c.dirty {
		if err := c.Compile(); err != nil {
			c.mgr.logger().Error("compositor: chain compile failed",
				"target", c.viewport.Target().Name(),
				"error", err)
		}
	}
	if !c.anyEnabled {
		return
	}
	for _, op := range c.state.Targets {
		if op.OnlyInitial && op.instance.rendered[op.pass] {
			continue
		}
		op.instance.rendered[op.pass] = true
		c.renderTarget(op)
	}
}

func (c *Chain) renderTarget(op *TargetOperation) {
	vp := op.Target.Viewport(0)
	if vp == nil {
		return
	}
	g := c.beginTarget(op, vp)
	defer g.end()
	if err := op.Target.Update(); err != nil {
		c.mgr.logger().Error("compositor: target update failed",
			"texture", op.Target.Name(),
			"error", err)
	}
}

// PostRenderTargetUpdate does nothing.
func (c *Chain) PostRenderTargetUpdate(render.RenderTarget) {}

// PreViewportUpdate applies the output batch to the chain's viewport.
func (c *Chain) PreViewportUpdate(vp render.Viewport) {
	if vp != c.viewport || !c.anyEnabled {
		return
	}
	if c.originalStale() {
		if err := c.Compile(); err != nil {
			c.mgr.logger().Error("compositor: chain compile failed",
				"target", c.viewport.Target().Name(),
				"error", err)
		}
		if !c.anyEnabled {
			return
		}
	}
	c.output = c.beginTarget(c.state.Output, vp)
}

// PostViewportUpdate runs what is left of the output batch and restores
// the viewport state.
func (c *Chain) PostViewportUpdate(vp render.Viewport) {
	if vp != c.viewport || c.output == nil {
		return
	}
	c.output.end()
	c.output = nil
}

// ViewportRemoved destroys the chain when its viewport goes away.
func (c *Chain) ViewportRemoved(vp render.Viewport) {
	if vp == c.viewport {
		c.mgr.RemoveChain(vp)
	}
}

// targetGuard holds the scene and viewport state replaced for one target
// operation. end restores it.
type targetGuard struct {
	chain *Chain
	vp    render.Viewport
	cam   render.Camera
	scene SceneManager

	findVisible bool
	mask        uint32
	lodBias     float32
	scheme      string
	shadows     bool
}

func (c *Chain) beginTarget(op *TargetOperation, vp render.Viewport) *targetGuard {
	g := &targetGuard{chain: c, vp: vp}
	c.listener.set(op, vp)
	if sm, cam := c.mgr.scene, vp.Camera(); sm != nil && cam != nil {
		g.scene, g.cam = sm, cam
		sm.AddRenderQueueListener(c.listener)
		g.findVisible = sm.FindVisibleObjects()
		sm.SetFindVisibleObjects(op.FindVisibleObjects)
		g.mask = sm.VisibilityMask()
		sm.SetVisibilityMask(op.VisibilityMask)
		g.lodBias = cam.LodBias()
		cam.SetLodBias(g.lodBias * op.LodBias)
	}
	g.scheme = vp.MaterialScheme()
	vp.SetMaterialScheme(op.MaterialScheme)
	g.shadows = vp.ShadowsEnabled()
	vp.SetShadowsEnabled(op.Shadows)
	return g
}

func (g *targetGuard) end() {
	g.chain.listener.flushUpTo(math.MaxUint8)
	if g.scene != nil {
		g.scene.RemoveRenderQueueListener(g.chain.listener)
		g.scene.SetFindVisibleObjects(g.findVisible)
		g.scene.SetVisibilityMask(g.mask)
		g.cam.SetLodBias(g.lodBias)
	}
	g.vp.SetMaterialScheme(g.scheme)
	g.vp.SetShadowsEnabled(g.shadows)
	g.chain.listener.set(nil, nil)
}

// queueListener interleaves the operations of a target with the scene
// render queues.
type queueListener struct {
	chain *Chain
	op    *TargetOperation
	vp    render.Viewport
	next  int
}

func (l *queueListener) set(op *TargetOperation, vp render.Viewport) {
	l.op, l.vp, l.next = op, vp, 0
}

// RenderQueueStarted runs the operations queued up to id and skips queues
// the operation does not render. The overlay queue renders wherever
// overlays are enabled.
func (l *queueListener) RenderQueueStarted(id uint8) bool {
	if l.op == nil || l.chain.mgr.scene.CurrentViewport() != l.vp {
		return false
	}
	l.flushUpTo(id)
	if id == render.QueueOverlay && l.vp.OverlaysEnabled() {
		return false
	}
	return !l.op.Queues.Has(id)
}

func (l *queueListener) RenderQueueEnded(uint8) {}

// flushUpTo runs pending operations queued at or before id.
func (l *queueListener) flushUpTo(id uint8) {
	if l.op == nil {
		return
	}
	sm, rs := l.chain.mgr.scene, l.chain.mgr.rs
	for l.next < len(l.op.Ops) && l.op.Ops[l.next].Queue <= id {
		if err := l.op.Ops[l.next].Op.Execute(sm, rs); err != nil {
			l.chain.mgr.logger().Error("compositor: operation failed",
				"texture", l.op.Target.Name(),
				"error", err)
		}
		l.next++
	}
}
