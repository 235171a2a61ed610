package compositor

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// Instance binds a supported technique of a compositor to a chain slot.
//
// An alive instance owns the textures of its technique. Only alive
// instances can be enabled; disabling keeps the textures so that
// re-enabling is cheap.
type Instance struct {
	compositor *Compositor
	technique  *Technique
	chain      *Chain
	logic      Logic

	enabled bool
	alive   bool

	// previous is set by chain compilation only.
	previous *Instance

	localTextures map[string]render.RenderTexture
	localMRTs     map[string]render.MultiRenderTarget
	reserve       map[*TextureDefinition]render.RenderTexture

	// rendered marks OnlyInitial target passes already rendered since the
	// resources were created.
	rendered map[*TargetPass]bool

	listeners []InstanceListener
}

func newInstance(t *Technique, chain *Chain) (*Instance, error) {
	inst := &Instance{
		compositor:    t.parent,
		technique:     t,
		chain:         chain,
		localTextures: make(map[string]render.RenderTexture),
		localMRTs:     make(map[string]render.MultiRenderTarget),
		reserve:       make(map[*TextureDefinition]render.RenderTexture),
		rendered:      make(map[*TargetPass]bool),
	}
	if t.Logic != "" {
		l := chain.mgr.Logic(t.Logic)
		if l == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownLogic, t.Logic)
		}
		inst.logic = l
		l.InstanceCreated(inst)
	}
	return inst, nil
}

// destroy notifies the logic and frees every texture.
func (i *Instance) destroy() {
	if i.logic != nil {
		i.logic.InstanceDestroyed(i)
	}
	i.freeResources(false, true)
	i.alive = false
	i.enabled = false
}

// Compositor returns the compositor of the instance.
func (i *Instance) Compositor() *Compositor { return i.compositor }

// Technique returns the bound technique.
func (i *Instance) Technique() *Technique { return i.technique }

// Chain returns the chain holding the instance.
func (i *Instance) Chain() *Chain { return i.chain }

// Enabled reports whether the instance takes part in rendering.
func (i *Instance) Enabled() bool { return i.enabled }

// Alive reports whether the instance holds its textures.
func (i *Instance) Alive() bool { return i.alive }

// Scheme returns the scheme of the bound technique.
func (i *Instance) Scheme() string { return i.technique.Scheme }

// Previous returns the instance feeding this one as of the last chain
// compilation.
func (i *Instance) Previous() *Instance { return i.previous }

// SetEnabled switches the instance on or off. Enabling makes it alive.
//
// Disabling does not free textures. It does recreate the textures of the
// next enabled instance when that one pools an "input previous" target,
// since the two instances around this one become adjacent.
func (i *Instance) SetEnabled(enabled bool) error {
	if i.enabled == enabled {
		return nil
	}
	if i.chain == nil {
		return ErrChainDestroyed
	}
	if enabled {
		if !i.alive {
			if err := i.SetAlive(true); err != nil {
				return err
			}
		}
		i.enabled = true
		if err := i.resolveAliasing(); err != nil {
			return err
		}
	} else {
		i.enabled = false
		if next := i.chain.NextInstance(i, true); next != nil && next.poolsPreviousTarget() {
			if err := next.recreateResources(); err != nil {
				i.chain.MarkDirty()
				return err
			}
		}
	}
	i.chain.MarkDirty()
	return nil
}

// SetAlive creates or frees the textures of the instance. An instance
// that dies is disabled.
func (i *Instance) SetAlive(alive bool) error {
	if i.alive == alive {
		return nil
	}
	if i.chain == nil {
		return ErrChainDestroyed
	}
	if alive {
		if err := i.createResources(false); err != nil {
			i.freeResources(false, true)
			return err
		}
		i.alive = true
	} else {
		i.alive = false
		i.freeResources(false, true)
		if err := i.SetEnabled(false); err != nil {
			return err
		}
	}
	i.chain.MarkDirty()
	return nil
}

// SetTechnique binds another technique of the same compositor. With
// reuseTextures set the pooled textures of the old technique are kept in
// reserve so the pool can hand them out again.
func (i *Instance) SetTechnique(t *Technique, reuseTextures bool) error {
	if t == i.technique {
		return nil
	}
	if t == nil || t.parent != i.compositor {
		return ErrForeignTechnique
	}
	if reuseTextures {
		for _, def := range i.technique.textures {
			if !def.Pooled {
				continue
			}
			tex, ok := i.localTextures[def.Name]
			if !ok {
				continue
			}
			if old, ok := i.reserve[def]; ok {
				i.chain.mgr.releaseTexture(old)
			}
			i.chain.mgr.retainTexture(tex)
			i.reserve[def] = tex
		}
	}
	if !i.alive {
		i.technique = t
		return nil
	}
	i.freeResources(false, !reuseTextures)
	i.technique = t
	if err := i.createResources(false); err != nil {
		// The instance dies as it would on a failed SetAlive.
		err = errors.Join(err, i.SetAlive(false))
		i.chain.MarkDirty()
		return err
	}
	i.chain.MarkDirty()
	return nil
}

// SetScheme binds the supported technique of scheme. See SetTechnique.
func (i *Instance) SetScheme(scheme string, reuseTextures bool) error {
	t := i.compositor.SupportedTechniqueFor(scheme)
	if t == nil {
		return fmt.Errorf("%w: %s scheme %q", ErrNoSupportedTechnique, i.compositor.name, scheme)
	}
	return i.SetTechnique(t, reuseTextures)
}

// NotifyResized recreates the textures sized relative to the output
// target.
func (i *Instance) NotifyResized() error {
	i.freeResources(true, true)
	return i.createResources(true)
}

// AddListener registers l once.
func (i *Instance) AddListener(l InstanceListener) {
	for _, have := range i.listeners {
		if have == l {
			return
		}
	}
	i.listeners = append(i.listeners, l)
}

// RemoveListener unregisters l.
func (i *Instance) RemoveListener(l InstanceListener) {
	for k, have := range i.listeners {
		if have == l {
			i.listeners = append(i.listeners[:k], i.listeners[k+1:]...)
			return
		}
	}
}

func (i *Instance) fireMaterialSetup(passID uint32, mat *material.Material) {
	for _, l := range i.listeners {
		l.NotifyMaterialSetup(passID, mat)
	}
}

func (i *Instance) fireMaterialRender(passID uint32, mat *material.Material) {
	for _, l := range i.listeners {
		l.NotifyMaterialRender(passID, mat)
	}
}

func (i *Instance) fireResourcesCreated(forResizeOnly bool) {
	for _, l := range i.listeners {
		l.NotifyResourcesCreated(forResizeOnly)
	}
}

// TextureInstanceName returns the render system name of texture name,
// following references. It returns "" when the texture cannot be
// resolved.
func (i *Instance) TextureInstanceName(name string, mrtIndex int) string {
	if tex := i.TextureInstance(name, mrtIndex); tex != nil {
		return tex.Name()
	}
	return ""
}

// TextureInstance returns texture name, following references, or nil.
// For a multi render target it returns surface mrtIndex.
func (i *Instance) TextureInstance(name string, mrtIndex int) render.RenderTexture {
	tex, err := i.sourceForTex(name, mrtIndex)
	if err != nil {
		return nil
	}
	return tex
}

// RenderTarget returns the target of texture name, following references,
// or nil.
func (i *Instance) RenderTarget(name string) render.RenderTarget {
	rt, err := i.targetForTex(name)
	if err != nil {
		return nil
	}
	return rt
}

func (i *Instance) localTexture(name string, mrtIndex int) render.RenderTexture {
	if tex, ok := i.localTextures[name]; ok {
		return tex
	}
	return i.localTextures[mrtLocalName(name, mrtIndex)]
}

// sourceForTex resolves a texture to sample.
func (i *Instance) sourceForTex(name string, mrtIndex int) (render.RenderTexture, error) {
	if tex := i.localTexture(name, mrtIndex); tex != nil {
		return tex, nil
	}
	def := i.technique.TextureDefinition(name)
	if def == nil || !def.IsReference() {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownTexture, name, i.compositor.name)
	}
	inst, comp, err := i.referenced(def)
	if err != nil {
		return nil, err
	}
	if comp != nil {
		if tex := comp.TextureInstance(def.RefTexture, mrtIndex); tex != nil {
			return tex, nil
		}
		return nil, fmt.Errorf("%w: global %s/%s not created", ErrInvalidReference, def.RefCompositor, def.RefTexture)
	}
	if inst == i {
		// A reference to the instance itself only resolves its own textures.
		if tex := i.localTexture(def.RefTexture, mrtIndex); tex != nil {
			return tex, nil
		}
		return nil, fmt.Errorf("%w: %s references itself through %q", ErrInvalidReference, i.compositor.name, name)
	}
	return inst.sourceForTex(def.RefTexture, mrtIndex)
}

// targetForTex resolves a texture to render into.
func (i *Instance) targetForTex(name string) (render.RenderTarget, error) {
	if tex, ok := i.localTextures[name]; ok {
		return tex, nil
	}
	if mrt, ok := i.localMRTs[name]; ok {
		return mrt, nil
	}
	def := i.technique.TextureDefinition(name)
	if def == nil || !def.IsReference() {
		return nil, fmt.Errorf("%w: %q in %s", ErrUnknownTexture, name, i.compositor.name)
	}
	inst, comp, err := i.referenced(def)
	if err != nil {
		return nil, err
	}
	if comp != nil {
		if rt := comp.RenderTarget(def.RefTexture); rt != nil {
			return rt, nil
		}
		return nil, fmt.Errorf("%w: global %s/%s not created", ErrInvalidReference, def.RefCompositor, def.RefTexture)
	}
	if inst == i {
		if tex, ok := i.localTextures[def.RefTexture]; ok {
			return tex, nil
		}
		if mrt, ok := i.localMRTs[def.RefTexture]; ok {
			return mrt, nil
		}
		return nil, fmt.Errorf("%w: %s references itself through %q", ErrInvalidReference, i.compositor.name, name)
	}
	return inst.targetForTex(def.RefTexture)
}

// referenced returns the holder of the texture def refers to: an earlier
// enabled instance of the chain, or a compositor for global textures.
func (i *Instance) referenced(def *TextureDefinition) (*Instance, *Compositor, error) {
	var (
		refInst *Instance
		refComp *Compositor
		refDef  *TextureDefinition
		before  = true
	)
	for _, other := range i.chain.instances {
		if other.compositor.name == def.RefCompositor {
			refInst = other
			break
		}
		if other == i {
			before = false
		}
	}
	if refInst != nil {
		refComp = refInst.compositor
		refDef = refInst.technique.TextureDefinition(def.RefTexture)
	} else if refComp = i.chain.mgr.Compositor(def.RefCompositor); refComp != nil {
		if err := refComp.Load(); err != nil {
			return nil, nil, err
		}
		if t := refComp.SupportedTechniqueFor(""); t != nil {
			refDef = t.TextureDefinition(def.RefTexture)
		}
	}
	if refDef == nil {
		return nil, nil, fmt.Errorf("%w: %s references %s/%s", ErrInvalidReference, i.compositor.name, def.RefCompositor, def.RefTexture)
	}

	switch {
	case refDef.IsReference() || refDef.Scope == ScopeChain:
		if refInst == nil || !refInst.enabled {
			return nil, nil, fmt.Errorf("%w: %s references %s/%s", ErrInactiveReference, i.compositor.name, def.RefCompositor, def.RefTexture)
		}
		if !before {
			return nil, nil, fmt.Errorf("%w: %s references %s/%s", ErrLaterReference, i.compositor.name, def.RefCompositor, def.RefTexture)
		}
		return refInst, nil, nil
	case refDef.Scope == ScopeGlobal:
		return nil, refComp, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s references %s/%s", ErrScopeMismatch, i.compositor.name, def.RefCompositor, def.RefTexture)
	}
}
