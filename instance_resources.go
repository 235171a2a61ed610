package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/render"
)

// createResources creates the owned textures of the technique and links
// the global ones. With forResizeOnly set only textures sized relative to
// the output target are created.
func (i *Instance) createResources(forResizeOnly bool) error {
	vp := i.chain.viewport
	assigned := make(map[render.RenderTexture]bool)

	for _, def := range i.technique.textures {
		if def.IsReference() {
			continue
		}
		var (
			rt  render.RenderTarget
			err error
		)
		if def.Scope == ScopeGlobal {
			if forResizeOnly {
				continue
			}
			if rt, err = i.linkGlobal(def); err != nil {
				return err
			}
		} else {
			if forResizeOnly && !def.RelativeSize() {
				continue
			}
			w, h := def.Size(vp.ActualWidth(), vp.ActualHeight())
			gamma, fsaa := i.deriveTargetOptions(def.Name)
			if !def.FSAA {
				fsaa = 0
			}
			gamma = gamma || def.HardwareGammaWrite
			if rt, err = i.createTexture(def, w, h, fsaa, gamma, assigned); err != nil {
				return fmt.Errorf("compositor %s texture %q: %w", i.compositor.name, def.Name, err)
			}
		}

		rt.SetDepthPool(def.DepthPool)
		rt.SetAutoUpdated(false)
		// Pooled textures may already carry the viewport of another holder.
		if rt.NumViewports() == 0 {
			v := rt.AddViewport(vp.Camera())
			v.SetClearEveryFrame(false, v.ClearBuffers())
			v.SetOverlaysEnabled(false)
			v.SetBackgroundColour(render.ColourZero)
		}
	}

	clear(i.rendered)
	i.fireResourcesCreated(forResizeOnly)
	i.chain.mgr.logger().Debug("compositor: resources created",
		"compositor", i.compositor.name,
		"textures", len(i.localTextures),
		"resize", forResizeOnly)
	return nil
}

func (i *Instance) linkGlobal(def *TextureDefinition) (render.RenderTarget, error) {
	comp := i.compositor
	if !def.IsMRT() {
		tex := comp.globalTextures[def.Name]
		if tex == nil {
			return nil, fmt.Errorf("%w: %s/%s not created", ErrInvalidGlobal, comp.name, def.Name)
		}
		i.localTextures[def.Name] = tex
		return tex, nil
	}
	mrt := comp.globalMRTs[def.Name]
	if mrt == nil {
		return nil, fmt.Errorf("%w: %s/%s not created", ErrInvalidGlobal, comp.name, def.Name)
	}
	for idx := range def.Formats {
		local := mrtLocalName(def.Name, idx)
		i.localTextures[local] = comp.globalTextures[local]
	}
	i.localMRTs[def.Name] = mrt
	return mrt, nil
}

// createTexture creates the texture or multi render target of def.
func (i *Instance) createTexture(def *TextureDefinition, w, h int, fsaa uint32, gamma bool, assigned map[render.RenderTexture]bool) (render.RenderTarget, error) {
	mgr := i.chain.mgr
	base := fmt.Sprintf("c%d/%s/%s", mgr.nextID(), def.Name, i.chain.viewport.Target().Name())
	surface := func(name, local string, f render.PixelFormat) (render.RenderTexture, error) {
		key := poolKey{
			width:  w,
			height: h,
			format: f,
			fsaa:   fsaa,
			srgb:   gamma && !render.IsFloatingPoint(f),
		}
		if def.Pooled {
			return mgr.pooledTexture(name, local, key, assigned, i, def.Scope)
		}
		return mgr.rs.CreateRenderTexture(key.desc(name))
	}

	if !def.IsMRT() {
		tex, err := surface(base, def.Name, def.Formats[0])
		if err != nil {
			return nil, err
		}
		i.localTextures[def.Name] = tex
		return tex, nil
	}

	mrt, err := mgr.rs.CreateMultiRenderTarget(base)
	if err != nil {
		return nil, err
	}
	i.localMRTs[def.Name] = mrt
	for idx, f := range def.Formats {
		local := mrtLocalName(def.Name, idx)
		tex, err := surface(fmt.Sprintf("%s/%d", base, idx), local, f)
		if err != nil {
			return nil, err
		}
		tex.SetAutoUpdated(false)
		i.localTextures[local] = tex
		if err := mrt.BindSurface(idx, tex); err != nil {
			return nil, err
		}
	}
	return mrt, nil
}

// deriveTargetOptions returns the gamma and FSAA settings texture name
// inherits. Only textures that render the scene, directly or as the first
// enabled "input previous" target, take them from the output target.
func (i *Instance) deriveTargetOptions(name string) (bool, uint32) {
	rendersScene := false
	for _, tp := range i.technique.targets {
		if tp.Output != name {
			continue
		}
		if tp.Input == InputPrevious {
			rendersScene = true
			for _, other := range i.chain.instances {
				if other == i {
					break
				}
				if other.enabled {
					rendersScene = false
				}
			}
		} else {
			for _, p := range tp.passes {
				if p.Type() == PassRenderScene {
					rendersScene = true
					break
				}
			}
		}
		if rendersScene {
			break
		}
	}
	if !rendersScene {
		return false, 0
	}
	t := i.chain.viewport.Target()
	return t.HardwareGamma(), t.FSAA()
}

// freeResources destroys owned textures and returns pooled ones. With
// forResizeOnly set only textures sized relative to the output target are
// released. With clearReserve set reserved textures are released too.
func (i *Instance) freeResources(forResizeOnly, clearReserve bool) {
	if i.chain == nil {
		return
	}
	mgr := i.chain.mgr
	for _, def := range i.technique.textures {
		if def.IsReference() {
			continue
		}
		if forResizeOnly && !def.RelativeSize() {
			continue
		}
		n := len(def.Formats)
		for s := range n {
			name := def.Name
			if n > 1 {
				name = mrtLocalName(def.Name, s)
			}
			tex, ok := i.localTextures[name]
			if !ok {
				continue
			}
			delete(i.localTextures, name)
			switch {
			case def.Scope == ScopeGlobal:
			case mgr.isPooled(tex):
				mgr.releaseTexture(tex)
			default:
				mgr.rs.DestroyRenderTarget(tex)
			}
		}
		if mrt, ok := i.localMRTs[def.Name]; ok {
			delete(i.localMRTs, def.Name)
			if def.Scope != ScopeGlobal {
				mgr.rs.DestroyRenderTarget(mrt)
			}
		}
	}
	if clearReserve {
		for def, tex := range i.reserve {
			if forResizeOnly && !def.RelativeSize() {
				continue
			}
			mgr.releaseTexture(tex)
			delete(i.reserve, def)
		}
	}
	mgr.FreePooledTextures(true)
}

// recreateResources frees and creates every texture of an alive
// instance.
func (i *Instance) recreateResources() error {
	if !i.alive {
		return nil
	}
	i.freeResources(false, true)
	return i.createResources(false)
}

// poolsPreviousTarget reports whether an "input previous" target pass of
// i renders into a pooled texture.
func (i *Instance) poolsPreviousTarget() bool {
	for _, tp := range i.technique.targets {
		if tp.Input != InputPrevious {
			continue
		}
		if def := i.technique.TextureDefinition(tp.Output); def != nil && def.Pooled {
			return true
		}
	}
	return false
}

// resolveAliasing recreates pooled textures that alias between i and the
// enabled instances now adjacent to it. It runs when an alive instance is
// enabled again.
func (i *Instance) resolveAliasing() error {
	prev := i.chain.PreviousInstance(i, true)
	next := i.chain.NextInstance(i, true)
	if (prev != nil && aliases(prev, i)) || (next != nil && aliases(i, next)) {
		if err := i.recreateResources(); err != nil {
			return err
		}
	}
	if next != nil && aliases(i, next) {
		return next.recreateResources()
	}
	return nil
}

// aliases reports whether the output of p reads a texture that n renders
// into as "input previous".
func aliases(p, n *Instance) bool {
	for _, tp := range n.technique.targets {
		if tp.Input != InputPrevious {
			continue
		}
		if tex := n.localTexture(tp.Output, 0); tex != nil && readsInOutput(p, tex) {
			return true
		}
	}
	return false
}
