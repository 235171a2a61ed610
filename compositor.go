package compositor

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/gogpu/compositor/render"
)

// Compositor is a named resource holding alternative techniques.
//
// Compile narrows the techniques to those the device supports and creates
// the global textures. Create compositors with Manager.CreateCompositor.
type Compositor struct {
	name string
	mgr  *Manager

	techniques []*Technique
	supported  []*Technique

	compilationRequired bool
	loaded              bool

	globalTextures map[string]render.RenderTexture
	globalMRTs     map[string]render.MultiRenderTarget
}

func newCompositor(mgr *Manager, name string) *Compositor {
	return &Compositor{
		name:                name,
		mgr:                 mgr,
		compilationRequired: true,
		globalTextures:      make(map[string]render.RenderTexture),
		globalMRTs:          make(map[string]render.MultiRenderTarget),
	}
}

// Name returns the compositor name.
func (c *Compositor) Name() string { return c.name }

// CreateTechnique appends a technique.
func (c *Compositor) CreateTechnique() *Technique {
	t := newTechnique(c)
	c.techniques = append(c.techniques, t)
	c.compilationRequired = true
	return t
}

// RemoveTechnique removes the technique at index i.
func (c *Compositor) RemoveTechnique(i int) error {
	if i < 0 || i >= len(c.techniques) {
		return fmt.Errorf("%w: technique %d of %d", ErrOutOfRange, i, len(c.techniques))
	}
	c.techniques = append(c.techniques[:i], c.techniques[i+1:]...)
	c.supported = nil
	c.compilationRequired = true
	return nil
}

// RemoveAllTechniques removes every technique.
func (c *Compositor) RemoveAllTechniques() {
	c.techniques = nil
	c.supported = nil
	c.compilationRequired = true
}

// Technique returns the technique at index i, or nil.
func (c *Compositor) Technique(i int) *Technique {
	if i < 0 || i >= len(c.techniques) {
		return nil
	}
	return c.techniques[i]
}

// NumTechniques returns the number of techniques.
func (c *Compositor) NumTechniques() int { return len(c.techniques) }

// Techniques returns every technique in order. The slice must not be
// modified.
func (c *Compositor) Techniques() []*Technique { return c.techniques }

// SupportedTechnique returns supported technique i, or nil.
func (c *Compositor) SupportedTechnique(i int) *Technique {
	if i < 0 || i >= len(c.supported) {
		return nil
	}
	return c.supported[i]
}

// NumSupportedTechniques returns the number of supported techniques.
func (c *Compositor) NumSupportedTechniques() int { return len(c.supported) }

// SupportedTechniques returns the supported techniques in declaration
// order. The slice must not be modified.
func (c *Compositor) SupportedTechniques() []*Technique { return c.supported }

// SupportedTechniqueFor returns the first supported technique of scheme,
// falling back to the first one without a scheme. It returns nil when
// neither exists.
func (c *Compositor) SupportedTechniqueFor(scheme string) *Technique {
	for _, t := range c.supported {
		if t.Scheme == scheme {
			return t
		}
	}
	for _, t := range c.supported {
		if t.Scheme == "" {
			return t
		}
	}
	return nil
}

// CompilationRequired reports whether the technique list changed since the
// last Compile.
func (c *Compositor) CompilationRequired() bool { return c.compilationRequired }

// Load compiles the compositor unless it is loaded and unchanged.
func (c *Compositor) Load() error {
	if c.loaded && !c.compilationRequired {
		return nil
	}
	err := c.Compile()
	c.loaded = true
	return err
}

// Unload releases the global textures. The techniques are kept.
func (c *Compositor) Unload() {
	c.freeGlobalTextures()
	c.loaded = false
}

// Compile rebuilds the supported technique list and the global textures.
//
// Techniques with invalid texture definitions are dropped and their errors
// are returned joined. Exact format support is tried first; only when no
// technique qualifies are degraded formats accepted.
func (c *Compositor) Compile() error {
	log := c.mgr.logger()
	c.freeGlobalTextures()
	c.supported = nil

	var errs []error
	valid := make([]*Technique, 0, len(c.techniques))
	for i, t := range c.techniques {
		if err := t.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("compositor %s technique %d: %w", c.name, i, err))
			continue
		}
		valid = append(valid, t)
	}

	caps := c.mgr.rs.Capabilities()
	for _, degrade := range []bool{false, true} {
		for i, t := range valid {
			ok, why := t.supported(caps, c.mgr.materials, degrade)
			if ok {
				c.supported = append(c.supported, t)
				continue
			}
			log.Debug("compositor: technique unsupported",
				"compositor", c.name,
				"technique", i,
				"degrade", degrade,
				"reason", why)
		}
		if len(c.supported) > 0 {
			break
		}
	}
	c.compilationRequired = false

	if len(c.supported) == 0 {
		log.Error("compositor: no supported techniques", "compositor", c.name)
		errs = append(errs, c.relinkInstances())
		return errors.Join(errs...)
	}
	if err := c.createGlobalTextures(); err != nil {
		errs = append(errs, err)
	}
	log.Info("compositor: compiled",
		"compositor", c.name,
		"techniques", len(c.techniques),
		"supported", len(c.supported))
	errs = append(errs, c.relinkInstances())
	return errors.Join(errs...)
}

// relinkInstances recreates the textures of every alive instance of c
// after a recompile replaced the global textures. An instance whose
// technique is no longer supported moves to the supported technique of
// its scheme, or dies when there is none.
func (c *Compositor) relinkInstances() error {
	var errs []error
	for _, ch := range c.mgr.chains {
		for _, inst := range ch.instances {
			if inst.compositor != c || !inst.alive {
				continue
			}
			ch.MarkDirty()
			if !slices.Contains(c.supported, inst.technique) {
				t := c.SupportedTechniqueFor(inst.technique.Scheme)
				if t == nil {
					errs = append(errs, inst.SetAlive(false),
						fmt.Errorf("%w: %s scheme %q", ErrNoSupportedTechnique, c.name, inst.technique.Scheme))
					continue
				}
				inst.freeResources(false, true)
				inst.technique = t
			}
			if err := inst.recreateResources(); err != nil {
				errs = append(errs, err, inst.SetAlive(false))
			}
		}
	}
	return errors.Join(errs...)
}

// createGlobalTextures creates the global textures of the first supported
// technique and checks that every other supported technique declares the
// same set.
func (c *Compositor) createGlobalTextures() error {
	names := make(map[string]bool)
	for _, def := range c.supported[0].textures {
		if def.Scope != ScopeGlobal {
			continue
		}
		if def.Pooled {
			c.mgr.logger().Warn("compositor: pooling global textures has no effect",
				"compositor", c.name,
				"texture", def.Name)
		}
		names[def.Name] = true
		if err := c.createGlobal(def); err != nil {
			c.freeGlobalTextures()
			return err
		}
	}

	for _, t := range c.supported[1:] {
		n := 0
		for _, def := range t.textures {
			if def.Scope != ScopeGlobal {
				continue
			}
			if !names[def.Name] {
				c.freeGlobalTextures()
				return fmt.Errorf("%w: %s declares %q", ErrGlobalMismatch, c.name, def.Name)
			}
			n++
		}
		if n != len(names) {
			c.freeGlobalTextures()
			return fmt.Errorf("%w: %s", ErrGlobalMismatch, c.name)
		}
	}
	return nil
}

func (c *Compositor) createGlobal(def *TextureDefinition) error {
	base := strings.ReplaceAll(fmt.Sprintf("c%d/%s/%s", c.mgr.nextID(), c.name, def.Name), " ", "_")
	desc := func(name string, f render.PixelFormat) render.TextureDesc {
		return render.TextureDesc{
			Name:          name,
			Width:         def.Width,
			Height:        def.Height,
			Format:        f,
			HardwareGamma: def.HardwareGammaWrite && !render.IsFloatingPoint(f),
		}
	}
	rs := c.mgr.rs

	if !def.IsMRT() {
		tex, err := rs.CreateRenderTexture(desc(base, def.Formats[0]))
		if err != nil {
			return fmt.Errorf("compositor %s global %q: %w", c.name, def.Name, err)
		}
		tex.SetAutoUpdated(false)
		tex.SetDepthPool(def.DepthPool)
		c.globalTextures[def.Name] = tex
		return nil
	}

	mrt, err := rs.CreateMultiRenderTarget(base)
	if err != nil {
		return fmt.Errorf("compositor %s global %q: %w", c.name, def.Name, err)
	}
	c.globalMRTs[def.Name] = mrt
	for i, f := range def.Formats {
		tex, err := rs.CreateRenderTexture(desc(fmt.Sprintf("%s/%d", base, i), f))
		if err != nil {
			return fmt.Errorf("compositor %s global %q: %w", c.name, def.Name, err)
		}
		tex.SetAutoUpdated(false)
		c.globalTextures[mrtLocalName(def.Name, i)] = tex
		if err := mrt.BindSurface(i, tex); err != nil {
			return fmt.Errorf("compositor %s global %q: %w", c.name, def.Name, err)
		}
	}
	mrt.SetAutoUpdated(false)
	mrt.SetDepthPool(def.DepthPool)
	return nil
}

func (c *Compositor) freeGlobalTextures() {
	for name, mrt := range c.globalMRTs {
		c.mgr.rs.DestroyRenderTarget(mrt)
		delete(c.globalMRTs, name)
	}
	for name, tex := range c.globalTextures {
		c.mgr.rs.DestroyRenderTarget(tex)
		delete(c.globalTextures, name)
	}
}

// TextureInstanceName returns the render system name of global texture
// name, or "" when there is none.
func (c *Compositor) TextureInstanceName(name string, mrtIndex int) string {
	if tex := c.TextureInstance(name, mrtIndex); tex != nil {
		return tex.Name()
	}
	return ""
}

// TextureInstance returns the global texture name. For a multi render
// target it returns surface mrtIndex.
func (c *Compositor) TextureInstance(name string, mrtIndex int) render.RenderTexture {
	if tex, ok := c.globalTextures[name]; ok {
		return tex
	}
	return c.globalTextures[mrtLocalName(name, mrtIndex)]
}

// RenderTarget returns the target of global texture name, or nil.
func (c *Compositor) RenderTarget(name string) render.RenderTarget {
	if tex, ok := c.globalTextures[name]; ok {
		return tex
	}
	if mrt, ok := c.globalMRTs[name]; ok {
		return mrt
	}
	return nil
}
