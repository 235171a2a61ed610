// Package material is the material system the compositor resolves quad
// materials against.
//
// A Material holds Techniques, a Technique holds Passes and a Pass holds
// TextureUnits. Compositor quad passes never draw with a registered
// material directly: they ask the Manager for a local clone and bind their
// input textures into the clone's texture units.
package material

import (
	"github.com/gogpu/compositor/render"
)

// TextureUnit is one sampler slot of a pass.
type TextureUnit struct {
	// Name is the sampler name in the shader, informational only.
	Name string

	// Texture is the bound texture, nil when unbound.
	Texture render.Texture
}

// Pass is one draw of a technique.
type Pass struct {
	Name string

	// Colour tints the draw; it is the only colour source when no
	// texture unit is bound.
	Colour render.Colour

	// Shader is WGSL source. Empty means the fixed function path.
	Shader string

	TextureUnits []TextureUnit
}

// NumTextureUnits returns the number of sampler slots.
func (p *Pass) NumTextureUnits() int {
	return len(p.TextureUnits)
}

// AddTextureUnit appends a sampler slot and returns its index.
func (p *Pass) AddTextureUnit(name string) int {
	p.TextureUnits = append(p.TextureUnits, TextureUnit{Name: name})
	return len(p.TextureUnits) - 1
}

// BoundTextures returns the texture of every unit, in order.
func (p *Pass) BoundTextures() []render.Texture {
	out := make([]render.Texture, len(p.TextureUnits))
	for i, u := range p.TextureUnits {
		out[i] = u.Texture
	}
	return out
}

func (p *Pass) clone() *Pass {
	c := *p
	c.TextureUnits = append([]TextureUnit(nil), p.TextureUnits...)
	return &c
}

// Technique is one way of drawing a material.
type Technique struct {
	// Scheme selects the technique; empty is the default scheme.
	Scheme string

	Passes []*Pass

	supported bool
	reason    string
}

// CreatePass appends an empty pass.
func (t *Technique) CreatePass() *Pass {
	p := &Pass{Colour: render.ColourWhite}
	t.Passes = append(t.Passes, p)
	return p
}

// Supported reports the result of the last material compilation.
func (t *Technique) Supported() bool {
	return t.supported
}

// UnsupportedReason explains why compilation rejected the technique.
func (t *Technique) UnsupportedReason() string {
	return t.reason
}

func (t *Technique) clone() *Technique {
	c := &Technique{Scheme: t.Scheme, supported: t.supported, reason: t.reason}
	for _, p := range t.Passes {
		c.Passes = append(c.Passes, p.clone())
	}
	return c
}

// Material is a named set of techniques.
type Material struct {
	name       string
	techniques []*Technique
	compiled   bool
}

// New creates an unregistered material.
func New(name string) *Material {
	return &Material{name: name}
}

// Name returns the material name.
func (m *Material) Name() string {
	return m.name
}

// CreateTechnique appends a technique. The material must be compiled again
// before its techniques report support.
func (m *Material) CreateTechnique() *Technique {
	t := &Technique{}
	m.techniques = append(m.techniques, t)
	m.compiled = false
	return t
}

// Techniques returns every technique, supported or not.
func (m *Material) Techniques() []*Technique {
	return m.techniques
}

// Compiled reports whether support flags are current.
func (m *Material) Compiled() bool {
	return m.compiled
}

// SupportedTechniques returns the techniques that passed compilation.
func (m *Material) SupportedTechniques() []*Technique {
	var out []*Technique
	for _, t := range m.techniques {
		if t.supported {
			out = append(out, t)
		}
	}
	return out
}

// NumSupportedTechniques returns len(SupportedTechniques()).
func (m *Material) NumSupportedTechniques() int {
	n := 0
	for _, t := range m.techniques {
		if t.supported {
			n++
		}
	}
	return n
}

// BestTechnique picks the supported technique for scheme, falling back to
// the first supported technique of the default scheme. It returns nil
// when nothing is supported.
func (m *Material) BestTechnique(scheme string) *Technique {
	var fallback *Technique
	for _, t := range m.techniques {
		if !t.supported {
			continue
		}
		if t.Scheme == scheme {
			return t
		}
		if fallback == nil && t.Scheme == "" {
			fallback = t
		}
	}
	return fallback
}

// Clone copies the material under a new name. Texture bindings are copied
// by reference; later bindings on the clone do not affect m.
func (m *Material) Clone(name string) *Material {
	c := &Material{name: name, compiled: m.compiled}
	for _, t := range m.techniques {
		c.techniques = append(c.techniques, t.clone())
	}
	return c
}
