package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// Technique is one variant of a compositor.
//
// It declares textures, renders them in target pass order and finally
// renders the output target pass into the chain's output.
type Technique struct {
	// Scheme selects among alternative techniques. Empty is the default.
	Scheme string

	// Logic names a Logic registered with the manager. It is notified
	// when instances of the technique are created and destroyed.
	Logic string

	parent   *Compositor
	textures []*TextureDefinition
	targets  []*TargetPass
	output   *TargetPass
}

func newTechnique(parent *Compositor) *Technique {
	return &Technique{
		parent: parent,
		output: newTargetPass(true),
	}
}

// Compositor returns the compositor owning t.
func (t *Technique) Compositor() *Compositor { return t.parent }

// CreateTextureDefinition declares a texture. Names are unique within the
// technique.
func (t *Technique) CreateTextureDefinition(name string) (*TextureDefinition, error) {
	if t.TextureDefinition(name) != nil {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTexture, name)
	}
	def := newTextureDefinition(name)
	t.textures = append(t.textures, def)
	return def, nil
}

// RemoveTextureDefinition removes the definition at index i.
func (t *Technique) RemoveTextureDefinition(i int) error {
	if i < 0 || i >= len(t.textures) {
		return fmt.Errorf("%w: texture definition %d of %d", ErrOutOfRange, i, len(t.textures))
	}
	t.textures = append(t.textures[:i], t.textures[i+1:]...)
	return nil
}

// RemoveAllTextureDefinitions removes every texture definition.
func (t *Technique) RemoveAllTextureDefinitions() { t.textures = nil }

// TextureDefinition returns the definition named name, or nil.
func (t *Technique) TextureDefinition(name string) *TextureDefinition {
	for _, d := range t.textures {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// TextureDefinitions returns the definitions in declaration order. The
// slice must not be modified.
func (t *Technique) TextureDefinitions() []*TextureDefinition { return t.textures }

// NumTextureDefinitions returns the number of definitions.
func (t *Technique) NumTextureDefinitions() int { return len(t.textures) }

// CreateTargetPass appends an intermediate target pass.
func (t *Technique) CreateTargetPass() *TargetPass {
	tp := newTargetPass(false)
	t.targets = append(t.targets, tp)
	return tp
}

// RemoveTargetPass removes the intermediate target pass at index i.
func (t *Technique) RemoveTargetPass(i int) error {
	if i < 0 || i >= len(t.targets) {
		return fmt.Errorf("%w: target pass %d of %d", ErrOutOfRange, i, len(t.targets))
	}
	t.targets = append(t.targets[:i], t.targets[i+1:]...)
	return nil
}

// RemoveAllTargetPasses removes every intermediate target pass.
func (t *Technique) RemoveAllTargetPasses() { t.targets = nil }

// TargetPass returns the intermediate target pass at index i, or nil.
func (t *Technique) TargetPass(i int) *TargetPass {
	if i < 0 || i >= len(t.targets) {
		return nil
	}
	return t.targets[i]
}

// NumTargetPasses returns the number of intermediate target passes. The
// output target pass is not counted.
func (t *Technique) NumTargetPasses() int { return len(t.targets) }

// TargetPasses returns the intermediate target passes in order. The slice
// must not be modified.
func (t *Technique) TargetPasses() []*TargetPass { return t.targets }

// OutputTargetPass returns the output target pass. It always exists.
func (t *Technique) OutputTargetPass() *TargetPass { return t.output }

// Validate checks every texture definition and every target output name.
func (t *Technique) Validate() error {
	for _, d := range t.textures {
		if err := d.Validate(); err != nil {
			return err
		}
		if d.Scope == ScopeGlobal {
			switch {
			case d.IsReference():
				return fmt.Errorf("%w: %q is a reference", ErrInvalidGlobal, d.Name)
			case d.RelativeSize():
				return fmt.Errorf("%w: %q needs an absolute size", ErrInvalidGlobal, d.Name)
			}
		}
	}
	for _, tp := range t.targets {
		if t.TextureDefinition(tp.Output) == nil {
			return fmt.Errorf("%w: target %q", ErrUnknownTexture, tp.Output)
		}
		if err := tp.validateQueues(); err != nil {
			return err
		}
	}
	return t.output.validateQueues()
}

// supported reports whether the device can run t, and why not. With
// degrade set a format only needs some native fallback; otherwise the
// fallback must keep the bit depth.
func (t *Technique) supported(caps render.Capabilities, mats *material.Manager, degrade bool) (bool, string) {
	if ok, why := t.output.supported(mats); !ok {
		return false, why
	}
	for _, tp := range t.targets {
		if ok, why := tp.supported(mats); !ok {
			return false, why
		}
	}
	for _, d := range t.textures {
		if d.IsReference() {
			continue
		}
		maxMRT := caps.MaxColorAttachments
		if maxMRT == 0 {
			maxMRT = render.DefaultMaxColorAttachments
		}
		if len(d.Formats) > maxMRT {
			return false, fmt.Sprintf("texture %q needs %d render targets, device has %d", d.Name, len(d.Formats), maxMRT)
		}
		for _, f := range d.Formats {
			native := caps.NativeFormat(f)
			if native == render.FormatUnknown {
				return false, fmt.Sprintf("texture %q format %s unsupported", d.Name, render.FormatName(f))
			}
			if !degrade && render.FormatBits(native) != render.FormatBits(f) {
				return false, fmt.Sprintf("texture %q format %s degrades to %s", d.Name, render.FormatName(f), render.FormatName(native))
			}
		}
		if !caps.MRTDifferentBitDepths && d.IsMRT() {
			bits := render.FormatBits(caps.NativeFormat(d.Formats[0]))
			for _, f := range d.Formats[1:] {
				if render.FormatBits(caps.NativeFormat(f)) != bits {
					return false, fmt.Sprintf("texture %q mixes bit depths", d.Name)
				}
			}
		}
	}
	return true, ""
}
