package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/render"
)

// TextureScope is the sharing domain of a texture definition.
type TextureScope uint8

const (
	// ScopeLocal textures are visible to the owning technique only.
	ScopeLocal TextureScope = iota

	// ScopeChain textures may be referenced by later compositors of the
	// same chain.
	ScopeChain

	// ScopeGlobal textures are created once per compositor and shared by
	// every instance.
	ScopeGlobal
)

var scopeNames = [...]string{"local_scope", "chain_scope", "global_scope"}

// String returns the script keyword of the scope.
func (s TextureScope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return fmt.Sprintf("TextureScope(%d)", s)
}

// TextureDefinition declares a texture of a technique.
//
// A definition either owns a texture (Formats non-empty) or references a
// texture of another compositor (RefCompositor and RefTexture set). The two
// forms are mutually exclusive; Validate reports violations.
type TextureDefinition struct {
	Name string

	// RefCompositor and RefTexture name the referenced texture.
	RefCompositor string
	RefTexture    string

	// Width and Height are absolute sizes in pixels. Zero means relative
	// to the output target, scaled by WidthFactor and HeightFactor.
	Width, Height             int
	WidthFactor, HeightFactor float32

	// Formats lists one pixel format per surface. More than one makes a
	// multi render target.
	Formats []render.PixelFormat

	// FSAA allows inheriting multisampling from the output target.
	FSAA bool

	// HardwareGammaWrite forces sRGB writes for non-float formats.
	HardwareGammaWrite bool

	// DepthPool selects the shared depth buffer group.
	DepthPool uint16

	// Pooled allows sharing the texture with other instances.
	Pooled bool

	Scope TextureScope
}

func newTextureDefinition(name string) *TextureDefinition {
	return &TextureDefinition{
		Name:         name,
		WidthFactor:  1,
		HeightFactor: 1,
		FSAA:         true,
		DepthPool:    1,
	}
}

// IsReference reports whether d refers to another compositor's texture.
func (d *TextureDefinition) IsReference() bool {
	return d.RefCompositor != "" || d.RefTexture != ""
}

// IsMRT reports whether d owns a multi render target.
func (d *TextureDefinition) IsMRT() bool {
	return len(d.Formats) > 1
}

// RelativeSize reports whether the size follows the output target.
func (d *TextureDefinition) RelativeSize() bool {
	return d.Width == 0 || d.Height == 0
}

// Size returns the pixel size for an output target of the given size.
// Relative dimensions never drop below one pixel.
func (d *TextureDefinition) Size(targetWidth, targetHeight int) (int, int) {
	w, h := d.Width, d.Height
	if w == 0 {
		w = max(1, int(float32(targetWidth)*d.WidthFactor))
	}
	if h == 0 {
		h = max(1, int(float32(targetHeight)*d.HeightFactor))
	}
	return w, h
}

// Validate checks that reference and owning fields are not mixed.
func (d *TextureDefinition) Validate() error {
	if d.IsReference() {
		switch {
		case d.RefCompositor == "" || d.RefTexture == "":
			return fmt.Errorf("%w: %q needs both compositor and texture", ErrInvalidReference, d.Name)
		case len(d.Formats) > 0 || d.Width != 0 || d.Height != 0 || d.Pooled:
			return fmt.Errorf("%w: reference %q carries owning fields", ErrInvalidDefinition, d.Name)
		}
		return nil
	}
	if len(d.Formats) == 0 {
		return fmt.Errorf("%w: %q has no pixel format", ErrInvalidDefinition, d.Name)
	}
	if d.Width < 0 || d.Height < 0 || d.WidthFactor < 0 || d.HeightFactor < 0 {
		return fmt.Errorf("%w: %q has a negative size", ErrInvalidDefinition, d.Name)
	}
	return nil
}

// mrtLocalName is the instance key of MRT surface i of def.
func mrtLocalName(def string, i int) string {
	return fmt.Sprintf("%s/%d", def, i)
}
