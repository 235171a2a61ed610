// Package profile loads device capability profiles from TOML.
//
// A profile describes the device a compositor script should be compiled
// for, so technique selection can be checked without the hardware:
//
//	name = "mobile"
//	max_color_attachments = 4
//	max_texture_dimension_2d = 4096
//	mrt_different_bit_depths = false
//	render_target_formats = ["PF_R8G8B8A8", "PF_A8R8G8B8"]
//	horizontal_texel_offset = 0.5
//	vertical_texel_offset = 0.5
//
// Omitted keys keep the WebGPU defaults.
package profile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/compositor/render"
)

// ErrUnknownFormat is returned for a format name the compositor cannot map.
var ErrUnknownFormat = errors.New("profile: unknown pixel format")

// Profile is the TOML document.
type Profile struct {
	Name                  string   `toml:"name"`
	MaxColorAttachments   *int     `toml:"max_color_attachments"`
	MaxTextureDimension2D *uint32  `toml:"max_texture_dimension_2d"`
	MRTDifferentBitDepths *bool    `toml:"mrt_different_bit_depths"`
	RenderTargetFormats   []string `toml:"render_target_formats"`
	HorizontalTexelOffset float32  `toml:"horizontal_texel_offset"`
	VerticalTexelOffset   float32  `toml:"vertical_texel_offset"`
}

// Capabilities applies the profile over the default capabilities.
func (p *Profile) Capabilities() (render.Capabilities, error) {
	caps := render.DefaultCapabilities()
	if p.Name != "" {
		caps.DeviceName = p.Name
	}
	if p.MaxColorAttachments != nil {
		caps.MaxColorAttachments = *p.MaxColorAttachments
	}
	if p.MaxTextureDimension2D != nil {
		caps.MaxTextureDimension2D = *p.MaxTextureDimension2D
	}
	if p.MRTDifferentBitDepths != nil {
		caps.MRTDifferentBitDepths = *p.MRTDifferentBitDepths
	}
	if p.RenderTargetFormats != nil {
		caps.RenderTargetFormats = make([]render.PixelFormat, 0, len(p.RenderTargetFormats))
		for _, name := range p.RenderTargetFormats {
			f, ok := render.ParseFormat(name)
			if !ok {
				return render.Capabilities{}, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
			}
			caps.RenderTargetFormats = append(caps.RenderTargetFormats, f)
		}
	}
	caps.HorizontalTexelOffset = p.HorizontalTexelOffset
	caps.VerticalTexelOffset = p.VerticalTexelOffset
	return caps, nil
}

// Read decodes a profile. Unknown keys are errors.
func Read(r io.Reader) (*Profile, error) {
	var p Profile
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("profile: %s", strict.String())
		}
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &p, nil
}

// Load reads the profile file and returns its capabilities.
func Load(filename string) (render.Capabilities, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return render.Capabilities{}, err
	}
	defer fp.Close()
	p, err := Read(bufio.NewReader(fp))
	if err != nil {
		return render.Capabilities{}, fmt.Errorf("%s: %w", filename, err)
	}
	return p.Capabilities()
}
