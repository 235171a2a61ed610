// Package soft is a CPU render system.
//
// Every render texture is an *image.RGBA with companion depth and 8-bit
// stencil planes. Clears fill the planes, quads bilinear-scale their first
// input into the destination rectangle and renderables fill their bounds
// with alpha blending. The stencil unit masks both.
//
// The package registers itself as the "soft" backend:
//
//	import _ "github.com/gogpu/compositor/backend/soft"
package soft

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/render"
)

func init() {
	backend.Register(backend.BackendSoft, func() (render.RenderSystem, error) {
		return New(), nil
	})
}

// Errors returned by the soft system.
var (
	ErrUnsupportedFormat = errors.New("soft: unsupported render target format")
	ErrTextureTooLarge   = errors.New("soft: texture exceeds device limits")
	ErrDuplicateTarget   = errors.New("soft: duplicate render target name")
	ErrSizeMismatch      = errors.New("soft: surface size does not match render target")
)

// Stats counts calls since creation or the last ResetStats.
type Stats struct {
	Created     int
	Destroyed   int
	Clears      int
	Quads       int
	Renderables int
}

// Option configures a System.
type Option func(*System)

// WithCapabilities replaces the default capabilities.
func WithCapabilities(caps render.Capabilities) Option {
	return func(s *System) {
		s.caps = caps
	}
}

// System is the CPU render system.
type System struct {
	caps    render.Capabilities
	targets map[string]render.RenderTarget
	active  render.Viewport

	stencilCheck  bool
	stencilParams render.StencilParams

	stats Stats
	trace []string
}

// New creates a system at the default WebGPU capabilities.
func New(opts ...Option) *System {
	s := &System{
		caps:          render.DefaultCapabilities(),
		targets:       make(map[string]render.RenderTarget),
		stencilParams: render.DefaultStencilParams(),
	}
	s.caps.DeviceName = "soft"
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns "soft".
func (s *System) Name() string { return backend.BackendSoft }

// Capabilities returns the configured capabilities.
func (s *System) Capabilities() render.Capabilities { return s.caps }

// Stats returns call counters.
func (s *System) Stats() Stats { return s.stats }

// ResetStats zeroes the counters and the trace.
func (s *System) ResetStats() {
	s.stats = Stats{}
	s.trace = nil
}

// Trace returns a line per draw call, in call order.
func (s *System) Trace() []string {
	return append([]string(nil), s.trace...)
}

func (s *System) record(format string, args ...any) {
	s.trace = append(s.trace, fmt.Sprintf(format, args...))
}

// Target returns the live target with the given name, or nil.
func (s *System) Target(name string) render.RenderTarget {
	return s.targets[name]
}

// TargetNames returns the live target names in sorted order.
func (s *System) TargetNames() []string {
	names := make([]string, 0, len(s.targets))
	for n := range s.targets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewWindow creates a BGRA target standing in for an on-screen surface.
func (s *System) NewWindow(name string, width, height int) (*Texture, error) {
	rt, err := s.CreateRenderTexture(render.TextureDesc{
		Name:   name,
		Width:  width,
		Height: height,
		Format: windowFormat,
	})
	if err != nil {
		return nil, err
	}
	tex := rt.(*Texture)
	tex.SetAutoUpdated(true)
	return tex, nil
}

// CreateRenderTexture allocates a texture in the native format closest to
// desc.Format.
func (s *System) CreateRenderTexture(desc render.TextureDesc) (render.RenderTexture, error) {
	if _, ok := s.targets[desc.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, desc.Name)
	}
	if desc.Width <= 0 || desc.Height <= 0 || !s.caps.FitsTexture(desc.Width, desc.Height) {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrTextureTooLarge, desc.Name, desc.Width, desc.Height)
	}
	format := s.caps.NativeFormat(desc.Format)
	if format == undefinedFormat {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, render.FormatName(desc.Format))
	}
	tex := newTexture(s, desc, format)
	s.targets[desc.Name] = tex
	s.stats.Created++
	s.record("create %s %dx%d %s", desc.Name, desc.Width, desc.Height, render.FormatName(format))
	logging.Logger().Debug("soft: texture created",
		"texture", desc.Name,
		"width", desc.Width,
		"height", desc.Height,
		"format", render.FormatName(format))
	return tex, nil
}

// CreateMultiRenderTarget creates an empty MRT; surfaces are bound later.
func (s *System) CreateMultiRenderTarget(name string) (render.MultiRenderTarget, error) {
	if _, ok := s.targets[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, name)
	}
	mrt := &MultiTarget{TargetBase: render.NewTargetBase(s, name, 0, 0, 0, false)}
	s.targets[name] = mrt
	s.stats.Created++
	s.record("create %s mrt", name)
	return mrt, nil
}

// DestroyRenderTarget releases t and removes its viewports.
func (s *System) DestroyRenderTarget(t render.RenderTarget) {
	if t == nil {
		return
	}
	if have, ok := s.targets[t.Name()]; !ok || have != t {
		return
	}
	t.RemoveAllViewports()
	delete(s.targets, t.Name())
	if s.active != nil && s.active.Target() == t {
		s.active = nil
	}
	s.stats.Destroyed++
	s.record("destroy %s", t.Name())
}

// SetActiveViewport directs draws at vp.
func (s *System) SetActiveViewport(vp render.Viewport) { s.active = vp }

// ActiveViewport returns the viewport draws go to.
func (s *System) ActiveViewport() render.Viewport { return s.active }

// SetStencilCheckEnabled toggles the stencil test.
func (s *System) SetStencilCheckEnabled(enabled bool) {
	s.stencilCheck = enabled
	s.record("stencil %v", enabled)
}

// SetStencilBufferParams configures the stencil test.
func (s *System) SetStencilBufferParams(p render.StencilParams) { s.stencilParams = p }

// StencilState returns the current stencil configuration.
func (s *System) StencilState() (bool, render.StencilParams) {
	return s.stencilCheck, s.stencilParams
}

// surfaces returns the textures the active viewport writes to.
func (s *System) surfaces() ([]*Texture, string) {
	if s.active == nil {
		return nil, ""
	}
	switch t := s.active.Target().(type) {
	case *Texture:
		return []*Texture{t}, t.Name()
	case *MultiTarget:
		return t.textures(), t.Name()
	default:
		return nil, ""
	}
}
