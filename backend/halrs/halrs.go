// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package halrs is a render system over the gogpu HAL.
//
// Render textures are real hal.Texture allocations with a colour view and a
// Depth24PlusStencil8 companion. Clears are encoded as render passes and
// submitted with a fence. Quads and renderables are forwarded to a DrawHook
// inside an open render pass on the active target; the host owns pipelines
// and shaders.
//
// The package registers itself as the "halrs" backend. The registered
// factory opens the Vulkan HAL when it is linked in and falls back to the
// noop HAL otherwise:
//
//	import _ "github.com/gogpu/compositor/backend/halrs"
package halrs

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/render"
)

func init() {
	backend.Register(backend.BackendHALRS, func() (render.RenderSystem, error) {
		return Open()
	})
}

// Errors returned by the HAL system.
var (
	ErrNilProvider       = errors.New("halrs: nil DeviceProvider")
	ErrNoHAL             = errors.New("halrs: provider does not expose HAL types")
	ErrNoAdapter         = errors.New("halrs: no GPU adapters found")
	ErrUnsupportedFormat = errors.New("halrs: unsupported render target format")
	ErrTextureTooLarge   = errors.New("halrs: texture exceeds device limits")
	ErrDuplicateTarget   = errors.New("halrs: duplicate render target name")
	ErrSizeMismatch      = errors.New("halrs: surface size does not match render target")
	ErrClosed            = errors.New("halrs: system closed")
)

// submitTimeout bounds the fence wait of one submission.
const submitTimeout = 5 * time.Second

// Stats counts calls since creation or the last ResetStats.
type Stats struct {
	Created     int
	Destroyed   int
	Clears      int
	Quads       int
	Renderables int
	Submits     int
}

// Option configures a System.
type Option func(*System)

// WithCapabilities replaces the capabilities derived from device limits.
func WithCapabilities(caps render.Capabilities) Option {
	return func(s *System) {
		s.caps = caps
	}
}

// WithLimits derives capabilities from the limits the device was opened
// with.
func WithLimits(limits gputypes.Limits) Option {
	return func(s *System) {
		name := s.caps.DeviceName
		s.caps = render.CapabilitiesFromLimits(limits)
		s.caps.DeviceName = name
	}
}

// WithDeviceName labels the device in capabilities and logs.
func WithDeviceName(name string) Option {
	return func(s *System) {
		s.caps.DeviceName = name
	}
}

// WithWindowFormat sets the format NewWindow allocates, usually the
// surface format of the host.
func WithWindowFormat(format render.PixelFormat) Option {
	return func(s *System) {
		if format != gputypes.TextureFormatUndefined {
			s.windowFormat = format
		}
	}
}

// WithDrawHook installs the receiver of quad and renderable draws.
func WithDrawHook(h DrawHook) Option {
	return func(s *System) {
		s.hook = h
	}
}

// System is a render system on a HAL device and queue.
type System struct {
	device hal.Device
	queue  hal.Queue

	// Owned only when the system opened the device itself.
	instance hal.Instance
	owned    bool

	caps         render.Capabilities
	windowFormat render.PixelFormat
	hook         DrawHook

	targets map[string]render.RenderTarget
	active  render.Viewport

	stencilCheck  bool
	stencilParams render.StencilParams

	stats  Stats
	closed bool
}

// New wraps an open device and queue. The caller keeps ownership of both.
func New(device hal.Device, queue hal.Queue, opts ...Option) *System {
	s := &System{
		device:        device,
		queue:         queue,
		caps:          render.DefaultCapabilities(),
		windowFormat:  gputypes.TextureFormatBGRA8Unorm,
		targets:       make(map[string]render.RenderTarget),
		stencilParams: render.DefaultStencilParams(),
	}
	s.caps.DeviceName = backend.BackendHALRS
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFromProvider shares the device of a host such as a gogpu app. The
// provider must implement HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. NewWindow uses the provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*System, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHAL)
	}
	opts = append([]Option{WithWindowFormat(provider.SurfaceFormat())}, opts...)
	return New(device, queue, opts...), nil
}

// Open creates a standalone device. The Vulkan HAL is used when it is
// registered, the noop HAL otherwise. Close releases the device.
func Open(opts ...Option) (*System, error) {
	var (
		instance hal.Instance
		err      error
	)
	if vk, ok := hal.GetBackend(gputypes.BackendVulkan); ok {
		instance, err = vk.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	} else {
		api := noop.API{}
		instance, err = api.CreateInstance(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("halrs: create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("halrs: open device: %w", err)
	}

	opts = append([]Option{WithDeviceName(selected.Info.Name), WithLimits(limits)}, opts...)
	s := New(openDev.Device, openDev.Queue, opts...)
	s.instance = instance
	s.owned = true
	logging.Logger().Info("halrs: device opened", "adapter", selected.Info.Name)
	return s, nil
}

// Close destroys every live target and, when the system opened the device
// itself, the device and instance. Close is idempotent.
func (s *System) Close() {
	if s.closed {
		return
	}
	for _, name := range s.TargetNames() {
		s.DestroyRenderTarget(s.targets[name])
	}
	if s.owned {
		s.device.Destroy()
		if s.instance != nil {
			s.instance.Destroy()
		}
	}
	s.closed = true
}

// Name returns "halrs".
func (s *System) Name() string { return backend.BackendHALRS }

// Capabilities returns the device capabilities.
func (s *System) Capabilities() render.Capabilities { return s.caps }

// Device returns the HAL device.
func (s *System) Device() hal.Device { return s.device }

// Queue returns the HAL queue.
func (s *System) Queue() hal.Queue { return s.queue }

// Stats returns call counters.
func (s *System) Stats() Stats { return s.stats }

// ResetStats zeroes the counters.
func (s *System) ResetStats() { s.stats = Stats{} }

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

// NewWindow creates an auto-updated target in the window format, standing
// in for a swapchain image.
func (s *System) NewWindow(name string, width, height int) (*Texture, error) {
	rt, err := s.CreateRenderTexture(render.TextureDesc{
		Name:   name,
		Width:  width,
		Height: height,
		Format: s.windowFormat,
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
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.targets[desc.Name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, desc.Name)
	}
	if desc.Width <= 0 || desc.Height <= 0 || !s.caps.FitsTexture(desc.Width, desc.Height) {
		return nil, fmt.Errorf("%w: %s %dx%d", ErrTextureTooLarge, desc.Name, desc.Width, desc.Height)
	}
	format := s.caps.NativeFormat(desc.Format)
	if format == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, render.FormatName(desc.Format))
	}
	tex := &Texture{
		TargetBase: render.NewTargetBase(s, desc.Name, desc.Width, desc.Height, desc.FSAA, desc.HardwareGamma),
		sys:        s,
		format:     format,
	}
	if err := tex.allocate(); err != nil {
		return nil, err
	}
	s.targets[desc.Name] = tex
	s.stats.Created++
	logging.Logger().Debug("halrs: texture created",
		"texture", desc.Name,
		"width", desc.Width,
		"height", desc.Height,
		"format", render.FormatName(format))
	return tex, nil
}

// CreateMultiRenderTarget creates an empty MRT; surfaces are bound later.
func (s *System) CreateMultiRenderTarget(name string) (render.MultiRenderTarget, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if _, ok := s.targets[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateTarget, name)
	}
	mrt := &MultiTarget{TargetBase: render.NewTargetBase(s, name, 0, 0, 0, false), sys: s}
	s.targets[name] = mrt
	s.stats.Created++
	return mrt, nil
}

// DestroyRenderTarget releases t, its HAL resources and its viewports.
// A multi render target does not own its bound surfaces.
func (s *System) DestroyRenderTarget(t render.RenderTarget) {
	if t == nil {
		return
	}
	if have, ok := s.targets[t.Name()]; !ok || have != t {
		return
	}
	t.RemoveAllViewports()
	delete(s.targets, t.Name())
	if tex, ok := t.(*Texture); ok {
		tex.release()
	}
	if s.active != nil && s.active.Target() == t {
		s.active = nil
	}
	s.stats.Destroyed++
}

// SetActiveViewport directs draws at vp.
func (s *System) SetActiveViewport(vp render.Viewport) { s.active = vp }

// ActiveViewport returns the viewport draws go to.
func (s *System) ActiveViewport() render.Viewport { return s.active }

// SetStencilCheckEnabled toggles the stencil test.
func (s *System) SetStencilCheckEnabled(enabled bool) { s.stencilCheck = enabled }

// SetStencilBufferParams configures the stencil test.
func (s *System) SetStencilBufferParams(p render.StencilParams) { s.stencilParams = p }

// StencilState returns the stencil state draws are encoded with, or nil
// when the stencil check is off.
func (s *System) StencilState() *hal.DepthStencilState {
	if !s.stencilCheck {
		return nil
	}
	return depthStencilState(s.stencilParams)
}
