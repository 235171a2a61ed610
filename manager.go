package compositor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// Manager owns the compositors, one chain per viewport, the logic and
// custom pass registries and the texture pool of one render system.
//
// A Manager is not safe for concurrent use. Compile and render on the
// goroutine that drives the frame loop.
type Manager struct {
	rs        render.RenderSystem
	opts      managerOptions
	materials *material.Manager
	scene     SceneManager

	compositors  map[string]*Compositor
	chains       map[render.Viewport]*Chain
	logics       map[string]Logic
	customPasses map[string]CustomPass

	pool    texturePool
	counter int
}

// NewManager creates a manager rendering through rs.
func NewManager(rs render.RenderSystem, opts ...ManagerOption) *Manager {
	o := defaultManagerOptions()
	for _, opt := range opts {
		opt(&o)
	}
	m := &Manager{
		rs:           rs,
		opts:         o,
		materials:    o.materials,
		scene:        o.scene,
		compositors:  make(map[string]*Compositor),
		chains:       make(map[render.Viewport]*Chain),
		logics:       make(map[string]Logic),
		customPasses: make(map[string]CustomPass),
		pool:         newTexturePool(),
	}
	if m.materials == nil {
		m.materials = material.NewManager()
	}
	return m
}

func (m *Manager) logger() *slog.Logger {
	if m.opts.logger != nil {
		return m.opts.logger
	}
	return Logger()
}

// nextID returns a counter value for unique texture names.
func (m *Manager) nextID() int {
	id := m.counter
	m.counter++
	return id
}

// RenderSystem returns the render system textures are created on.
func (m *Manager) RenderSystem() render.RenderSystem { return m.rs }

// Materials returns the material system.
func (m *Manager) Materials() *material.Manager { return m.materials }

// SceneManager returns the scene manager, or nil.
func (m *Manager) SceneManager() SceneManager { return m.scene }

// CreateCompositor registers an empty compositor.
func (m *Manager) CreateCompositor(name string) (*Compositor, error) {
	if _, ok := m.compositors[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateCompositor, name)
	}
	c := newCompositor(m, name)
	m.compositors[name] = c
	return c, nil
}

// Compositor returns the registered compositor name, or nil.
func (m *Manager) Compositor(name string) *Compositor {
	return m.compositors[name]
}

// CompositorNames returns the registered names in sorted order.
func (m *Manager) CompositorNames() []string {
	names := make([]string, 0, len(m.compositors))
	for n := range m.compositors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DestroyCompositor removes every instance of the compositor from every
// chain, unloads it and unregisters it.
func (m *Manager) DestroyCompositor(name string) error {
	c, ok := m.compositors[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCompositor, name)
	}
	var errs []error
	for _, ch := range m.chains {
		for i := ch.index(name); i >= 0; i = ch.index(name) {
			errs = append(errs, ch.RemoveCompositor(i))
		}
	}
	c.Unload()
	delete(m.compositors, name)
	return errors.Join(errs...)
}

// Chain returns the chain of vp, creating it on first use.
func (m *Manager) Chain(vp render.Viewport) *Chain {
	if ch, ok := m.chains[vp]; ok {
		return ch
	}
	ch := newChain(m, vp)
	m.chains[vp] = ch
	m.logger().Info("compositor: chain created", "target", vp.Target().Name())
	return ch
}

// HasChain reports whether vp has a chain.
func (m *Manager) HasChain(vp render.Viewport) bool {
	_, ok := m.chains[vp]
	return ok
}

// RemoveChain destroys the chain of vp.
func (m *Manager) RemoveChain(vp render.Viewport) {
	ch, ok := m.chains[vp]
	if !ok {
		return
	}
	delete(m.chains, vp)
	ch.destroy()
	m.logger().Info("compositor: chain removed", "target", vp.Target().Name())
}

// AddCompositor inserts an instance of the named compositor into the chain
// of vp, using the technique of the default scheme.
func (m *Manager) AddCompositor(vp render.Viewport, name string, position int) (*Instance, error) {
	c := m.compositors[name]
	if c == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompositor, name)
	}
	return m.Chain(vp).AddCompositor(c, position, "")
}

// RemoveCompositor removes the first instance of the named compositor
// from the chain of vp.
func (m *Manager) RemoveCompositor(vp render.Viewport, name string) error {
	ch, ok := m.chains[vp]
	if !ok {
		return fmt.Errorf("%w: %q not in chain", ErrUnknownCompositor, name)
	}
	i := ch.index(name)
	if i < 0 {
		return fmt.Errorf("%w: %q not in chain", ErrUnknownCompositor, name)
	}
	return ch.RemoveCompositor(i)
}

// SetCompositorEnabled enables or disables the first instance of the named
// compositor in the chain of vp.
func (m *Manager) SetCompositorEnabled(vp render.Viewport, name string, enabled bool) error {
	ch, ok := m.chains[vp]
	if !ok {
		return fmt.Errorf("%w: %q not in chain", ErrUnknownCompositor, name)
	}
	inst := ch.InstanceByName(name)
	if inst == nil {
		return fmt.Errorf("%w: %q not in chain", ErrUnknownCompositor, name)
	}
	return inst.SetEnabled(enabled)
}

// RegisterLogic registers l under name, replacing any previous one. It
// panics if l is nil.
func (m *Manager) RegisterLogic(name string, l Logic) {
	if l == nil {
		panic("compositor: RegisterLogic with nil logic")
	}
	m.logics[name] = l
}

// Logic returns the logic registered under name, or nil.
func (m *Manager) Logic(name string) Logic { return m.logics[name] }

// RegisterCustomPass registers p under name, replacing any previous one.
// It panics if p is nil.
func (m *Manager) RegisterCustomPass(name string, p CustomPass) {
	if p == nil {
		panic("compositor: RegisterCustomPass with nil custom pass")
	}
	m.customPasses[name] = p
}

// CustomPass returns the custom pass registered under name, or nil.
func (m *Manager) CustomPass(name string) CustomPass { return m.customPasses[name] }

// ReconstructAllResources frees the textures of every alive instance in
// every chain, then creates them again and restores the enabled flags.
// Shared textures are all released before any is requested again.
func (m *Manager) ReconstructAllResources() error {
	type revive struct {
		inst    *Instance
		enabled bool
	}
	var (
		list []revive
		errs []error
	)
	for _, ch := range m.chains {
		for _, inst := range ch.instances {
			if inst.alive {
				list = append(list, revive{inst, inst.enabled})
			}
		}
	}
	for _, r := range list {
		errs = append(errs, r.inst.SetAlive(false))
	}
	for _, r := range list {
		if r.enabled {
			errs = append(errs, r.inst.SetEnabled(true))
		} else {
			errs = append(errs, r.inst.SetAlive(true))
		}
	}
	return errors.Join(errs...)
}

// Close destroys every chain, unloads every compositor and empties the
// texture pool.
func (m *Manager) Close() {
	for vp := range m.chains {
		m.RemoveChain(vp)
	}
	for _, c := range m.compositors {
		c.Unload()
	}
	m.FreePooledTextures(false)
}
