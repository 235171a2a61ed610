// Package scene is a minimal scene manager: named objects sorted into
// render queues, filtered by visibility flags and drawn through a
// render.RenderSystem.
//
// Rendering walks the queues in ascending id order. Registered
// render.RenderQueueListener values are told when each queue starts and
// ends, and may skip a queue. The compositor uses those notifications to
// interleave its own operations with scene geometry.
package scene

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// ErrDuplicateObject is returned when an object name is reused.
var ErrDuplicateObject = errors.New("scene: duplicate object name")

// Object is a renderable scene entity.
type Object struct {
	Name string

	// Queue is the render queue the object draws in.
	Queue uint8

	// Flags is matched against the visibility mask.
	Flags uint32

	// Bounds is the screen-space footprint in normalized coordinates.
	Bounds render.QuadCorners

	Colour render.Colour

	// CastShadows marks objects that draw a shadow when shadows are on.
	CastShadows bool
}

// RenderStats describes one scene render.
type RenderStats struct {
	Camera         string
	Target         string
	LodBias        float32
	VisibilityMask uint32
	MaterialScheme string
	Shadows        bool
	Objects        int
	Queues         []uint8
}

// Manager owns scene objects and renders them.
type Manager struct {
	rs        render.RenderSystem
	materials *material.Manager

	objects map[string]*Object
	cameras map[string]*Camera

	visibilityMask uint32
	findVisible    bool
	shadows        bool

	listeners []render.RenderQueueListener
	viewport  render.Viewport
	observer  func(RenderStats)
}

// NewManager creates a scene manager drawing through rs. materials may be
// nil, in which case viewport material schemes are ignored.
func NewManager(rs render.RenderSystem, materials *material.Manager) *Manager {
	return &Manager{
		rs:             rs,
		materials:      materials,
		objects:        make(map[string]*Object),
		cameras:        make(map[string]*Camera),
		visibilityMask: math.MaxUint32,
		findVisible:    true,
		shadows:        true,
	}
}

// RenderSystem returns the system objects draw through.
func (m *Manager) RenderSystem() render.RenderSystem { return m.rs }

// AddObject adds o to the scene.
func (m *Manager) AddObject(o *Object) error {
	if _, ok := m.objects[o.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateObject, o.Name)
	}
	m.objects[o.Name] = o
	return nil
}

// RemoveObject removes the named object.
func (m *Manager) RemoveObject(name string) {
	delete(m.objects, name)
}

// Object returns the named object, or nil.
func (m *Manager) Object(name string) *Object {
	return m.objects[name]
}

// CreateCamera returns the named camera, creating it on first use.
func (m *Manager) CreateCamera(name string) *Camera {
	if c, ok := m.cameras[name]; ok {
		return c
	}
	c := &Camera{name: name, sm: m, lodBias: 1}
	m.cameras[name] = c
	return c
}

func (m *Manager) VisibilityMask() uint32          { return m.visibilityMask }
func (m *Manager) SetVisibilityMask(mask uint32)   { m.visibilityMask = mask }
func (m *Manager) FindVisibleObjects() bool        { return m.findVisible }
func (m *Manager) SetFindVisibleObjects(find bool) { m.findVisible = find }
func (m *Manager) ShadowsEnabled() bool            { return m.shadows }
func (m *Manager) SetShadowsEnabled(enabled bool)  { m.shadows = enabled }

// CurrentViewport returns the viewport being rendered, or the last one.
func (m *Manager) CurrentViewport() render.Viewport { return m.viewport }

// SetRenderObserver installs a callback invoked after every scene render.
func (m *Manager) SetRenderObserver(fn func(RenderStats)) { m.observer = fn }

// AddRenderQueueListener registers l. Duplicates are ignored.
func (m *Manager) AddRenderQueueListener(l render.RenderQueueListener) {
	for _, have := range m.listeners {
		if have == l {
			return
		}
	}
	m.listeners = append(m.listeners, l)
}

// RemoveRenderQueueListener unregisters l.
func (m *Manager) RemoveRenderQueueListener(l render.RenderQueueListener) {
	for i, have := range m.listeners {
		if have == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// InjectRenderWithPass draws a screen quad with the textures and colour
// of pass.
func (m *Manager) InjectRenderWithPass(pass *material.Pass, corners render.QuadCorners, farCorners bool) error {
	return m.rs.DrawQuad(render.Quad{
		Label:      pass.Name,
		Corners:    corners,
		Inputs:     pass.BoundTextures(),
		Colour:     pass.Colour,
		FarCorners: farCorners,
	})
}

func (m *Manager) renderScene(cam *Camera, vp render.Viewport) error {
	m.viewport = vp
	m.rs.SetActiveViewport(vp)

	if m.materials != nil {
		prev := m.materials.ActiveScheme()
		m.materials.SetActiveScheme(vp.MaterialScheme())
		defer m.materials.SetActiveScheme(prev)
	}

	stats := RenderStats{
		Camera:         cam.name,
		Target:         vp.Target().Name(),
		LodBias:        cam.lodBias,
		VisibilityMask: m.visibilityMask & vp.VisibilityMask(),
		MaterialScheme: vp.MaterialScheme(),
		Shadows:        m.shadows && vp.ShadowsEnabled(),
	}

	if m.findVisible {
		queues := m.collect(stats.VisibilityMask)
		listeners := append([]render.RenderQueueListener(nil), m.listeners...)
		for id := 0; id < render.QueueCount; id++ {
			qid := uint8(id)
			skip := false
			for _, l := range listeners {
				if l.RenderQueueStarted(qid) {
					skip = true
				}
			}
			if !skip {
				for _, o := range queues[qid] {
					if err := m.draw(o, stats.Shadows); err != nil {
						return err
					}
					stats.Objects++
				}
				if len(queues[qid]) > 0 {
					stats.Queues = append(stats.Queues, qid)
				}
			}
			for _, l := range listeners {
				l.RenderQueueEnded(qid)
			}
		}
	}

	logging.Logger().Debug("scene: rendered",
		"camera", stats.Camera,
		"target", stats.Target,
		"objects", stats.Objects)
	if m.observer != nil {
		m.observer(stats)
	}
	return nil
}

// collect returns objects matching mask grouped by queue, each group in
// name order.
func (m *Manager) collect(mask uint32) map[uint8][]*Object {
	out := make(map[uint8][]*Object)
	for _, o := range m.objects {
		if o.Flags&mask == 0 {
			continue
		}
		out[o.Queue] = append(out[o.Queue], o)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })
	}
	return out
}

func (m *Manager) draw(o *Object, shadows bool) error {
	if shadows && o.CastShadows {
		b := o.Bounds
		err := m.rs.DrawRenderable(render.Renderable{
			Name:    o.Name + "/shadow",
			Queue:   o.Queue,
			Bounds:  render.QuadCorners{Left: b.Left + shadowOffset, Top: b.Top - shadowOffset, Right: b.Right + shadowOffset, Bottom: b.Bottom - shadowOffset},
			Colour:  render.Colour{A: 0.5},
			Visible: o.Flags,
		})
		if err != nil {
			return err
		}
	}
	return m.rs.DrawRenderable(render.Renderable{
		Name:    o.Name,
		Queue:   o.Queue,
		Bounds:  o.Bounds,
		Colour:  o.Colour,
		Visible: o.Flags,
	})
}

// shadowOffset displaces drop shadows in normalized device units.
const shadowOffset = 0.02

// Camera renders the scene of its manager.
type Camera struct {
	name    string
	sm      *Manager
	lodBias float32
}

func (c *Camera) Name() string            { return c.name }
func (c *Camera) LodBias() float32        { return c.lodBias }
func (c *Camera) SetLodBias(bias float32) { c.lodBias = bias }
func (c *Camera) SceneManager() *Manager  { return c.sm }

// RenderScene renders the visible objects into vp.
func (c *Camera) RenderScene(vp render.Viewport) error {
	return c.sm.renderScene(c, vp)
}
