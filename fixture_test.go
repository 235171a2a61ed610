package compositor

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/backend/soft"
	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
)

var (
	red  = render.Colour{R: 1, A: 1}
	blue = render.Colour{B: 1, A: 1}
)

// fixture is an 8x8 window showing a red full-screen scene object.
type fixture struct {
	rs   *soft.System
	win  *soft.Texture
	mats *material.Manager
	sm   *scene.Manager
	cam  *scene.Camera
	vp   render.Viewport
	mgr  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, soft.New())
}

func newFixtureWith(t *testing.T, rs *soft.System, opts ...ManagerOption) *fixture {
	t.Helper()
	f := &fixture{rs: rs}
	f.mats = material.NewManager(material.WithShaderValidator(func(src string) error {
		if src == "invalid" {
			return errors.New("does not compile")
		}
		return nil
	}))
	win, err := rs.NewWindow("win", 8, 8)
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}
	f.win = win
	f.sm = scene.NewManager(rs, f.mats)
	f.sm.AddObject(&scene.Object{Name: "world", Queue: render.QueueMain, Flags: 1, Bounds: render.FullScreen, Colour: red})
	f.cam = f.sm.CreateCamera("main")
	f.vp = win.AddViewport(f.cam)

	opts = append([]ManagerOption{WithSceneManager(f.sm), WithMaterials(f.mats)}, opts...)
	f.mgr = NewManager(rs, opts...)
	t.Cleanup(f.mgr.Close)

	f.material(t, "Copy", render.ColourWhite, 1)
	f.material(t, "Fill", blue, 0)
	return f
}

// material registers a one-pass material whose pass is named after it in
// lower case.
func (f *fixture) material(t *testing.T, name string, colour render.Colour, units int) *material.Material {
	t.Helper()
	mat, err := f.mats.Create(name)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", name, err)
	}
	p := mat.CreateTechnique().CreatePass()
	p.Name = strings.ToLower(name)
	p.Colour = colour
	for i := range units {
		p.AddTextureUnit(fmt.Sprintf("unit%d", i))
	}
	return mat
}

func (f *fixture) compositor(t *testing.T, name string) (*Compositor, *Technique) {
	t.Helper()
	c, err := f.mgr.CreateCompositor(name)
	if err != nil {
		t.Fatalf("CreateCompositor(%s) error = %v", name, err)
	}
	return c, c.CreateTechnique()
}

// copyCompositor renders the previous output into rt and copies rt to
// its own output.
func (f *fixture) copyCompositor(t *testing.T, name string, pooled bool) *Compositor {
	t.Helper()
	c, tech := f.compositor(t, name)
	def := texture(t, tech, "rt", gputypes.TextureFormatRGBA8Unorm)
	def.Pooled = pooled
	tp := tech.CreateTargetPass()
	tp.Output = "rt"
	tp.Input = InputPrevious
	quad(t, tech.OutputTargetPass(), "Copy", "rt")
	return c
}

// add appends an instance of name to the window chain and enables it.
func (f *fixture) add(t *testing.T, name string) *Instance {
	t.Helper()
	inst, err := f.mgr.AddCompositor(f.vp, name, LastPosition)
	if err != nil {
		t.Fatalf("AddCompositor(%s) error = %v", name, err)
	}
	if err := inst.SetEnabled(true); err != nil {
		t.Fatalf("SetEnabled(%s) error = %v", name, err)
	}
	return inst
}

func (f *fixture) chain() *Chain { return f.mgr.Chain(f.vp) }

func (f *fixture) frame(t *testing.T) {
	t.Helper()
	if err := f.win.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
}

func texture(t *testing.T, tech *Technique, name string, formats ...render.PixelFormat) *TextureDefinition {
	t.Helper()
	def, err := tech.CreateTextureDefinition(name)
	if err != nil {
		t.Fatalf("CreateTextureDefinition(%s) error = %v", name, err)
	}
	def.Formats = formats
	return def
}

func quad(t *testing.T, tp *TargetPass, mat string, inputs ...string) *Pass {
	t.Helper()
	q := NewRenderQuadOp(mat)
	for i, in := range inputs {
		if err := q.SetInput(i, in, 0); err != nil {
			t.Fatalf("SetInput(%d) error = %v", i, err)
		}
	}
	return tp.CreatePass(q)
}

// opNames renders the operations of op with their String methods.
func opNames(op *TargetOperation) []string {
	var out []string
	for _, q := range op.Ops {
		out = append(out, fmt.Sprint(q.Op))
	}
	return out
}

func countTrace(rs *soft.System, line string) int {
	n := 0
	for _, l := range rs.Trace() {
		if l == line {
			n++
		}
	}
	return n
}
