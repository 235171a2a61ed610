package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend/halrs"
	"github.com/gogpu/compositor/backend/soft"
	"github.com/gogpu/compositor/internal/profile"
	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
	"github.com/gogpu/compositor/script"
)

type config struct {
	script  string
	caps    string
	chain   string
	scheme  string
	width   int
	height  int
	output  string
	backend string
	format  bool
}

// sceneColour paints the test scene object.
var sceneColour = render.Colour{R: 0.9, G: 0.45, B: 0.1, A: 1}

// surface is the window a chain renders into.
type surface struct {
	rs    render.RenderSystem
	win   render.RenderTarget
	image func() image.Image
	close func()
}

func openSurface(cfg config, caps render.Capabilities) (*surface, error) {
	switch cfg.backend {
	case "soft":
		rs := soft.New(soft.WithCapabilities(caps))
		win, err := rs.NewWindow("window", cfg.width, cfg.height)
		if err != nil {
			return nil, err
		}
		return &surface{rs: rs, win: win, image: func() image.Image { return win.Image() }, close: func() {}}, nil
	case "halrs":
		rs, err := halrs.Open(halrs.WithCapabilities(caps))
		if err != nil {
			return nil, err
		}
		win, err := rs.NewWindow("window", cfg.width, cfg.height)
		if err != nil {
			rs.Close()
			return nil, err
		}
		return &surface{rs: rs, win: win, close: rs.Close}, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.backend)
	}
}

func run(cfg config, stdout io.Writer) error {
	caps := render.DefaultCapabilities()
	if cfg.caps != "" {
		var err error
		if caps, err = profile.Load(cfg.caps); err != nil {
			return err
		}
	}

	surf, err := openSurface(cfg, caps)
	if err != nil {
		return err
	}
	defer surf.close()

	mats := material.NewManager()
	sm := scene.NewManager(surf.rs, mats)
	if err := sm.AddObject(&scene.Object{
		Name:   "scene",
		Queue:  render.QueueMain,
		Flags:  1,
		Bounds: render.FullScreen,
		Colour: sceneColour,
	}); err != nil {
		return err
	}
	vp := surf.win.AddViewport(sm.CreateCamera("main"))

	mgr := compositor.NewManager(surf.rs, compositor.WithSceneManager(sm), compositor.WithMaterials(mats))
	defer mgr.Close()

	comps, err := script.ParseFile(mgr, cfg.script)
	if err != nil {
		return err
	}
	if cfg.format {
		if err := script.Serialize(stdout, comps...); err != nil {
			return err
		}
	}
	stubMaterials(mats, comps)

	names := chainNames(cfg.chain, comps)
	for _, name := range names {
		c := mgr.Compositor(name)
		if c == nil {
			return fmt.Errorf("%w: %q", compositor.ErrUnknownCompositor, name)
		}
		inst, err := mgr.Chain(vp).AddCompositor(c, compositor.LastPosition, cfg.scheme)
		if err != nil {
			return err
		}
		if err := inst.SetEnabled(true); err != nil {
			return err
		}
	}

	ch := mgr.Chain(vp)
	if err := ch.Compile(); err != nil {
		return err
	}
	printState(stdout, ch)

	if cfg.output == "" {
		return nil
	}
	if surf.image == nil {
		return errors.New("-output needs the soft backend")
	}
	if err := surf.win.Update(); err != nil {
		return err
	}
	return savePNG(cfg.output, surf.image())
}

// stubMaterials registers a flat material for every quad material the
// scripts name but nothing defined, with one texture unit per input.
func stubMaterials(mats *material.Manager, comps []*compositor.Compositor) {
	for _, c := range comps {
		for _, tech := range c.Techniques() {
			tps := append(append([]*compositor.TargetPass(nil), tech.TargetPasses()...), tech.OutputTargetPass())
			for _, tp := range tps {
				for _, p := range tp.Passes() {
					q, ok := p.Op.(*compositor.RenderQuadOp)
					if !ok || q.Material == "" {
						continue
					}
					if mats.Get(q.Material) != nil {
						continue
					}
					mat, err := mats.Create(q.Material)
					if err != nil {
						continue
					}
					pass := mat.CreateTechnique().CreatePass()
					pass.Name = strings.ToLower(q.Material)
					pass.Colour = render.ColourWhite
					for i := range q.NumInputs() {
						pass.AddTextureUnit(fmt.Sprintf("unit%d", i))
					}
				}
			}
		}
	}
}

func chainNames(flagValue string, comps []*compositor.Compositor) []string {
	if flagValue != "" {
		var out []string
		for _, n := range strings.Split(flagValue, ",") {
			if n = strings.TrimSpace(n); n != "" {
				out = append(out, n)
			}
		}
		return out
	}
	out := make([]string, 0, len(comps))
	for _, c := range comps {
		out = append(out, c.Name())
	}
	return out
}

func printState(w io.Writer, ch *compositor.Chain) {
	state := ch.CompiledState()
	for _, inst := range ch.Instances() {
		fmt.Fprintf(w, "compositor %s scheme=%q enabled=%v\n", inst.Compositor().Name(), inst.Scheme(), inst.Enabled())
	}
	for _, op := range state.Targets {
		printTarget(w, "target "+op.Target.Name(), op)
	}
	if state.Output != nil {
		printTarget(w, "output", state.Output)
	}
}

func printTarget(w io.Writer, header string, op *compositor.TargetOperation) {
	fmt.Fprintf(w, "%s only_initial=%v scene=%v\n", header, op.OnlyInitial, op.FindVisibleObjects)
	for _, q := range op.Ops {
		fmt.Fprintf(w, "  [%3d] %v\n", q.Queue, q.Op)
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
