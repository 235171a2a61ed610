package script

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/render"
)

// Serialize writes comps as script text. Parsing the output yields the
// same compositors. Attributes at their default value are omitted.
func Serialize(w io.Writer, comps ...*compositor.Compositor) error {
	s := &serializer{}
	for i, c := range comps {
		if i > 0 {
			s.b.WriteByte('\n')
		}
		s.compositor(c)
	}
	_, err := io.WriteString(w, s.b.String())
	return err
}

// Format returns the script text of comps.
func Format(comps ...*compositor.Compositor) string {
	var b strings.Builder
	_ = Serialize(&b, comps...)
	return b.String()
}

type serializer struct {
	b     strings.Builder
	depth int
}

func (s *serializer) line(format string, args ...any) {
	s.b.WriteString(strings.Repeat("\t", s.depth))
	fmt.Fprintf(&s.b, format, args...)
	s.b.WriteByte('\n')
}

func (s *serializer) open(format string, args ...any) {
	s.line(format, args...)
	s.line("{")
	s.depth++
}

func (s *serializer) close() {
	s.depth--
	s.line("}")
}

func (s *serializer) compositor(c *compositor.Compositor) {
	s.open("compositor %s", quote(c.Name()))
	for _, t := range c.Techniques() {
		s.technique(t)
	}
	s.close()
}

func (s *serializer) technique(t *compositor.Technique) {
	s.open("technique")
	if t.Scheme != "" {
		s.line("scheme %s", quote(t.Scheme))
	}
	if t.Logic != "" {
		s.line("compositor_logic %s", quote(t.Logic))
	}
	for _, def := range t.TextureDefinitions() {
		s.texture(def)
	}
	for _, tp := range t.TargetPasses() {
		s.open("target %s", quote(tp.Output))
		s.target(tp)
		s.close()
	}
	s.open("target_output")
	s.target(t.OutputTargetPass())
	s.close()
	s.close()
}

func (s *serializer) texture(def *compositor.TextureDefinition) {
	if def.IsReference() {
		s.line("texture_ref %s %s %s", quote(def.Name), quote(def.RefCompositor), quote(def.RefTexture))
		return
	}
	parts := []string{
		"texture",
		quote(def.Name),
		dimension(def.Width, def.WidthFactor, "target_width"),
		dimension(def.Height, def.HeightFactor, "target_height"),
	}
	for _, f := range def.Formats {
		parts = append(parts, render.FormatName(f))
	}
	if def.Pooled {
		parts = append(parts, "pooled")
	}
	if def.HardwareGammaWrite {
		parts = append(parts, "gamma")
	}
	if !def.FSAA {
		parts = append(parts, "no_fsaa")
	}
	if def.Scope != compositor.ScopeLocal {
		parts = append(parts, def.Scope.String())
	}
	if def.DepthPool != 1 {
		parts = append(parts, "depth_pool", strconv.Itoa(int(def.DepthPool)))
	}
	s.line("%s", strings.Join(parts, " "))
}

func dimension(size int, factor float32, relative string) string {
	switch {
	case size != 0:
		return strconv.Itoa(size)
	case factor == 1:
		return relative
	default:
		return relative + "_scaled " + fmtFloat(factor)
	}
}

func (s *serializer) target(tp *compositor.TargetPass) {
	if tp.Input != compositor.InputNone {
		s.line("input %s", tp.Input)
	}
	if tp.OnlyInitial {
		s.line("only_initial on")
	}
	if tp.VisibilityMask != math.MaxUint32 {
		s.line("visibility_mask 0x%08X", tp.VisibilityMask)
	}
	if tp.LodBias != 1 {
		s.line("lod_bias %s", fmtFloat(tp.LodBias))
	}
	if tp.MaterialScheme != "" {
		s.line("material_scheme %s", quote(tp.MaterialScheme))
	}
	if !tp.Shadows {
		s.line("shadows off")
	}
	for _, p := range tp.Passes() {
		s.pass(p)
	}
}

func (s *serializer) pass(p *compositor.Pass) {
	if custom, ok := p.Op.(*compositor.RenderCustomOp); ok {
		s.open("pass render_custom %s", quote(custom.CustomType))
	} else {
		s.open("pass %s", p.Type())
	}
	if p.Identifier != 0 {
		s.line("identifier %d", p.Identifier)
	}
	switch op := p.Op.(type) {
	case *compositor.ClearOp:
		s.clear(op)
	case *compositor.StencilOp:
		s.stencil(op)
	case *compositor.RenderSceneOp:
		def := compositor.NewRenderSceneOp()
		if op.FirstQueue != def.FirstQueue {
			s.line("first_render_queue %d", op.FirstQueue)
		}
		if op.LastQueue != def.LastQueue {
			s.line("last_render_queue %d", op.LastQueue)
		}
		if op.MaterialScheme != "" {
			s.line("material_scheme %s", quote(op.MaterialScheme))
		}
	case *compositor.RenderQuadOp:
		s.quad(op)
	}
	s.close()
}

func (s *serializer) clear(op *compositor.ClearOp) {
	def := compositor.NewClearOp()
	if op.Buffers != def.Buffers {
		if op.Buffers == 0 {
			s.line("buffers")
		} else {
			s.line("buffers %s", op.Buffers)
		}
	}
	if op.Colour != def.Colour {
		c := op.Colour
		s.line("colour_value %s %s %s %s", fmtFloat(c.R), fmtFloat(c.G), fmtFloat(c.B), fmtFloat(c.A))
	}
	if op.Depth != def.Depth {
		s.line("depth_value %s", fmtFloat(op.Depth))
	}
	if op.Stencil != def.Stencil {
		s.line("stencil_value %d", op.Stencil)
	}
}

func (s *serializer) stencil(op *compositor.StencilOp) {
	def := compositor.NewStencilOp()
	if op.Check {
		s.line("check on")
	}
	if op.Func != def.Func {
		s.line("comp_func %s", op.Func)
	}
	if op.RefValue != def.RefValue {
		s.line("ref_value %d", op.RefValue)
	}
	if op.Mask != def.Mask {
		s.line("mask 0x%08X", op.Mask)
	}
	if op.FailOp != def.FailOp {
		s.line("fail_op %s", op.FailOp)
	}
	if op.DepthFailOp != def.DepthFailOp {
		s.line("depth_fail_op %s", op.DepthFailOp)
	}
	if op.PassOp != def.PassOp {
		s.line("pass_op %s", op.PassOp)
	}
	if op.TwoSided {
		s.line("two_sided on")
	}
}

func (s *serializer) quad(op *compositor.RenderQuadOp) {
	if op.Material != "" {
		s.line("material %s", quote(op.Material))
	}
	for id := 0; id < op.NumInputs(); id++ {
		in := op.Input(id)
		switch {
		case in.Name == "":
		case in.MRTIndex != 0:
			s.line("input %d %s %d", id, quote(in.Name), in.MRTIndex)
		default:
			s.line("input %d %s", id, quote(in.Name))
		}
	}
	if op.FarCorners {
		if op.FarCornersViewSpace {
			s.line("quad_normals camera_far_corners_view_space")
		} else {
			s.line("quad_normals camera_far_corners_world_space")
		}
	}
	if c := op.Corners; c != nil {
		s.line("quad_corners %s %s %s %s", fmtFloat(c.Left), fmtFloat(c.Top), fmtFloat(c.Right), fmtFloat(c.Bottom))
	}
}

func fmtFloat(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

// quote wraps names the lexer would otherwise split.
func quote(name string) string {
	if name == "" || strings.ContainsAny(name, " \t{}\"/") {
		return `"` + name + `"`
	}
	return name
}
