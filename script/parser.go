package script

import (
	"fmt"
	"os"
	"strconv"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/internal/logging"
	"github.com/gogpu/compositor/render"
)

// statement is a keyword and its arguments on one line.
type statement struct {
	key  token
	args []token
}

type parser struct {
	name string
	toks []token
	pos  int
	mgr  *compositor.Manager
}

// Parse reads compositor definitions from src and registers them with mgr.
// name labels error positions, usually the file name.
//
// Parsing stops at the first error. Compositors registered before the
// error are destroyed again, so a failed Parse leaves mgr unchanged.
func Parse(mgr *compositor.Manager, name string, src []byte) ([]*compositor.Compositor, error) {
	toks, err := newLexer(name, string(src)).tokens()
	if err != nil {
		return nil, err
	}
	p := &parser{name: name, toks: toks, mgr: mgr}
	comps, err := p.parseFile()
	if err != nil {
		for _, c := range comps {
			_ = mgr.DestroyCompositor(c.Name())
		}
		return nil, err
	}
	logging.Logger().Debug("script: parsed", "file", name, "compositors", len(comps))
	return comps, nil
}

// ParseFile parses the script at path.
func ParseFile(mgr *compositor.Manager, path string) ([]*compositor.Compositor, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return Parse(mgr, path, src)
}

func (p *parser) errorf(at token, format string, args ...any) *ScriptError {
	return newError(p.name, at.line, at.col, format, args...)
}

// wrap attaches a data model error to the statement position.
func (p *parser) wrap(at token, err error) *ScriptError {
	e := p.errorf(at, "%s", at.text)
	e.Err = err
	return e
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) skipNewlines() {
	for p.peek().kind == tokNewline {
		p.pos++
	}
}

// next returns the next statement of a block. done is true when the
// closing brace has been consumed.
func (p *parser) next() (st statement, done bool, err error) {
	p.skipNewlines()
	switch tok := p.peek(); tok.kind {
	case tokClose:
		p.pos++
		return st, true, nil
	case tokEOF:
		return st, false, p.errorf(tok, "unexpected end of file, missing \"}\"")
	case tokOpen:
		return st, false, p.errorf(tok, "unexpected \"{\"")
	}
	st.key = p.toks[p.pos]
	p.pos++
	for p.peek().kind == tokWord {
		st.args = append(st.args, p.peek())
		p.pos++
	}
	return st, false, nil
}

// open consumes the opening brace of a block.
func (p *parser) open(owner token) error {
	p.skipNewlines()
	if tok := p.peek(); tok.kind != tokOpen {
		return p.errorf(tok, "expected \"{\" after %s, found %s", owner.text, tok)
	}
	p.pos++
	return nil
}

// hasBlock reports whether an optional block follows.
func (p *parser) hasBlock() bool {
	save := p.pos
	p.skipNewlines()
	if p.peek().kind == tokOpen {
		return true
	}
	p.pos = save
	return false
}

// block runs fn for every statement up to the closing brace.
func (p *parser) block(owner token, fn func(statement) error) error {
	if err := p.open(owner); err != nil {
		return err
	}
	for {
		st, done, err := p.next()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}

func (p *parser) parseFile() ([]*compositor.Compositor, error) {
	var comps []*compositor.Compositor
	for {
		p.skipNewlines()
		tok := p.peek()
		switch tok.kind {
		case tokEOF:
			return comps, nil
		case tokWord:
		default:
			return comps, p.errorf(tok, "unexpected %s", tok)
		}
		st, _, err := p.next()
		if err != nil {
			return comps, err
		}
		if st.key.text != "compositor" {
			return comps, p.errorf(st.key, "expected compositor, found %q", st.key.text)
		}
		if err := p.args(st, 1, 1); err != nil {
			return comps, err
		}
		c, err := p.mgr.CreateCompositor(st.args[0].text)
		if err != nil {
			return comps, p.wrap(st.args[0], err)
		}
		comps = append(comps, c)
		if err := p.block(st.key, func(s statement) error { return p.compositorStatement(c, s) }); err != nil {
			return comps, err
		}
	}
}

func (p *parser) compositorStatement(c *compositor.Compositor, st statement) error {
	if st.key.text != "technique" {
		return p.errorf(st.key, "unknown compositor attribute %q", st.key.text)
	}
	if err := p.args(st, 0, 0); err != nil {
		return err
	}
	t := c.CreateTechnique()
	return p.block(st.key, func(s statement) error { return p.techniqueStatement(t, s) })
}

func (p *parser) techniqueStatement(t *compositor.Technique, st statement) error {
	switch st.key.text {
	case "scheme":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		t.Scheme = st.args[0].text
	case "compositor_logic":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		t.Logic = st.args[0].text
	case "texture":
		return p.texture(t, st)
	case "texture_ref":
		if err := p.args(st, 3, 3); err != nil {
			return err
		}
		def, err := t.CreateTextureDefinition(st.args[0].text)
		if err != nil {
			return p.wrap(st.args[0], err)
		}
		def.RefCompositor = st.args[1].text
		def.RefTexture = st.args[2].text
	case "target":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		tp := t.CreateTargetPass()
		tp.Output = st.args[0].text
		return p.block(st.key, func(s statement) error { return p.targetStatement(tp, s) })
	case "target_output":
		if err := p.args(st, 0, 0); err != nil {
			return err
		}
		tp := t.OutputTargetPass()
		return p.block(st.key, func(s statement) error { return p.targetStatement(tp, s) })
	default:
		return p.errorf(st.key, "unknown technique attribute %q", st.key.text)
	}
	return nil
}

func (p *parser) texture(t *compositor.Technique, st statement) error {
	if err := p.args(st, 3, -1); err != nil {
		return err
	}
	def, err := t.CreateTextureDefinition(st.args[0].text)
	if err != nil {
		return p.wrap(st.args[0], err)
	}
	args := st.args[1:]

	size := func(relative, scaled string) (int, float32, error) {
		tok := args[0]
		args = args[1:]
		switch tok.text {
		case relative:
			return 0, 1, nil
		case scaled:
			if len(args) == 0 {
				return 0, 0, p.errorf(tok, "%s needs a factor", scaled)
			}
			f, err := p.float(args[0])
			args = args[1:]
			return 0, f, err
		}
		n, err := p.uint(tok, 16)
		if err == nil && n == 0 {
			err = p.errorf(tok, "texture size must be positive")
		}
		return int(n), 1, err
	}
	if def.Width, def.WidthFactor, err = size("target_width", "target_width_scaled"); err != nil {
		return err
	}
	if len(args) == 0 {
		return p.errorf(st.key, "texture %s has no height", def.Name)
	}
	if def.Height, def.HeightFactor, err = size("target_height", "target_height_scaled"); err != nil {
		return err
	}

	for len(args) > 0 {
		tok := args[0]
		args = args[1:]
		switch tok.text {
		case "pooled", "shared":
			def.Pooled = true
		case "gamma":
			def.HardwareGammaWrite = true
		case "no_fsaa":
			def.FSAA = false
		case "local_scope":
			def.Scope = compositor.ScopeLocal
		case "chain_scope":
			def.Scope = compositor.ScopeChain
		case "global_scope":
			def.Scope = compositor.ScopeGlobal
		case "depth_pool":
			if len(args) == 0 {
				return p.errorf(tok, "depth_pool needs a pool id")
			}
			n, err := p.uint(args[0], 16)
			if err != nil {
				return err
			}
			def.DepthPool = uint16(n)
			args = args[1:]
		default:
			f, ok := render.ParseFormat(tok.text)
			if !ok {
				return p.errorf(tok, "unknown texture option %q", tok.text)
			}
			def.Formats = append(def.Formats, f)
		}
	}
	if len(def.Formats) == 0 {
		return p.errorf(st.key, "texture %s has no pixel format", def.Name)
	}
	return nil
}

func (p *parser) targetStatement(tp *compositor.TargetPass, st statement) error {
	switch st.key.text {
	case "input":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		switch st.args[0].text {
		case "none":
			tp.Input = compositor.InputNone
		case "previous":
			tp.Input = compositor.InputPrevious
		default:
			return p.errorf(st.args[0], "input must be none or previous")
		}
	case "only_initial":
		return p.onOff(st, &tp.OnlyInitial)
	case "shadows":
		return p.onOff(st, &tp.Shadows)
	case "visibility_mask":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		n, err := p.uint(st.args[0], 32)
		if err != nil {
			return err
		}
		tp.VisibilityMask = uint32(n)
	case "lod_bias":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		f, err := p.float(st.args[0])
		if err != nil {
			return err
		}
		tp.LodBias = f
	case "material_scheme":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		tp.MaterialScheme = st.args[0].text
	case "pass":
		return p.pass(tp, st)
	default:
		return p.errorf(st.key, "unknown target attribute %q", st.key.text)
	}
	return nil
}

func (p *parser) pass(tp *compositor.TargetPass, st statement) error {
	if err := p.args(st, 1, 2); err != nil {
		return err
	}
	kind := st.args[0]
	var op compositor.PassOp
	switch kind.text {
	case "clear":
		op = compositor.NewClearOp()
	case "stencil":
		op = compositor.NewStencilOp()
	case "render_scene":
		op = compositor.NewRenderSceneOp()
	case "render_quad":
		op = compositor.NewRenderQuadOp("")
	case "render_custom":
		if len(st.args) != 2 {
			return p.errorf(kind, "render_custom needs a type name")
		}
		op = compositor.NewRenderCustomOp(st.args[1].text)
	default:
		return p.errorf(kind, "unknown pass type %q", kind.text)
	}
	if len(st.args) == 2 && kind.text != "render_custom" {
		return p.errorf(st.args[1], "unexpected %s", st.args[1])
	}
	pass := tp.CreatePass(op)
	if !p.hasBlock() {
		return nil
	}
	return p.block(st.key, func(s statement) error { return p.passStatement(pass, s) })
}

func (p *parser) passStatement(pass *compositor.Pass, st statement) error {
	if st.key.text == "identifier" {
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		n, err := p.uint(st.args[0], 32)
		if err != nil {
			return err
		}
		pass.Identifier = uint32(n)
		return nil
	}
	switch op := pass.Op.(type) {
	case *compositor.ClearOp:
		return p.clearStatement(op, st)
	case *compositor.StencilOp:
		return p.stencilStatement(op, st)
	case *compositor.RenderSceneOp:
		return p.sceneStatement(op, st)
	case *compositor.RenderQuadOp:
		return p.quadStatement(op, st)
	}
	return p.errorf(st.key, "unknown %s pass attribute %q", pass.Type(), st.key.text)
}

func (p *parser) clearStatement(op *compositor.ClearOp, st statement) error {
	switch st.key.text {
	case "buffers":
		op.Buffers = 0
		for _, a := range st.args {
			switch a.text {
			case "colour":
				op.Buffers |= render.FrameBufferColour
			case "depth":
				op.Buffers |= render.FrameBufferDepth
			case "stencil":
				op.Buffers |= render.FrameBufferStencil
			default:
				return p.errorf(a, "unknown buffer %q", a.text)
			}
		}
	case "colour_value":
		if err := p.args(st, 4, 4); err != nil {
			return err
		}
		var v [4]float32
		for i, a := range st.args {
			f, err := p.float(a)
			if err != nil {
				return err
			}
			v[i] = f
		}
		op.Colour = render.Colour{R: v[0], G: v[1], B: v[2], A: v[3]}
	case "depth_value":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		f, err := p.float(st.args[0])
		if err != nil {
			return err
		}
		op.Depth = f
	case "stencil_value":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		n, err := p.uint(st.args[0], 16)
		if err != nil {
			return err
		}
		op.Stencil = uint16(n)
	default:
		return p.errorf(st.key, "unknown clear pass attribute %q", st.key.text)
	}
	return nil
}

func (p *parser) stencilStatement(op *compositor.StencilOp, st statement) error {
	stencilOp := func(dst *render.StencilOperation) error {
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		v, ok := render.ParseStencilOperation(st.args[0].text)
		if !ok {
			return p.errorf(st.args[0], "unknown stencil operation %q", st.args[0].text)
		}
		*dst = v
		return nil
	}
	switch st.key.text {
	case "check":
		return p.onOff(st, &op.Check)
	case "two_sided":
		return p.onOff(st, &op.TwoSided)
	case "comp_func":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		f, ok := render.ParseCompareFunction(st.args[0].text)
		if !ok {
			return p.errorf(st.args[0], "unknown compare function %q", st.args[0].text)
		}
		op.Func = f
	case "ref_value", "mask":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		n, err := p.uint(st.args[0], 32)
		if err != nil {
			return err
		}
		if st.key.text == "mask" {
			op.Mask = uint32(n)
		} else {
			op.RefValue = uint32(n)
		}
	case "fail_op":
		return stencilOp(&op.FailOp)
	case "depth_fail_op":
		return stencilOp(&op.DepthFailOp)
	case "pass_op":
		return stencilOp(&op.PassOp)
	default:
		return p.errorf(st.key, "unknown stencil pass attribute %q", st.key.text)
	}
	return nil
}

func (p *parser) sceneStatement(op *compositor.RenderSceneOp, st statement) error {
	switch st.key.text {
	case "first_render_queue", "last_render_queue":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		n, err := p.uint(st.args[0], 8)
		if err != nil {
			return err
		}
		if n > uint64(render.QueueMax) {
			return p.errorf(st.args[0], "render queue %d above %d", n, render.QueueMax)
		}
		if st.key.text == "first_render_queue" {
			op.FirstQueue = uint8(n)
		} else {
			op.LastQueue = uint8(n)
		}
	case "material_scheme":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		op.MaterialScheme = st.args[0].text
	default:
		return p.errorf(st.key, "unknown render_scene pass attribute %q", st.key.text)
	}
	return nil
}

func (p *parser) quadStatement(op *compositor.RenderQuadOp, st statement) error {
	switch st.key.text {
	case "material":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		op.Material = st.args[0].text
	case "input":
		if err := p.args(st, 2, 3); err != nil {
			return err
		}
		id, err := p.uint(st.args[0], 8)
		if err != nil {
			return err
		}
		var mrt uint64
		if len(st.args) == 3 {
			if mrt, err = p.uint(st.args[2], 8); err != nil {
				return err
			}
		}
		if err := op.SetInput(int(id), st.args[1].text, int(mrt)); err != nil {
			return p.wrap(st.args[0], err)
		}
	case "quad_normals":
		if err := p.args(st, 1, 1); err != nil {
			return err
		}
		switch st.args[0].text {
		case "camera_far_corners_world_space":
			op.FarCorners, op.FarCornersViewSpace = true, false
		case "camera_far_corners_view_space":
			op.FarCorners, op.FarCornersViewSpace = true, true
		default:
			return p.errorf(st.args[0], "unknown quad_normals %q", st.args[0].text)
		}
	case "quad_corners":
		if err := p.args(st, 4, 4); err != nil {
			return err
		}
		var v [4]float32
		for i, a := range st.args {
			f, err := p.float(a)
			if err != nil {
				return err
			}
			v[i] = f
		}
		op.SetCorners(v[0], v[1], v[2], v[3])
	default:
		return p.errorf(st.key, "unknown render_quad pass attribute %q", st.key.text)
	}
	return nil
}

// args checks the argument count. hi < 0 means unbounded.
func (p *parser) args(st statement, lo, hi int) error {
	n := len(st.args)
	switch {
	case n < lo:
		return p.errorf(st.key, "%s needs %d arguments, got %d", st.key.text, lo, n)
	case hi >= 0 && n > hi:
		return p.errorf(st.args[hi], "unexpected %s after %s", st.args[hi], st.key.text)
	}
	return nil
}

func (p *parser) onOff(st statement, dst *bool) error {
	if err := p.args(st, 1, 1); err != nil {
		return err
	}
	switch st.args[0].text {
	case "on", "true":
		*dst = true
	case "off", "false":
		*dst = false
	default:
		return p.errorf(st.args[0], "%s must be on or off", st.key.text)
	}
	return nil
}

func (p *parser) uint(tok token, bits int) (uint64, error) {
	n, err := strconv.ParseUint(tok.text, 0, bits)
	if err != nil {
		return 0, p.errorf(tok, "invalid number %q", tok.text)
	}
	return n, nil
}

func (p *parser) float(tok token) (float32, error) {
	f, err := strconv.ParseFloat(tok.text, 32)
	if err != nil {
		return 0, p.errorf(tok, "invalid number %q", tok.text)
	}
	return float32(f), nil
}
