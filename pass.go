package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/render"
)

// MaxQuadInputs is the number of texture inputs a quad pass can bind.
const MaxQuadInputs = 16

// PassType identifies the variant of a pass.
type PassType uint8

const (
	PassClear PassType = iota
	PassStencil
	PassRenderScene
	PassRenderQuad
	PassRenderCustom
)

var passTypeNames = [...]string{"clear", "stencil", "render_scene", "render_quad", "render_custom"}

// String returns the script keyword of the pass type.
func (t PassType) String() string {
	if int(t) < len(passTypeNames) {
		return passTypeNames[t]
	}
	return fmt.Sprintf("PassType(%d)", t)
}

// PassOp is the payload of a pass. It is implemented by *ClearOp,
// *StencilOp, *RenderSceneOp, *RenderQuadOp and *RenderCustomOp.
type PassOp interface {
	Type() PassType
	passOp()
}

// Pass is one primitive operation of a target pass.
type Pass struct {
	// Identifier lets listeners recognize the pass across recompiles.
	Identifier uint32

	Op PassOp
}

// Type returns the type of the payload.
func (p *Pass) Type() PassType { return p.Op.Type() }

// ClearOp clears buffers of the target.
type ClearOp struct {
	Buffers render.FrameBufferType
	Colour  render.Colour
	Depth   float32
	Stencil uint16
}

// NewClearOp returns a clear of colour and depth to black and 1.
func NewClearOp() *ClearOp {
	return &ClearOp{
		Buffers: render.FrameBufferColour | render.FrameBufferDepth,
		Colour:  render.ColourBlack,
		Depth:   1,
	}
}

func (*ClearOp) Type() PassType { return PassClear }
func (*ClearOp) passOp()        {}

// StencilOp changes stencil state.
type StencilOp struct {
	// Check enables the stencil test.
	Check bool

	render.StencilParams
}

// NewStencilOp returns a disabled always-pass stencil state.
func NewStencilOp() *StencilOp {
	return &StencilOp{StencilParams: render.DefaultStencilParams()}
}

func (*StencilOp) Type() PassType { return PassStencil }
func (*StencilOp) passOp()        {}

// RenderSceneOp renders the scene queues FirstQueue..LastQueue.
type RenderSceneOp struct {
	FirstQueue uint8
	LastQueue  uint8

	// MaterialScheme overrides the active material scheme while the
	// queues render. Empty keeps the current scheme.
	MaterialScheme string
}

// NewRenderSceneOp returns a scene render of queues 0 through 95.
func NewRenderSceneOp() *RenderSceneOp {
	return &RenderSceneOp{
		FirstQueue: render.QueueBackground,
		LastQueue:  render.QueueSkiesLate,
	}
}

func (*RenderSceneOp) Type() PassType { return PassRenderScene }
func (*RenderSceneOp) passOp()        {}

// QuadInput binds a texture to a quad texture unit.
type QuadInput struct {
	// Name is a texture definition of the technique.
	Name string

	// MRTIndex selects the surface of a multi render target.
	MRTIndex int
}

// RenderQuadOp draws a quad with a material.
type RenderQuadOp struct {
	Material string

	inputs []QuadInput

	// Corners overrides the full-screen corners when non-nil.
	Corners *render.QuadCorners

	FarCorners          bool
	FarCornersViewSpace bool
}

// NewRenderQuadOp returns a full-screen quad drawn with mat.
func NewRenderQuadOp(mat string) *RenderQuadOp {
	return &RenderQuadOp{Material: mat}
}

func (*RenderQuadOp) Type() PassType { return PassRenderQuad }
func (*RenderQuadOp) passOp()        {}

// SetInput binds texture name to unit id.
func (q *RenderQuadOp) SetInput(id int, name string, mrtIndex int) error {
	if id < 0 || id >= MaxQuadInputs {
		return fmt.Errorf("%w: texture input %d", ErrOutOfRange, id)
	}
	for len(q.inputs) <= id {
		q.inputs = append(q.inputs, QuadInput{})
	}
	q.inputs[id] = QuadInput{Name: name, MRTIndex: mrtIndex}
	return nil
}

// Input returns the binding of unit id. Unbound units have an empty name.
func (q *RenderQuadOp) Input(id int) QuadInput {
	if id < 0 || id >= len(q.inputs) {
		return QuadInput{}
	}
	return q.inputs[id]
}

// NumInputs returns one past the highest bound unit.
func (q *RenderQuadOp) NumInputs() int {
	return len(q.inputs)
}

// ClearInputs unbinds every unit.
func (q *RenderQuadOp) ClearInputs() {
	q.inputs = nil
}

// SetCorners overrides the quad corners.
func (q *RenderQuadOp) SetCorners(left, top, right, bottom float32) {
	q.Corners = &render.QuadCorners{Left: left, Top: top, Right: right, Bottom: bottom}
}

// RenderCustomOp runs a custom pass registered with the manager.
type RenderCustomOp struct {
	CustomType string
}

// NewRenderCustomOp returns a custom pass of the registered type name.
func NewRenderCustomOp(name string) *RenderCustomOp {
	return &RenderCustomOp{CustomType: name}
}

func (*RenderCustomOp) Type() PassType { return PassRenderCustom }
func (*RenderCustomOp) passOp()        {}
