package compositor

import (
	"fmt"
	"math"

	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// InputMode selects what a target pass starts from.
type InputMode uint8

const (
	// InputNone starts from the current target contents.
	InputNone InputMode = iota

	// InputPrevious first renders the output of the previous instance in
	// the chain.
	InputPrevious
)

// String returns the script keyword of the mode.
func (m InputMode) String() string {
	if m == InputPrevious {
		return "previous"
	}
	return "none"
}

// TargetPass is an ordered list of passes rendering into one target.
type TargetPass struct {
	// Output names the texture definition rendered into. It is empty for
	// the output target pass of a technique.
	Output string

	Input InputMode

	// OnlyInitial renders the target once after its resources are created.
	OnlyInitial bool

	VisibilityMask uint32
	LodBias        float32
	MaterialScheme string
	Shadows        bool

	passes []*Pass
	output bool
}

func newTargetPass(output bool) *TargetPass {
	return &TargetPass{
		VisibilityMask: math.MaxUint32,
		LodBias:        1,
		Shadows:        true,
		output:         output,
	}
}

// IsOutput reports whether tp is the output target pass of its technique.
func (tp *TargetPass) IsOutput() bool { return tp.output }

// CreatePass appends a pass with the given payload.
func (tp *TargetPass) CreatePass(op PassOp) *Pass {
	p := &Pass{Op: op}
	tp.passes = append(tp.passes, p)
	return p
}

// RemovePass removes the pass at index i.
func (tp *TargetPass) RemovePass(i int) error {
	if i < 0 || i >= len(tp.passes) {
		return fmt.Errorf("%w: pass %d of %d", ErrOutOfRange, i, len(tp.passes))
	}
	tp.passes = append(tp.passes[:i], tp.passes[i+1:]...)
	return nil
}

// RemoveAllPasses removes every pass.
func (tp *TargetPass) RemoveAllPasses() { tp.passes = nil }

// Pass returns the pass at index i, or nil.
func (tp *TargetPass) Pass(i int) *Pass {
	if i < 0 || i >= len(tp.passes) {
		return nil
	}
	return tp.passes[i]
}

// NumPasses returns the number of passes.
func (tp *TargetPass) NumPasses() int { return len(tp.passes) }

// Passes returns the passes in order. The slice must not be modified.
func (tp *TargetPass) Passes() []*Pass { return tp.passes }

func (tp *TargetPass) validateQueues() error {
	for _, p := range tp.passes {
		rs, ok := p.Op.(*RenderSceneOp)
		if !ok {
			continue
		}
		if rs.FirstQueue > render.QueueMax || rs.LastQueue > render.QueueMax {
			return fmt.Errorf("%w: queues %d..%d, max %d", ErrInvalidQueue, rs.FirstQueue, rs.LastQueue, render.QueueMax)
		}
	}
	return nil
}

// supported reports whether every quad material has a supported
// technique.
func (tp *TargetPass) supported(mats *material.Manager) (bool, string) {
	for _, p := range tp.passes {
		q, ok := p.Op.(*RenderQuadOp)
		if !ok {
			continue
		}
		mat := mats.Get(q.Material)
		if mat == nil {
			return false, fmt.Sprintf("material %q not found", q.Material)
		}
		mats.Compile(mat)
		if mat.NumSupportedTechniques() == 0 {
			return false, fmt.Sprintf("material %q has no supported techniques", q.Material)
		}
	}
	return true, ""
}
