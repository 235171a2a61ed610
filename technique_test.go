package compositor

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/backend/soft"
	"github.com/gogpu/compositor/render"
)

func TestTechniqueValidate(t *testing.T) {
	rgba := gputypes.TextureFormatRGBA8Unorm
	tests := []struct {
		name  string
		setup func(t *testing.T, tech *Technique)
		want  error
	}{
		{"valid", func(t *testing.T, tech *Technique) {
			texture(t, tech, "rt", rgba)
			tech.CreateTargetPass().Output = "rt"
		}, nil},
		{"no format", func(t *testing.T, tech *Technique) {
			texture(t, tech, "rt")
		}, ErrInvalidDefinition},
		{"negative size", func(t *testing.T, tech *Technique) {
			texture(t, tech, "rt", rgba).WidthFactor = -1
		}, ErrInvalidDefinition},
		{"half reference", func(t *testing.T, tech *Technique) {
			def, _ := tech.CreateTextureDefinition("ref")
			def.RefCompositor = "Other"
		}, ErrInvalidReference},
		{"reference with format", func(t *testing.T, tech *Technique) {
			def := texture(t, tech, "ref", rgba)
			def.RefCompositor, def.RefTexture = "Other", "out"
		}, ErrInvalidDefinition},
		{"relative global", func(t *testing.T, tech *Technique) {
			texture(t, tech, "lut", rgba).Scope = ScopeGlobal
		}, ErrInvalidGlobal},
		{"undefined target", func(t *testing.T, tech *Technique) {
			tech.CreateTargetPass().Output = "missing"
		}, ErrUnknownTexture},
		{"output queue above max", func(t *testing.T, tech *Technique) {
			tech.OutputTargetPass().CreatePass(&RenderSceneOp{LastQueue: 255})
		}, ErrInvalidQueue},
		{"target queue above max", func(t *testing.T, tech *Technique) {
			texture(t, tech, "rt", rgba)
			tp := tech.CreateTargetPass()
			tp.Output = "rt"
			tp.CreatePass(&RenderSceneOp{FirstQueue: render.QueueMax + 1, LastQueue: render.QueueMax + 1})
		}, ErrInvalidQueue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr := NewManager(soft.New())
			t.Cleanup(mgr.Close)
			c, _ := mgr.CreateCompositor("C")
			tech := c.CreateTechnique()
			tt.setup(t, tech)
			if err := tech.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTextureDefinitionSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wf, hf        float32
		wantW, wantH  int
	}{
		{"relative", 0, 0, 1, 1, 100, 50},
		{"scaled", 0, 0, 0.5, 0.25, 50, 12},
		{"tiny factor", 0, 0, 0.001, 0.001, 1, 1},
		{"absolute", 64, 32, 1, 1, 64, 32},
		{"mixed", 64, 0, 1, 2, 64, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTextureDefinition("t")
			d.Width, d.Height = tt.width, tt.height
			d.WidthFactor, d.HeightFactor = tt.wf, tt.hf
			w, h := d.Size(100, 50)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("Size(100, 50) = %dx%d, want %dx%d", w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestTechniqueLists(t *testing.T) {
	mgr := NewManager(soft.New())
	t.Cleanup(mgr.Close)
	c, _ := mgr.CreateCompositor("C")
	tech := c.CreateTechnique()

	if _, err := tech.CreateTextureDefinition("rt"); err != nil {
		t.Fatal(err)
	}
	if _, err := tech.CreateTextureDefinition("rt"); !errors.Is(err, ErrDuplicateTexture) {
		t.Errorf("CreateTextureDefinition(dup) = %v, want ErrDuplicateTexture", err)
	}

	tech.CreateTargetPass()
	tech.CreateTargetPass()
	if got := tech.NumTargetPasses(); got != 2 {
		t.Errorf("NumTargetPasses() = %d, want 2", got)
	}
	if !tech.OutputTargetPass().IsOutput() || tech.TargetPass(0).IsOutput() {
		t.Error("only the output target pass reports IsOutput")
	}
	if err := tech.RemoveTargetPass(5); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("RemoveTargetPass(5) = %v, want ErrOutOfRange", err)
	}
	if err := tech.RemoveTargetPass(0); err != nil || tech.NumTargetPasses() != 1 {
		t.Errorf("RemoveTargetPass(0) = %v, %d left", err, tech.NumTargetPasses())
	}
	if tech.TargetPass(3) != nil {
		t.Error("TargetPass(3) should be nil")
	}

	if c.NumTechniques() != 1 || c.Technique(0) != tech || tech.Compositor() != c {
		t.Error("technique not linked to its compositor")
	}
	if err := c.RemoveTechnique(1); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("RemoveTechnique(1) = %v, want ErrOutOfRange", err)
	}
}

func TestRenderQuadInputs(t *testing.T) {
	q := NewRenderQuadOp("Blur")
	if err := q.SetInput(2, "rt", 1); err != nil {
		t.Fatalf("SetInput(2) error = %v", err)
	}
	if got := q.NumInputs(); got != 3 {
		t.Errorf("NumInputs() = %d, want 3", got)
	}
	if got := q.Input(0); got != (QuadInput{}) {
		t.Errorf("Input(0) = %+v, want empty", got)
	}
	if got := q.Input(2); got != (QuadInput{Name: "rt", MRTIndex: 1}) {
		t.Errorf("Input(2) = %+v", got)
	}
	if err := q.SetInput(MaxQuadInputs, "rt", 0); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetInput(%d) = %v, want ErrOutOfRange", MaxQuadInputs, err)
	}
	q.ClearInputs()
	if q.NumInputs() != 0 {
		t.Errorf("NumInputs() after ClearInputs = %d", q.NumInputs())
	}
}
