package compositor

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor/backend/soft"
	"github.com/gogpu/compositor/render"
)

func TestCompileFiltersTechniques(t *testing.T) {
	rgba := gputypes.TextureFormatRGBA8Unorm
	half := gputypes.TextureFormatRGBA16Float

	tests := []struct {
		name    string
		caps    func(c *render.Capabilities)
		formats [][]render.PixelFormat
		want    []int
	}{
		{
			name:    "all supported",
			formats: [][]render.PixelFormat{{half}, {rgba}},
			want:    []int{0, 1},
		},
		{
			name:    "too many attachments",
			caps:    func(c *render.Capabilities) { c.MaxColorAttachments = 1 },
			formats: [][]render.PixelFormat{{rgba, rgba}, {rgba}},
			want:    []int{1},
		},
		{
			name:    "exact formats preferred",
			caps:    func(c *render.Capabilities) { c.RenderTargetFormats = []render.PixelFormat{rgba, gputypes.TextureFormatBGRA8Unorm} },
			formats: [][]render.PixelFormat{{half}, {rgba}},
			want:    []int{1},
		},
		{
			name:    "degraded when nothing is exact",
			caps:    func(c *render.Capabilities) { c.RenderTargetFormats = []render.PixelFormat{rgba, gputypes.TextureFormatBGRA8Unorm} },
			formats: [][]render.PixelFormat{{half}},
			want:    []int{0},
		},
		{
			name: "mixed bit depths",
			caps: func(c *render.Capabilities) { c.MRTDifferentBitDepths = false },
			formats: [][]render.PixelFormat{
				{rgba, half},
				{rgba, gputypes.TextureFormatR32Float},
			},
			want: []int{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := render.DefaultCapabilities()
			if tt.caps != nil {
				tt.caps(&caps)
			}
			f := newFixtureWith(t, soft.New(soft.WithCapabilities(caps)))
			c, _ := f.mgr.CreateCompositor("C")
			var techs []*Technique
			for _, formats := range tt.formats {
				tech := c.CreateTechnique()
				texture(t, tech, "rt", formats...)
				techs = append(techs, tech)
			}
			if err := c.Compile(); err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			if got := c.NumSupportedTechniques(); got != len(tt.want) {
				t.Fatalf("NumSupportedTechniques() = %d, want %d", got, len(tt.want))
			}
			for i, idx := range tt.want {
				if c.SupportedTechnique(i) != techs[idx] {
					t.Errorf("SupportedTechnique(%d) is not technique %d", i, idx)
				}
			}
			if c.CompilationRequired() {
				t.Error("CompilationRequired() after Compile")
			}
		})
	}
}

func TestCompileDropsInvalidTechnique(t *testing.T) {
	f := newFixture(t)
	c, bad := f.compositor(t, "C")
	texture(t, bad, "rt")
	good := c.CreateTechnique()
	texture(t, good, "rt", gputypes.TextureFormatRGBA8Unorm)

	err := c.Compile()
	if !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("Compile() = %v, want ErrInvalidDefinition", err)
	}
	if c.NumSupportedTechniques() != 1 || c.SupportedTechnique(0) != good {
		t.Errorf("supported = %v, want only the valid technique", c.SupportedTechniques())
	}
}

func TestCompileMissingMaterial(t *testing.T) {
	logs := captureLogs(t)
	f := newFixture(t)
	_, tech := f.compositor(t, "C")
	quad(t, tech.OutputTargetPass(), "Nope")

	_, err := f.mgr.AddCompositor(f.vp, "C", LastPosition)
	if !errors.Is(err, ErrNoSupportedTechnique) {
		t.Fatalf("AddCompositor() = %v, want ErrNoSupportedTechnique", err)
	}
	if !strings.Contains(logs.String(), "no supported techniques") {
		t.Errorf("missing error log:\n%s", logs)
	}
	if f.chain().Len() != 0 {
		t.Errorf("chain Len() = %d, want 0", f.chain().Len())
	}
}

func TestSupportedTechniqueFor(t *testing.T) {
	f := newFixture(t)
	c, def := f.compositor(t, "C")
	hdr := c.CreateTechnique()
	hdr.Scheme = "hdr"
	if err := c.Compile(); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		scheme string
		want   *Technique
	}{
		{"", def},
		{"hdr", hdr},
		{"missing", def},
	}
	for _, tt := range tests {
		if got := c.SupportedTechniqueFor(tt.scheme); got != tt.want {
			t.Errorf("SupportedTechniqueFor(%q) = %p, want %p", tt.scheme, got, tt.want)
		}
	}

	only, _ := f.compositor(t, "Only")
	only.Technique(0).Scheme = "hdr"
	if err := only.Compile(); err != nil {
		t.Fatal(err)
	}
	if got := only.SupportedTechniqueFor("ldr"); got != nil {
		t.Errorf("SupportedTechniqueFor(ldr) = %p, want nil", got)
	}
	if _, err := f.mgr.AddCompositor(f.vp, "Only", LastPosition); !errors.Is(err, ErrNoSupportedTechnique) {
		t.Errorf("AddCompositor(Only) = %v, want ErrNoSupportedTechnique", err)
	}
}

func TestGlobalTextures(t *testing.T) {
	f := newFixture(t)
	c, tech := f.compositor(t, "G")
	lut := texture(t, tech, "lut", gputypes.TextureFormatRGBA8Unorm)
	lut.Width, lut.Height, lut.Scope = 4, 4, ScopeGlobal
	tech.OutputTargetPass().Input = InputPrevious

	win2, err := f.rs.NewWindow("win2", 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	vp2 := win2.AddViewport(f.cam)

	a := f.add(t, "G")
	b, err := f.mgr.AddCompositor(vp2, "G", LastPosition)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetEnabled(true); err != nil {
		t.Fatal(err)
	}

	global := c.TextureInstance("lut", 0)
	if global == nil {
		t.Fatal("global texture not created")
	}
	if !strings.HasSuffix(global.Name(), "/G/lut") {
		t.Errorf("global name = %q, want suffix /G/lut", global.Name())
	}
	if a.TextureInstance("lut", 0) != global || b.TextureInstance("lut", 0) != global {
		t.Error("instances should share the global texture")
	}

	if err := f.mgr.RemoveCompositor(f.vp, "G"); err != nil {
		t.Fatal(err)
	}
	if f.rs.Target(global.Name()) == nil {
		t.Error("removing an instance must not destroy the global texture")
	}
	c.Unload()
	if f.rs.Target(global.Name()) != nil {
		t.Error("Unload() should destroy the global texture")
	}
}

func TestRecompileRelinksGlobals(t *testing.T) {
	f := newFixture(t)
	c, tech := f.compositor(t, "G")
	g := texture(t, tech, "g", gputypes.TextureFormatRGBA8Unorm)
	g.Width, g.Height, g.Scope = 4, 4, ScopeGlobal
	a := f.add(t, "G")
	old := c.TextureInstance("g", 0)

	// A second technique forces a recompile on the next load.
	alt := c.CreateTechnique()
	alt.Scheme = "alt"
	g2 := texture(t, alt, "g", gputypes.TextureFormatRGBA8Unorm)
	g2.Width, g2.Height, g2.Scope = 4, 4, ScopeGlobal

	win2, err := f.rs.NewWindow("win2", 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.mgr.AddCompositor(win2.AddViewport(f.cam), "G", LastPosition); err != nil {
		t.Fatalf("AddCompositor() error = %v", err)
	}

	global := c.TextureInstance("g", 0)
	if global == nil || global == old {
		t.Fatalf("global = %v, want a texture recreated by the recompile", global)
	}
	if f.rs.Target(old.Name()) != nil {
		t.Errorf("old global %q should be destroyed", old.Name())
	}
	if got := a.TextureInstance("g", 0); got != global || f.rs.Target(got.Name()) == nil {
		t.Errorf("live instance holds %v, want the recreated global", got)
	}
	if err := f.chain().Compile(); err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	f.frame(t)

	// An instance left without a technique of its scheme dies.
	c.RemoveAllTechniques()
	c.CreateTechnique().Scheme = "other"
	if err := c.Compile(); !errors.Is(err, ErrNoSupportedTechnique) {
		t.Errorf("Compile() = %v, want ErrNoSupportedTechnique for the orphaned instance", err)
	}
	if a.Alive() || a.Enabled() || a.TextureInstance("g", 0) != nil {
		t.Errorf("instance alive=%v enabled=%v, want it dead without textures", a.Alive(), a.Enabled())
	}
}

func TestGlobalMismatch(t *testing.T) {
	f := newFixture(t)
	c, first := f.compositor(t, "G")
	a := texture(t, first, "a", gputypes.TextureFormatRGBA8Unorm)
	a.Width, a.Height, a.Scope = 4, 4, ScopeGlobal
	second := c.CreateTechnique()
	second.Scheme = "alt"
	b := texture(t, second, "b", gputypes.TextureFormatRGBA8Unorm)
	b.Width, b.Height, b.Scope = 4, 4, ScopeGlobal

	if err := c.Compile(); !errors.Is(err, ErrGlobalMismatch) {
		t.Fatalf("Compile() = %v, want ErrGlobalMismatch", err)
	}
	if c.TextureInstance("a", 0) != nil {
		t.Error("globals should be freed after a mismatch")
	}
}

func TestDestroyCompositor(t *testing.T) {
	f := newFixture(t)
	f.copyCompositor(t, "A", false)
	if _, err := f.mgr.CreateCompositor("A"); !errors.Is(err, ErrDuplicateCompositor) {
		t.Errorf("CreateCompositor(dup) = %v, want ErrDuplicateCompositor", err)
	}
	if got := f.mgr.CompositorNames(); len(got) != 1 || got[0] != "A" {
		t.Errorf("CompositorNames() = %v, want [A]", got)
	}
	if err := f.mgr.DestroyCompositor("A"); err != nil {
		t.Fatal(err)
	}
	if err := f.mgr.DestroyCompositor("A"); !errors.Is(err, ErrUnknownCompositor) {
		t.Errorf("DestroyCompositor(gone) = %v, want ErrUnknownCompositor", err)
	}
	if _, err := f.mgr.AddCompositor(f.vp, "A", LastPosition); !errors.Is(err, ErrUnknownCompositor) {
		t.Errorf("AddCompositor(gone) = %v, want ErrUnknownCompositor", err)
	}
}
