package material

import (
	"errors"
	"strings"
	"testing"
)

const solidRedWGSL = `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

func newQuadMaterial(t *testing.T, m *Manager, name, shader string) *Material {
	t.Helper()
	mat, err := m.Create(name)
	if err != nil {
		t.Fatalf("Create(%q) error = %v", name, err)
	}
	p := mat.CreateTechnique().CreatePass()
	p.Shader = shader
	p.AddTextureUnit("src")
	return mat
}

func TestManagerRegistry(t *testing.T) {
	m := NewManager()
	newQuadMaterial(t, m, "b", "")
	newQuadMaterial(t, m, "a", "")

	if _, err := m.Create("a"); !errors.Is(err, ErrDuplicateMaterial) {
		t.Errorf("Create(duplicate) error = %v, want ErrDuplicateMaterial", err)
	}
	if got := strings.Join(m.Names(), ","); got != "a,b" {
		t.Errorf("Names() = %s, want a,b", got)
	}
	m.Remove("a")
	if m.Get("a") != nil {
		t.Error("Get after Remove should be nil")
	}
}

func TestCompileFixedFunction(t *testing.T) {
	m := NewManager()
	mat := newQuadMaterial(t, m, "copy", "")
	mat.CreateTechnique() // no passes

	m.Compile(mat)

	if mat.NumSupportedTechniques() != 1 {
		t.Fatalf("NumSupportedTechniques() = %d, want 1", mat.NumSupportedTechniques())
	}
	if mat.Techniques()[1].UnsupportedReason() == "" {
		t.Error("empty technique should report a reason")
	}
}

func TestCompileWithNaga(t *testing.T) {
	m := NewManager()
	bad := newQuadMaterial(t, m, "bad", "this is not wgsl")
	m.Compile(bad)
	if bad.NumSupportedTechniques() != 0 {
		t.Error("technique with invalid WGSL should be unsupported")
	}

	good := newQuadMaterial(t, m, "good", solidRedWGSL)
	m.Compile(good)
	if good.NumSupportedTechniques() != 1 {
		t.Skipf("naga rejected fragment shader: %s", good.Techniques()[0].UnsupportedReason())
	}
}

func TestValidateShaderCache(t *testing.T) {
	calls := 0
	m := NewManager(WithShaderValidator(func(string) error {
		calls++
		return errors.New("nope")
	}), WithShaderCacheSize(2))

	for i := 0; i < 3; i++ {
		err := m.ValidateShader("x")
		if !errors.Is(err, ErrShaderCompile) {
			t.Fatalf("ValidateShader() error = %v, want ErrShaderCompile", err)
		}
	}
	if calls != 1 {
		t.Errorf("validator calls = %d, want 1", calls)
	}

	m.ValidateShader("y")
	m.ValidateShader("z")
	m.ValidateShader("x") // evicted
	if calls != 4 {
		t.Errorf("validator calls = %d, want 4", calls)
	}
}

func TestBestTechnique(t *testing.T) {
	m := NewManager()
	mat, _ := m.Create("m")
	def := mat.CreateTechnique()
	def.CreatePass()
	hdr := mat.CreateTechnique()
	hdr.Scheme = "hdr"
	hdr.CreatePass()
	m.Compile(mat)

	if got := mat.BestTechnique("hdr"); got != hdr {
		t.Error("BestTechnique(hdr) should pick the hdr technique")
	}
	if got := mat.BestTechnique("missing"); got != def {
		t.Error("BestTechnique(missing) should fall back to the default scheme")
	}
}

func TestCreateLocal(t *testing.T) {
	m := NewManager()
	src := newQuadMaterial(t, m, "blur", "")

	a := m.CreateLocal(src)
	b := m.CreateLocal(src)

	if a.Name() != "c0/blur" || b.Name() != "c1/blur" {
		t.Errorf("local names = %q, %q", a.Name(), b.Name())
	}
	if m.Get(a.Name()) != nil {
		t.Error("local clones must not be registered")
	}
	if !src.Compiled() || a.NumSupportedTechniques() != 1 {
		t.Error("CreateLocal should compile the source")
	}

	a.Techniques()[0].Passes[0].TextureUnits[0].Name = "changed"
	if src.Techniques()[0].Passes[0].TextureUnits[0].Name != "src" {
		t.Error("mutating the clone changed the source")
	}
}
