package compositor

import (
	"testing"

	"github.com/gogpu/compositor/render"
)

func rtOf(insts ...*Instance) []render.RenderTexture {
	out := make([]render.RenderTexture, len(insts))
	for i, inst := range insts {
		out[i] = inst.TextureInstance("rt", 0)
	}
	return out
}

func TestPoolAvoidsAdjacentAliasing(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"A", "B", "C"} {
		f.copyCompositor(t, name, true)
	}
	a, b, c := f.add(t, "A"), f.add(t, "B"), f.add(t, "C")

	tex := rtOf(a, b, c)
	if tex[0] == tex[1] || tex[1] == tex[2] {
		t.Fatal("adjacent instances must not share an input previous texture")
	}
	if tex[0] != tex[2] {
		t.Error("non-adjacent instances should share a pooled texture")
	}
	if got := f.mgr.NumPooledTextures(); got != 2 {
		t.Errorf("NumPooledTextures() = %d, want 2", got)
	}

	// Disabling B makes A and C adjacent.
	if err := b.SetEnabled(false); err != nil {
		t.Fatal(err)
	}
	tex = rtOf(a, b, c)
	if tex[2] == tex[0] {
		t.Error("C still aliases A after B was disabled")
	}
	if tex[2] != tex[1] {
		t.Error("C should take over the texture B no longer renders")
	}

	if err := b.SetEnabled(true); err != nil {
		t.Fatal(err)
	}
	tex = rtOf(a, b, c)
	if tex[0] == tex[1] || tex[1] == tex[2] || tex[0] == tex[2] {
		t.Errorf("aliasing after re-enable: %s %s %s", tex[0].Name(), tex[1].Name(), tex[2].Name())
	}

	f.frame(t)
	if got := f.win.At(4, 4); got != opaqueRed {
		t.Errorf("pixel = %v, want the scene through three copies", got)
	}
}

func TestPoolChainScopeShared(t *testing.T) {
	f := newFixture(t)
	c := f.copyCompositor(t, "Ch", true)
	c.Technique(0).TextureDefinition("rt").Scope = ScopeChain

	win2, err := f.rs.NewWindow("win2", 8, 8)
	if err != nil {
		t.Fatal(err)
	}
	vp2 := win2.AddViewport(f.cam)

	a := f.add(t, "Ch")
	b, err := f.mgr.AddCompositor(vp2, "Ch", LastPosition)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.SetEnabled(true); err != nil {
		t.Fatal(err)
	}
	if a.TextureInstance("rt", 0) != b.TextureInstance("rt", 0) {
		t.Error("chain-scope pooled texture should be shared across chains")
	}
	if got := f.mgr.NumPooledTextures(); got != 1 {
		t.Errorf("NumPooledTextures() = %d, want 1", got)
	}

	if err := f.mgr.RemoveCompositor(f.vp, "Ch"); err != nil {
		t.Fatal(err)
	}
	if got := f.mgr.NumPooledTextures(); got != 1 {
		t.Errorf("NumPooledTextures() with one holder = %d, want 1", got)
	}
	f.mgr.RemoveChain(vp2)
	if got := f.mgr.NumPooledTextures(); got != 0 {
		t.Errorf("NumPooledTextures() without holders = %d, want 0", got)
	}
}

func TestPoolFreesUnreferenced(t *testing.T) {
	f := newFixture(t)
	f.copyCompositor(t, "A", true)
	f.copyCompositor(t, "B", true)
	a := f.add(t, "A")
	f.add(t, "B")
	name := a.TextureInstanceName("rt", 0)

	f.mgr.FreePooledTextures(true)
	if got := f.mgr.NumPooledTextures(); got != 2 {
		t.Fatalf("FreePooledTextures(true) freed held textures, %d left", got)
	}

	f.chain().RemoveAllCompositors()
	if got := f.mgr.NumPooledTextures(); got != 0 {
		t.Errorf("NumPooledTextures() = %d, want 0", got)
	}
	if f.rs.Target(name) != nil {
		t.Errorf("pooled texture %q not destroyed", name)
	}
}
