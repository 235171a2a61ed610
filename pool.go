package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/render"
)

// poolKey is what two pooled textures must share to be interchangeable.
// Every compositor texture is two dimensional.
type poolKey struct {
	width, height int
	format        render.PixelFormat
	fsaa          uint32
	srgb          bool
}

func (k poolKey) desc(name string) render.TextureDesc {
	return render.TextureDesc{
		Name:          name,
		Width:         k.width,
		Height:        k.height,
		Format:        k.format,
		FSAA:          k.fsaa,
		HardwareGamma: k.srgb,
	}
}

type pooledTexture struct {
	tex  render.RenderTexture
	key  poolKey
	refs int
}

// chainKey identifies chain-scope pooled textures by owning compositor.
type chainKey struct {
	compositor string
	texture    string
}

// texturePool holds the textures shared between instances. Shared
// textures are listed per key; chain-scope textures have a single entry
// per compositor texture and key.
type texturePool struct {
	shared map[poolKey][]*pooledTexture
	chain  map[chainKey]map[poolKey]*pooledTexture
	byTex  map[render.RenderTexture]*pooledTexture
}

func newTexturePool() texturePool {
	return texturePool{
		shared: make(map[poolKey][]*pooledTexture),
		chain:  make(map[chainKey]map[poolKey]*pooledTexture),
		byTex:  make(map[render.RenderTexture]*pooledTexture),
	}
}

// pooledTexture hands out a texture for localName of inst, creating one
// named name when nothing can be reused. The texture is retained once for
// the caller and recorded in assigned.
//
// A shared texture is skipped when assigned already holds it, or when
// reusing it would make inst read and write the same texture as its
// "input previous" neighbour.
func (m *Manager) pooledTexture(name, localName string, key poolKey, assigned map[render.RenderTexture]bool, inst *Instance, scope TextureScope) (render.RenderTexture, error) {
	if scope == ScopeGlobal {
		return nil, fmt.Errorf("%w: %q", ErrPooledGlobal, localName)
	}
	log := m.logger()

	if scope == ScopeChain {
		ck := chainKey{compositor: inst.compositor.name, texture: localName}
		byKey := m.pool.chain[ck]
		if byKey == nil {
			byKey = make(map[poolKey]*pooledTexture)
			m.pool.chain[ck] = byKey
		}
		if e, ok := byKey[key]; ok {
			e.refs++
			assigned[e.tex] = true
			log.Debug("compositor: pooled texture reused", "texture", e.tex.Name(), "scope", scope)
			return e.tex, nil
		}
		e, err := m.newPooled(name, key)
		if err != nil {
			return nil, err
		}
		byKey[key] = e
		assigned[e.tex] = true
		return e.tex, nil
	}

	prev := inst.chain.PreviousInstance(inst, true)
	next := inst.chain.NextInstance(inst, true)
	previousTarget := isInputPreviousTarget(inst, localName)
	outputInput := isInputToOutputTarget(inst, localName)
	for _, e := range m.pool.shared[key] {
		if assigned[e.tex] {
			continue
		}
		if previousTarget && prev != nil && readsInOutput(prev, e.tex) {
			continue
		}
		if outputInput && next != nil && writesAsPrevious(next, e.tex) {
			continue
		}
		e.refs++
		assigned[e.tex] = true
		log.Debug("compositor: pooled texture reused",
			"texture", e.tex.Name(),
			"compositor", inst.compositor.name,
			"local", localName)
		return e.tex, nil
	}

	e, err := m.newPooled(name, key)
	if err != nil {
		return nil, err
	}
	m.pool.shared[key] = append(m.pool.shared[key], e)
	assigned[e.tex] = true
	return e.tex, nil
}

func (m *Manager) newPooled(name string, key poolKey) (*pooledTexture, error) {
	tex, err := m.rs.CreateRenderTexture(key.desc(name))
	if err != nil {
		return nil, err
	}
	e := &pooledTexture{tex: tex, key: key, refs: 1}
	m.pool.byTex[tex] = e
	m.logger().Debug("compositor: pooled texture created",
		"texture", name,
		"width", key.width,
		"height", key.height)
	return e, nil
}

// isPooled reports whether tex came from the pool.
func (m *Manager) isPooled(tex render.RenderTexture) bool {
	_, ok := m.pool.byTex[tex]
	return ok
}

func (m *Manager) retainTexture(tex render.RenderTexture) {
	if e, ok := m.pool.byTex[tex]; ok {
		e.refs++
	}
}

func (m *Manager) releaseTexture(tex render.RenderTexture) {
	if e, ok := m.pool.byTex[tex]; ok && e.refs > 0 {
		e.refs--
	}
}

// FreePooledTextures destroys pooled textures. With onlyIfUnreferenced
// set only textures no instance holds are destroyed; otherwise the pool
// is emptied.
func (m *Manager) FreePooledTextures(onlyIfUnreferenced bool) {
	evict := func(e *pooledTexture) bool {
		if onlyIfUnreferenced && e.refs > 0 {
			return false
		}
		delete(m.pool.byTex, e.tex)
		m.rs.DestroyRenderTarget(e.tex)
		m.logger().Debug("compositor: pooled texture freed", "texture", e.tex.Name())
		return true
	}
	for key, list := range m.pool.shared {
		kept := list[:0]
		for _, e := range list {
			if !evict(e) {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(m.pool.shared, key)
		} else {
			m.pool.shared[key] = kept
		}
	}
	for ck, byKey := range m.pool.chain {
		for key, e := range byKey {
			if evict(e) {
				delete(byKey, key)
			}
		}
		if len(byKey) == 0 {
			delete(m.pool.chain, ck)
		}
	}
}

// NumPooledTextures returns the number of textures in the pool.
func (m *Manager) NumPooledTextures() int {
	return len(m.pool.byTex)
}

// isInputPreviousTarget reports whether inst renders "input previous"
// into localName.
func isInputPreviousTarget(inst *Instance, localName string) bool {
	for _, tp := range inst.technique.targets {
		if tp.Input == InputPrevious && tp.Output == localName {
			return true
		}
	}
	return false
}

// writesAsPrevious reports whether inst renders "input previous" into
// tex.
func writesAsPrevious(inst *Instance, tex render.RenderTexture) bool {
	for _, tp := range inst.technique.targets {
		if tp.Input == InputPrevious && inst.localTexture(tp.Output, 0) == tex {
			return true
		}
	}
	return false
}

// isInputToOutputTarget reports whether a quad of the output target pass
// of inst reads localName.
func isInputToOutputTarget(inst *Instance, localName string) bool {
	for _, p := range inst.technique.output.passes {
		q, ok := p.Op.(*RenderQuadOp)
		if !ok {
			continue
		}
		for _, in := range q.inputs {
			if in.Name == localName {
				return true
			}
		}
	}
	return false
}

// readsInOutput reports whether a quad of the output target pass of inst
// reads tex.
func readsInOutput(inst *Instance, tex render.RenderTexture) bool {
	for _, p := range inst.technique.output.passes {
		q, ok := p.Op.(*RenderQuadOp)
		if !ok {
			continue
		}
		for _, in := range q.inputs {
			if in.Name != "" && inst.localTexture(in.Name, in.MRTIndex) == tex {
				return true
			}
		}
	}
	return false
}
