package material

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"

	"github.com/gogpu/naga"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/compositor/internal/logging"
)

// Errors returned by the manager.
var (
	// ErrDuplicateMaterial is returned when a name is already registered.
	ErrDuplicateMaterial = errors.New("material: duplicate material name")

	// ErrShaderCompile wraps shader validation failures.
	ErrShaderCompile = errors.New("material: shader failed to compile")
)

// DefaultShaderCacheSize is the number of shader sources whose validation
// result is remembered.
const DefaultShaderCacheSize = 128

// ShaderValidator checks WGSL source.
type ShaderValidator func(wgsl string) error

// nagaValidator compiles WGSL to SPIR-V and discards the binary.
func nagaValidator(wgsl string) error {
	spirv, err := naga.Compile(wgsl)
	if err != nil {
		return err
	}
	if len(spirv) == 0 {
		return errors.New("empty SPIR-V output")
	}
	return nil
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	cacheSize int
	validator ShaderValidator
}

// WithShaderCacheSize sets how many validation results are cached.
func WithShaderCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithShaderValidator replaces the naga validator.
func WithShaderValidator(v ShaderValidator) Option {
	return func(o *options) {
		o.validator = v
	}
}

// Manager is the material registry.
type Manager struct {
	materials    map[string]*Material
	activeScheme string
	localCounter int

	validate ShaderValidator
	shaders  *lru.Cache[uint64, error]
}

// NewManager creates an empty registry.
func NewManager(opts ...Option) *Manager {
	o := options{cacheSize: DefaultShaderCacheSize, validator: nagaValidator}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultShaderCacheSize
	}
	cache, _ := lru.NewWithEvict[uint64, error](o.cacheSize, func(key uint64, _ error) {
		logging.Logger().Debug("material: shader result evicted", "key", key)
	})
	return &Manager{
		materials: make(map[string]*Material),
		validate:  o.validator,
		shaders:   cache,
	}
}

// Create registers and returns an empty material.
func (m *Manager) Create(name string) (*Material, error) {
	mat := New(name)
	if err := m.Add(mat); err != nil {
		return nil, err
	}
	return mat, nil
}

// Add registers mat under its name.
func (m *Manager) Add(mat *Material) error {
	if _, ok := m.materials[mat.name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateMaterial, mat.name)
	}
	m.materials[mat.name] = mat
	return nil
}

// Get returns the named material, or nil.
func (m *Manager) Get(name string) *Material {
	return m.materials[name]
}

// Remove unregisters the named material.
func (m *Manager) Remove(name string) {
	delete(m.materials, name)
}

// Names returns the registered names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.materials))
	for name := range m.materials {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ActiveScheme returns the scheme used to pick material techniques.
func (m *Manager) ActiveScheme() string {
	return m.activeScheme
}

// SetActiveScheme changes the scheme used to pick material techniques.
func (m *Manager) SetActiveScheme(scheme string) {
	m.activeScheme = scheme
}

// Load compiles the material if its support flags are stale.
func (m *Manager) Load(mat *Material) {
	if !mat.compiled {
		m.Compile(mat)
	}
}

// Compile decides which techniques of mat are supported. A technique is
// supported when it has at least one pass and every pass shader compiles.
func (m *Manager) Compile(mat *Material) {
	for _, t := range mat.techniques {
		t.supported, t.reason = true, ""
		if len(t.Passes) == 0 {
			t.supported, t.reason = false, "technique has no passes"
			continue
		}
		for _, p := range t.Passes {
			if err := m.ValidateShader(p.Shader); err != nil {
				t.supported, t.reason = false, err.Error()
				break
			}
		}
	}
	mat.compiled = true
	logging.Logger().Debug("material: compiled",
		"material", mat.name,
		"supported", mat.NumSupportedTechniques(),
		"techniques", len(mat.techniques))
}

// ValidateShader checks WGSL source, consulting the cache first. Empty
// source always validates.
func (m *Manager) ValidateShader(wgsl string) error {
	if wgsl == "" {
		return nil
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(wgsl))
	key := h.Sum64()
	if err, ok := m.shaders.Get(key); ok {
		return err
	}
	err := m.validate(wgsl)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrShaderCompile, err)
	}
	m.shaders.Add(key, err)
	return err
}

// CreateLocal clones src into an unregistered material named
// "c<n>/<src>". Quad passes bind their inputs into the clone.
func (m *Manager) CreateLocal(src *Material) *Material {
	m.Load(src)
	name := "c" + strconv.Itoa(m.localCounter) + "/" + src.name
	m.localCounter++
	local := src.Clone(name)
	logging.Logger().Debug("material: local clone", "material", name)
	return local
}
