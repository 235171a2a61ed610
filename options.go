package compositor

import (
	"log/slog"

	"github.com/gogpu/compositor/material"
)

// ManagerOption configures a Manager during creation.
//
// Example:
//
//	mgr := compositor.NewManager(rs,
//		compositor.WithSceneManager(sm),
//		compositor.WithMaterials(mats))
type ManagerOption func(*managerOptions)

// managerOptions holds optional configuration for Manager creation.
type managerOptions struct {
	scene         SceneManager
	materials     *material.Manager
	logger        *slog.Logger
	maxQuadInputs int
}

// defaultManagerOptions returns the default manager options.
func defaultManagerOptions() managerOptions {
	return managerOptions{
		maxQuadInputs: MaxQuadInputs,
	}
}

// WithSceneManager sets the scene manager whose state chains save and
// restore around every target operation. Without one, chains compile but
// render targets are updated with the ambient scene state untouched.
func WithSceneManager(sm SceneManager) ManagerOption {
	return func(o *managerOptions) {
		o.scene = sm
	}
}

// WithMaterials sets the material system quad passes resolve against.
// A private material.Manager is created when none is given.
func WithMaterials(m *material.Manager) ManagerOption {
	return func(o *managerOptions) {
		o.materials = m
	}
}

// WithLogger sets a logger for this manager only. Without it the manager
// logs through the package logger (see SetLogger).
func WithLogger(l *slog.Logger) ManagerOption {
	return func(o *managerOptions) {
		o.logger = l
	}
}

// WithMaxQuadInputs lowers the number of texture inputs a quad pass may
// bind. Inputs past the limit are skipped with a warning at compile time.
// Values outside 1..MaxQuadInputs are ignored.
func WithMaxQuadInputs(n int) ManagerOption {
	return func(o *managerOptions) {
		if n > 0 && n <= MaxQuadInputs {
			o.maxQuadInputs = n
		}
	}
}
