package backend

import (
	"errors"

	"github.com/gogpu/compositor/render"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// Backend names.
const (
	BackendSoft  = "soft"
	BackendHALRS = "halrs"
)

// Factory creates a render system ready for use.
type Factory func() (render.RenderSystem, error)
