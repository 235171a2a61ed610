package compositor

import "errors"

// Configuration errors. They abort compilation of the technique or
// instance that caused them and are returned to the caller.
var (
	// ErrDuplicateTexture is returned when a texture definition name is
	// already used in the technique.
	ErrDuplicateTexture = errors.New("compositor: duplicate texture definition")

	// ErrInvalidDefinition is returned for a texture definition that mixes
	// reference and owning fields, or owns no pixel formats.
	ErrInvalidDefinition = errors.New("compositor: invalid texture definition")

	// ErrInvalidReference is returned when a texture reference cannot be
	// resolved to an owning definition.
	ErrInvalidReference = errors.New("compositor: invalid texture reference")

	// ErrScopeMismatch is returned when a reference resolves to a
	// local-scope texture.
	ErrScopeMismatch = errors.New("compositor: referenced texture has local scope")

	// ErrInactiveReference is returned when a chain-scope reference names a
	// compositor that is missing from the chain or disabled.
	ErrInactiveReference = errors.New("compositor: referenced compositor is not active in the chain")

	// ErrLaterReference is returned when a chain-scope reference names a
	// compositor placed after the referencing one.
	ErrLaterReference = errors.New("compositor: referenced compositor is later in the chain")

	// ErrUnknownTexture is returned for a texture name that is neither
	// defined nor referenced by the technique.
	ErrUnknownTexture = errors.New("compositor: unknown texture")

	// ErrGlobalMismatch is returned when supported techniques of one
	// compositor declare different global textures.
	ErrGlobalMismatch = errors.New("compositor: techniques define different global textures")

	// ErrInvalidGlobal is returned for a global texture that is a
	// reference or has a relative size.
	ErrInvalidGlobal = errors.New("compositor: invalid global texture")

	// ErrInvalidQueue is returned for a render_scene pass naming a queue
	// above render.QueueMax.
	ErrInvalidQueue = errors.New("compositor: render queue out of range")

	// ErrPooledGlobal is returned when a global texture is requested from
	// the pool.
	ErrPooledGlobal = errors.New("compositor: global textures cannot be pooled")
)

// Lookup and state errors.
var (
	// ErrNoSupportedTechnique is returned when a compositor has no
	// technique the device can run for the requested scheme.
	ErrNoSupportedTechnique = errors.New("compositor: no supported technique")

	// ErrUnknownCompositor is returned when a compositor name is not
	// registered.
	ErrUnknownCompositor = errors.New("compositor: unknown compositor")

	// ErrDuplicateCompositor is returned when a compositor name is taken.
	ErrDuplicateCompositor = errors.New("compositor: duplicate compositor")

	// ErrUnknownLogic is returned when a technique names an unregistered
	// logic.
	ErrUnknownLogic = errors.New("compositor: unknown compositor logic")

	// ErrUnknownCustomPass is returned when a render_custom pass names an
	// unregistered custom pass.
	ErrUnknownCustomPass = errors.New("compositor: unknown custom pass")

	// ErrOutOfRange is returned for an index outside its list.
	ErrOutOfRange = errors.New("compositor: index out of range")

	// ErrForeignTechnique is returned when an instance is switched to a
	// technique of another compositor.
	ErrForeignTechnique = errors.New("compositor: technique belongs to another compositor")

	// ErrChainDestroyed is returned by instances of a removed chain.
	ErrChainDestroyed = errors.New("compositor: chain destroyed")
)
