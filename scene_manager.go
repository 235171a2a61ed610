package compositor

import (
	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
)

// SceneManager is the scene state a chain drives. *scene.Manager
// implements it.
type SceneManager interface {
	VisibilityMask() uint32
	SetVisibilityMask(mask uint32)

	FindVisibleObjects() bool
	SetFindVisibleObjects(find bool)

	// CurrentViewport returns the viewport being rendered.
	CurrentViewport() render.Viewport

	// AddRenderQueueListener registers l for queue events of every
	// subsequent scene render.
	AddRenderQueueListener(l render.RenderQueueListener)
	RemoveRenderQueueListener(l render.RenderQueueListener)

	// InjectRenderWithPass draws a quad with pass into the active
	// viewport.
	InjectRenderWithPass(pass *material.Pass, corners render.QuadCorners, farCorners bool) error
}
