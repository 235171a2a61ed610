package compositor

import (
	"github.com/gogpu/compositor/material"
)

// Logic is notified when instances of techniques naming it are created
// and destroyed. It typically attaches listeners to the instance.
type Logic interface {
	InstanceCreated(inst *Instance)
	InstanceDestroyed(inst *Instance)
}

// CustomPass compiles render_custom passes of its registered type.
type CustomPass interface {
	CreateOperation(inst *Instance, pass *Pass) (Operation, error)
}

// InstanceListener observes an instance.
type InstanceListener interface {
	// NotifyMaterialSetup is called when a quad pass compiles its local
	// material.
	NotifyMaterialSetup(passID uint32, mat *material.Material)

	// NotifyMaterialRender is called before a quad pass draws.
	NotifyMaterialRender(passID uint32, mat *material.Material)

	// NotifyResourcesCreated is called after the instance created its
	// textures.
	NotifyResourcesCreated(forResizeOnly bool)
}

// LogicFunc adapts a pair of functions to Logic. Nil functions are
// skipped.
type LogicFunc struct {
	Created   func(inst *Instance)
	Destroyed func(inst *Instance)
}

func (l LogicFunc) InstanceCreated(inst *Instance) {
	if l.Created != nil {
		l.Created(inst)
	}
}

func (l LogicFunc) InstanceDestroyed(inst *Instance) {
	if l.Destroyed != nil {
		l.Destroyed(inst)
	}
}

// CustomPassFunc adapts a function to CustomPass.
type CustomPassFunc func(inst *Instance, pass *Pass) (Operation, error)

func (f CustomPassFunc) CreateOperation(inst *Instance, pass *Pass) (Operation, error) {
	return f(inst, pass)
}
