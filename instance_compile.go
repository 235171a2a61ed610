package compositor

import (
	"fmt"

	"github.com/gogpu/compositor/render"
)

// compileTargetOperations appends the intermediate batches of every
// instance up to and including i to state, oldest first.
func (i *Instance) compileTargetOperations(state *CompiledState) error {
	if i.previous != nil {
		if err := i.previous.compileTargetOperations(state); err != nil {
			return err
		}
	}
	for _, tp := range i.technique.targets {
		target, err := i.targetForTex(tp.Output)
		if err != nil {
			return err
		}
		op := newTargetOperation(target)
		op.OnlyInitial = tp.OnlyInitial
		op.VisibilityMask = tp.VisibilityMask
		op.LodBias = tp.LodBias
		op.Shadows = tp.Shadows
		op.MaterialScheme = tp.MaterialScheme
		op.instance = i
		op.pass = tp
		if tp.Input == InputPrevious && i.previous != nil {
			if err := i.previous.compileOutputOperation(op); err != nil {
				return err
			}
		}
		if err := i.collectPasses(op, tp); err != nil {
			return err
		}
		state.Targets = append(state.Targets, op)
	}
	return nil
}

// compileOutputOperation merges the output target pass of i, and through
// "input previous" those before it, into op.
func (i *Instance) compileOutputOperation(op *TargetOperation) error {
	tp := i.technique.output
	op.VisibilityMask &= tp.VisibilityMask
	op.LodBias *= tp.LodBias
	op.MaterialScheme = tp.MaterialScheme
	op.Shadows = tp.Shadows
	if tp.Input == InputPrevious && i.previous != nil {
		if err := i.previous.compileOutputOperation(op); err != nil {
			return err
		}
	}
	return i.collectPasses(op, tp)
}

// collectPasses translates the passes of tp into operations of op.
// Missing materials and texture units are skipped with a warning.
func (i *Instance) collectPasses(op *TargetOperation, tp *TargetPass) error {
	mgr := i.chain.mgr
	log := mgr.logger()
	for _, p := range tp.passes {
		switch pass := p.Op.(type) {
		case *ClearOp:
			op.queue(&clearOperation{ClearOp: *pass})

		case *StencilOp:
			op.queue(&stencilOperation{StencilOp: *pass})

		case *RenderSceneOp:
			if pass.FirstQueue < op.CurrentQueue {
				log.Warn("compositor: render queue out of order",
					"compositor", i.compositor.name,
					"queue", pass.FirstQueue,
					"current", op.CurrentQueue)
			}
			var set *setSchemeOperation
			if pass.MaterialScheme != "" {
				set = &setSchemeOperation{materials: mgr.materials, scheme: pass.MaterialScheme}
				op.queue(set)
			}
			op.Queues.AddRange(pass.FirstQueue, pass.LastQueue)
			op.CurrentQueue = min(pass.LastQueue, render.QueueMax) + 1
			if set != nil {
				op.queue(&restoreSchemeOperation{set: set})
			}
			op.FindVisibleObjects = true

		case *RenderQuadOp:
			quad, err := i.compileQuad(p.Identifier, pass)
			if err != nil {
				return err
			}
			if quad != nil {
				op.queue(quad)
			}

		case *RenderCustomOp:
			cp := mgr.CustomPass(pass.CustomType)
			if cp == nil {
				return fmt.Errorf("%w: %q in %s", ErrUnknownCustomPass, pass.CustomType, i.compositor.name)
			}
			custom, err := cp.CreateOperation(i, p)
			if err != nil {
				return fmt.Errorf("compositor %s custom pass %q: %w", i.compositor.name, pass.CustomType, err)
			}
			if custom != nil {
				op.queue(custom)
			}
		}
	}
	return nil
}

// compileQuad builds the quad operation of a render_quad pass. It returns
// nil without an error when the material cannot be used.
func (i *Instance) compileQuad(passID uint32, pass *RenderQuadOp) (*quadOperation, error) {
	mgr := i.chain.mgr
	log := mgr.logger()
	mats := mgr.materials

	src := mats.Get(pass.Material)
	if src == nil {
		log.Warn("compositor: no material for quad pass",
			"compositor", i.compositor.name,
			"material", pass.Material)
		return nil, nil
	}
	mats.Load(src)
	if src.NumSupportedTechniques() == 0 {
		log.Warn("compositor: material has no supported techniques",
			"compositor", i.compositor.name,
			"material", pass.Material)
		return nil, nil
	}
	scheme := mats.ActiveScheme()
	if src.BestTechnique(scheme) == nil {
		log.Warn("compositor: material has no technique for scheme",
			"compositor", i.compositor.name,
			"material", pass.Material,
			"scheme", scheme)
		return nil, nil
	}

	local := mats.CreateLocal(src)
	tech := local.BestTechnique(scheme)
	for x, in := range pass.inputs {
		if in.Name == "" {
			continue
		}
		if x >= mgr.opts.maxQuadInputs {
			log.Warn("compositor: texture input over the limit",
				"compositor", i.compositor.name,
				"material", pass.Material,
				"unit", x,
				"limit", mgr.opts.maxQuadInputs)
			continue
		}
		tex, err := i.sourceForTex(in.Name, in.MRTIndex)
		if err != nil {
			return nil, err
		}
		for _, mp := range tech.Passes {
			if x >= mp.NumTextureUnits() {
				log.Warn("compositor: texture unit out of bounds",
					"compositor", i.compositor.name,
					"material", pass.Material,
					"unit", x)
				continue
			}
			mp.TextureUnits[x].Texture = tex
		}
	}

	quad := &quadOperation{
		instance:   i,
		passID:     passID,
		mat:        local,
		technique:  tech,
		farCorners: pass.FarCorners || pass.FarCornersViewSpace,
	}
	if pass.Corners != nil {
		quad.corners = *pass.Corners
		quad.modified = true
	}
	i.fireMaterialSetup(passID, local)
	return quad, nil
}
