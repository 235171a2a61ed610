// Package compositor compiles and runs post-processing graphs attached to
// viewports.
//
// # Overview
//
// A Compositor is a named resource holding one or more Techniques. Each
// Technique declares intermediate textures and a list of TargetPasses that
// render into them, plus one implicit output TargetPass that renders into
// the viewport. A TargetPass is an ordered list of Passes: clears, stencil
// state changes, scene renders over a range of render queues, full-screen
// quads drawn with a material, or custom passes registered by name.
//
// Compositors are attached to a viewport through its Chain. The chain
// always starts with an implicit instance that renders the untouched scene,
// and each enabled instance after it may consume the result of the one
// before it ("input previous"). When the chain changes it is recompiled
// into a flat list of per-target operation batches plus one batch for the
// viewport itself. Render target and viewport events drive execution.
//
// # Quick Start
//
//	rs := soft.New()
//	mats := material.NewManager()
//	sm := scene.NewManager(rs, mats)
//	mgr := compositor.NewManager(rs,
//		compositor.WithSceneManager(sm),
//		compositor.WithMaterials(mats))
//
//	c, _ := mgr.CreateCompositor("BlackAndWhite")
//	t := c.CreateTechnique()
//	def, _ := t.CreateTextureDefinition("rt0")
//	def.Formats = []render.PixelFormat{gputypes.TextureFormatRGBA8Unorm}
//	tp := t.CreateTargetPass()
//	tp.Output = "rt0"
//	tp.Input = compositor.InputPrevious
//	out := t.OutputTargetPass()
//	quad := compositor.NewRenderQuadOp("Grey")
//	quad.SetInput(0, "rt0", 0)
//	out.CreatePass(quad)
//
//	inst, _ := mgr.AddCompositor(vp, "BlackAndWhite", compositor.LastPosition)
//	inst.SetEnabled(true)
//
// # Texture Scopes
//
// Local textures belong to one instance. Chain textures may be referenced
// by later compositors of the same chain. Global textures are created once
// per Compositor and shared by every instance in every chain.
//
// # Pooling
//
// Pooled textures are shared between instances through the Manager when
// their size, format, FSAA and sRGB settings match. A texture is never
// shared between two instances that are adjacent through "input previous",
// because one would read while the other writes it.
//
// # Logging
//
// The package logs through log/slog. See SetLogger.
package compositor
