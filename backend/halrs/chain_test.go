// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package halrs

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/material"
	"github.com/gogpu/compositor/render"
	"github.com/gogpu/compositor/scene"
)

func TestChainOnHAL(t *testing.T) {
	hook := &recordingHook{}
	s := newSystem(t, WithDrawHook(hook))
	win, err := s.NewWindow("win", 8, 8)
	if err != nil {
		t.Fatal(err)
	}

	mats := material.NewManager()
	copyMat, err := mats.Create("Copy")
	if err != nil {
		t.Fatal(err)
	}
	p := copyMat.CreateTechnique().CreatePass()
	p.Name = "copy"
	p.AddTextureUnit("src")

	sm := scene.NewManager(s, mats)
	if err := sm.AddObject(&scene.Object{Name: "world", Queue: render.QueueMain, Flags: 1, Bounds: render.FullScreen, Colour: render.ColourWhite}); err != nil {
		t.Fatal(err)
	}
	vp := win.AddViewport(sm.CreateCamera("main"))

	mgr := compositor.NewManager(s, compositor.WithSceneManager(sm), compositor.WithMaterials(mats))
	defer mgr.Close()

	c, err := mgr.CreateCompositor("Copy")
	if err != nil {
		t.Fatal(err)
	}
	tech := c.CreateTechnique()
	def, err := tech.CreateTextureDefinition("rt")
	if err != nil {
		t.Fatal(err)
	}
	def.Formats = []render.PixelFormat{gputypes.TextureFormatRGBA16Float}
	tp := tech.CreateTargetPass()
	tp.Output = "rt"
	tp.Input = compositor.InputPrevious
	q := compositor.NewRenderQuadOp("Copy")
	if err := q.SetInput(0, "rt", 0); err != nil {
		t.Fatal(err)
	}
	tech.OutputTargetPass().CreatePass(q)

	inst, err := mgr.AddCompositor(vp, "Copy", compositor.LastPosition)
	if err != nil {
		t.Fatal(err)
	}
	if err := inst.SetEnabled(true); err != nil {
		t.Fatal(err)
	}
	if err := win.Update(); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	rt, ok := inst.TextureInstance("rt", 0).(*Texture)
	if !ok || rt.View() == nil {
		t.Fatal("intermediate texture should be a live HAL texture")
	}
	if len(hook.renderables) != 1 || hook.renderables[0] != "world" {
		t.Errorf("renderables = %v, want the scene drawn once into rt", hook.renderables)
	}
	if len(hook.quads) != 1 || hook.quads[0].Inputs[0] != rt {
		t.Fatalf("quads = %v, want one quad sampling rt", hook.quads)
	}
	if hook.passes[0].Target != rt.Name() || hook.passes[1].Target != "win" {
		t.Errorf("pass targets = %s, %s", hook.passes[0].Target, hook.passes[1].Target)
	}
	if got := s.Stats().Clears; got != 1 {
		t.Errorf("Clears = %d, want only the clear of rt", got)
	}
}
