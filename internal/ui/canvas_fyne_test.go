//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests drive PlanCanvas with synthetic input. They are gated behind the
// "fyne" build tag so headless CI does not need Fyne:
//
//	go test -tags fyne ./internal/ui
package ui

import (
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"floorplan/internal/editor"
	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

func newTestCanvas(t *testing.T) (*PlanCanvas, *editor.Controller) {
	t.Helper()
	test.NewTempApp(t)
	pc := NewPlanCanvas()
	pc.Resize(fyne.NewSize(400, 300))
	tr := editor.TrackViewport(pc, 0)
	t.Cleanup(tr.Close)
	c := editor.New(tr, editor.Options{MinShapeSize: 10, Hit: plan.DefaultHitTester})
	pc.Attach(c)
	return pc, c
}

func mouse(x, y float32, b desktop.MouseButton) *desktop.MouseEvent {
	return &desktop.MouseEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Button: b}
}

func drag(x, y, dx, dy float32) *fyne.DragEvent {
	return &fyne.DragEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(x, y)}, Dragged: fyne.Delta{DX: dx, DY: dy}}
}

func TestPlanCanvas_PushesViewport(t *testing.T) {
	pc, _ := newTestCanvas(t)
	var got []vector.Viewport
	cancel := pc.SubscribeViewport(func(v vector.Viewport) { got = append(got, v) })
	pc.SetViewport(vector.Viewport{PanX: 5, Zoom: 2})
	pc.SetViewport(vector.Viewport{Zoom: 100}) // out of range, ignored
	cancel()
	pc.SetViewport(vector.Viewport{Zoom: 1})
	if len(got) != 1 || got[0].PanX != 5 || got[0].Zoom != 2 {
		t.Fatalf("notifications = %+v", got)
	}
}

func TestPlanCanvas_DrawsRoomInWorldSpace(t *testing.T) {
	pc, c := newTestCanvas(t)
	c.ArmTool(plan.RoomKind("kitchen"))

	// Default view pans by (40,40) at zoom 1.
	pc.MouseDown(mouse(50, 50, desktop.MouseButtonPrimary))
	pc.Dragged(drag(150, 100, 100, 50))
	if _, ok := c.Preview(); !ok {
		t.Fatal("expected a live preview while dragging")
	}
	pc.MouseUp(mouse(150, 100, desktop.MouseButtonPrimary))

	shapes := c.Shapes()
	if len(shapes) != 1 {
		t.Fatalf("want 1 shape, got %d", len(shapes))
	}
	r, _ := shapes[0].Rect()
	if r != vector.R(10, 10, 100, 50) {
		t.Fatalf("world rect = %+v", r)
	}

	rd := pc.CreateRenderer().(*planCanvasRenderer)
	rd.Layout(pc.Size())
	var found bool
	for _, o := range rd.Objects()[1:] {
		if rect, ok := o.(*canvas.Rectangle); ok && rect.Position() == fyne.NewPos(50, 50) && rect.Size() == fyne.NewSize(100, 50) {
			found = true
		}
	}
	if !found {
		t.Fatalf("no device rectangle for the room among %d objects", len(rd.Objects()))
	}
}

func TestPlanCanvas_DragEndCompletesReleaseOutside(t *testing.T) {
	pc, c := newTestCanvas(t)
	var published int
	c.OnMarkupChange(func(string) { published++ })
	c.ArmTool(plan.RoomKind("kitchen"))

	pc.MouseDown(mouse(50, 50, desktop.MouseButtonPrimary))
	pc.Dragged(drag(150, 100, 100, 50))
	pc.DragEnd()

	if _, ok := c.State().(editor.Idle); !ok {
		t.Fatalf("state after DragEnd = %s", c.State().Name())
	}
	shapes := c.Shapes()
	if len(shapes) != 1 || published != 1 {
		t.Fatalf("shapes=%d published=%d", len(shapes), published)
	}
	if r, _ := shapes[0].Rect(); r != vector.R(10, 10, 100, 50) {
		t.Fatalf("world rect = %+v", r)
	}

	// A late MouseUp for the same release must not commit twice.
	pc.MouseUp(mouse(150, 100, desktop.MouseButtonPrimary))
	if published != 1 {
		t.Fatalf("published = %d after late MouseUp", published)
	}

	// The next gesture still works.
	c.DisarmTool()
	pc.MouseDown(mouse(100, 70, desktop.MouseButtonPrimary))
	pc.Dragged(drag(120, 80, 20, 10))
	pc.DragEnd()
	r, _ := c.Shapes()[0].Rect()
	if r.X != 30 || r.Y != 20 || published != 2 {
		t.Fatalf("drag after release outside: rect=%+v published=%d", r, published)
	}
}

func TestPlanCanvas_SecondaryDragPans(t *testing.T) {
	pc, c := newTestCanvas(t)
	pc.MouseDown(mouse(10, 10, desktop.MouseButtonSecondary))
	pc.Dragged(drag(30, 25, 20, 15))
	pc.MouseUp(mouse(30, 25, desktop.MouseButtonSecondary))
	v := pc.Viewport()
	if v.PanX != 60 || v.PanY != 55 {
		t.Fatalf("viewport = %+v", v)
	}
	if c.Viewport() != v {
		t.Fatalf("controller did not follow the canvas: %+v", c.Viewport())
	}
	if len(c.Shapes()) != 0 {
		t.Fatal("panning must not edit the plan")
	}
}

func TestPlanCanvas_ScrollZoomsAroundPointer(t *testing.T) {
	pc, _ := newTestCanvas(t)
	anchor := vector.P(200, 150)
	before := pc.Viewport().ToWorld(anchor)
	pc.Scrolled(&fyne.ScrollEvent{PointEvent: fyne.PointEvent{Position: fyne.NewPos(200, 150)}, Scrolled: fyne.Delta{DX: 0, DY: 1}})
	v := pc.Viewport()
	if v.Zoom <= 1 {
		t.Fatalf("zoom = %v", v.Zoom)
	}
	after := v.ToWorld(anchor)
	if d := after.Sub(before); d.X*d.X+d.Y*d.Y > 1e-9 {
		t.Fatalf("anchor moved: %+v -> %+v", before, after)
	}
}

func TestPlanCanvas_KeysDeleteAndPan(t *testing.T) {
	pc, c := newTestCanvas(t)
	c.ArmTool(plan.FurnitureKind("bed"))
	pc.MouseDown(mouse(50, 50, desktop.MouseButtonPrimary))
	pc.Dragged(drag(90, 110, 40, 60))
	pc.MouseUp(mouse(90, 110, desktop.MouseButtonPrimary))
	if _, ok := c.Selection(); !ok {
		t.Fatal("new shape should be selected")
	}
	pc.TypedKey(&fyne.KeyEvent{Name: fyne.KeyDelete})
	if len(c.Shapes()) != 0 {
		t.Fatal("delete key did not remove the shape")
	}
	pc.TypedKey(&fyne.KeyEvent{Name: fyne.KeyLeft})
	if pc.Viewport().PanX != 40+panStep {
		t.Fatalf("arrow pan: %+v", pc.Viewport())
	}
}
