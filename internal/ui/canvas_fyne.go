//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"floorplan/internal/editor"
	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

const (
	zoomStep = 1.1
	panStep  = 40.0
	minZoom  = 0.05
	maxZoom  = 20.0
)

var (
	backdrop    = color.NRGBA{R: 0xf4, G: 0xf4, B: 0xf2, A: 0xff}
	selectInk   = color.NRGBA{R: 0x00, G: 0xaa, B: 0xff, A: 0xff}
	previewTint = uint8(0x99)
)

// PlanCanvas hosts an editor.Controller. It owns the pan/zoom viewport and
// pushes every change to subscribers, so controllers never need to poll it.
// All methods except Viewport and SubscribeViewport run on the UI thread.
type PlanCanvas struct {
	widget.BaseWidget

	mu     sync.RWMutex
	view   vector.Viewport
	subs   map[int]func(vector.Viewport)
	nextID int

	ctrl    *editor.Controller
	panning bool
	// lastDrag is the most recent drag position; a release outside the
	// widget only delivers DragEnd, which completes the gesture there.
	lastDrag fyne.Position

	// OnInteract runs after any input the controller consumed.
	OnInteract func()
}

var (
	_ editor.ViewportSource   = (*PlanCanvas)(nil)
	_ editor.ViewportNotifier = (*PlanCanvas)(nil)
	_ desktop.Mouseable       = (*PlanCanvas)(nil)
	_ fyne.Draggable          = (*PlanCanvas)(nil)
	_ fyne.Scrollable         = (*PlanCanvas)(nil)
	_ fyne.Focusable          = (*PlanCanvas)(nil)
)

func NewPlanCanvas() *PlanCanvas {
	pc := &PlanCanvas{view: vector.Viewport{PanX: 40, PanY: 40, Zoom: 1}, subs: map[int]func(vector.Viewport){}}
	pc.ExtendBaseWidget(pc)
	return pc
}

// Attach binds the controller the canvas feeds and renders.
func (p *PlanCanvas) Attach(c *editor.Controller) {
	p.ctrl = c
	p.Refresh()
}

func (p *PlanCanvas) Viewport() vector.Viewport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.view
}

func (p *PlanCanvas) SubscribeViewport(fn func(vector.Viewport)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// SetViewport replaces the view and notifies subscribers. Zoom outside
// [minZoom, maxZoom] is ignored.
func (p *PlanCanvas) SetViewport(v vector.Viewport) {
	if !v.Valid() {
		return
	}
	if v.Zoom < minZoom || v.Zoom > maxZoom {
		return
	}
	p.mu.Lock()
	p.view = v
	subs := make([]func(vector.Viewport), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
	p.Refresh()
}

// FitToPlan centres the plan in the widget.
func (p *PlanCanvas) FitToPlan() {
	if p.ctrl == nil {
		return
	}
	shapes := p.ctrl.Shapes()
	if len(shapes) == 0 {
		return
	}
	b := shapes[0].Bounds()
	for _, s := range shapes[1:] {
		b = b.Union(s.Bounds())
	}
	size := p.Size()
	if size.Width <= 0 || size.Height <= 0 || b.Empty() {
		return
	}
	const pad = 20.0
	z := min((float64(size.Width)-2*pad)/b.W, (float64(size.Height)-2*pad)/b.H)
	z = max(min(z, maxZoom), minZoom)
	p.SetViewport(vector.Viewport{
		PanX: (float64(size.Width)-b.W*z)/2 - b.X*z,
		PanY: (float64(size.Height)-b.H*z)/2 - b.Y*z,
		Zoom: z,
	})
}

func toPt(pos fyne.Position) vector.Pt { return vector.Pt{X: float64(pos.X), Y: float64(pos.Y)} }

func toPos(pt vector.Pt) fyne.Position { return fyne.NewPos(float32(pt.X), float32(pt.Y)) }

func button(b desktop.MouseButton) editor.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return editor.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return editor.ButtonTertiary
	default:
		return editor.ButtonPrimary
	}
}

func (p *PlanCanvas) interacted() {
	p.Refresh()
	if p.OnInteract != nil {
		p.OnInteract()
	}
}

func (p *PlanCanvas) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp(); c != nil {
		if cv := c.Driver().CanvasForObject(p); cv != nil {
			cv.Focus(p)
		}
	}
	b := button(e.Button)
	if b != editor.ButtonPrimary {
		p.panning = true
		return
	}
	if p.ctrl == nil {
		return
	}
	p.lastDrag = e.Position
	p.ctrl.PointerDown(editor.PointerEvent{Pos: toPt(e.Position), Button: b})
	p.interacted()
}

func (p *PlanCanvas) MouseUp(e *desktop.MouseEvent) {
	if p.panning {
		p.panning = false
		return
	}
	if p.ctrl == nil || p.idle() {
		return
	}
	p.ctrl.PointerUp(editor.PointerEvent{Pos: toPt(e.Position), Button: button(e.Button)})
	p.interacted()
}

func (p *PlanCanvas) Dragged(e *fyne.DragEvent) {
	if p.panning {
		p.SetViewport(p.Viewport().Panned(float64(e.Dragged.DX), float64(e.Dragged.DY)))
		return
	}
	if p.ctrl == nil {
		return
	}
	p.lastDrag = e.Position
	p.ctrl.PointerMove(editor.PointerEvent{Pos: toPt(e.Position)})
	p.interacted()
}

// DragEnd completes a gesture released anywhere, including over other
// widgets or outside the window where MouseUp never arrives.
func (p *PlanCanvas) DragEnd() {
	if p.panning {
		p.panning = false
		return
	}
	if p.ctrl == nil || p.idle() {
		return
	}
	p.ctrl.PointerUp(editor.PointerEvent{Pos: toPt(p.lastDrag), Button: editor.ButtonPrimary})
	p.interacted()
}

func (p *PlanCanvas) idle() bool {
	_, ok := p.ctrl.State().(editor.Idle)
	return ok
}

func (p *PlanCanvas) Scrolled(e *fyne.ScrollEvent) {
	f := zoomStep
	if e.Scrolled.DY < 0 {
		f = 1 / zoomStep
	}
	p.SetViewport(p.Viewport().ZoomAt(toPt(e.Position), f))
}

func (p *PlanCanvas) FocusGained() {}
func (p *PlanCanvas) FocusLost()   {}

func (p *PlanCanvas) TypedRune(r rune) {
	centre := toPt(fyne.NewPos(p.Size().Width/2, p.Size().Height/2))
	switch r {
	case '+', '=':
		p.SetViewport(p.Viewport().ZoomAt(centre, zoomStep))
	case '-':
		p.SetViewport(p.Viewport().ZoomAt(centre, 1/zoomStep))
	}
}

func (p *PlanCanvas) TypedKey(e *fyne.KeyEvent) {
	v := p.Viewport()
	switch e.Name {
	case fyne.KeyLeft:
		p.SetViewport(v.Panned(panStep, 0))
	case fyne.KeyRight:
		p.SetViewport(v.Panned(-panStep, 0))
	case fyne.KeyUp:
		p.SetViewport(v.Panned(0, panStep))
	case fyne.KeyDown:
		p.SetViewport(v.Panned(0, -panStep))
	case fyne.KeyDelete, fyne.KeyBackspace, fyne.KeyEscape:
		if p.ctrl == nil {
			return
		}
		p.ctrl.KeyDown(editorKey(e.Name))
		p.interacted()
	}
}

func editorKey(k fyne.KeyName) editor.Key {
	switch k {
	case fyne.KeyDelete:
		return editor.KeyDelete
	case fyne.KeyBackspace:
		return editor.KeyBackspace
	case fyne.KeyEscape:
		return editor.KeyEscape
	default:
		return editor.KeyOther
	}
}

func (p *PlanCanvas) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

func (p *PlanCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(backdrop)
	r := &planCanvasRenderer{pc: p, bg: bg}
	r.rebuild(p.Size())
	return r
}

// planCanvasRenderer rebuilds its objects from the controller on each
// refresh; a plan holds few enough shapes for that to stay cheap.
type planCanvasRenderer struct {
	pc      *PlanCanvas
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *planCanvasRenderer) Destroy()                     {}
func (r *planCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *planCanvasRenderer) MinSize() fyne.Size           { return r.pc.MinSize() }
func (r *planCanvasRenderer) Layout(size fyne.Size)        { r.rebuild(size) }
func (r *planCanvasRenderer) Refresh() {
	r.rebuild(r.pc.Size())
	canvas.Refresh(r.pc)
}

func (r *planCanvasRenderer) rebuild(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	objs := []fyne.CanvasObject{r.bg}
	c := r.pc.ctrl
	if c == nil {
		r.objects = objs
		return
	}
	v := c.Viewport()
	for _, s := range c.Shapes() {
		objs = append(objs, shapeObjects(s, v, 0xff)...)
	}
	if s, ok := c.Preview(); ok {
		objs = append(objs, shapeObjects(s, v, previewTint)...)
	}
	if id, ok := c.Selection(); ok {
		if s, ok := c.Shape(id); ok {
			objs = append(objs, selectionObjects(s, v, c.HitTester())...)
		}
	}
	r.objects = objs
}

func nrgba(c vector.Color, alpha uint8) color.NRGBA {
	n := c.NRGBA()
	n.A = uint8(uint16(n.A) * uint16(alpha) / 0xff)
	return n
}

func deviceRect(r vector.Rect, v vector.Viewport) (fyne.Position, fyne.Size) {
	a := v.ToDevice(r.Min())
	b := v.ToDevice(r.Max())
	return toPos(a), fyne.NewSize(float32(b.X-a.X), float32(b.Y-a.Y))
}

// shapeObjects draws one shape in device space. Rect kinds map to a single
// rectangle and walls to one line per segment.
func shapeObjects(s plan.Shape, v vector.Viewport, alpha uint8) []fyne.CanvasObject {
	st := s.Kind.Style()
	switch g := s.Geometry.(type) {
	case plan.RectGeometry:
		rect := canvas.NewRectangle(color.Transparent)
		if st.Fill.Enabled {
			rect.FillColor = nrgba(st.Fill.Color, alpha)
		}
		if st.Stroke.Enabled {
			rect.StrokeColor = nrgba(st.Stroke.Color, alpha)
			rect.StrokeWidth = float32(st.Stroke.Width)
		}
		pos, size := deviceRect(g.Rect, v)
		rect.Move(pos)
		rect.Resize(size)
		return []fyne.CanvasObject{rect}
	case plan.PathGeometry:
		p, err := vector.ParsePathData(g.D)
		if err != nil || !st.Stroke.Enabled {
			return nil
		}
		var out []fyne.CanvasObject
		w := float32(max(st.Stroke.Width*v.Zoom, 1))
		for _, run := range p.Subpaths() {
			for i := 1; i < len(run); i++ {
				ln := canvas.NewLine(nrgba(st.Stroke.Color, alpha))
				ln.StrokeWidth = w
				ln.Position1 = toPos(v.ToDevice(run[i-1]))
				ln.Position2 = toPos(v.ToDevice(run[i]))
				out = append(out, ln)
			}
		}
		return out
	}
	return nil
}

func selectionObjects(s plan.Shape, v vector.Viewport, h plan.HitTester) []fyne.CanvasObject {
	b := s.Bounds()
	box := canvas.NewRectangle(color.Transparent)
	box.StrokeColor = selectInk
	box.StrokeWidth = 1
	pos, size := deviceRect(b, v)
	box.Move(pos)
	box.Resize(size)
	out := []fyne.CanvasObject{box}
	if _, ok := s.Rect(); !ok {
		return out
	}
	for _, hr := range h.HandleRects(b, v.Zoom) {
		grip := canvas.NewRectangle(selectInk)
		pos, size := deviceRect(hr, v)
		grip.Move(pos)
		grip.Resize(size)
		out = append(out, grip)
	}
	return out
}
