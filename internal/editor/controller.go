/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
// Package editor implements the pointer-driven drawing layer: it maps device
// input to world coordinates, runs the draw/drag/resize state machine over a
// plan.Store and publishes the serialized plan after every committed change.
//
// A Controller is driven from a single goroutine (the UI event loop).
package editor

import (
	"log/slog"

	"floorplan/internal/log"
	"floorplan/internal/markup"
	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

// ChangeOp classifies a committed mutation.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
	OpCleared ChangeOp = "cleared"
)

// Change describes one committed mutation, for observers such as telemetry.
type Change struct {
	Op    ChangeOp
	ID    string
	Kind  plan.Kind
	Count int // shapes in the plan after the change
}

// Options tunes the controller. Zero fields take the package defaults.
type Options struct {
	MinShapeSize float64
	Hit          plan.HitTester
	Logger       *slog.Logger
}

// Controller owns the shape store and the interaction state.
type Controller struct {
	store  *plan.Store
	view   ViewportSource
	hit    plan.HitTester
	min    float64
	logger *slog.Logger

	tool     plan.Kind
	armed    bool
	locked   bool
	selected string
	state    State
	// before is the target as it was when a drag or resize began.
	before plan.Shape

	markupFns []func(string)
	changeFns []func(Change)
}

// New creates a controller reading the viewport from view.
func New(view ViewportSource, opts Options) *Controller {
	if view == nil {
		view = StaticViewport(vector.DefaultViewport)
	}
	c := &Controller{
		store:  plan.NewStore(),
		view:   view,
		hit:    opts.Hit,
		min:    opts.MinShapeSize,
		logger: opts.Logger,
		state:  Idle{},
	}
	if c.min <= 0 {
		c.min = plan.MinShapeSize
	}
	if c.hit.Padding <= 0 {
		c.hit.Padding = plan.DefaultHitPadding
	}
	if c.hit.HandleSizePx <= 0 {
		c.hit.HandleSizePx = plan.DefaultHandleSizePx
	}
	if c.logger == nil {
		c.logger = log.WithComponent("editor")
	}
	return c
}

// OnMarkupChange registers fn to receive the serialized plan after every
// committed create, update, delete or clear.
func (c *Controller) OnMarkupChange(fn func(markup string)) {
	if fn != nil {
		c.markupFns = append(c.markupFns, fn)
	}
}

// OnChange registers fn to receive a description of every committed mutation.
func (c *Controller) OnChange(fn func(Change)) {
	if fn != nil {
		c.changeFns = append(c.changeFns, fn)
	}
}

// LoadMarkup replaces every shape with the decoded markup. Selection and any
// active interaction are dropped; no change is published.
func (c *Controller) LoadMarkup(m string) {
	shapes := markup.Decode(m)
	c.store.Reset(shapes)
	c.selected = ""
	c.state = Idle{}
	c.logger.Debug("plan loaded", slog.Int("shapes", c.store.Len()))
}

// Markup returns the current plan serialized.
func (c *Controller) Markup() string { return markup.Encode(c.store.All()) }

// Shapes returns the shapes in paint order.
func (c *Controller) Shapes() []plan.Shape { return c.store.All() }

// Shape returns shape id.
func (c *Controller) Shape(id string) (plan.Shape, bool) { return c.store.Get(id) }

// Selection returns the selected shape id.
func (c *Controller) Selection() (string, bool) { return c.selected, c.selected != "" }

func (c *Controller) State() State { return c.state }

// Tool returns the armed kind.
func (c *Controller) Tool() (plan.Kind, bool) { return c.tool, c.armed }

func (c *Controller) Locked() bool { return c.locked }

// Viewport returns the viewport the next event will be mapped with.
func (c *Controller) Viewport() vector.Viewport { return sanitize(c.view.Viewport()) }

// HitTester returns the tolerances in use, for rendering handles.
func (c *Controller) HitTester() plan.HitTester { return c.hit }

// Preview returns the shape being drawn, if any.
func (c *Controller) Preview() (plan.Shape, bool) {
	d, ok := c.state.(Drawing)
	if !ok || d.Live == nil {
		return plan.Shape{}, false
	}
	return plan.Shape{Kind: d.Kind, Geometry: d.Live}, true
}

// ArmTool selects the kind to draw next. Selection is cleared and an active
// interaction is cancelled.
func (c *Controller) ArmTool(k plan.Kind) {
	if !k.Valid() {
		return
	}
	c.Cancel()
	c.tool, c.armed = k, true
	c.selected = ""
}

// DisarmTool returns to select/drag mode.
func (c *Controller) DisarmTool() {
	c.Cancel()
	c.tool, c.armed = plan.Kind{}, false
}

// SetLocked toggles input inertness. Engaging the lock cancels an active
// interaction.
func (c *Controller) SetLocked(locked bool) {
	if locked && !c.locked {
		c.Cancel()
	}
	c.locked = locked
}

// Cancel aborts the active interaction without publishing. A drag or resize
// target gets its original geometry back.
func (c *Controller) Cancel() {
	switch st := c.state.(type) {
	case Dragging:
		c.store.Update(st.TargetID, c.before.Geometry)
	case Resizing:
		c.store.Update(st.TargetID, c.before.Geometry)
	}
	c.state = Idle{}
	c.before = plan.Shape{}
}

func (c *Controller) toWorld(device vector.Pt) vector.Pt {
	return c.Viewport().ToWorld(device)
}

// PointerDown starts an interaction. Only primary presses from Idle count.
func (c *Controller) PointerDown(ev PointerEvent) {
	if c.locked || ev.Button != ButtonPrimary {
		return
	}
	if _, idle := c.state.(Idle); !idle {
		return
	}
	p := c.toWorld(ev.Pos)
	shapes := c.store.All()

	if c.armed {
		if _, hit := c.hit.Pick(shapes, p); hit {
			return
		}
		c.state = c.beginDrawing(p)
		return
	}

	if sel, ok := c.store.Get(c.selected); ok {
		if h, ok := c.hit.HandleAt(sel, p, c.Viewport().Zoom); ok {
			c.before = sel
			c.state = Resizing{TargetID: sel.ID, Handle: h, Anchor: p}
			return
		}
	}

	id, ok := c.hit.Pick(shapes, p)
	if !ok {
		c.selected = ""
		return
	}
	c.selected = id
	s, _ := c.store.Get(id)
	r, _ := s.Rect()
	c.before = s
	c.state = Dragging{TargetID: id, Offset: p.Sub(r.Min())}
}

func (c *Controller) beginDrawing(p vector.Pt) Drawing {
	d := Drawing{Kind: c.tool, Anchor: p}
	if c.tool.IsPath() {
		d.Points = []vector.Pt{p}
		d.Live = plan.PathGeometry{D: vector.PathFromPoints(d.Points).String()}
	} else {
		d.Live = plan.RectGeometry{Rect: vector.Rect{X: p.X, Y: p.Y}}
	}
	return d
}

// PointerMove advances the active interaction. Hosts deliver moves even
// when the pointer has left the drawing surface.
func (c *Controller) PointerMove(ev PointerEvent) {
	if c.locked {
		return
	}
	p := c.toWorld(ev.Pos)
	switch st := c.state.(type) {
	case Drawing:
		if st.Kind.IsPath() {
			if last := st.Points[len(st.Points)-1]; last != p {
				st.Points = append(st.Points, p)
				st.Live = plan.PathGeometry{D: vector.PathFromPoints(st.Points).String()}
			}
		} else {
			st.Live = plan.RectGeometry{Rect: vector.RectFromPoints(st.Anchor, p)}
		}
		c.state = st
	case Dragging:
		if s, ok := c.store.Get(st.TargetID); ok {
			c.store.Update(st.TargetID, plan.Move(s, p.Sub(st.Offset)).Geometry)
		}
	case Resizing:
		if s, ok := c.store.Get(st.TargetID); ok {
			c.store.Update(st.TargetID, plan.Resize(s, st.Handle, p, c.min).Geometry)
		}
		st.Anchor = p
		c.state = st
	}
}

// PointerUp ends the active interaction, committing it when valid.
func (c *Controller) PointerUp(ev PointerEvent) {
	if c.locked {
		return
	}
	switch st := c.state.(type) {
	case Drawing:
		c.PointerMove(ev)
		c.commitDrawing(c.state.(Drawing))
	case Dragging:
		c.PointerMove(ev)
		c.commitEdit(st.TargetID)
	case Resizing:
		c.PointerMove(ev)
		c.commitEdit(st.TargetID)
	}
	c.state = Idle{}
	c.before = plan.Shape{}
}

func (c *Controller) commitDrawing(d Drawing) {
	var s plan.Shape
	switch g := d.Live.(type) {
	case plan.RectGeometry:
		if g.W < c.min || g.H < c.min {
			c.logger.Debug("drawing discarded", slog.String("kind", d.Kind.String()),
				slog.Float64("w", g.W), slog.Float64("h", g.H))
			return
		}
		s = plan.NewRect(d.Kind, g.Rect)
	case plan.PathGeometry:
		if len(d.Points) < 2 {
			c.logger.Debug("drawing discarded", slog.String("kind", d.Kind.String()))
			return
		}
		s = plan.NewWall(g.D)
	default:
		return
	}
	if !c.store.Add(s) {
		return
	}
	c.selected = s.ID
	c.publish(Change{Op: OpCreated, ID: s.ID, Kind: s.Kind})
}

func (c *Controller) commitEdit(id string) {
	s, ok := c.store.Get(id)
	if !ok {
		return
	}
	if s.Geometry == c.before.Geometry {
		return
	}
	c.publish(Change{Op: OpUpdated, ID: id, Kind: s.Kind})
}

// KeyDown handles Delete/Backspace (remove selection) and Escape (cancel).
func (c *Controller) KeyDown(k Key) {
	if c.locked {
		return
	}
	switch k {
	case KeyDelete, KeyBackspace:
		c.DeleteSelected()
	case KeyEscape:
		c.Cancel()
	}
}

// DeleteSelected removes the selected shape. It does nothing while a tool is
// armed, the layer is locked or an interaction is active.
func (c *Controller) DeleteSelected() bool {
	if c.locked || c.armed || c.selected == "" {
		return false
	}
	if _, idle := c.state.(Idle); !idle {
		return false
	}
	s, ok := c.store.Get(c.selected)
	c.selected = ""
	if !ok || !c.store.Remove(s.ID) {
		return false
	}
	c.publish(Change{Op: OpDeleted, ID: s.ID, Kind: s.Kind})
	return true
}

// Clear removes every shape. It is ignored while locked.
func (c *Controller) Clear() bool {
	if c.locked {
		return false
	}
	c.Cancel()
	c.store.Clear()
	c.selected = ""
	c.publish(Change{Op: OpCleared})
	return true
}

func (c *Controller) publish(ch Change) {
	ch.Count = c.store.Len()
	c.logger.Debug("plan changed", slog.String("op", string(ch.Op)),
		slog.String("id", ch.ID), slog.String("kind", ch.Kind.String()), slog.Int("shapes", ch.Count))
	m := markup.Encode(c.store.All())
	for _, fn := range c.markupFns {
		fn(m)
	}
	for _, fn := range c.changeFns {
		fn(ch)
	}
}
