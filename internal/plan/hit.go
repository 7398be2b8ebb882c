/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package plan

import "floorplan/internal/vector"

// Handle names one of the eight resize grips of a rectangle.
type Handle uint8

const (
	HandleNone Handle = iota
	HandleNW
	HandleN
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
)

// Handles lists the grips in hit-test order.
var Handles = []Handle{HandleNW, HandleN, HandleNE, HandleE, HandleSE, HandleS, HandleSW, HandleW}

func (h Handle) String() string {
	switch h {
	case HandleNW:
		return "nw"
	case HandleN:
		return "n"
	case HandleNE:
		return "ne"
	case HandleE:
		return "e"
	case HandleSE:
		return "se"
	case HandleS:
		return "s"
	case HandleSW:
		return "sw"
	case HandleW:
		return "w"
	default:
		return "none"
	}
}

// Anchor returns the world position of handle h on r.
func (h Handle) Anchor(r vector.Rect) vector.Pt {
	cx, cy := r.X+r.W/2, r.Y+r.H/2
	x2, y2 := r.X+r.W, r.Y+r.H
	switch h {
	case HandleNW:
		return vector.Pt{X: r.X, Y: r.Y}
	case HandleN:
		return vector.Pt{X: cx, Y: r.Y}
	case HandleNE:
		return vector.Pt{X: x2, Y: r.Y}
	case HandleE:
		return vector.Pt{X: x2, Y: cy}
	case HandleSE:
		return vector.Pt{X: x2, Y: y2}
	case HandleS:
		return vector.Pt{X: cx, Y: y2}
	case HandleSW:
		return vector.Pt{X: r.X, Y: y2}
	case HandleW:
		return vector.Pt{X: r.X, Y: cy}
	default:
		return r.Center()
	}
}

func (h Handle) west() bool  { return h == HandleNW || h == HandleW || h == HandleSW }
func (h Handle) east() bool  { return h == HandleNE || h == HandleE || h == HandleSE }
func (h Handle) north() bool { return h == HandleNW || h == HandleN || h == HandleNE }
func (h Handle) south() bool { return h == HandleSW || h == HandleS || h == HandleSE }

// Default hit-test tolerances.
const (
	DefaultHitPadding   = 2.0
	DefaultHandleSizePx = 8.0
)

// HitTester resolves world points to shapes and resize handles.
type HitTester struct {
	// Padding grows every rectangle on all sides, in world units.
	Padding float64
	// HandleSizePx is the on-screen side length of a handle square; the world
	// size is HandleSizePx/zoom so grips stay the same size at any zoom.
	HandleSizePx float64
}

// DefaultHitTester uses 2 world units of padding and 8px handles.
var DefaultHitTester = HitTester{Padding: DefaultHitPadding, HandleSizePx: DefaultHandleSizePx}

// Pick returns the topmost rectangle-backed shape containing p. Walls are
// never picked.
func (h HitTester) Pick(shapes []Shape, p vector.Pt) (string, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		r, ok := shapes[i].Rect()
		if !ok {
			continue
		}
		if r.Inset(-h.Padding, -h.Padding).Contains(p) {
			return shapes[i].ID, true
		}
	}
	return "", false
}

// HandleAt returns the handle of s under p at the given zoom. Only
// rectangle-backed shapes have handles.
func (h HitTester) HandleAt(s Shape, p vector.Pt, zoom float64) (Handle, bool) {
	r, ok := s.Rect()
	if !ok || zoom <= 0 {
		return HandleNone, false
	}
	half := h.HandleSizePx / zoom / 2
	for _, hd := range Handles {
		a := hd.Anchor(r)
		if vector.R(a.X-half, a.Y-half, 2*half, 2*half).Contains(p) {
			return hd, true
		}
	}
	return HandleNone, false
}

// HandleRects returns the world-space square of every handle of r at zoom,
// in Handles order, for rendering.
func (h HitTester) HandleRects(r vector.Rect, zoom float64) []vector.Rect {
	if zoom <= 0 {
		zoom = 1
	}
	side := h.HandleSizePx / zoom
	out := make([]vector.Rect, 0, len(Handles))
	for _, hd := range Handles {
		a := hd.Anchor(r)
		out = append(out, vector.R(a.X-side/2, a.Y-side/2, side, side))
	}
	return out
}
