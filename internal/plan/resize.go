/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package plan

import "floorplan/internal/vector"

// MinShapeSize is the smallest committed rectangle side, in world units.
const MinShapeSize = 10.0

// ResizeRect moves handle h of r to p. The opposite corner or edge stays
// fixed; edge handles change only the perpendicular dimension. Each side is
// clamped to minSize afterwards, keeping the east edge fixed for west-facing
// handles and the south edge fixed for north-facing ones. Dragging past the
// fixed edge does not flip the rectangle.
func ResizeRect(r vector.Rect, h Handle, p vector.Pt, minSize float64) vector.Rect {
	left, top := r.X, r.Y
	right, bottom := r.X+r.W, r.Y+r.H

	switch {
	case h.west():
		left = p.X
	case h.east():
		right = p.X
	}
	switch {
	case h.north():
		top = p.Y
	case h.south():
		bottom = p.Y
	}

	out := vector.Rect{X: left, Y: top, W: right - left, H: bottom - top}
	if out.W < minSize {
		out.W = minSize
		if h.west() {
			out.X = right - minSize
		}
	}
	if out.H < minSize {
		out.H = minSize
		if h.north() {
			out.Y = bottom - minSize
		}
	}
	return out
}

// Resize applies ResizeRect to a rectangle-backed shape. Walls and
// HandleNone are returned unchanged.
func Resize(s Shape, h Handle, p vector.Pt, minSize float64) Shape {
	r, ok := s.Rect()
	if !ok || h == HandleNone {
		return s
	}
	return s.WithRect(ResizeRect(r, h, p, minSize))
}

// Move returns s with its rectangle origin at origin; size is unchanged.
func Move(s Shape, origin vector.Pt) Shape {
	r, ok := s.Rect()
	if !ok {
		return s
	}
	r.X, r.Y = origin.X, origin.Y
	return s.WithRect(r)
}
