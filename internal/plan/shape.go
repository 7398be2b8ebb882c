/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package plan

import (
	"github.com/google/uuid"

	"floorplan/internal/vector"
)

// Geometry is either RectGeometry or PathGeometry.
type Geometry interface {
	// Bounds returns the world-space bounding box.
	Bounds() vector.Rect
	isGeometry()
}

// RectGeometry is an axis-aligned rectangle in world units.
type RectGeometry struct{ vector.Rect }

// PathGeometry is SVG path data in world units, kept verbatim.
type PathGeometry struct{ D string }

func (g RectGeometry) Bounds() vector.Rect { return g.Rect }

// Bounds parses D on demand; malformed data has empty bounds.
func (g PathGeometry) Bounds() vector.Rect {
	p, err := vector.ParsePathData(g.D)
	if err != nil {
		return vector.Rect{}
	}
	return p.Bounds()
}

func (RectGeometry) isGeometry() {}
func (PathGeometry) isGeometry() {}

// Shape is one drawn element. ID and Kind never change after creation.
type Shape struct {
	ID       string
	Kind     Kind
	Geometry Geometry
}

// NewID returns a fresh shape identifier.
func NewID() string { return uuid.NewString() }

// NewRect creates a rectangle-backed shape with a fresh id.
func NewRect(kind Kind, r vector.Rect) Shape {
	return Shape{ID: NewID(), Kind: kind, Geometry: RectGeometry{r}}
}

// NewWall creates a wall with a fresh id from path data.
func NewWall(d string) Shape {
	return Shape{ID: NewID(), Kind: WallKind, Geometry: PathGeometry{D: d}}
}

// Rect returns the rectangle of a rect-backed shape.
func (s Shape) Rect() (vector.Rect, bool) {
	g, ok := s.Geometry.(RectGeometry)
	return g.Rect, ok
}

// PathData returns the path data of a wall.
func (s Shape) PathData() (string, bool) {
	g, ok := s.Geometry.(PathGeometry)
	return g.D, ok
}

// Bounds returns the bounding box of the shape's geometry.
func (s Shape) Bounds() vector.Rect {
	if s.Geometry == nil {
		return vector.Rect{}
	}
	return s.Geometry.Bounds()
}

// WithRect returns a copy of s with its rectangle replaced.
func (s Shape) WithRect(r vector.Rect) Shape {
	s.Geometry = RectGeometry{r}
	return s
}

// Matches reports whether geometry g is the variant required by kind k.
func Matches(k Kind, g Geometry) bool {
	switch g.(type) {
	case RectGeometry:
		return !k.IsPath()
	case PathGeometry:
		return k.IsPath()
	default:
		return false
	}
}
