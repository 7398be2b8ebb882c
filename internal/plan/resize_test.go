/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package plan

import (
	"testing"

	"floorplan/internal/vector"
)

func TestResizeRectCorners(t *testing.T) {
	base := vector.R(0, 0, 100, 100)
	cases := []struct {
		name string
		h    Handle
		p    vector.Pt
		want vector.Rect
	}{
		{"se shrink", HandleSE, vector.Pt{X: 40, Y: 40}, vector.R(0, 0, 40, 40)},
		{"nw clamp", HandleNW, vector.Pt{X: 95, Y: 95}, vector.R(90, 90, 10, 10)},
		{"nw grow", HandleNW, vector.Pt{X: -10, Y: -20}, vector.R(-10, -20, 110, 120)},
		{"ne", HandleNE, vector.Pt{X: 150, Y: 20}, vector.R(0, 20, 150, 80)},
		{"sw", HandleSW, vector.Pt{X: 30, Y: 130}, vector.R(30, 0, 70, 130)},
		{"se past origin", HandleSE, vector.Pt{X: -50, Y: -50}, vector.R(0, 0, 10, 10)},
		{"ne clamp keeps bottom", HandleNE, vector.Pt{X: 5, Y: 200}, vector.R(0, 90, 10, 10)},
	}
	for _, c := range cases {
		if got := ResizeRect(base, c.h, c.p, MinShapeSize); got != c.want {
			t.Fatalf("%s: ResizeRect = %+v, want %+v", c.name, got, c.want)
		}
	}
}

func TestResizeRectEdgesChangeOneDimension(t *testing.T) {
	base := vector.R(10, 10, 100, 50)
	cases := []struct {
		h    Handle
		p    vector.Pt
		want vector.Rect
	}{
		{HandleE, vector.Pt{X: 60, Y: 999}, vector.R(10, 10, 50, 50)},
		{HandleW, vector.Pt{X: 30, Y: -999}, vector.R(30, 10, 80, 50)},
		{HandleN, vector.Pt{X: 999, Y: 0}, vector.R(10, 0, 100, 60)},
		{HandleS, vector.Pt{X: -999, Y: 100}, vector.R(10, 10, 100, 90)},
		{HandleW, vector.Pt{X: 500, Y: 0}, vector.R(100, 10, 10, 50)},
		{HandleN, vector.Pt{X: 0, Y: 500}, vector.R(10, 50, 100, 10)},
	}
	for _, c := range cases {
		if got := ResizeRect(base, c.h, c.p, MinShapeSize); got != c.want {
			t.Fatalf("%v: ResizeRect = %+v, want %+v", c.h, got, c.want)
		}
	}
}

func TestResizeRectNeverBelowFloor(t *testing.T) {
	base := vector.R(0, 0, 100, 100)
	for _, h := range Handles {
		for _, p := range []vector.Pt{{X: -1000, Y: -1000}, {X: 1000, Y: 1000}, {X: 50, Y: 50}, {X: 1000, Y: -1000}} {
			r := ResizeRect(base, h, p, MinShapeSize)
			if r.W < MinShapeSize || r.H < MinShapeSize {
				t.Fatalf("%v to %+v produced %+v", h, p, r)
			}
		}
	}
}

func TestResizeAndMoveShapes(t *testing.T) {
	s := rectShape("r", 0, 0, 100, 100)
	got := Resize(s, HandleSE, vector.Pt{X: 40, Y: 40}, MinShapeSize)
	if r, _ := got.Rect(); r != vector.R(0, 0, 40, 40) || got.ID != "r" || got.Kind != s.Kind {
		t.Fatalf("Resize = %+v", got)
	}
	moved := Move(s, vector.Pt{X: 15, Y: -5})
	if r, _ := moved.Rect(); r != vector.R(15, -5, 100, 100) {
		t.Fatalf("Move = %+v", r)
	}
	w := Shape{ID: "w", Kind: WallKind, Geometry: PathGeometry{D: "M 0 0 L 1 1"}}
	if Resize(w, HandleSE, vector.Pt{}, MinShapeSize) != w || Move(w, vector.Pt{X: 5}) != w {
		t.Fatalf("walls must be left untouched")
	}
}
