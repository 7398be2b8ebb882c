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

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k.String(), err)
		}
		if got != k {
			t.Fatalf("ParseKind(%q) = %+v, want %+v", k.String(), got, k)
		}
	}
	if n := len(AllKinds()); n != 14 {
		t.Fatalf("expected 14 kinds, got %d", n)
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	for _, s := range []string{"", "room", "room_", "room_garage", "furniture_lamp", "wall_brick", "stairs"} {
		if _, err := ParseKind(s); err == nil {
			t.Fatalf("ParseKind(%q) should fail", s)
		}
	}
}

func TestKindStyleAndLabel(t *testing.T) {
	if got := RoomKind("kitchen").Style().Fill.Color.Hex(); got != "#FFE082" {
		t.Fatalf("kitchen fill = %s", got)
	}
	if st := WallKind.Style(); st.Fill.Enabled || st.Stroke.Width != 2 || st.Stroke.Color.Hex() != "#666666" {
		t.Fatalf("unexpected wall style: %+v", st)
	}
	if l := RoomKind("bedroom2").Label(); l != "Bedroom" {
		t.Fatalf("label = %q", l)
	}
	if l := DoorKind.Label(); l != "Door" {
		t.Fatalf("label = %q", l)
	}
}

func TestMatchesGeometryVariant(t *testing.T) {
	if !Matches(WallKind, PathGeometry{D: "M 0 0 L 1 1"}) || Matches(WallKind, RectGeometry{}) {
		t.Fatalf("walls must carry path geometry only")
	}
	if !Matches(DoorKind, RectGeometry{}) || Matches(DoorKind, PathGeometry{}) {
		t.Fatalf("doors must carry rect geometry only")
	}
	if Matches(DoorKind, nil) {
		t.Fatalf("nil geometry should never match")
	}
}

func TestPathGeometryBounds(t *testing.T) {
	b := PathGeometry{D: "M 10 10 L 30 10 L 30 40"}.Bounds()
	if b != vector.R(10, 10, 20, 30) {
		t.Fatalf("unexpected bounds %+v", b)
	}
	if b := (PathGeometry{D: "garbage"}).Bounds(); b != (vector.Rect{}) {
		t.Fatalf("malformed path should have empty bounds, got %+v", b)
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty id %q", id)
		}
		seen[id] = true
	}
}
