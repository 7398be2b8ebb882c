/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package markup

import (
	"errors"
	"strings"
	"testing"

	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

func sample() []plan.Shape {
	return []plan.Shape{
		{ID: "r1", Kind: plan.RoomKind("kitchen"), Geometry: plan.RectGeometry{Rect: vector.R(10, 10, 100, 50)}},
		{ID: "w1", Kind: plan.WallKind, Geometry: plan.PathGeometry{D: "M 0 0 L 10.5 0 L 10.5 33.33"}},
		{ID: "d1", Kind: plan.DoorKind, Geometry: plan.RectGeometry{Rect: vector.R(-3.125, 0.1, 12, 40.000001)}},
		{ID: "f1", Kind: plan.FurnitureKind("sofa"), Geometry: plan.RectGeometry{Rect: vector.R(1.0 / 3, 2.0 / 3, 10, 10)}},
		{ID: "win", Kind: plan.WindowKind, Geometry: plan.RectGeometry{Rect: vector.R(0, 0, 10, 10)}},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sample()
	out := Decode(Encode(in))
	if len(out) != len(in) {
		t.Fatalf("decoded %d shapes, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("shape %d: got %+v, want %+v", i, out[i], in[i])
		}
	}
}

func TestEncodeFormat(t *testing.T) {
	got := Encode(sample()[:2])
	want := `<svg xmlns="http://www.w3.org/2000/svg">` +
		`<rect data-kind="room_kitchen" data-id="r1" x="10" y="10" width="100" height="50" fill="#FFE082" stroke="#424242" stroke-width="1" />` +
		`<path data-kind="wall" data-id="w1" d="M 0 0 L 10.5 0 L 10.5 33.33" fill="none" stroke="#666666" stroke-width="2" />` +
		`</svg>`
	if got != want {
		t.Fatalf("Encode mismatch:\n got: %s\nwant: %s", got, want)
	}
	if Encode(nil) != Empty {
		t.Fatalf("empty plan should encode to %q", Empty)
	}
}

func TestEncodeEscapesAttributes(t *testing.T) {
	s := []plan.Shape{{ID: `a"<b`, Kind: plan.DoorKind, Geometry: plan.RectGeometry{Rect: vector.R(0, 0, 10, 10)}}}
	enc := Encode(s)
	if strings.Contains(enc, `a"<b`) {
		t.Fatalf("id not escaped: %s", enc)
	}
	if out := Decode(enc); len(out) != 1 || out[0].ID != `a"<b` {
		t.Fatalf("escaped id did not round trip: %+v", out)
	}
}

func TestDecodeMalformedYieldsEmpty(t *testing.T) {
	for _, in := range []string{
		"<svg><rect",
		"not markup at all",
		`<html><rect data-kind="door" data-id="x" x="0" y="0" width="10" height="10"/></html>`,
		"",
	} {
		if got := Decode(in); len(got) != 0 {
			t.Fatalf("Decode(%q) = %+v, want empty", in, got)
		}
	}
	if _, err := DecodeStrict("<div/>"); !errors.Is(err, ErrNotSVG) {
		t.Fatalf("DecodeStrict error = %v, want ErrNotSVG", err)
	}
	if _, err := DecodeStrict("<svg><rect</svg>"); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestDecodeSkipsBadElements(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg">` +
		`<rect data-kind="room_garage" data-id="u" x="0" y="0" width="10" height="10"/>` +
		`<rect data-kind="door" data-id="a" x="0" y="0" width="10" height="10"/>` +
		`<rect data-kind="door" data-id="a" x="5" y="5" width="10" height="10"/>` +
		`<rect data-kind="window" data-id="b" x="zero" y="0" width="10" height="10"/>` +
		`<path data-kind="door" data-id="c" d="M 0 0 L 1 1"/>` +
		`<rect data-kind="wall" data-id="e" x="0" y="0" width="10" height="10"/>` +
		`<g><rect data-kind="door" data-id="nested" x="0" y="0" width="10" height="10"/></g>` +
		`<circle data-kind="door" data-id="f" r="5"/>` +
		`<rect x="0" y="0" width="10" height="10"/>` +
		`</svg>`
	out := Decode(in)
	if len(out) != 1 || out[0].ID != "a" {
		t.Fatalf("Decode = %+v, want only the first door", out)
	}
	if r, _ := out[0].Rect(); r != vector.R(0, 0, 10, 10) {
		t.Fatalf("duplicate id overrode the first occurrence: %+v", r)
	}
}

func TestDecodeSkipsDegenerateRects(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg">` +
		`<rect data-kind="door" data-id="neg" x="0" y="0" width="-5" height="3"/>` +
		`<rect data-kind="door" data-id="small" x="0" y="0" width="9.99" height="40"/>` +
		`<rect data-kind="window" data-id="nan" x="0" y="0" width="NaN" height="20"/>` +
		`<rect data-kind="window" data-id="inf" x="+Inf" y="0" width="20" height="20"/>` +
		`<rect data-kind="furniture_bed" data-id="ok" x="0" y="0" width="10" height="10"/>` +
		`</svg>`
	out := Decode(in)
	if len(out) != 1 || out[0].ID != "ok" {
		t.Fatalf("Decode = %+v, want only the 10x10 bed", out)
	}
}

func TestDecodeRejectsSecondRoot(t *testing.T) {
	one := `<svg xmlns="http://www.w3.org/2000/svg"><rect data-kind="door" data-id="a" x="0" y="0" width="10" height="10"/></svg>`
	two := one + `<svg xmlns="http://www.w3.org/2000/svg"><rect data-kind="door" data-id="b" x="0" y="0" width="10" height="10"/></svg>`
	if _, err := DecodeStrict(two); !errors.Is(err, ErrExtraRoots) {
		t.Fatalf("DecodeStrict error = %v, want ErrExtraRoots", err)
	}
	if got := Decode(two); len(got) != 0 {
		t.Fatalf("Decode of two roots = %+v, want empty", got)
	}
	if got, err := DecodeStrict(one + "\n<!-- saved -->\n"); err != nil || len(got) != 1 {
		t.Fatalf("trailing comment: %+v, %v", got, err)
	}
}

func TestDecodeAssignsMissingIDs(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg">` +
		`<rect data-kind="room_living" x="0" y="0" width="20" height="20"/>` +
		`<rect data-kind="room_living" x="0" y="0" width="20" height="20"/>` +
		`</svg>`
	out := Decode(in)
	if len(out) != 2 || out[0].ID == "" || out[0].ID == out[1].ID {
		t.Fatalf("expected two shapes with distinct generated ids: %+v", out)
	}
}

func TestDecodeLegacyWallPaths(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg"><path d="M 10 10 L 50 10 L 50 60" fill="none" stroke="#666" stroke-width="2" /></svg>`
	out := Decode(in)
	if len(out) != 1 || out[0].Kind != plan.WallKind {
		t.Fatalf("legacy path not decoded as wall: %+v", out)
	}
	if d, _ := out[0].PathData(); d != "M 10 10 L 50 10 L 50 60" {
		t.Fatalf("path data altered: %q", d)
	}
}

func TestEncodeWithViewBox(t *testing.T) {
	vb := vector.R(-10, -10, 120, 70)
	got := EncodeWithViewBox(sample()[:1], &vb)
	if !strings.HasPrefix(got, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="-10 -10 120 70">`) {
		t.Fatalf("unexpected root: %s", got)
	}
	if len(Decode(got)) != 1 {
		t.Fatalf("viewBox markup should still decode")
	}
}
