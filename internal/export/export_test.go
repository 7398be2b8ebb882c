/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package export

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"floorplan/internal/domain"
	"floorplan/internal/markup"
	"floorplan/internal/plan"
	"floorplan/internal/storage"
	"floorplan/internal/vector"
)

func samplePlan() []plan.Shape {
	return []plan.Shape{
		plan.NewRect(plan.RoomKind("kitchen"), vector.R(10, 10, 100, 50)),
		plan.NewWall("M 10 10 L 110 10"),
	}
}

func TestFitTransformCentersPlan(t *testing.T) {
	m := FitTransform(vector.R(10, 10, 100, 50), 220, 120, 10)
	if got := m.Apply(vector.P(10, 10)); got != vector.P(10, 10) {
		t.Fatalf("top-left maps to %+v", got)
	}
	if got := m.Apply(vector.P(110, 60)); got != vector.P(210, 110) {
		t.Fatalf("bottom-right maps to %+v", got)
	}
}

func TestRenderPNGFillsRooms(t *testing.T) {
	img := RenderPNG(samplePlan()[:1], PNGOptions{Width: 220, Height: 120, Padding: 10})
	if got := color.NRGBAModel.Convert(img.At(110, 60)).(color.NRGBA); got != (color.NRGBA{0xFF, 0xE0, 0x82, 0xFF}) {
		t.Fatalf("room interior = %#v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(2, 2)).(color.NRGBA); got != (color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatalf("background = %#v", got)
	}
}

func TestRenderPNGStrokesWalls(t *testing.T) {
	img := RenderPNG([]plan.Shape{plan.NewWall("M 0 0 L 100 0")}, PNGOptions{Width: 200, Height: 100})
	if got := color.NRGBAModel.Convert(img.At(100, 49)).(color.NRGBA); got != (color.NRGBA{0x66, 0x66, 0x66, 0xFF}) {
		t.Fatalf("wall pixel = %#v", got)
	}
	if got := color.NRGBAModel.Convert(img.At(100, 10)).(color.NRGBA); got != (color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatalf("pixel away from wall = %#v", got)
	}
}

func inkPixels(img *image.RGBA, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA) == labelInk {
				n++
			}
		}
	}
	return n
}

func TestRenderPNGLabelsFitInsideRooms(t *testing.T) {
	// Kitchen maps to (10,10)-(210,110); keep clear of the outline.
	interior := image.Rect(15, 15, 205, 105)
	room := samplePlan()[:1]
	plain := RenderPNG(room, PNGOptions{Width: 220, Height: 120, Padding: 10})
	if n := inkPixels(plain, interior); n != 0 {
		t.Fatalf("unlabelled render has %d ink pixels", n)
	}
	labelled := RenderPNG(room, PNGOptions{Width: 220, Height: 120, Padding: 10, Labels: true})
	if n := inkPixels(labelled, interior); n == 0 {
		t.Fatal("label not drawn")
	}
	// A 24x12 room is too small for any label at this scale.
	tiny := []plan.Shape{plan.NewRect(plan.RoomKind("kitchen"), vector.R(0, 0, 24, 12))}
	img := RenderPNG(tiny, PNGOptions{Width: 24, Height: 12, Labels: true})
	if n := inkPixels(img, img.Bounds()); n != 0 {
		t.Fatalf("tiny room got %d ink pixels", n)
	}
}

func TestRenderPNGEmptyPlan(t *testing.T) {
	img := RenderPNG(nil, PNGOptions{})
	if b := img.Bounds(); b.Dx() != 1024 || b.Dy() != 768 {
		t.Fatalf("default size = %v", b)
	}
}

func TestRenderPNGBytesDecodes(t *testing.T) {
	b, err := RenderPNGBytes(samplePlan(), PNGOptions{Width: 64, Height: 48, Labels: true})
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Fatalf("size = %v", img.Bounds())
	}
}

func TestFittedViewBox(t *testing.T) {
	if FittedViewBox(nil, 5) != nil {
		t.Fatal("empty plan has no viewBox")
	}
	vb := FittedViewBox(samplePlan(), 5)
	if *vb != vector.R(5, 5, 110, 60) {
		t.Fatalf("viewBox = %+v", *vb)
	}
	doc := RenderSVG(samplePlan(), 5)
	if !strings.Contains(doc, `viewBox="5 5 110 60"`) {
		t.Fatalf("missing viewBox: %s", doc)
	}
	if got := markup.Decode(doc); len(got) != 2 {
		t.Fatalf("exported svg should decode back to 2 shapes, got %d", len(got))
	}
}

func TestExportPNGAndSVG(t *testing.T) {
	root := t.TempDir()
	proj := domain.NewProject("Export Test")
	proj.FloorPlan.SVG = markup.Encode(samplePlan())
	ph, err := storage.InitProject(root, proj)
	if err != nil {
		t.Fatalf("init project: %v", err)
	}
	pngPath, err := ExportPNG(ph, "plan.png", PNGOptions{Width: 120, Height: 80})
	if err != nil {
		t.Fatalf("export png: %v", err)
	}
	if pngPath != filepath.Join(root, storage.ExportsDirName, "plan.png") {
		t.Fatalf("png path = %s", pngPath)
	}
	if st, err := os.Stat(pngPath); err != nil || st.Size() == 0 {
		t.Fatalf("png missing: %v", err)
	}
	svgPath, err := ExportSVG(ph, filepath.Join(root, "out", "plan.svg"))
	if err != nil {
		t.Fatalf("export svg: %v", err)
	}
	b, err := os.ReadFile(svgPath)
	if err != nil || !bytes.HasPrefix(b, []byte("<?xml")) {
		t.Fatalf("svg content: %v %q", err, b)
	}
	if _, err := ExportPNG(nil, "x.png", PNGOptions{}); err == nil {
		t.Fatal("expected error for nil handle")
	}
}
