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
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"floorplan/internal/markup"
	"floorplan/internal/plan"
	"floorplan/internal/storage"
	"floorplan/internal/textlayout"
	"floorplan/internal/vector"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
	xvector "golang.org/x/image/vector"
)

// PNGOptions controls PNG rendering.
// - Width/Height: output size in pixels, defaults 1024x768
// - Padding: margin around the fitted plan in pixels
// - Labels: print room and furniture names inside large enough shapes
// - Fonts: label face provider; nil uses the built-in bitmap font
type PNGOptions struct {
	Width      int
	Height     int
	Padding    int
	Background vector.Color
	Labels     bool
	Fonts      textlayout.Provider
}

func (o PNGOptions) withDefaults() PNGOptions {
	if o.Width <= 0 {
		o.Width = 1024
	}
	if o.Height <= 0 {
		o.Height = 768
	}
	if o.Padding < 0 || 2*o.Padding >= o.Width || 2*o.Padding >= o.Height {
		o.Padding = 0
	}
	if o.Background == (vector.Color{}) {
		o.Background = vector.White
	}
	if o.Fonts == nil {
		o.Fonts = textlayout.BasicProvider{}
	}
	return o
}

// PlanBounds is the union of all shape bounds.
func PlanBounds(shapes []plan.Shape) vector.Rect {
	var b vector.Rect
	for _, s := range shapes {
		b = b.Union(s.Bounds())
	}
	return b
}

// FitTransform maps world bounds into a w x h pixel canvas with padding,
// preserving aspect ratio and centering the plan.
func FitTransform(bounds vector.Rect, w, h, pad int) vector.Affine2D {
	bw, bh := math.Max(bounds.W, 1), math.Max(bounds.H, 1)
	aw, ah := float64(w-2*pad), float64(h-2*pad)
	s := math.Min(aw/bw, ah/bh)
	ox := float64(pad) + (aw-bw*s)/2
	oy := float64(pad) + (ah-bh*s)/2
	return vector.Translate(ox, oy).Mul(vector.Scale(s, s)).Mul(vector.Translate(-bounds.X, -bounds.Y))
}

// RenderPNG rasterizes shapes in paint order into a new image.
func RenderPNG(shapes []plan.Shape, opt PNGOptions) *image.RGBA {
	opt = opt.withDefaults()
	img := image.NewRGBA(image.Rect(0, 0, opt.Width, opt.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(opt.Background.NRGBA()), image.Point{}, draw.Src)
	if len(shapes) == 0 {
		return img
	}
	m := FitTransform(PlanBounds(shapes), opt.Width, opt.Height, opt.Padding)
	scale := m.A
	r := &raster{img: img, z: xvector.NewRasterizer(opt.Width, opt.Height), fonts: opt.Fonts}
	for _, s := range shapes {
		st := s.Kind.Style()
		switch g := s.Geometry.(type) {
		case plan.RectGeometry:
			a := m.Apply(g.Min())
			b := m.Apply(g.Max())
			quad := []vector.Pt{a, {X: b.X, Y: a.Y}, b, {X: a.X, Y: b.Y}}
			if st.Fill.Enabled {
				r.polygon(quad, st.Fill.Color)
			}
			if st.Stroke.Enabled {
				r.outline(append(quad, a), strokePx(st.Stroke.Width, scale), st.Stroke.Color)
			}
			if opt.Labels && s.Kind.Category != plan.Wall {
				r.label(s.Kind.Label(), vector.RectFromPoints(a, b))
			}
		case plan.PathGeometry:
			p, err := vector.ParsePathData(g.D)
			if err != nil || !st.Stroke.Enabled {
				continue
			}
			for _, run := range p.Subpaths() {
				for i := range run {
					run[i] = m.Apply(run[i])
				}
				r.outline(run, strokePx(st.Stroke.Width, scale), st.Stroke.Color)
			}
		}
	}
	return img
}

// RenderPNGBytes renders and encodes in one step.
func RenderPNGBytes(shapes []plan.Shape, opt PNGOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, RenderPNG(shapes, opt)); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPNG renders the project's plan to out. Relative paths resolve
// against the project's exports folder. Returns the written path.
func ExportPNG(ph *storage.ProjectHandle, out string, opt PNGOptions) (string, error) {
	if ph == nil {
		return "", fmt.Errorf("project handle is nil")
	}
	b, err := RenderPNGBytes(markup.Decode(ph.Project.FloorPlan.SVG), opt)
	if err != nil {
		return "", err
	}
	return writeExport(ph, out, b)
}

func writeExport(ph *storage.ProjectHandle, out string, data []byte) (string, error) {
	if !filepath.IsAbs(out) {
		out = filepath.Join(ph.Root, storage.ExportsDirName, out)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return out, nil
}

// strokePx scales a world stroke width, never thinner than one pixel.
func strokePx(w, scale float64) float64 {
	return math.Max(w*scale, 1)
}

type raster struct {
	img   *image.RGBA
	z     *xvector.Rasterizer
	fonts textlayout.Provider
}

func (r *raster) polygon(pts []vector.Pt, c vector.Color) {
	if len(pts) < 3 {
		return
	}
	b := r.img.Bounds()
	r.z.Reset(b.Dx(), b.Dy())
	r.z.DrawOp = draw.Over
	r.z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, p := range pts[1:] {
		r.z.LineTo(float32(p.X), float32(p.Y))
	}
	r.z.ClosePath()
	r.z.Draw(r.img, b, image.NewUniform(c.NRGBA()), image.Point{})
}

// outline strokes each segment as its own quad plus a square cap at every
// vertex so joins have no gaps.
func (r *raster) outline(pts []vector.Pt, width float64, c vector.Color) {
	hw := width / 2
	for i := 0; i+1 < len(pts); i++ {
		a, b := pts[i], pts[i+1]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*hw, dx/l*hw
		r.polygon([]vector.Pt{
			{X: a.X + nx, Y: a.Y + ny}, {X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny}, {X: a.X - nx, Y: a.Y - ny},
		}, c)
	}
	for _, p := range pts {
		r.polygon([]vector.Pt{
			{X: p.X - hw, Y: p.Y - hw}, {X: p.X + hw, Y: p.Y - hw},
			{X: p.X + hw, Y: p.Y + hw}, {X: p.X - hw, Y: p.Y + hw},
		}, c)
	}
}

var labelInk = color.NRGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff}

// labelSpec is the requested label size; the bitmap fallback ignores it.
var labelSpec = textlayout.FontSpec{Family: "label", SizePt: 11}

// label centers text in box, wrapping or shortening it to fit. Nothing is
// drawn when the box is too small.
func (r *raster) label(text string, box vector.Rect) {
	if text == "" {
		return
	}
	tb, ok := textlayout.Fit(r.fonts, labelSpec, text, float32(box.W-4), float32(box.H-2))
	if !ok {
		return
	}
	face, _ := r.fonts.Resolve(labelSpec)
	d := &font.Drawer{Dst: r.img, Src: image.NewUniform(labelInk), Face: face}
	c := box.Center()
	y := c.Y - float64(tb.Height)/2 + float64(tb.Metrics.Ascent)
	for _, ln := range tb.Lines {
		d.Dot = fixed.P(int(math.Round(c.X-float64(ln.Width)/2)), int(math.Round(y)))
		d.DrawString(ln.Text)
		y += float64(tb.Metrics.LineHeight())
	}
}
