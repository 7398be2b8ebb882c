/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
// Package markup converts between a plan.Shape list and SVG markup.
//
// Each shape is one child of the root <svg> element: <rect> for rectangle
// kinds and <path> for walls. The data-kind and data-id attributes identify
// the shape; fill and stroke are cosmetic and regenerated on every encode.
package markup

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

const (
	svgNS    = "http://www.w3.org/2000/svg"
	attrKind = "data-kind"
	attrID   = "data-id"
)

// Empty is the markup of a plan with no shapes.
const Empty = `<svg xmlns="` + svgNS + `"></svg>`

var (
	ErrNotSVG     = errors.New("markup: root element is not <svg>")
	ErrExtraRoots = errors.New("markup: content after the root element")
)

// Encode renders shapes in paint order. Rectangle numbers use the shortest
// exact decimal form so Decode restores identical geometry.
func Encode(shapes []plan.Shape) string {
	return EncodeWithViewBox(shapes, nil)
}

// EncodeWithViewBox is Encode with an optional viewBox on the root element,
// for standalone export.
func EncodeWithViewBox(shapes []plan.Shape, viewBox *vector.Rect) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="` + svgNS + `"`)
	if viewBox != nil {
		fmt.Fprintf(&b, ` viewBox="%s %s %s %s"`, num(viewBox.X), num(viewBox.Y), num(viewBox.W), num(viewBox.H))
	}
	b.WriteString(">")
	for _, s := range shapes {
		writeShape(&b, s)
	}
	b.WriteString("</svg>")
	return b.String()
}

func writeShape(b *strings.Builder, s plan.Shape) {
	st := s.Kind.Style()
	switch g := s.Geometry.(type) {
	case plan.RectGeometry:
		b.WriteString("<rect")
		attr(b, attrKind, s.Kind.String())
		attr(b, attrID, s.ID)
		attr(b, "x", num(g.X))
		attr(b, "y", num(g.Y))
		attr(b, "width", num(g.W))
		attr(b, "height", num(g.H))
	case plan.PathGeometry:
		b.WriteString("<path")
		attr(b, attrKind, s.Kind.String())
		attr(b, attrID, s.ID)
		attr(b, "d", g.D)
	default:
		return
	}
	fill := "none"
	if st.Fill.Enabled {
		fill = st.Fill.Color.Hex()
	}
	attr(b, "fill", fill)
	if st.Stroke.Enabled {
		attr(b, "stroke", st.Stroke.Color.Hex())
		attr(b, "stroke-width", num(st.Stroke.Width))
	}
	b.WriteString(" />")
}

func attr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(value))
	b.Write(esc.Bytes())
	b.WriteByte('"')
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Decode parses markup into shapes in document order. It never fails:
// unparsable markup yields an empty list, and individual elements that
// cannot be interpreted are skipped.
func Decode(markup string) []plan.Shape {
	shapes, err := DecodeStrict(markup)
	if err != nil {
		return nil
	}
	return shapes
}

// DecodeStrict is Decode but reports document-level parse failures.
// Element-level problems (unknown kinds, duplicate ids, bad numbers) are
// still skipped silently, as are rectangles that are not finite or fall
// below plan.MinShapeSize. Blank markup is an empty plan.
func DecodeStrict(markup string) ([]plan.Shape, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, nil
	}
	dec := xml.NewDecoder(strings.NewReader(markup))
	dec.Strict = true

	var (
		shapes []plan.Shape
		seen   = map[string]bool{}
		depth  int
		rooted bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("markup: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && rooted {
				return nil, ErrExtraRoots
			}
			depth++
			if depth == 1 {
				if t.Name.Local != "svg" {
					return nil, ErrNotSVG
				}
				rooted = true
				continue
			}
			if depth != 2 {
				continue
			}
			s, ok := decodeElement(t)
			if !ok || seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			shapes = append(shapes, s)
		case xml.EndElement:
			depth--
		}
	}
	if !rooted {
		return nil, ErrNotSVG
	}
	return shapes, nil
}

func decodeElement(el xml.StartElement) (plan.Shape, bool) {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.Name.Local] = a.Value
	}
	tag, hasKind := attrs[attrKind]
	var kind plan.Kind
	if hasKind {
		k, err := plan.ParseKind(tag)
		if err != nil {
			return plan.Shape{}, false
		}
		kind = k
	} else if el.Name.Local == "path" {
		// plain <path> elements from freehand-only plans are walls
		kind = plan.WallKind
	} else {
		return plan.Shape{}, false
	}

	id := strings.TrimSpace(attrs[attrID])
	if id == "" {
		id = plan.NewID()
	}

	if kind.IsPath() {
		if el.Name.Local != "path" {
			return plan.Shape{}, false
		}
		d, ok := attrs["d"]
		if !ok || strings.TrimSpace(d) == "" {
			return plan.Shape{}, false
		}
		return plan.Shape{ID: id, Kind: kind, Geometry: plan.PathGeometry{D: d}}, true
	}

	if el.Name.Local != "rect" {
		return plan.Shape{}, false
	}
	var vals [4]float64
	for i, name := range []string{"x", "y", "width", "height"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(attrs[name]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return plan.Shape{}, false
		}
		vals[i] = v
	}
	r := vector.R(vals[0], vals[1], vals[2], vals[3])
	if r.W < plan.MinShapeSize || r.H < plan.MinShapeSize {
		return plan.Shape{}, false
	}
	return plan.Shape{ID: id, Kind: kind, Geometry: plan.RectGeometry{Rect: r}}, true
}
