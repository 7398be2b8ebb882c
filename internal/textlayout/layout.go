/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and fits short labels into boxes. Faces come
// from a Provider so renders stay deterministic with the built-in bitmap
// font and can switch to an OpenType face when one is configured.
package textlayout

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float32
}

// Metrics are font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// LineHeight is the advance from one baseline to the next.
func (m Metrics) LineHeight() float32 { return m.Ascent + m.Descent + m.LineGap }

// Line is one laid out line.
type Line struct {
	Text  string
	Width float32
}

// Box is text laid out into lines.
type Box struct {
	Lines   []Line
	Width   float32
	Height  float32
	Metrics Metrics
}

// Provider maps a FontSpec to a concrete face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider always returns basicfont Face7x13.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

func advance(face font.Face, s string) float32 {
	return float32(font.MeasureString(face, s).Round())
}

// Measure returns the width of s on a single line.
func Measure(p Provider, spec FontSpec, s string) float32 {
	if p == nil {
		p = BasicProvider{}
	}
	face, _ := p.Resolve(spec)
	return advance(face, s)
}

// Wrap breaks text on spaces so lines stay within maxWidth where possible.
// A single word wider than maxWidth gets a line of its own. maxWidth <= 0
// disables wrapping.
func Wrap(p Provider, spec FontSpec, text string, maxWidth float32) Box {
	if p == nil {
		p = BasicProvider{}
	}
	face, met := p.Resolve(spec)
	box := Box{Metrics: met}
	add := func(words []string) {
		s := strings.Join(words, " ")
		w := advance(face, s)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		box.Width = max(box.Width, w)
	}
	var cur []string
	for _, word := range strings.Fields(text) {
		if len(cur) > 0 && maxWidth > 0 && advance(face, strings.Join(append(cur, word), " ")) > maxWidth {
			add(cur)
			cur = nil
		}
		cur = append(cur, word)
	}
	if len(cur) > 0 {
		add(cur)
	}
	if n := len(box.Lines); n > 0 {
		box.Height = float32(n)*met.LineHeight() - met.LineGap
	}
	return box
}

const ellipsis = "..."

// Fit lays text out inside maxW x maxH. It wraps first, then falls back to a
// single line shortened with "...". ok is false when not even one
// character and the ellipsis fit.
func Fit(p Provider, spec FontSpec, text string, maxW, maxH float32) (Box, bool) {
	if p == nil {
		p = BasicProvider{}
	}
	box := Wrap(p, spec, text, maxW)
	if len(box.Lines) == 0 {
		return box, false
	}
	if box.Width <= maxW && box.Height <= maxH {
		return box, true
	}
	face, met := p.Resolve(spec)
	if met.Ascent+met.Descent > maxH {
		return Box{Metrics: met}, false
	}
	runes := []rune(strings.Join(strings.Fields(text), " "))
	for n := len(runes) - 1; n > 0; n-- {
		s := strings.TrimRight(string(runes[:n]), " ") + ellipsis
		if w := advance(face, s); w <= maxW {
			return Box{
				Lines:   []Line{{Text: s, Width: w}},
				Width:   w,
				Height:  met.Ascent + met.Descent,
				Metrics: met,
			}, true
		}
	}
	return Box{Metrics: met}, false
}
