/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package vector

// Polyline paths and the SVG path-data mini language used for walls.

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type PathOp uint8

const (
	MoveTo PathOp = iota
	LineTo
	Close
)

type PathCmd struct {
	Op PathOp
	Pt Pt // unused for Close
}

type Path struct{ Cmds []PathCmd }

func (p *Path) MoveTo(x, y float64) { p.Cmds = append(p.Cmds, PathCmd{Op: MoveTo, Pt: Pt{x, y}}) }
func (p *Path) LineTo(x, y float64) { p.Cmds = append(p.Cmds, PathCmd{Op: LineTo, Pt: Pt{x, y}}) }
func (p *Path) Close()              { p.Cmds = append(p.Cmds, PathCmd{Op: Close}) }

// PathFromPoints builds an open polyline through pts.
func PathFromPoints(pts []Pt) Path {
	var p Path
	for i, pt := range pts {
		if i == 0 {
			p.MoveTo(pt.X, pt.Y)
		} else {
			p.LineTo(pt.X, pt.Y)
		}
	}
	return p
}

// Points returns the vertices of the path in order.
func (p Path) Points() []Pt {
	out := make([]Pt, 0, len(p.Cmds))
	for _, c := range p.Cmds {
		if c.Op != Close {
			out = append(out, c.Pt)
		}
	}
	return out
}

// Subpaths splits the path into point runs; a closed run repeats its start.
func (p Path) Subpaths() [][]Pt {
	var (
		out [][]Pt
		cur []Pt
	)
	flush := func() {
		if len(cur) > 1 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, c := range p.Cmds {
		switch c.Op {
		case MoveTo:
			flush()
			cur = []Pt{c.Pt}
		case LineTo:
			cur = append(cur, c.Pt)
		case Close:
			if len(cur) > 0 {
				cur = append(cur, cur[0])
			}
			flush()
		}
	}
	flush()
	return out
}

// Bounds returns the axis-aligned bounding box of all vertices.
func (p Path) Bounds() Rect {
	pts := p.Points()
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, q := range pts[1:] {
		minX, maxX = min(minX, q.X), max(maxX, q.X)
		minY, maxY = min(minY, q.Y), max(maxY, q.Y)
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// String renders SVG path data: "M x y L x y ... Z".
func (p Path) String() string {
	var b strings.Builder
	for i, c := range p.Cmds {
		if i > 0 {
			b.WriteByte(' ')
		}
		switch c.Op {
		case MoveTo:
			b.WriteString("M ")
		case LineTo:
			b.WriteString("L ")
		case Close:
			b.WriteString("Z")
			continue
		}
		b.WriteString(FormatCoord(c.Pt.X))
		b.WriteByte(' ')
		b.WriteString(FormatCoord(c.Pt.Y))
	}
	return b.String()
}

// FormatCoord formats a path coordinate with at most two decimals.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(FloatRound(v, 2), 'f', -1, 64)
}

var ErrPathSyntax = errors.New("path: syntax error")

// ParsePathData parses the M/L/H/V/Z subset of SVG path data, absolute and
// relative. Curves are rejected.
func ParsePathData(d string) (Path, error) {
	toks := tokenizePath(d)
	var (
		p     Path
		cur   Pt
		start Pt
		cmd   byte
	)
	num := func(i *int) (float64, error) {
		if *i >= len(toks) {
			return 0, fmt.Errorf("%w: missing number", ErrPathSyntax)
		}
		v, err := strconv.ParseFloat(toks[*i], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad number %q", ErrPathSyntax, toks[*i])
		}
		*i++
		return v, nil
	}
	for i := 0; i < len(toks); {
		t := toks[i]
		if len(t) == 1 && isPathCmd(t[0]) {
			cmd = t[0]
			i++
			if cmd == 'Z' || cmd == 'z' {
				p.Close()
				cur = start
				continue
			}
		} else if cmd == 0 {
			return Path{}, fmt.Errorf("%w: data must start with a command", ErrPathSyntax)
		}
		rel := cmd >= 'a'
		switch cmd {
		case 'M', 'm', 'L', 'l':
			x, err := num(&i)
			if err != nil {
				return Path{}, err
			}
			y, err := num(&i)
			if err != nil {
				return Path{}, err
			}
			if rel {
				x, y = cur.X+x, cur.Y+y
			}
			cur = Pt{x, y}
			if cmd == 'M' || cmd == 'm' {
				p.MoveTo(x, y)
				start = cur
				// implicit coordinate pairs after a moveto are linetos
				if rel {
					cmd = 'l'
				} else {
					cmd = 'L'
				}
			} else {
				p.LineTo(x, y)
			}
		case 'H', 'h':
			x, err := num(&i)
			if err != nil {
				return Path{}, err
			}
			if rel {
				x += cur.X
			}
			cur.X = x
			p.LineTo(cur.X, cur.Y)
		case 'V', 'v':
			y, err := num(&i)
			if err != nil {
				return Path{}, err
			}
			if rel {
				y += cur.Y
			}
			cur.Y = y
			p.LineTo(cur.X, cur.Y)
		case 'Z', 'z':
			return Path{}, fmt.Errorf("%w: unexpected %q after Z", ErrPathSyntax, t)
		default:
			return Path{}, fmt.Errorf("%w: unsupported command %q", ErrPathSyntax, string(cmd))
		}
	}
	if len(p.Cmds) > 0 && p.Cmds[0].Op != MoveTo {
		return Path{}, fmt.Errorf("%w: data must start with M", ErrPathSyntax)
	}
	return p, nil
}

func isPathCmd(c byte) bool {
	switch c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'Z', 'z', 'C', 'c', 'Q', 'q', 'S', 's', 'T', 't', 'A', 'a':
		return true
	}
	return false
}

// tokenizePath splits path data into command letters and number literals.
func tokenizePath(d string) []string {
	var toks []string
	i := 0
	for i < len(d) {
		c := d[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case isPathCmd(c):
			toks = append(toks, string(c))
			i++
		default:
			j := i
			if d[j] == '-' || d[j] == '+' {
				j++
			}
			seenDot, seenExp := false, false
			for j < len(d) {
				ch := d[j]
				if ch >= '0' && ch <= '9' {
					j++
				} else if ch == '.' && !seenDot && !seenExp {
					seenDot = true
					j++
				} else if (ch == 'e' || ch == 'E') && !seenExp && j > i {
					seenExp = true
					j++
					if j < len(d) && (d[j] == '-' || d[j] == '+') {
						j++
					}
				} else {
					break
				}
			}
			if j == i {
				j++ // consume an unknown byte so the parser reports it
			}
			toks = append(toks, d[i:j])
			i = j
		}
	}
	return toks
}
