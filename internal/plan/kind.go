/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
// Package plan holds the floor-plan shape model: kinds, geometry, the ordered
// shape store and the pure hit-test and resize rules used by the editor.
package plan

import (
	"fmt"
	"slices"
	"strings"

	"floorplan/internal/vector"
)

// Category is the closed set of shape families.
type Category uint8

const (
	Room Category = iota + 1
	Wall
	Door
	Window
	Furniture
)

func (c Category) String() string {
	switch c {
	case Room:
		return "room"
	case Wall:
		return "wall"
	case Door:
		return "door"
	case Window:
		return "window"
	case Furniture:
		return "furniture"
	default:
		return fmt.Sprintf("category(%d)", uint8(c))
	}
}

// Known subtypes per category.
var (
	RoomSubtypes      = []string{"kitchen", "living", "bedroom", "bathroom", "corridor", "bedroom2"}
	FurnitureSubtypes = []string{"table", "chair", "bed", "wardrobe", "sofa"}
)

// Kind identifies what a shape represents. Subtype is set only for rooms and
// furniture.
type Kind struct {
	Category Category
	Subtype  string
}

func RoomKind(subtype string) Kind      { return Kind{Category: Room, Subtype: subtype} }
func FurnitureKind(subtype string) Kind { return Kind{Category: Furniture, Subtype: subtype} }

var (
	WallKind   = Kind{Category: Wall}
	DoorKind   = Kind{Category: Door}
	WindowKind = Kind{Category: Window}
)

// String returns the markup tag, e.g. "room_kitchen" or "wall". The zero
// Kind renders as "".
func (k Kind) String() string {
	switch k.Category {
	case 0:
		return ""
	case Room, Furniture:
		return k.Category.String() + "_" + k.Subtype
	default:
		return k.Category.String()
	}
}

// IsPath reports whether shapes of this kind carry path geometry.
func (k Kind) IsPath() bool { return k.Category == Wall }

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k.Category {
	case Room:
		return slices.Contains(RoomSubtypes, k.Subtype)
	case Furniture:
		return slices.Contains(FurnitureSubtypes, k.Subtype)
	case Wall, Door, Window:
		return k.Subtype == ""
	default:
		return false
	}
}

// ParseKind parses a markup tag. Unknown categories or subtypes fail.
func ParseKind(s string) (Kind, error) {
	s = strings.TrimSpace(s)
	var k Kind
	switch {
	case s == "wall":
		k = WallKind
	case s == "door":
		k = DoorKind
	case s == "window":
		k = WindowKind
	case strings.HasPrefix(s, "room_"):
		k = RoomKind(strings.TrimPrefix(s, "room_"))
	case strings.HasPrefix(s, "furniture_"):
		k = FurnitureKind(strings.TrimPrefix(s, "furniture_"))
	}
	if !k.Valid() {
		return Kind{}, fmt.Errorf("unknown shape kind %q", s)
	}
	return k, nil
}

// AllKinds lists every valid kind in palette order.
func AllKinds() []Kind {
	out := make([]Kind, 0, len(RoomSubtypes)+len(FurnitureSubtypes)+3)
	for _, s := range RoomSubtypes {
		out = append(out, RoomKind(s))
	}
	out = append(out, WallKind, DoorKind, WindowKind)
	for _, s := range FurnitureSubtypes {
		out = append(out, FurnitureKind(s))
	}
	return out
}

var roomFills = map[string]vector.Color{
	"kitchen":  {R: 0xFF, G: 0xE0, B: 0x82, A: 0xFF},
	"living":   {R: 0xA5, G: 0xD6, B: 0xA7, A: 0xFF},
	"bedroom":  {R: 0xCE, G: 0x93, B: 0xD8, A: 0xFF},
	"bathroom": {R: 0x90, G: 0xCA, B: 0xF9, A: 0xFF},
	"corridor": {R: 0xE0, G: 0xE0, B: 0xE0, A: 0xFF},
	"bedroom2": {R: 0xF4, G: 0x8F, B: 0xB1, A: 0xFF},
}

var (
	wallGrey  = vector.Color{R: 0x66, G: 0x66, B: 0x66, A: 0xFF}
	doorBrown = vector.Color{R: 0x8D, G: 0x6E, B: 0x63, A: 0xFF}
	glassBlue = vector.Color{R: 0x42, G: 0xA5, B: 0xF5, A: 0xFF}
	inkGrey   = vector.Color{R: 0x42, G: 0x42, B: 0x42, A: 0xFF}
	woodTan   = vector.Color{R: 0xD7, G: 0xCC, B: 0xC8, A: 0xFF}
)

// Style returns the cosmetic paint for a kind. It is derived, never stored.
func (k Kind) Style() vector.Style {
	switch k.Category {
	case Room:
		return vector.Style{
			Fill:   vector.Fill{Color: roomFills[k.Subtype], Enabled: true},
			Stroke: vector.Stroke{Color: inkGrey, Width: 1, Enabled: true},
		}
	case Wall:
		return vector.Style{Stroke: vector.Stroke{Color: wallGrey, Width: 2, Enabled: true}}
	case Door:
		return vector.Style{
			Fill:   vector.Fill{Color: vector.White, Enabled: true},
			Stroke: vector.Stroke{Color: doorBrown, Width: 2, Enabled: true},
		}
	case Window:
		return vector.Style{
			Fill:   vector.Fill{Color: vector.White, Enabled: true},
			Stroke: vector.Stroke{Color: glassBlue, Width: 2, Enabled: true},
		}
	case Furniture:
		return vector.Style{
			Fill:   vector.Fill{Color: woodTan, Enabled: true},
			Stroke: vector.Stroke{Color: inkGrey, Width: 1, Enabled: true},
		}
	default:
		return vector.Style{}
	}
}

// Label is the human-readable name shown in palettes and previews.
func (k Kind) Label() string {
	switch k.Category {
	case Room, Furniture:
		s := strings.TrimSuffix(k.Subtype, "2")
		if s == "" {
			return k.Category.String()
		}
		return strings.ToUpper(s[:1]) + s[1:]
	default:
		c := k.Category.String()
		return strings.ToUpper(c[:1]) + c[1:]
	}
}
