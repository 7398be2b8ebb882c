/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package vector

// Colors and paint definitions.

import (
	"fmt"
	"image/color"
)

type Color struct{ R, G, B, A uint8 }

var (
	White       = Color{255, 255, 255, 255}
	Transparent = Color{0, 0, 0, 0}
)

// NRGBA converts to the image/color representation.
func (c Color) NRGBA() color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

// Hex returns the CSS form "#RRGGBB"; fully transparent colors yield "none".
func (c Color) Hex() string {
	if c.A == 0 {
		return "none"
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

type Fill struct {
	Color   Color
	Enabled bool
}

type Stroke struct {
	Color   Color
	Width   float64
	Enabled bool
}

// Style pairs a fill with a stroke.
type Style struct {
	Fill   Fill
	Stroke Stroke
}
