/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package vector

// Viewport is the host canvas pan/zoom state. Device = world*Zoom + Pan.
type Viewport struct {
	PanX, PanY float64
	Zoom       float64
}

// DefaultViewport is the unpanned, unzoomed view.
var DefaultViewport = Viewport{Zoom: 1}

// Valid reports whether the zoom factor is usable.
func (v Viewport) Valid() bool { return v.Zoom > 0 }

// Transform maps world coordinates to device coordinates.
func (v Viewport) Transform() Affine2D {
	return Translate(v.PanX, v.PanY).Mul(Scale(v.Zoom, v.Zoom))
}

// ToWorld converts a device-space point: world = (device - pan) / zoom.
func (v Viewport) ToWorld(device Pt) Pt {
	if !v.Valid() {
		return device
	}
	return Pt{
		X: (device.X - v.PanX) / v.Zoom,
		Y: (device.Y - v.PanY) / v.Zoom,
	}
}

// ToDevice converts a world-space point: device = world*zoom + pan.
func (v Viewport) ToDevice(world Pt) Pt {
	if !v.Valid() {
		return world
	}
	return v.Transform().Apply(world)
}

// ZoomAt returns the viewport scaled by factor while keeping the device
// point anchor fixed on screen.
func (v Viewport) ZoomAt(anchor Pt, factor float64) Viewport {
	if factor <= 0 || !v.Valid() {
		return v
	}
	w := v.ToWorld(anchor)
	z := v.Zoom * factor
	return Viewport{PanX: anchor.X - w.X*z, PanY: anchor.Y - w.Y*z, Zoom: z}
}

// Panned returns the viewport shifted by a device-space delta.
func (v Viewport) Panned(dx, dy float64) Viewport {
	v.PanX += dx
	v.PanY += dy
	return v
}
