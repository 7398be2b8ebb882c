/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package editor

import (
	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

// State is the interaction state: Idle, Drawing, Dragging or Resizing.
type State interface {
	Name() string
	isState()
}

// Idle waits for a press.
type Idle struct{}

// Drawing holds the pending shape until release. For walls Points collects
// the traced vertices; for other kinds Live spans Anchor to the pointer.
type Drawing struct {
	Kind   plan.Kind
	Anchor vector.Pt
	Live   plan.Geometry
	Points []vector.Pt
}

// Dragging moves TargetID so that its origin stays Offset behind the pointer.
type Dragging struct {
	TargetID string
	Offset   vector.Pt
}

// Resizing moves Handle of TargetID; Anchor is the last pointer position.
type Resizing struct {
	TargetID string
	Handle   plan.Handle
	Anchor   vector.Pt
}

func (Idle) Name() string     { return "idle" }
func (Drawing) Name() string  { return "drawing" }
func (Dragging) Name() string { return "dragging" }
func (Resizing) Name() string { return "resizing" }

func (Idle) isState()     {}
func (Drawing) isState()  {}
func (Dragging) isState() {}
func (Resizing) isState() {}

// Button identifies a pointer button.
type Button uint8

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonTertiary
)

// PointerEvent is a pointer sample in device coordinates.
type PointerEvent struct {
	Pos    vector.Pt
	Button Button
}

// Key is a keyboard input relevant to the editor.
type Key uint8

const (
	KeyOther Key = iota
	KeyDelete
	KeyBackspace
	KeyEscape
)
