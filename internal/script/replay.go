/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package script

import (
	"fmt"

	"floorplan/internal/editor"
	"floorplan/internal/plan"
	"floorplan/internal/vector"
)

// Replay feeds the steps of s to c in order. Viewport steps are applied to
// view, which should be the source c reads from. It returns the number of
// steps applied; replay stops at the first step that cannot be applied.
func Replay(s Script, c *editor.Controller, view *editor.ManualViewport) (int, error) {
	for i, st := range s.Steps {
		if err := apply(st, c, view); err != nil {
			return i, fmt.Errorf("line %d: %w", st.LineNo, err)
		}
	}
	return len(s.Steps), nil
}

func apply(st Step, c *editor.Controller, view *editor.ManualViewport) error {
	pt := func() vector.Pt { return vector.Pt{X: st.Nums[0], Y: st.Nums[1]} }
	switch st.Op {
	case OpViewport:
		if view == nil {
			return fmt.Errorf("viewport step without a settable viewport")
		}
		view.Set(vector.Viewport{PanX: st.Nums[0], PanY: st.Nums[1], Zoom: st.Nums[2]})
	case OpTool:
		if st.Arg == "none" {
			c.DisarmTool()
			return nil
		}
		k, err := plan.ParseKind(st.Arg)
		if err != nil {
			return err
		}
		c.ArmTool(k)
	case OpDown:
		c.PointerDown(editor.PointerEvent{Pos: pt()})
	case OpMove:
		c.PointerMove(editor.PointerEvent{Pos: pt()})
	case OpUp:
		c.PointerUp(editor.PointerEvent{Pos: pt()})
	case OpKey:
		switch st.Arg {
		case "delete":
			c.KeyDown(editor.KeyDelete)
		case "backspace":
			c.KeyDown(editor.KeyBackspace)
		case "escape":
			c.KeyDown(editor.KeyEscape)
		}
	case OpLock:
		c.SetLocked(st.Arg == "on" || st.Arg == "true")
	case OpClear:
		c.Clear()
	default:
		return fmt.Errorf("unsupported step %s", st.Op)
	}
	return nil
}
