/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package export

import (
	"fmt"

	"floorplan/internal/markup"
	"floorplan/internal/plan"
	"floorplan/internal/storage"
	"floorplan/internal/vector"
)

// DefaultSVGPadding is the world-unit margin added around exported plans.
const DefaultSVGPadding = 10

// FittedViewBox returns the plan bounds grown by pad on every side, or nil
// for an empty plan.
func FittedViewBox(shapes []plan.Shape, pad float64) *vector.Rect {
	if len(shapes) == 0 {
		return nil
	}
	b := PlanBounds(shapes).Inset(-pad, -pad)
	return &b
}

// RenderSVG produces standalone markup whose viewBox frames the plan.
func RenderSVG(shapes []plan.Shape, pad float64) string {
	return markup.EncodeWithViewBox(shapes, FittedViewBox(shapes, pad))
}

// ExportSVG writes the project's plan as a standalone SVG to out. Relative
// paths resolve against the project's exports folder.
func ExportSVG(ph *storage.ProjectHandle, out string) (string, error) {
	if ph == nil {
		return "", fmt.Errorf("project handle is nil")
	}
	doc := RenderSVG(markup.Decode(ph.Project.FloorPlan.SVG), DefaultSVGPadding)
	return writeExport(ph, out, []byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+doc+"\n"))
}
