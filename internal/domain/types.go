/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package domain

// Project is the on-disk manifest of a floor-plan project (plan.json).
// The plan itself is kept as SVG markup, the same string the editor loads
// and publishes.
type Project struct {
	Name      string    `json:"name"`
	Scale     float64   `json:"scale"`
	FloorPlan FloorPlan `json:"floorPlan"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	// RemoteID links the project to a backend project, if any.
	RemoteID string `json:"remoteId,omitempty"`
}

// FloorPlan is the persisted state of the drawing layer.
type FloorPlan struct {
	SVG    string `json:"svg"`
	Locked bool   `json:"locked"`
}

type Metadata struct {
	Address string `json:"address,omitempty"`
	Author  string `json:"author,omitempty"`
	Notes   string `json:"notes,omitempty"`
}

// NewProject returns a project with an empty plan at scale 1.
func NewProject(name string) Project {
	return Project{
		Name:      name,
		Scale:     1,
		FloorPlan: FloorPlan{SVG: `<svg xmlns="http://www.w3.org/2000/svg"></svg>`},
	}
}
