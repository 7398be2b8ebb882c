/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package plan

// Store is the ordered collection of shapes. Insertion order is paint order:
// later shapes are drawn on top and win hit tests. Store is not safe for
// concurrent use; the editor owns it on a single goroutine.
type Store struct {
	shapes []Shape
	index  map[string]int
}

func NewStore() *Store { return &Store{index: map[string]int{}} }

// Add appends s. It is a no-op returning false when the id is empty or
// already present, or when the geometry variant does not fit the kind.
func (st *Store) Add(s Shape) bool {
	if st.index == nil {
		st.index = map[string]int{}
	}
	if s.ID == "" || !Matches(s.Kind, s.Geometry) {
		return false
	}
	if _, dup := st.index[s.ID]; dup {
		return false
	}
	st.index[s.ID] = len(st.shapes)
	st.shapes = append(st.shapes, s)
	return true
}

// Update replaces the geometry of shape id, keeping its paint position.
// Unknown ids and mismatched geometry variants are a no-op returning false.
func (st *Store) Update(id string, g Geometry) bool {
	i, ok := st.index[id]
	if !ok || !Matches(st.shapes[i].Kind, g) {
		return false
	}
	st.shapes[i].Geometry = g
	return true
}

// Remove deletes shape id. Unknown ids are a no-op returning false.
func (st *Store) Remove(id string) bool {
	i, ok := st.index[id]
	if !ok {
		return false
	}
	st.shapes = append(st.shapes[:i], st.shapes[i+1:]...)
	delete(st.index, id)
	for j := i; j < len(st.shapes); j++ {
		st.index[st.shapes[j].ID] = j
	}
	return true
}

// Get returns shape id.
func (st *Store) Get(id string) (Shape, bool) {
	i, ok := st.index[id]
	if !ok {
		return Shape{}, false
	}
	return st.shapes[i], true
}

// All returns a copy of the shapes in paint order.
func (st *Store) All() []Shape {
	out := make([]Shape, len(st.shapes))
	copy(out, st.shapes)
	return out
}

func (st *Store) Len() int { return len(st.shapes) }

// Reset replaces the contents with shapes, applying the Add rules to each.
func (st *Store) Reset(shapes []Shape) {
	st.Clear()
	for _, s := range shapes {
		st.Add(s)
	}
}

// Clear removes every shape.
func (st *Store) Clear() {
	st.shapes = nil
	st.index = map[string]int{}
}
