/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package editor

import (
	"sync"

	"floorplan/internal/vector"
)

// ManualViewport is a settable viewport that notifies subscribers. Headless
// hosts (script replay, tests, the CLI) use it in place of a canvas.
type ManualViewport struct {
	mu   sync.Mutex
	v    vector.Viewport
	subs map[int]func(vector.Viewport)
	next int
}

func NewManualViewport(v vector.Viewport) *ManualViewport {
	return &ManualViewport{v: v, subs: map[int]func(vector.Viewport){}}
}

func (m *ManualViewport) Viewport() vector.Viewport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.v
}

// Set stores v and notifies subscribers synchronously.
func (m *ManualViewport) Set(v vector.Viewport) {
	m.mu.Lock()
	m.v = v
	fns := make([]func(vector.Viewport), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

func (m *ManualViewport) SubscribeViewport(fn func(vector.Viewport)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.subs == nil {
		m.subs = map[int]func(vector.Viewport){}
	}
	id := m.next
	m.next++
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}
