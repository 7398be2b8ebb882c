/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package backend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxMarkupBytes bounds request bodies and websocket frames.
const maxMarkupBytes = 8 << 20

// ErrInvalidUpdate is returned for updates that fail validation.
var ErrInvalidUpdate = errors.New("invalid plan update")

// PlanStore persists plans for the server.
type PlanStore interface {
	ListPlans(ctx context.Context) ([]Plan, error)
	CreatePlan(ctx context.Context, name string, scale float64) (Plan, error)
	GetPlan(ctx context.Context, id string) (Plan, error)
	UpdatePlan(ctx context.Context, id string, upd PlanUpdate) (Plan, error)
	Ping(ctx context.Context) error
}

func validateUpdate(upd PlanUpdate) error {
	if upd.Name != nil && *upd.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidUpdate)
	}
	if upd.Scale != nil && !(*upd.Scale > 0) {
		return fmt.Errorf("%w: scale must be positive", ErrInvalidUpdate)
	}
	if upd.SVG != nil && len(*upd.SVG) > maxMarkupBytes {
		return fmt.Errorf("%w: markup too large", ErrInvalidUpdate)
	}
	return nil
}

func applyUpdate(p *Plan, upd PlanUpdate) bool {
	changed := false
	if upd.Name != nil && *upd.Name != p.Name {
		p.Name, changed = *upd.Name, true
	}
	if upd.Scale != nil && *upd.Scale != p.Scale {
		p.Scale, changed = *upd.Scale, true
	}
	if upd.SVG != nil && *upd.SVG != p.SVG {
		p.SVG, changed = *upd.SVG, true
	}
	if upd.Locked != nil && *upd.Locked != p.Locked {
		p.Locked, changed = *upd.Locked, true
	}
	return changed
}

// MemStore is an in-process PlanStore.
type MemStore struct {
	mu    sync.RWMutex
	plans map[string]Plan
	now   func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{plans: map[string]Plan{}, now: time.Now}
}

func (m *MemStore) ListPlans(ctx context.Context) ([]Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (m *MemStore) CreatePlan(ctx context.Context, name string, scale float64) (Plan, error) {
	if scale == 0 {
		scale = 1
	}
	if err := validateUpdate(PlanUpdate{Name: &name, Scale: &scale}); err != nil {
		return Plan{}, err
	}
	p := Plan{ID: uuid.NewString(), Name: name, Scale: scale, Version: 1, UpdatedAt: m.now().UTC()}
	m.mu.Lock()
	m.plans[p.ID] = p
	m.mu.Unlock()
	return p, nil
}

func (m *MemStore) GetPlan(ctx context.Context, id string) (Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return Plan{}, ErrNotFound
	}
	return p, nil
}

func (m *MemStore) UpdatePlan(ctx context.Context, id string, upd PlanUpdate) (Plan, error) {
	if err := validateUpdate(upd); err != nil {
		return Plan{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return Plan{}, ErrNotFound
	}
	if applyUpdate(&p, upd) {
		p.Version++
		p.UpdatedAt = m.now().UTC()
		m.plans[id] = p
	}
	return p, nil
}

func (m *MemStore) Ping(ctx context.Context) error { return nil }
