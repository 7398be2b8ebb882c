/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"floorplan/internal/backend"
	"floorplan/internal/export"
	"floorplan/internal/markup"
	"floorplan/internal/storage"
)

// FileSink saves markup into the project manifest and records a revision
// (with an optional preview) in the project index.
type FileSink struct {
	mu      sync.Mutex
	ph      *storage.ProjectHandle
	index   *storage.Index
	preview export.PNGOptions
}

// NewFileSink writes to ph. index may be nil to skip revisions; a preview is
// rendered only when preview.Width and preview.Height are set.
func NewFileSink(ph *storage.ProjectHandle, index *storage.Index, preview export.PNGOptions) *FileSink {
	return &FileSink{ph: ph, index: index, preview: preview}
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Write(ctx context.Context, svg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ph.Project.FloorPlan.SVG = svg
	if err := storage.Save(s.ph); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}
	if s.index == nil {
		return nil
	}
	shapes := markup.Decode(svg)
	rev, err := s.index.SaveRevision(ctx, svg, len(shapes), storage.SourceLocal)
	if err != nil {
		return fmt.Errorf("record revision: %w", err)
	}
	if s.preview.Width <= 0 || s.preview.Height <= 0 {
		return nil
	}
	png, err := export.RenderPNGBytes(shapes, s.preview)
	if err != nil {
		return err
	}
	return s.index.PutPreview(ctx, rev, s.preview.Width, s.preview.Height, png)
}

// SetLocked stores the lock flag in the manifest right away.
func (s *FileSink) SetLocked(locked bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ph.Project.FloorPlan.Locked == locked {
		return nil
	}
	s.ph.Project.FloorPlan.Locked = locked
	return storage.Save(s.ph)
}

// PlanUpdater is the part of the backend client a BackendSink needs.
type PlanUpdater interface {
	UpdatePlan(ctx context.Context, projectID, svg string) error
}

var _ PlanUpdater = (*backend.Client)(nil)

// BackendSink sends markup to the plan server.
type BackendSink struct {
	client    PlanUpdater
	projectID string
}

func NewBackendSink(client PlanUpdater, projectID string) *BackendSink {
	return &BackendSink{client: client, projectID: projectID}
}

func (s *BackendSink) Name() string { return "backend" }

func (s *BackendSink) Write(ctx context.Context, svg string) error {
	if s.projectID == "" {
		return errors.New("backend sink: no project id")
	}
	return s.client.UpdatePlan(ctx, s.projectID, svg)
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Name() string {
	names := make([]string, len(m))
	for i, s := range m {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (m MultiSink) Write(ctx context.Context, svg string) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, svg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}
