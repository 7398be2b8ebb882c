/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package ui

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"floorplan/internal/backend"
	"floorplan/internal/config"
	"floorplan/internal/domain"
	"floorplan/internal/editor"
	"floorplan/internal/plan"
	"floorplan/internal/storage"
	"floorplan/internal/vector"
)

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if _, err := storage.InitProject(dir, domain.NewProject("Flat")); err != nil {
		t.Fatalf("init: %v", err)
	}
	return dir
}

func drawKitchen(c *editor.Controller) {
	c.ArmTool(plan.RoomKind("kitchen"))
	c.PointerDown(editor.PointerEvent{Pos: vector.Pt{X: 10, Y: 10}})
	c.PointerMove(editor.PointerEvent{Pos: vector.Pt{X: 110, Y: 60}})
	c.PointerUp(editor.PointerEvent{Pos: vector.Pt{X: 110, Y: 60}})
}

func closeSession(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestSessionPersistsLocally(t *testing.T) {
	dir := newProject(t)
	cfg := config.Defaults()
	cfg.Backend.ProjectID = ""
	s, err := OpenSession(dir, SessionOptions{Config: cfg, PreviewSize: 32})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Remote() {
		t.Fatalf("session should be local without a project id")
	}
	drawKitchen(s.Editor)
	if len(s.Editor.Shapes()) != 1 {
		t.Fatalf("want one shape, got %d", len(s.Editor.Shapes()))
	}
	s.SetLocked(true)
	closeSession(t, s)

	ph, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(ph.Project.FloorPlan.SVG, `data-kind="room_kitchen"`) || !ph.Project.FloorPlan.Locked {
		t.Fatalf("manifest not updated: %+v", ph.Project.FloorPlan)
	}

	ix, err := storage.OpenIndex(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer ix.Close()
	rev, ok, err := ix.LatestRevision(context.Background())
	if err != nil || !ok || rev.Shapes != 1 {
		t.Fatalf("latest revision: %+v ok=%v err=%v", rev, ok, err)
	}
	png, err := ix.GetPreview(context.Background(), rev.ID, 32, 32)
	if err != nil || len(png) == 0 {
		t.Fatalf("preview missing: %v", err)
	}
}

func TestSessionReopenRestoresPlan(t *testing.T) {
	dir := newProject(t)
	cfg := config.Defaults()
	s, err := OpenSession(dir, SessionOptions{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	drawKitchen(s.Editor)
	s.SetLocked(true)
	closeSession(t, s)

	s2, err := OpenSession(dir, SessionOptions{Config: cfg})
	if err != nil {
		t.Fatal(err)
	}
	defer closeSession(t, s2)
	if len(s2.Editor.Shapes()) != 1 || !s2.Editor.Locked() {
		t.Fatalf("reopened: %d shapes locked=%v", len(s2.Editor.Shapes()), s2.Editor.Locked())
	}
}

func TestApplyIgnoresEchoes(t *testing.T) {
	s, err := OpenSession(newProject(t), SessionOptions{Config: config.Defaults()})
	if err != nil {
		t.Fatal(err)
	}
	defer closeSession(t, s)
	drawKitchen(s.Editor)
	own := s.Editor.Markup()

	if s.Apply(backend.Plan{SVG: own}) {
		t.Fatalf("own markup should not be applied")
	}
	// An older echo must not roll the editor back.
	s.Editor.DisarmTool()
	if _, ok := s.Editor.Selection(); !ok {
		t.Fatalf("drawn kitchen should be selected")
	}
	if !s.Editor.DeleteSelected() {
		t.Fatalf("delete did nothing")
	}
	if s.Apply(backend.Plan{SVG: own}) {
		t.Fatalf("stale echo applied")
	}
	if len(s.Editor.Shapes()) != 0 {
		t.Fatalf("editor rolled back")
	}

	foreign := `<svg xmlns="http://www.w3.org/2000/svg"><rect data-kind="furniture_bed" data-id="b" x="0" y="0" width="20" height="30" fill="#BCAAA4" /></svg>`
	if !s.Apply(backend.Plan{SVG: foreign, Locked: true}) {
		t.Fatalf("foreign markup not applied")
	}
	if _, ok := s.Editor.Shape("b"); !ok || !s.Editor.Locked() {
		t.Fatalf("remote plan not loaded")
	}
	if !s.Apply(backend.Plan{SVG: foreign, Locked: false}) || s.Editor.Locked() {
		t.Fatalf("lock-only change not applied")
	}
}

func remoteFixture(t *testing.T) (config.AppConfig, string, *backend.Client, string) {
	t.Helper()
	srv := backend.NewServer(backend.NewMemStore(), "session-secret")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	ctx := context.Background()
	c := backend.NewClient(ts.URL, "")
	tok, err := c.IssueToken(ctx, "tester", time.Hour)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	p, err := c.CreatePlan(ctx, "Flat", 1)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	cfg := config.Defaults()
	cfg.Backend.BaseURL = ts.URL
	cfg.Backend.ProjectID = p.ID
	return cfg, tok, c, p.ID
}

func TestSessionWritesToBackend(t *testing.T) {
	cfg, tok, c, id := remoteFixture(t)
	var mu sync.Mutex
	var notes []string
	s, err := OpenSession(newProject(t), SessionOptions{Config: cfg, Token: tok, Notify: func(m string) {
		mu.Lock()
		notes = append(notes, m)
		mu.Unlock()
	}})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Remote() {
		t.Fatalf("expected remote session")
	}
	drawKitchen(s.Editor)
	closeSession(t, s)

	p, err := c.GetPlan(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.SVG, "room_kitchen") {
		t.Fatalf("backend svg: %q", p.SVG)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(notes) != 0 {
		t.Fatalf("unexpected notifications: %v", notes)
	}
}

func TestSessionWatchDeliversRemoteChanges(t *testing.T) {
	cfg, tok, c, id := remoteFixture(t)
	s, err := OpenSession(newProject(t), SessionOptions{Config: cfg, Token: tok})
	if err != nil {
		t.Fatal(err)
	}
	defer closeSession(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan backend.Plan, 8)
	s.Watch(ctx, func(p backend.Plan) { got <- p })

	// First frame is the snapshot.
	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot")
	}
	if err := c.SetLocked(context.Background(), id, true); err != nil {
		t.Fatal(err)
	}
	select {
	case p := <-got:
		if !p.Locked {
			t.Fatalf("update not locked: %+v", p)
		}
		if !s.Apply(p) || !s.Editor.Locked() {
			t.Fatalf("lock from remote not applied")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no update")
	}

	pulled, err := s.PullRemote(context.Background())
	if err != nil || pulled.ID != id {
		t.Fatalf("pull: %+v %v", pulled, err)
	}
}

func TestSessionExportFlushesPendingEdits(t *testing.T) {
	dir := newProject(t)
	s, err := OpenSession(dir, SessionOptions{Config: config.Defaults()})
	if err != nil {
		t.Fatal(err)
	}
	defer closeSession(t, s)
	drawKitchen(s.Editor)
	ctx := context.Background()

	out, err := s.Export(ctx, "SVG", "plan.svg")
	if err != nil {
		t.Fatalf("export svg: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil || !strings.Contains(string(b), "room_kitchen") {
		t.Fatalf("svg export missing shape: %v", err)
	}
	if filepath.Dir(out) != filepath.Join(dir, storage.ExportsDirName) {
		t.Fatalf("export path = %s", out)
	}
	if _, err := s.Export(ctx, "png", "plan.png"); err != nil {
		t.Fatalf("export png: %v", err)
	}
	if _, err := s.Export(ctx, "gif", "plan.gif"); err == nil {
		t.Fatal("expected unknown format error")
	}
}

func TestSessionUsesManifestRemoteID(t *testing.T) {
	cfg, tok, c, id := remoteFixture(t)
	cfg.Backend.ProjectID = ""
	dir := newProject(t)
	ph, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	ph.Project.RemoteID = id
	if err := storage.Save(ph); err != nil {
		t.Fatal(err)
	}

	s, err := OpenSession(dir, SessionOptions{Config: cfg, Token: tok})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Remote() {
		t.Fatal("manifest remote id should enable the backend sink")
	}
	s.SetLocked(true)
	closeSession(t, s)

	deadline := time.Now().Add(5 * time.Second)
	for {
		p, err := c.GetPlan(context.Background(), id)
		if err == nil && p.Locked {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("remote lock not applied: %+v %v", p, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
