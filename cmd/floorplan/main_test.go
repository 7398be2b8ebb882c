/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	"floorplan/internal/backend"
	"floorplan/internal/config"
	"floorplan/internal/storage"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", keyring.ErrNotFound
	}
	return v, nil
}
func (m memTokens) Set(service, key, value string) error { m[service+"/"+key] = value; return nil }
func (m memTokens) Delete(service, key string) error    { delete(m, service+"/"+key); return nil }

// setup isolates config and keychain and captures command output.
func setup(t *testing.T) (*bytes.Buffer, memTokens) {
	t.Helper()
	t.Setenv("FP_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	t.Setenv("FP_PROJECT_ID", "")
	mem := memTokens{}
	prev := config.SetTokenStore(mem)
	t.Cleanup(func() { config.SetTokenStore(prev) })
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf, mem
}

func mustRun(t *testing.T, buf *bytes.Buffer, args ...string) string {
	t.Helper()
	buf.Reset()
	if code := run(args); code != 0 {
		t.Fatalf("%v exited %d:\n%s", args, code, buf.String())
	}
	return buf.String()
}

const kitchenScript = `# one kitchen
tool room_kitchen
down 10 10
move 60 30
up 110 60
`

func TestInitOpenRenderExport(t *testing.T) {
	buf, _ := setup(t)
	dir := filepath.Join(t.TempDir(), "flat")

	mustRun(t, buf, "init", dir, "Flat")
	out := mustRun(t, buf, "open", dir)
	if !strings.Contains(out, "Opened project: Flat") || !strings.Contains(out, "Shapes: 0") {
		t.Fatalf("open output:\n%s", out)
	}

	scriptPath := filepath.Join(t.TempDir(), "kitchen.txt")
	if err := os.WriteFile(scriptPath, []byte(kitchenScript), 0o644); err != nil {
		t.Fatal(err)
	}
	out = mustRun(t, buf, "replay", dir, scriptPath)
	if !strings.Contains(out, "plan has 1 shapes") {
		t.Fatalf("replay output:\n%s", out)
	}

	mustRun(t, buf, "render", dir, "plan.png", "200", "100")
	mustRun(t, buf, "export-svg", dir, "plan.svg")
	for _, name := range []string{"plan.png", "plan.svg"} {
		if _, err := os.Stat(filepath.Join(dir, storage.ExportsDirName, name)); err != nil {
			t.Fatalf("missing export %s: %v", name, err)
		}
	}
	svg, _ := os.ReadFile(filepath.Join(dir, storage.ExportsDirName, "plan.svg"))
	if !strings.Contains(string(svg), "room_kitchen") {
		t.Fatalf("svg export lacks the kitchen:\n%s", svg)
	}
}

func TestRevisionsAndRestore(t *testing.T) {
	buf, _ := setup(t)
	dir := filepath.Join(t.TempDir(), "flat")
	mustRun(t, buf, "init", dir, "Flat")
	scriptPath := filepath.Join(t.TempDir(), "kitchen.txt")
	if err := os.WriteFile(scriptPath, []byte(kitchenScript), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, buf, "replay", dir, scriptPath)

	out := mustRun(t, buf, "revisions", dir)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 revisions, got:\n%s", out)
	}
	// Newest first; the empty plan from init is last.
	first := regexp.MustCompile(`^\s*(\d+)\s`).FindStringSubmatch(lines[1])
	if first == nil || !strings.Contains(lines[1], "0 shapes") {
		t.Fatalf("unexpected oldest revision line %q", lines[1])
	}

	buf.Reset()
	if code := run([]string{"restore", dir, "9999"}); code != 1 {
		t.Fatalf("restore of an unknown revision exited %d", code)
	}
	if !strings.Contains(buf.String(), "revision 9999 not found") {
		t.Fatalf("unknown revision output:\n%s", buf.String())
	}
	out = mustRun(t, buf, "open", dir)
	if !strings.Contains(out, "Shapes: 1") {
		t.Fatalf("failed restore touched the plan:\n%s", out)
	}

	mustRun(t, buf, "restore", dir, first[1])
	out = mustRun(t, buf, "open", dir)
	if !strings.Contains(out, "Shapes: 0") {
		t.Fatalf("restore did not bring back the empty plan:\n%s", out)
	}
	out = mustRun(t, buf, "revisions", dir)
	if !strings.Contains(out, storage.SourceRestore) {
		t.Fatalf("restore not recorded:\n%s", out)
	}

	out = mustRun(t, buf, "prune", dir, "1")
	if !strings.Contains(out, "Removed 2 revisions") {
		t.Fatalf("prune output: %s", out)
	}
}

func TestUsageErrors(t *testing.T) {
	buf, _ := setup(t)
	for _, args := range [][]string{{"init"}, {"render", "x"}, {"bogus"}, {"revisions", "x", "-1"}, {"serve", "--nope"}} {
		buf.Reset()
		if code := run(args); code != 2 {
			t.Fatalf("%v exited %d, want 2", args, code)
		}
		if !strings.Contains(buf.String(), "Usage:") {
			t.Fatalf("%v printed no usage:\n%s", args, buf.String())
		}
	}
	buf.Reset()
	if code := run([]string{"open", filepath.Join(t.TempDir(), "missing")}); code != 1 {
		t.Fatalf("open of a missing project exited %d", code)
	}
}

func TestLoginLinksProject(t *testing.T) {
	buf, mem := setup(t)
	srv := backend.NewServer(backend.NewMemStore(), "cli-secret")
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	c := backend.NewClient(ts.URL, "")
	if _, err := c.IssueToken(t.Context(), "setup", time.Hour); err != nil {
		t.Fatal(err)
	}
	p, err := c.CreatePlan(t.Context(), "Remote Flat", 1)
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "flat")
	mustRun(t, buf, "init", dir, "Flat")
	out := mustRun(t, buf, "login", ts.URL, p.ID, dir)
	if !strings.Contains(out, "Remote Flat") {
		t.Fatalf("login output: %s", out)
	}
	h, err := storage.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	if h.Project.RemoteID != p.ID {
		t.Fatalf("remote id = %q", h.Project.RemoteID)
	}
	if len(mem) != 1 {
		t.Fatalf("token not stored: %v", mem)
	}
	cfg, tok, err := config.Load()
	if err != nil || cfg.Backend.BaseURL != ts.URL || tok == "" {
		t.Fatalf("config after login: %+v tok=%q err=%v", cfg.Backend, tok, err)
	}
}
