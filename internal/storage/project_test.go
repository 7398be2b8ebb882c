/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"floorplan/internal/domain"
)

const kitchenSVG = `<svg xmlns="http://www.w3.org/2000/svg"><rect data-kind="room_kitchen" data-id="k" x="10" y="10" width="100" height="50" fill="#FFE082" /></svg>`

func countBackups(t *testing.T, root string) int {
	t.Helper()
	all, err := listBackups(filepath.Join(root, BackupsDirName))
	if err != nil {
		t.Fatalf("list backups: %v", err)
	}
	return len(all)
}

func TestInitProjectCreatesStructureAndManifest(t *testing.T) {
	root := filepath.Join(t.TempDir(), "flat")
	ph, err := InitProject(root, domain.NewProject("Flat"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	b, err := os.ReadFile(ph.ManifestPath)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var got domain.Project
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if got.Name != "Flat" || got.Scale != 1 || !strings.HasPrefix(got.FloorPlan.SVG, "<svg") {
		t.Fatalf("unexpected manifest %+v", got)
	}
	for _, d := range []string{ExportsDirName, BackupsDirName} {
		if fi, err := os.Stat(filepath.Join(root, d)); err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s to exist", d)
		}
	}
	if _, err := InitProject("  ", domain.NewProject("x")); err == nil {
		t.Fatalf("expected error for blank root")
	}
}

func TestSaveOpenRoundTrip(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.NewProject("Round Trip"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	ph.Project.FloorPlan = domain.FloorPlan{SVG: kitchenSVG, Locked: true}
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Recovered {
		t.Fatalf("healthy manifest should not be flagged as recovered")
	}
	if opened.Project.FloorPlan != ph.Project.FloorPlan {
		t.Fatalf("floor plan mismatch: %+v", opened.Project.FloorPlan)
	}
	if countBackups(t, root) != 1 {
		t.Fatalf("expected one backup after the second save")
	}
}

func TestOpenFallsBackToLatestBackupOnCorruption(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.NewProject("Open From Backup"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Project.Metadata.Notes = "touch"
	if err := Save(ph); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := os.WriteFile(ph.ManifestPath, []byte("{ this is not json"), 0o644); err != nil {
		t.Fatalf("corrupt manifest: %v", err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	if opened.Project.Name != "Open From Backup" || !opened.Recovered {
		t.Fatalf("unexpected recovery result %+v", opened)
	}
}

func TestOpenRejectsSchemaViolationAndUsesBackup(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.NewProject("Schema Guard"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	if err := Save(ph); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := os.WriteFile(ph.ManifestPath, []byte(`{"name":"","scale":-1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Project.Name != "Schema Guard" {
		t.Fatalf("schema-invalid manifest should fall back to backup")
	}
}

func TestOpenFailsWithoutManifestOrBackups(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSaveAsMovesProject(t *testing.T) {
	ph, err := InitProject(t.TempDir(), domain.NewProject("Move"))
	if err != nil {
		t.Fatalf("InitProject: %v", err)
	}
	dst := filepath.Join(t.TempDir(), "copy")
	if err := SaveAs(ph, dst); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if ph.Root != dst {
		t.Fatalf("handle not repointed")
	}
	if _, err := Open(dst); err != nil {
		t.Fatalf("Open copy: %v", err)
	}
}

func TestPruneBackupsKeepsNewest(t *testing.T) {
	root := t.TempDir()
	bdir := filepath.Join(root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		t.Fatal(err)
	}
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		name := backupName(base.Add(time.Duration(i)*time.Second), "")
		if err := os.WriteFile(filepath.Join(bdir, name), []byte(fmt.Sprint(i)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := pruneBackups(bdir, 2); err != nil {
		t.Fatalf("pruneBackups: %v", err)
	}
	left, _ := listBackups(bdir)
	if len(left) != 2 || !strings.Contains(left[1], "20250101-000004") {
		t.Fatalf("unexpected survivors %v", left)
	}
}

func TestAutosaveCrashSnapshotIsRecoverable(t *testing.T) {
	root := t.TempDir()
	ph, err := InitProject(root, domain.NewProject("Crash Snapshot"))
	if err != nil {
		t.Fatalf("InitProject error: %v", err)
	}
	ph.Project.FloorPlan.SVG = kitchenSVG

	path, err := AutosaveCrashSnapshot(ph)
	if err != nil {
		t.Fatalf("AutosaveCrashSnapshot error: %v", err)
	}
	if !strings.HasSuffix(path, ".crash.bak") {
		t.Fatalf("unexpected snapshot name %s", path)
	}
	if err := os.Remove(ph.ManifestPath); err != nil {
		t.Fatal(err)
	}
	opened, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.Project.FloorPlan.SVG != kitchenSVG {
		t.Fatalf("crash snapshot not used for recovery")
	}
}
