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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"floorplan/internal/domain"
	applog "floorplan/internal/log"
)

const (
	ManifestFileName = "plan.json"
	BackupsDirName   = "backups"
	ExportsDirName   = "exports"

	// MaxBackups bounds the number of manifest backups kept per project.
	MaxBackups = 20
)

var standardSubDirs = []string{ExportsDirName, BackupsDirName}

// ProjectHandle is a project loaded from or saved to disk.
type ProjectHandle struct {
	Root         string
	ManifestPath string
	Project      domain.Project
	// Recovered is set when Open fell back to a backup.
	Recovered bool
}

// InitProject creates root (and its standard subfolders) and writes proj as
// the manifest.
func InitProject(root string, proj domain.Project) (*ProjectHandle, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	if err := scaffold(root); err != nil {
		return nil, err
	}
	ph := &ProjectHandle{
		Root:         root,
		ManifestPath: filepath.Join(root, ManifestFileName),
		Project:      proj,
	}
	if err := Save(ph); err != nil {
		return nil, err
	}
	return ph, nil
}

func scaffold(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create project root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// Open loads the project in root. A manifest that cannot be read, parsed or
// validated is replaced in memory by the newest usable backup.
func Open(root string) (*ProjectHandle, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("root", root))
	mpath := filepath.Join(root, ManifestFileName)
	p, err := readManifest(mpath)
	if err == nil {
		return &ProjectHandle{Root: root, ManifestPath: mpath, Project: p}, nil
	}
	l.Warn("manifest unusable, trying backups", slog.Any("err", err))
	bp, berr := openFromLatestBackup(root)
	if berr != nil {
		return nil, fmt.Errorf("open manifest: %w; backup attempt: %v", err, berr)
	}
	l.Info("project recovered from backup")
	return &ProjectHandle{Root: root, ManifestPath: mpath, Project: *bp, Recovered: true}, nil
}

func readManifest(path string) (domain.Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Project{}, err
	}
	if err := ValidateManifest(b); err != nil {
		return domain.Project{}, err
	}
	var p domain.Project
	if err := json.Unmarshal(b, &p); err != nil {
		return domain.Project{}, fmt.Errorf("parse manifest: %w", err)
	}
	return p, nil
}

// Save writes the manifest via a temp file and rename, after copying the
// previous manifest into backups/.
func Save(ph *ProjectHandle) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if ph.Root == "" || ph.ManifestPath == "" {
		return errors.New("invalid ProjectHandle: missing paths")
	}
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(ph.ManifestPath); statErr == nil {
		bpath := filepath.Join(bdir, backupName(time.Now(), ""))
		if cerr := copyFile(ph.ManifestPath, bpath); cerr != nil {
			return fmt.Errorf("backup current manifest: %w", cerr)
		}
		if perr := pruneBackups(bdir, MaxBackups); perr != nil {
			applog.WithComponent("storage").Warn("prune backups failed", slog.Any("err", perr))
		}
	}

	if err := writeAtomic(ph.ManifestPath, data); err != nil {
		return err
	}
	ph.Recovered = false
	return nil
}

// SaveAs writes the manifest into newRoot, scaffolding it, and repoints ph.
func SaveAs(ph *ProjectHandle, newRoot string) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	if strings.TrimSpace(newRoot) == "" {
		return errors.New("new root is empty")
	}
	if err := scaffold(newRoot); err != nil {
		return err
	}
	ph.Root = newRoot
	ph.ManifestPath = filepath.Join(newRoot, ManifestFileName)
	return Save(ph)
}

// AutosaveCrashSnapshot writes the in-memory manifest to backups/ without
// touching plan.json. Open picks it up if the manifest is later unusable.
func AutosaveCrashSnapshot(ph *ProjectHandle) (string, error) {
	if ph == nil || ph.Root == "" {
		return "", errors.New("invalid ProjectHandle")
	}
	data, err := json.MarshalIndent(ph.Project, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	bdir := filepath.Join(ph.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	path := filepath.Join(bdir, backupName(time.Now(), "crash"))
	if err := writeAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// backupName sorts lexicographically by time: plan.json.20060102-150405.000[.tag].bak
func backupName(ts time.Time, tag string) string {
	stamp := ts.Format("20060102-150405.000")
	if tag != "" {
		return fmt.Sprintf("%s.%s.%s.bak", ManifestFileName, stamp, tag)
	}
	return fmt.Sprintf("%s.%s.bak", ManifestFileName, stamp)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", err)
	}
	// Windows cannot rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// listBackups returns backup paths, oldest first.
func listBackups(bdir string) ([]string, error) {
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, ManifestFileName+".") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func pruneBackups(bdir string, keep int) error {
	all, err := listBackups(bdir)
	if err != nil {
		return err
	}
	var errs []error
	for len(all) > keep {
		if err := os.Remove(all[0]); err != nil {
			errs = append(errs, err)
		}
		all = all[1:]
	}
	return errors.Join(errs...)
}

// openFromLatestBackup returns the newest backup that parses and validates.
func openFromLatestBackup(root string) (*domain.Project, error) {
	all, err := listBackups(filepath.Join(root, BackupsDirName))
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	if len(all) == 0 {
		return nil, errors.New("no backups found")
	}
	var lastErr error
	for i := len(all) - 1; i >= 0; i-- {
		p, err := readManifest(all[i])
		if err == nil {
			return &p, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no usable backup: %w", lastErr)
}
