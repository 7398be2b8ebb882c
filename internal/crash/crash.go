/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
// Package crash turns panics into a report file next to the project's
// backups plus an autosaved copy of the manifest.
package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "floorplan/internal/log"
	"floorplan/internal/markup"
	"floorplan/internal/storage"
	"floorplan/internal/telemetry"
	"floorplan/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Recover captures a panic, writes a report, autosaves the manifest when ph
// is set and exits with status 2.
//
// Usage: defer crash.Recover(ph)
func Recover(ph *storage.ProjectHandle) {
	if r := recover(); r != nil {
		reportPath := handle(ph, r, debug.Stack())
		l := applog.WithComponent("crash")
		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		exitFn(2)
	}
}

// Go runs fn on a new goroutine. A panic there is reported like Recover
// does but the process keeps running.
func Go(ph *storage.ProjectHandle, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				handle(ph, r, debug.Stack())
			}
		}()
		fn()
	}()
}

func handle(ph *storage.ProjectHandle, panicVal any, stack []byte) string {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", panicVal), slog.String("stack", string(stack)))

	reportPath, err := writeReport(ph, panicVal, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err), slog.String("path", reportPath))
	}
	if ph != nil {
		if path, err := storage.AutosaveCrashSnapshot(ph); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
		}
	}
	return reportPath
}

func writeReport(ph *storage.ProjectHandle, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if ph != nil && ph.Root != "" {
		dir = filepath.Join(ph.Root, storage.BackupsDirName)
		_ = os.MkdirAll(dir, 0o755)
	}
	now := time.Now()
	path := filepath.Join(dir, fmt.Sprintf("crash-%s-%03d.log", now.Format("20060102-150405"), now.Nanosecond()/1e6))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Floor Plan Editor Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if ph != nil {
		svg := ph.Project.FloorPlan.SVG
		_, _ = fmt.Fprintf(&buf, "ProjectRoot: %s\n", ph.Root)
		_, _ = fmt.Fprintf(&buf, "Manifest: %s\n", ph.ManifestPath)
		_, _ = fmt.Fprintf(&buf, "Plan: %d shapes, %d bytes, locked=%t\n",
			len(markup.Decode(svg)), len(svg), ph.Project.FloorPlan.Locked)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}

	// opt-in upload; the report carries no plan content
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
