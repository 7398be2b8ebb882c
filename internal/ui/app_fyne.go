//go:build fyne && cgo

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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"floorplan/internal/backend"
	"floorplan/internal/config"
	"floorplan/internal/crash"
	applog "floorplan/internal/log"
	"floorplan/internal/plan"
	"floorplan/internal/telemetry"
	"floorplan/internal/version"
)

const selectTool = "Select"

// Run opens the project in projectDir (or the most recent one) in a desktop
// window and blocks until the window closes.
func Run(projectDir string) error {
	cfg, token, err := config.Load()
	if err != nil {
		return err
	}
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))

	fyneApp := app.NewWithID("floorplan")
	prefs := fyneApp.Preferences()
	if projectDir == "" {
		if rec := loadRecentProjects(prefs); len(rec) > 0 {
			projectDir = rec[0]
		}
	}
	if projectDir == "" {
		return fmt.Errorf("no project directory given and no recent project")
	}
	abs, _ := filepath.Abs(projectDir)

	w := fyneApp.NewWindow("Floor Plan")
	w.Resize(fyne.NewSize(
		float32(max(prefs.IntWithFallback("window.width", 1200), 640)),
		float32(max(prefs.IntWithFallback("window.height", 800), 480)),
	))

	status := widget.NewLabel("Ready")
	setStatus := func(msg string) { fyne.Do(func() { status.SetText(msg) }) }
	pc := NewPlanCanvas()

	tel := telemetry.InitDefault()
	sess, err := OpenSession(abs, SessionOptions{
		Config:      cfg,
		Token:       token,
		View:        pc,
		Telemetry:   tel,
		Notify:      setStatus,
		PreviewSize: 256,
	})
	if err != nil {
		return err
	}
	defer crash.Recover(sess.Project)
	addRecentProject(prefs, abs)
	pc.Attach(sess.Editor)
	w.SetTitle(fmt.Sprintf("Floor Plan — %s", sess.Project.Project.Name))

	// Toolbar
	kinds := plan.AllKinds()
	names := []string{selectTool}
	byName := map[string]plan.Kind{}
	for _, k := range kinds {
		label := fmt.Sprintf("%s (%s)", k.Label(), k.Category)
		names = append(names, label)
		byName[label] = k
	}
	toolSelect := widget.NewSelect(names, func(name string) {
		if k, ok := byName[name]; ok {
			sess.Editor.ArmTool(k)
			status.SetText("Drawing " + k.Label())
		} else {
			sess.Editor.DisarmTool()
			status.SetText("Select and move shapes")
		}
		pc.Refresh()
	})
	toolSelect.SetSelected(selectTool)

	lockCheck := widget.NewCheck("Locked", func(on bool) {
		if on == sess.Editor.Locked() {
			return
		}
		sess.SetLocked(on)
		pc.Refresh()
	})
	lockCheck.SetChecked(sess.Editor.Locked())

	deleteBtn := widget.NewButton("Delete", func() {
		if sess.Editor.DeleteSelected() {
			pc.Refresh()
		}
	})
	clearBtn := widget.NewButton("Clear", func() {
		dialog.ShowConfirm("Clear Plan", "Remove every shape from the plan?", func(ok bool) {
			if ok && sess.Editor.Clear() {
				pc.Refresh()
			}
		}, w)
	})
	fitBtn := widget.NewButton("Fit", pc.FitToPlan)
	exportBtn := widget.NewButton("Export…", func() { showExportDialog(w, sess, setStatus, l) })

	pc.OnInteract = func() {
		n := len(sess.Editor.Shapes())
		sel, _ := sess.Editor.Selection()
		status.SetText(fmt.Sprintf("%d shapes  %s  %s", n, sess.Editor.State().Name(), sel))
	}

	bar := container.NewHBox(widget.NewLabel("Tool"), toolSelect, lockCheck, deleteBtn, clearBtn, fitBtn, exportBtn)
	w.SetContent(container.NewBorder(bar, status, nil, nil, pc))

	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyL, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		lockCheck.SetChecked(!lockCheck.Checked)
	})
	w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierControl}, func(fyne.Shortcut) {
		exportBtn.OnTapped()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if sess.Remote() {
		sess.Watch(ctx, func(p backend.Plan) {
			fyne.Do(func() {
				if sess.Apply(p) {
					lockCheck.SetChecked(sess.Editor.Locked())
					pc.Refresh()
					status.SetText(fmt.Sprintf("Remote plan v%d applied", p.Version))
				}
			})
		})
	}

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer ccancel()
		if err := sess.Close(cctx); err != nil {
			l.Error("close session failed", slog.Any("err", err))
		}
		tel.Flush(cctx)
		w.Close()
	})

	w.ShowAndRun()
	return nil
}

// showExportDialog writes a PNG or SVG of the current plan under the
// project's exports folder.
func showExportDialog(w fyne.Window, sess *Session, setStatus func(string), l *slog.Logger) {
	format := widget.NewRadioGroup([]string{"PNG", "SVG"}, nil)
	format.SetSelected("PNG")
	name := widget.NewEntry()
	name.SetText("plan")
	dialog.ShowForm("Export Plan", "Export", "Cancel", []*widget.FormItem{
		widget.NewFormItem("Format", format),
		widget.NewFormItem("Name", name),
	}, func(ok bool) {
		if !ok {
			return
		}
		base := strings.TrimSpace(name.Text)
		if base == "" {
			base = "plan"
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		out, err := sess.Export(ctx, format.Selected, base+"."+strings.ToLower(format.Selected))
		if err != nil {
			l.Error("export failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		setStatus("Exported " + out)
	}, w)
}

// Recent projects are kept in the Fyne preferences as a JSON list.
const recentPrefsKey = "recent.projects"
const recentMax = 10

func loadRecentProjects(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentProject(p fyne.Preferences, abs string) {
	rec := loadRecentProjects(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		if !strings.EqualFold(s, abs) {
			out = append(out, s)
		}
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
