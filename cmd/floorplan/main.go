/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"floorplan/internal/backend"
	"floorplan/internal/config"
	"floorplan/internal/crash"
	"floorplan/internal/domain"
	"floorplan/internal/editor"
	"floorplan/internal/export"
	applog "floorplan/internal/log"
	"floorplan/internal/markup"
	"floorplan/internal/script"
	"floorplan/internal/storage"
	"floorplan/internal/telemetry"
	"floorplan/internal/textlayout"
	"floorplan/internal/ui"
	"floorplan/internal/vector"
	"floorplan/internal/version"
)

var stdout io.Writer = os.Stdout

// errUsage makes run print the usage text and exit with status 2.
var errUsage = errors.New("usage")

func usage() {
	fmt.Fprintln(stdout, "Floor Plan Editor")
	fmt.Fprintf(stdout, "Version: %s\n", version.String())
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Usage:")
	fmt.Fprintln(stdout, "  floorplan version|-v|--version              Show version")
	fmt.Fprintln(stdout, "  floorplan init <dir> <name>                 Create a new project at <dir>")
	fmt.Fprintln(stdout, "  floorplan open <dir>                        Print a summary of the plan")
	fmt.Fprintln(stdout, "  floorplan save <dir>                        Re-save the manifest (creates backup) and record a revision")
	fmt.Fprintln(stdout, "  floorplan render <dir> <out.png> [w h]      Render the plan to PNG")
	fmt.Fprintln(stdout, "  floorplan export-svg <dir> <out.svg>        Write the plan as SVG with a fitted viewBox")
	fmt.Fprintln(stdout, "  floorplan revisions <dir> [limit]           List recorded revisions")
	fmt.Fprintln(stdout, "  floorplan prune <dir> [keep]                Drop all but the newest revisions")
	fmt.Fprintln(stdout, "  floorplan restore <dir> <rev>               Restore the plan from a revision")
	fmt.Fprintln(stdout, "  floorplan replay <dir> <script>             Apply a gesture script to the plan")
	fmt.Fprintln(stdout, "  floorplan login <url> <project-id> [<dir>]  Fetch a backend token and link a remote project")
	fmt.Fprintln(stdout, "  floorplan serve [--mem]                     Run the plan server")
	fmt.Fprintln(stdout, "  floorplan ui [<dir>]                        Launch the desktop editor (build with -tags fyne)")
}

func main() {
	defer crash.Recover(nil)
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, token, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Config:", err)
		cfg = config.Defaults()
	}
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	tel := telemetry.InitDefault()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		tel.Flush(ctx)
	}()

	if len(args) == 0 {
		usage()
		return 0
	}
	cmd, rest := args[0], args[1:]
	if cmd != "version" && cmd != "-v" && cmd != "--version" {
		tel.Event("cli_command", map[string]any{"command": cmd})
	}
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "Floor Plan Editor")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "init":
		err = cmdInit(rest)
	case "open":
		err = cmdOpen(rest)
	case "save":
		err = cmdSave(rest)
	case "render":
		err = cmdRender(rest)
	case "export-svg":
		err = cmdExportSVG(rest)
	case "revisions":
		err = cmdRevisions(rest)
	case "prune":
		err = cmdPrune(rest)
	case "restore":
		err = cmdRestore(rest)
	case "replay":
		err = cmdReplay(rest, cfg, token)
	case "login":
		err = cmdLogin(rest, cfg)
	case "serve":
		err = cmdServe(rest)
	case "ui":
		var dir string
		if len(rest) > 0 {
			dir = rest[0]
		}
		err = ui.Run(dir)
	default:
		usage()
		return 2
	}
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintf(stdout, "%s: %v\n", cmd, err)
		usage()
		return 2
	case err != nil:
		l.Error("command failed", slog.String("command", cmd), slog.Any("err", err))
		fmt.Fprintln(stdout, "Error:", err)
		return 1
	}
	return 0
}

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: requires %s", errUsage, what)
	}
	return nil
}

func openProject(dir string) (*storage.ProjectHandle, error) {
	abs, _ := filepath.Abs(dir)
	applog.WithComponent("cli").Info("open project", slog.String("root", abs))
	return storage.Open(abs)
}

func cmdInit(args []string) error {
	if err := need(args, 2, "<dir> and <name>"); err != nil {
		return err
	}
	abs, _ := filepath.Abs(args[0])
	h, err := storage.InitProject(abs, domain.NewProject(args[1]))
	if err != nil {
		return err
	}
	ix, err := storage.OpenIndex(h.Root)
	if err != nil {
		return err
	}
	defer ix.Close()
	if _, err := ix.SaveRevision(context.Background(), h.Project.FloorPlan.SVG, 0, storage.SourceLocal); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Created project at", abs)
	return nil
}

func cmdOpen(args []string) error {
	if err := need(args, 1, "<dir>"); err != nil {
		return err
	}
	h, err := openProject(args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	shapes, derr := markup.DecodeStrict(h.Project.FloorPlan.SVG)
	fmt.Fprintf(stdout, "Opened project: %s\n", h.Project.Name)
	if h.Recovered {
		fmt.Fprintln(stdout, "Manifest was restored from the latest backup.")
	}
	fmt.Fprintf(stdout, "Shapes: %d\n", len(shapes))
	fmt.Fprintf(stdout, "Locked: %t\n", h.Project.FloorPlan.Locked)
	if derr != nil {
		fmt.Fprintln(stdout, "Markup:", derr)
	}
	fmt.Fprintln(stdout, "Root:", h.Root)
	return nil
}

func cmdSave(args []string) error {
	if err := need(args, 1, "<dir>"); err != nil {
		return err
	}
	h, err := openProject(args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	if err := storage.Save(h); err != nil {
		return err
	}
	if err := recordRevision(h, storage.SourceLocal); err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Saved project and created a backup of the previous manifest (if any).")
	return nil
}

func recordRevision(h *storage.ProjectHandle, source string) error {
	ix, err := storage.OpenIndex(h.Root)
	if err != nil {
		return err
	}
	defer ix.Close()
	svg := h.Project.FloorPlan.SVG
	_, err = ix.SaveRevision(context.Background(), svg, len(markup.Decode(svg)), source)
	return err
}

func cmdRender(args []string) error {
	if err := need(args, 2, "<dir> and <out.png>"); err != nil {
		return err
	}
	fonts, err := textlayout.ProviderFromEnv()
	if err != nil {
		applog.WithComponent("cli").Warn("label font unavailable, using built-in face", slog.String("err", err.Error()))
	}
	opt := export.PNGOptions{Labels: true, Fonts: fonts}
	if len(args) >= 4 {
		w, werr := strconv.Atoi(args[2])
		hgt, herr := strconv.Atoi(args[3])
		if werr != nil || herr != nil || w <= 0 || hgt <= 0 {
			return fmt.Errorf("%w: width and height must be positive integers", errUsage)
		}
		opt.Width, opt.Height = w, hgt
	}
	h, err := openProject(args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	out, err := export.ExportPNG(h, args[1], opt)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Wrote", out)
	return nil
}

func cmdExportSVG(args []string) error {
	if err := need(args, 2, "<dir> and <out.svg>"); err != nil {
		return err
	}
	h, err := openProject(args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	out, err := export.ExportSVG(h, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, "Wrote", out)
	return nil
}

func openIndex(dir string) (*storage.Index, error) {
	abs, _ := filepath.Abs(dir)
	if _, err := os.Stat(filepath.Join(abs, storage.ManifestFileName)); err != nil {
		return nil, fmt.Errorf("not a project: %w", err)
	}
	return storage.OpenIndex(abs)
}

func cmdRevisions(args []string) error {
	if err := need(args, 1, "<dir>"); err != nil {
		return err
	}
	limit := 20
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: limit must be a positive integer", errUsage)
		}
		limit = n
	}
	ix, err := openIndex(args[0])
	if err != nil {
		return err
	}
	defer ix.Close()
	revs, err := ix.ListRevisions(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		fmt.Fprintln(stdout, "No revisions recorded.")
		return nil
	}
	for _, r := range revs {
		fmt.Fprintf(stdout, "%6d  %s  %3d shapes  %-7s  %s\n", r.ID, r.TS.Local().Format("2006-01-02 15:04:05"), r.Shapes, r.Source, r.Hash[:12])
	}
	return nil
}

func cmdPrune(args []string) error {
	if err := need(args, 1, "<dir>"); err != nil {
		return err
	}
	keep := storage.DefaultKeepRevisions
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: keep must be at least 1", errUsage)
		}
		keep = n
	}
	ix, err := openIndex(args[0])
	if err != nil {
		return err
	}
	defer ix.Close()
	n, err := ix.PruneRevisions(context.Background(), keep)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Removed %d revisions.\n", n)
	return nil
}

func cmdRestore(args []string) error {
	if err := need(args, 2, "<dir> and <rev>"); err != nil {
		return err
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: rev must be a revision id", errUsage)
	}
	h, err := openProject(args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	ix, err := storage.OpenIndex(h.Root)
	if err != nil {
		return err
	}
	defer ix.Close()
	ctx := context.Background()
	rev, ok, err := ix.GetRevision(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("revision %d not found", id)
	}
	h.Project.FloorPlan.SVG = rev.Markup
	if err := storage.Save(h); err != nil {
		return err
	}
	if _, err := ix.SaveRevision(ctx, rev.Markup, rev.Shapes, storage.SourceRestore); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Restored revision %d (%d shapes).\n", rev.ID, rev.Shapes)
	return nil
}

// cmdReplay drives a headless editor session with a gesture script. Edits
// go through the same persistence pipeline as the desktop editor.
func cmdReplay(args []string, cfg config.AppConfig, token string) error {
	if err := need(args, 2, "<dir> and <script>"); err != nil {
		return err
	}
	src, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	sc, perrs := script.Parse(string(src))
	for _, e := range perrs {
		fmt.Fprintln(stdout, "Script:", e.Error())
	}
	if len(perrs) > 0 {
		return fmt.Errorf("%d script errors", len(perrs))
	}
	abs, _ := filepath.Abs(args[0])
	view := editor.NewManualViewport(vector.DefaultViewport)
	sess, err := ui.OpenSession(abs, ui.SessionOptions{
		Config:    cfg,
		Token:     token,
		View:      view,
		Telemetry: telemetry.InitDefault(),
		Notify:    func(msg string) { fmt.Fprintln(stdout, msg) },
	})
	if err != nil {
		return err
	}
	defer crash.Recover(sess.Project)
	n, rerr := script.Replay(sc, sess.Editor, view)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := sess.Close(ctx); err != nil {
		return err
	}
	if rerr != nil {
		return fmt.Errorf("after %d steps: %w", n, rerr)
	}
	fmt.Fprintf(stdout, "Replayed %d steps; plan has %d shapes.\n", n, len(sess.Editor.Shapes()))
	return nil
}

// cmdLogin stores a fresh token and the server URL in the user config. The
// remote project is linked to <dir> when given, otherwise it becomes the
// default for every project.
func cmdLogin(args []string, cfg config.AppConfig) error {
	if err := need(args, 2, "<url> and <project-id>"); err != nil {
		return err
	}
	cfg.Backend.BaseURL = args[0]
	remoteID := args[1]
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout())
	defer cancel()
	c := backend.NewClient(cfg.Backend.BaseURL, "")
	tok, err := c.IssueToken(ctx, "floorplan-cli", 30*24*time.Hour)
	if err != nil {
		return err
	}
	p, err := c.GetPlan(ctx, remoteID)
	if err != nil {
		return err
	}
	if len(args) > 2 {
		h, err := openProject(args[2])
		if err != nil {
			return err
		}
		h.Project.RemoteID = p.ID
		if err := storage.Save(h); err != nil {
			return err
		}
	} else {
		cfg.Backend.ProjectID = p.ID
	}
	if err := config.Save(cfg, tok); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Linked remote project %s (%s, version %d).\n", p.ID, p.Name, p.Version)
	return nil
}

func cmdServe(args []string) error {
	cfg := backend.LoadServerConfig()
	for _, a := range args {
		switch a {
		case "--mem", "-mem":
			cfg.Memory = true
		default:
			return fmt.Errorf("%w: unknown flag %s", errUsage, a)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return backend.Start(ctx, cfg)
}
