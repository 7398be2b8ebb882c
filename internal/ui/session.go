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
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"floorplan/internal/backend"
	"floorplan/internal/config"
	"floorplan/internal/crash"
	"floorplan/internal/editor"
	"floorplan/internal/export"
	applog "floorplan/internal/log"
	"floorplan/internal/persist"
	"floorplan/internal/plan"
	"floorplan/internal/storage"
	"floorplan/internal/telemetry"
	"floorplan/internal/textlayout"
	"floorplan/internal/vector"
)

// SessionOptions configures OpenSession.
type SessionOptions struct {
	Config config.AppConfig
	Token  string
	// View is the host canvas; nil uses a fixed default viewport.
	View editor.ViewportSource
	// Telemetry receives editor changes; nil disables tracking.
	Telemetry *telemetry.Client
	// Notify receives user-facing status lines from background work.
	Notify func(string)
	// PreviewSize is the edge of revision previews in pixels; 0 disables them.
	PreviewSize int
}

// Session is one open project wired to an editor controller and its
// persistence sinks.
type Session struct {
	Project *storage.ProjectHandle
	Index   *storage.Index
	Editor  *editor.Controller

	tracker   *editor.ViewportTracker
	writer    *persist.Writer
	file      *persist.FileSink
	remote    *backend.Client
	projectID string
	notify    func(string)
	log       *slog.Logger

	mu     sync.Mutex
	recent []string // markup we submitted, newest last
}

const recentEchoes = 16

// OpenSession opens the project at dir and loads its plan into a new
// controller. Every committed change is persisted asynchronously.
func OpenSession(dir string, opt SessionOptions) (*Session, error) {
	l := applog.WithComponent("session").With(slog.String("project", dir))
	ph, err := storage.Open(dir)
	if err != nil {
		return nil, err
	}
	if ph.Recovered {
		l.Warn("manifest restored from backup")
	}
	ix, err := storage.OpenIndex(dir)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	s := &Session{Project: ph, Index: ix, notify: opt.Notify, log: l}
	if s.notify == nil {
		s.notify = func(string) {}
	}

	view := opt.View
	if view == nil {
		view = editor.StaticViewport(vector.DefaultViewport)
	}
	s.tracker = editor.TrackViewport(view, opt.Config.Editor.PollInterval())
	ec := opt.Config.Editor
	s.Editor = editor.New(s.tracker, editor.Options{
		MinShapeSize: ec.MinShapeSize,
		Hit:          plan.HitTester{Padding: ec.HitPadding, HandleSizePx: ec.HandleSizePx},
		Logger:       l,
	})
	s.Editor.LoadMarkup(ph.Project.FloorPlan.SVG)
	s.Editor.SetLocked(ph.Project.FloorPlan.Locked)

	var preview export.PNGOptions
	if opt.PreviewSize > 0 {
		preview = export.PNGOptions{Width: opt.PreviewSize, Height: opt.PreviewSize, Padding: 4}
	}
	s.file = persist.NewFileSink(ph, ix, preview)
	var sink persist.Sink = s.file
	bc := opt.Config.Backend
	remoteID := ph.Project.RemoteID
	if remoteID == "" {
		remoteID = bc.ProjectID
	}
	if bc.BaseURL != "" && remoteID != "" {
		s.remote = newBackendClient(bc, opt.Token)
		s.projectID = remoteID
		sink = persist.MultiSink{s.file, persist.NewBackendSink(s.remote, remoteID)}
	}
	s.writer = persist.NewWriter(sink, persist.Options{
		Timeout: opt.Config.Backend.Timeout(),
		Notifier: func(name string, err error) {
			s.notify(fmt.Sprintf("Saving to %s failed: %v", name, err))
		},
	})
	s.Editor.OnMarkupChange(s.submit)
	if opt.Telemetry != nil {
		s.Editor.OnChange(opt.Telemetry.TrackChange)
	}
	l.Info("session opened", slog.Int("shapes", len(s.Editor.Shapes())), slog.Bool("remote", s.remote != nil))
	return s, nil
}

func newBackendClient(bc config.BackendConfig, token string) *backend.Client {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if bc.TLSInsecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev servers
	}
	return backend.NewClient(bc.BaseURL, token).WithHTTPClient(&http.Client{Timeout: bc.Timeout(), Transport: tr})
}

func (s *Session) submit(markup string) {
	s.mu.Lock()
	s.recent = append(s.recent, markup)
	if len(s.recent) > recentEchoes {
		s.recent = s.recent[len(s.recent)-recentEchoes:]
	}
	s.mu.Unlock()
	s.writer.Submit(markup)
}

// isEcho reports whether markup is one of our own recent submissions.
func (s *Session) isEcho(markup string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.recent {
		if m == markup {
			return true
		}
	}
	return false
}

// Remote reports whether the session synchronizes with a backend.
func (s *Session) Remote() bool { return s.remote != nil }

// SetLocked locks or unlocks the editor and stores the flag locally and,
// in the background, remotely.
func (s *Session) SetLocked(locked bool) {
	s.Editor.SetLocked(locked)
	if err := s.file.SetLocked(locked); err != nil {
		s.notify("Saving lock state failed: " + err.Error())
	}
	if s.remote == nil {
		return
	}
	crash.Go(s.Project, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.remote.SetLocked(ctx, s.projectID, locked); err != nil {
			s.log.Warn("remote lock failed", slog.Any("err", err))
			s.notify("Backend lock update failed: " + err.Error())
		}
	})
}

// PullRemote fetches the backend plan. It returns the remote markup and lock
// flag so the caller can apply them on its own thread.
func (s *Session) PullRemote(ctx context.Context) (*backend.Plan, error) {
	if s.remote == nil {
		return nil, errors.New("no backend configured")
	}
	return s.remote.GetPlan(ctx, s.projectID)
}

// Apply replaces the editor content with a remote plan unless it is an echo
// of our own write. It must run on the thread that drives the controller.
func (s *Session) Apply(p backend.Plan) bool {
	if p.SVG == s.Editor.Markup() || s.isEcho(p.SVG) {
		if p.Locked != s.Editor.Locked() {
			s.Editor.SetLocked(p.Locked)
			return true
		}
		return false
	}
	s.Editor.LoadMarkup(p.SVG)
	s.Editor.SetLocked(p.Locked)
	return true
}

// Watch follows remote plan updates until ctx ends, reconnecting after
// failures. deliver is called from a background goroutine.
func (s *Session) Watch(ctx context.Context, deliver func(backend.Plan)) {
	if s.remote == nil {
		return
	}
	crash.Go(s.Project, func() {
		backoff := time.Second
		for ctx.Err() == nil {
			err := s.remote.Watch(ctx, s.projectID, deliver)
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("plan watch ended", slog.Any("err", err), slog.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
		}
	})
}

// Export writes the saved plan as "png" or "svg" to out, relative paths
// landing in the project's exports folder. Pending edits are flushed first.
func (s *Session) Export(ctx context.Context, format, out string) (string, error) {
	if err := s.writer.Flush(ctx); err != nil {
		return "", err
	}
	switch strings.ToLower(format) {
	case "png":
		fonts, err := textlayout.ProviderFromEnv()
		if err != nil {
			s.log.Warn("label font unavailable, using built-in face", slog.String("err", err.Error()))
		}
		return export.ExportPNG(s.Project, out, export.PNGOptions{Labels: true, Fonts: fonts})
	case "svg":
		return export.ExportSVG(s.Project, out)
	default:
		return "", fmt.Errorf("unknown export format %q", format)
	}
}

// Close flushes pending writes and releases the project index.
func (s *Session) Close(ctx context.Context) error {
	werr := s.writer.Close(ctx)
	s.tracker.Close()
	ierr := s.Index.Close()
	return errors.Join(werr, ierr)
}
