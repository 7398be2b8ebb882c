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
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// WatchEvent is the frame pushed to plan watchers.
type WatchEvent struct {
	Type string `json:"type"`
	Plan Plan   `json:"plan"`
}

const (
	eventSnapshot = "snapshot"
	eventUpdate   = "update"
)

type watcher struct {
	send chan WatchEvent
}

// Hub fans plan updates out to websocket watchers of the same project.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*watcher]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*watcher]struct{})}
}

// Subscribe registers a watcher for projectID.
func (h *Hub) Subscribe(projectID string) (<-chan WatchEvent, func()) {
	w := &watcher{send: make(chan WatchEvent, 8)}
	h.mu.Lock()
	set, ok := h.subs[projectID]
	if !ok {
		set = make(map[*watcher]struct{})
		h.subs[projectID] = set
	}
	set[w] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return w.send, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[projectID], w)
			if len(h.subs[projectID]) == 0 {
				delete(h.subs, projectID)
			}
			h.mu.Unlock()
		})
	}
}

// Count reports the number of watchers of projectID.
func (h *Hub) Count(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[projectID])
}

// Publish delivers p to every watcher without blocking. A watcher that fell
// behind loses its oldest queued event.
func (h *Hub) Publish(p Plan) {
	ev := WatchEvent{Type: eventUpdate, Plan: p}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for w := range h.subs[p.ID] {
		select {
		case w.send <- ev:
			continue
		default:
		}
		select {
		case <-w.send:
		default:
		}
		select {
		case w.send <- ev:
		default:
		}
	}
}

func (s *Server) serveWatch(w http.ResponseWriter, r *http.Request, _ string) {
	id := r.PathValue("id")
	// subscribe before reading so no update between snapshot and feed is lost
	events, cancel := s.hub.Subscribe(id)
	defer cancel()
	p, err := s.store.GetPlan(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", slog.Any("err", err))
		return
	}
	defer conn.CloseNow()
	l := s.log.With(slog.String("project", id))
	l.Debug("watcher connected", slog.Int("watchers", s.hub.Count(id)))

	// watchers never send; CloseRead handles control frames and ends ctx on close
	ctx := conn.CloseRead(r.Context())
	if err := writeEvent(ctx, conn, WatchEvent{Type: eventSnapshot, Plan: p}); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			l.Debug("watcher gone")
			return
		case ev := <-events:
			if err := writeEvent(ctx, conn, ev); err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					l.Warn("watch write failed", slog.Any("err", err))
				}
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev WatchEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
