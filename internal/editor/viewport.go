/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package editor

import (
	"sync"
	"time"

	"floorplan/internal/vector"
)

// ViewportSource reports the host canvas viewport on demand.
type ViewportSource interface {
	Viewport() vector.Viewport
}

// ViewportNotifier is implemented by hosts that push viewport changes.
// The returned function cancels the subscription.
type ViewportNotifier interface {
	SubscribeViewport(fn func(vector.Viewport)) (cancel func())
}

// StaticViewport is a fixed ViewportSource.
type StaticViewport vector.Viewport

func (s StaticViewport) Viewport() vector.Viewport { return vector.Viewport(s) }

// DefaultPollInterval is the sampling period for hosts without change
// notification.
const DefaultPollInterval = 100 * time.Millisecond

// ViewportTracker mirrors the host viewport. It subscribes when the host
// implements ViewportNotifier and otherwise samples the host on a ticker.
// Viewport is safe to call from any goroutine.
type ViewportTracker struct {
	mu      sync.RWMutex
	current vector.Viewport
	polling bool

	stopOnce sync.Once
	cancel   func()
	done     chan struct{}
}

// TrackViewport starts mirroring src. interval applies only when polling;
// values <= 0 use DefaultPollInterval.
func TrackViewport(src ViewportSource, interval time.Duration) *ViewportTracker {
	t := &ViewportTracker{current: sanitize(src.Viewport())}
	if n, ok := src.(ViewportNotifier); ok {
		t.cancel = n.SubscribeViewport(t.set)
		return t
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t.polling = true
	t.done = make(chan struct{})
	stop := make(chan struct{})
	t.cancel = func() { close(stop) }
	go t.poll(src, interval, stop)
	return t
}

func (t *ViewportTracker) poll(src ViewportSource, interval time.Duration, stop <-chan struct{}) {
	defer close(t.done)
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			t.set(src.Viewport())
		}
	}
}

func (t *ViewportTracker) set(v vector.Viewport) {
	v = sanitize(v)
	t.mu.Lock()
	t.current = v
	t.mu.Unlock()
}

// Viewport returns the latest known viewport.
func (t *ViewportTracker) Viewport() vector.Viewport {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Polling reports whether the tracker fell back to sampling.
func (t *ViewportTracker) Polling() bool { return t.polling }

// Close stops polling or cancels the subscription. It is idempotent.
func (t *ViewportTracker) Close() {
	t.stopOnce.Do(func() {
		if t.cancel != nil {
			t.cancel()
		}
		if t.done != nil {
			<-t.done
		}
	})
}

// sanitize keeps zoom positive so world transforms stay defined.
func sanitize(v vector.Viewport) vector.Viewport {
	if !v.Valid() {
		v.Zoom = 1
	}
	return v
}
