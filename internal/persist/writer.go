/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
// Package persist writes committed plan markup to durable sinks without
// blocking the editor. Submissions coalesce so only the latest markup is
// written; failures are reported to a notifier and never retried.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	applog "floorplan/internal/log"
)

// Sink receives markup to store.
type Sink interface {
	Name() string
	Write(ctx context.Context, markup string) error
}

// Notifier is told about failed writes. It runs on the writer goroutine.
type Notifier func(sink string, err error)

// Options tunes a Writer.
type Options struct {
	// Timeout bounds a single sink write; default 10s.
	Timeout  time.Duration
	Notifier Notifier
}

// Stats are counters for tests and diagnostics.
type Stats struct {
	Submitted uint64
	Coalesced uint64
	Written   uint64
	Failed    uint64
}

// Writer is a fire-and-forget, latest-wins markup writer.
type Writer struct {
	sink    Sink
	timeout time.Duration
	notify  Notifier
	log     *slog.Logger

	mu      sync.Mutex
	pending *string
	seq     uint64 // last submitted
	done    uint64 // last finished
	closed  bool
	stats   Stats

	wake   chan struct{}
	stop   chan struct{}
	exited chan struct{}
	once   sync.Once
}

// NewWriter starts a writer goroutine for sink.
func NewWriter(sink Sink, opt Options) *Writer {
	if opt.Timeout <= 0 {
		opt.Timeout = 10 * time.Second
	}
	w := &Writer{
		sink:    sink,
		timeout: opt.Timeout,
		notify:  opt.Notifier,
		log:     applog.WithComponent("persist").With(slog.String("sink", sink.Name())),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
	}
	go w.loop()
	return w
}

// Submit queues markup and returns immediately. A submission still waiting
// is replaced. Returns false after Close.
func (w *Writer) Submit(markup string) bool {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return false
	}
	if w.pending != nil {
		w.stats.Coalesced++
	}
	w.pending = &markup
	w.seq++
	w.stats.Submitted++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Flush waits until everything submitted before the call has been written
// or failed, or ctx ends.
func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.seq
	w.mu.Unlock()
	for {
		w.mu.Lock()
		ok := w.done >= target
		w.mu.Unlock()
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.exited:
			return nil
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Close writes any pending markup and stops the writer. Further submissions
// are rejected.
func (w *Writer) Close(ctx context.Context) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	})
	select {
	case <-w.exited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns a snapshot of the counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Writer) loop() {
	defer close(w.exited)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *Writer) drain() {
	for {
		w.mu.Lock()
		if w.pending == nil {
			w.mu.Unlock()
			return
		}
		markup, seq := *w.pending, w.seq
		w.pending = nil
		w.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		start := time.Now()
		err := w.sink.Write(ctx, markup)
		cancel()

		w.mu.Lock()
		w.done = seq
		if err != nil {
			w.stats.Failed++
		} else {
			w.stats.Written++
		}
		w.mu.Unlock()

		if err != nil {
			w.log.Warn("persist failed", slog.Any("err", err))
			if w.notify != nil {
				w.notify(w.sink.Name(), err)
			}
			continue
		}
		w.log.Debug("persisted", slog.Int("bytes", len(markup)), slog.Duration("took", time.Since(start)))
	}
}
