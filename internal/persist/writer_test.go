/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */
package persist

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordSink struct {
	mu      sync.Mutex
	got     []string
	started chan struct{}
	gate    chan struct{}
	err     error
}

func (s *recordSink) Name() string { return "record" }

func (s *recordSink) Write(ctx context.Context, m string) error {
	if s.started != nil {
		select {
		case s.started <- struct{}{}:
		default:
		}
	}
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, m)
	return s.err
}

func (s *recordSink) writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

func flush(t *testing.T, w *Writer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := w.Flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestWriterCoalescesToLatest(t *testing.T) {
	sink := &recordSink{started: make(chan struct{}, 1), gate: make(chan struct{})}
	w := NewWriter(sink, Options{})
	defer w.Close(context.Background())

	w.Submit("a")
	select {
	case <-sink.started:
	case <-time.After(3 * time.Second):
		t.Fatal("first write never started")
	}
	// the sink is busy with "a"; these collapse into one write of "d"
	w.Submit("b")
	w.Submit("c")
	w.Submit("d")
	close(sink.gate)
	flush(t, w)

	got := sink.writes()
	if len(got) != 2 || got[0] != "a" || got[1] != "d" {
		t.Fatalf("writes = %v, want [a d]", got)
	}
	st := w.Stats()
	if st.Submitted != 4 || st.Coalesced != 2 || st.Written != 2 || st.Failed != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestWriterReportsFailuresWithoutRetry(t *testing.T) {
	boom := errors.New("disk full")
	sink := &recordSink{err: boom}
	var (
		mu    sync.Mutex
		calls []error
	)
	w := NewWriter(sink, Options{Notifier: func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if name != "record" {
			t.Errorf("notifier sink = %q", name)
		}
		calls = append(calls, err)
	}})
	defer w.Close(context.Background())

	w.Submit("x")
	flush(t, w)
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || !errors.Is(calls[0], boom) {
		t.Fatalf("notifier calls = %v", calls)
	}
	if n := len(sink.writes()); n != 1 {
		t.Fatalf("sink called %d times, failures must not retry", n)
	}
	if w.Stats().Failed != 1 {
		t.Fatalf("stats = %+v", w.Stats())
	}
}

func TestWriterCloseDrainsAndRejects(t *testing.T) {
	sink := &recordSink{}
	w := NewWriter(sink, Options{})
	w.Submit("final")
	if err := w.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := sink.writes(); len(got) != 1 || got[0] != "final" {
		t.Fatalf("writes = %v", got)
	}
	if w.Submit("late") {
		t.Fatal("submit after close should be rejected")
	}
	if err := w.Close(context.Background()); err != nil {
		t.Fatalf("second close: %v", err)
	}
	flush(t, w)
}

func TestFlushHonoursContext(t *testing.T) {
	sink := &recordSink{gate: make(chan struct{})}
	w := NewWriter(sink, Options{})
	w.Submit("stuck")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := w.Flush(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	close(sink.gate)
	_ = w.Close(context.Background())
}
