// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package redirect_test

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/redirect"
	"go.chromium.org/testworker/testutil"
)

type chunk struct {
	Stream event.Stream
	Data   string
}

// recorder collects OutputChunk events.
type recorder struct {
	mu     sync.Mutex
	chunks []chunk
}

func (r *recorder) Observe(ev event.Event) error {
	c, ok := ev.(*event.OutputChunk)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk{c.Stream, string(c.Data)})
	return nil
}

func (r *recorder) get() []chunk {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chunk(nil), r.chunks...)
}

var fakeNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRedirectTagsChannels(t *testing.T) {
	var origOut, origErr bytes.Buffer
	s := redirect.NewStreams(&origOut, &origErr)
	rec := &recorder{}
	r := redirect.Redirect(s, rec, redirect.Options{Clock: fakeclock.NewFakeClock(fakeNow)})

	io.WriteString(s.Stdout(), "hello\n")
	if err := s.Flush(); err != nil {
		t.Fatal("Flush failed: ", err)
	}
	io.WriteString(s.Stderr(), "oops\n")
	if err := r.Restore(); err != nil {
		t.Fatal("Restore failed: ", err)
	}

	want := []chunk{{event.Stdout, "hello\n"}, {event.Stderr, "oops\n"}}
	if diff := cmp.Diff(rec.get(), want); diff != "" {
		t.Errorf("Chunks mismatch (-got +want):\n%s", diff)
	}
	if origOut.Len() != 0 || origErr.Len() != 0 {
		t.Errorf("Original streams got %q and %q during redirection; want nothing", origOut.String(), origErr.String())
	}
}

func TestRedirectStderrOnly(t *testing.T) {
	// Output written only to stderr must not be attributed to stdout.
	s := redirect.NewStreams(io.Discard, io.Discard)
	rec := &recorder{}
	r := redirect.Redirect(s, rec, redirect.Options{})
	io.WriteString(s.Stderr(), "a")
	io.WriteString(s.Stderr(), "b")
	r.Restore()

	want := []chunk{{event.Stderr, "ab"}}
	if diff := cmp.Diff(rec.get(), want); diff != "" {
		t.Errorf("Chunks mismatch (-got +want):\n%s", diff)
	}
}

func TestRedirectDoesNotSplitWrites(t *testing.T) {
	s := redirect.NewStreams(io.Discard, io.Discard)
	rec := &recorder{}
	r := redirect.Redirect(s, rec, redirect.Options{BufferSize: 8})

	w := s.Stdout()
	io.WriteString(w, "abcde")
	io.WriteString(w, "fghij") // does not fit, so "abcde" is flushed first
	io.WriteString(w, strings.Repeat("x", 20))
	io.WriteString(w, "yz")
	r.Restore()

	want := []chunk{
		{event.Stdout, "abcde"},
		{event.Stdout, "fghij"},
		{event.Stdout, strings.Repeat("x", 20)},
		{event.Stdout, "yz"},
	}
	if diff := cmp.Diff(rec.get(), want); diff != "" {
		t.Errorf("Chunks mismatch (-got +want):\n%s", diff)
	}
}

func TestRedirectConcurrentWrites(t *testing.T) {
	const (
		writers = 8
		writes  = 100
	)
	s := redirect.NewStreams(io.Discard, io.Discard)
	rec := &recorder{}
	r := redirect.Redirect(s, rec, redirect.Options{BufferSize: 16})

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			line := fmt.Sprintf("writer%d\n", i)
			for j := 0; j < writes; j++ {
				io.WriteString(s.Stdout(), line)
			}
		}(i)
	}
	wg.Wait()
	r.Restore()

	var all strings.Builder
	for _, c := range rec.get() {
		all.WriteString(c.Data)
	}
	counts := make(map[string]int)
	for _, line := range strings.SplitAfter(all.String(), "\n") {
		if line != "" {
			counts[line]++
		}
	}
	for i := 0; i < writers; i++ {
		line := fmt.Sprintf("writer%d\n", i)
		if counts[line] != writes {
			t.Errorf("Got %d intact copies of %q; want %d", counts[line], line, writes)
		}
	}
}

func TestRestore(t *testing.T) {
	var origOut, origErr bytes.Buffer
	s := redirect.NewStreams(&origOut, &origErr)
	stdout := s.Stdout()
	rec := &recorder{}
	r := redirect.Redirect(s, rec, redirect.Options{})
	io.WriteString(stdout, "captured")

	if err := r.Restore(); err != nil {
		t.Fatal("Restore failed: ", err)
	}
	if err := r.Restore(); err != nil {
		t.Fatal("Second Restore failed: ", err)
	}
	io.WriteString(stdout, "direct")
	io.WriteString(s.Stderr(), "direct err")

	if got, want := origOut.String(), "direct"; got != want {
		t.Errorf("Original stdout got %q; want %q", got, want)
	}
	if got, want := origErr.String(), "direct err"; got != want {
		t.Errorf("Original stderr got %q; want %q", got, want)
	}
	if diff := cmp.Diff(rec.get(), []chunk{{event.Stdout, "captured"}}); diff != "" {
		t.Errorf("Chunks mismatch (-got +want):\n%s", diff)
	}
}

func TestStreamsNilTarget(t *testing.T) {
	s := redirect.NewStreams(nil, nil)
	if n, err := io.WriteString(s.Stdout(), "dropped"); n != 7 || err != nil {
		t.Errorf("Write = (%d, %v); want (7, nil)", n, err)
	}
	if err := s.Flush(); err != nil {
		t.Error("Flush failed: ", err)
	}
}

func TestRestoreWithConcurrentWriters(t *testing.T) {
	for i := 0; i < 20; i++ {
		var orig testutil.SyncBuffer
		s := redirect.NewStreams(&orig, io.Discard)
		rec := &recorder{}
		r := redirect.Redirect(s, rec, redirect.Options{BufferSize: 64})

		var written atomic.Int64
		var started sync.WaitGroup
		stop := make(chan struct{})
		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			started.Add(1)
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := s.Stdout()
				first := true
				for {
					select {
					case <-stop:
						return
					default:
					}
					n, _ := w.Write([]byte("x"))
					written.Add(int64(n))
					if first {
						started.Done()
						first = false
					}
				}
			}()
		}
		started.Wait()
		if err := r.Restore(); err != nil {
			t.Fatal("Restore failed: ", err)
		}
		close(stop)
		wg.Wait()

		captured := 0
		for _, c := range rec.get() {
			captured += len(c.Data)
		}
		if got, want := int64(captured+orig.Len()), written.Load(); got != want {
			t.Fatalf("Run %d: delivered %d bytes (captured %d + original %d); want %d", i, got, captured, orig.Len(), want)
		}
	}
}

func TestStreamsWriteByte(t *testing.T) {
	var orig bytes.Buffer
	s := redirect.NewStreams(&orig, io.Discard)
	bw, ok := s.Stdout().(io.ByteWriter)
	if !ok {
		t.Fatal("Stdout does not implement io.ByteWriter")
	}

	r := redirect.Redirect(s, &recorder{}, redirect.Options{})
	if err := bw.WriteByte('x'); err == nil {
		t.Error("WriteByte succeeded on a captured channel")
	}
	if err := r.Restore(); err != nil {
		t.Fatal("Restore failed: ", err)
	}

	if err := bw.WriteByte('y'); err != nil {
		t.Error("WriteByte failed after Restore: ", err)
	}
	if got := orig.String(); got != "y" {
		t.Errorf("Original stream got %q; want %q", got, "y")
	}
}
