// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package redirect

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"go.chromium.org/testworker/internal/event"
)

func TestChunkWriterCopiesData(t *testing.T) {
	var got []*event.OutputChunk
	obs := event.ObserverFunc(func(ev event.Event) error {
		got = append(got, ev.(*event.OutputChunk))
		return nil
	})
	now := time.Unix(100, 0)
	w := newChunkWriter(event.Stderr, obs, fakeclock.NewFakeClock(now), 4)

	p := []byte("abcdef")
	w.Write(p)
	p[0] = 'X'

	want := []*event.OutputChunk{{Time: now, Stream: event.Stderr, Data: []byte("abcdef")}}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("Chunks mismatch (-got +want):\n%s", diff)
	}
}

func TestChunkWriterRejectsWriteByte(t *testing.T) {
	w := newChunkWriter(event.Stdout, event.ObserverFunc(func(event.Event) error { return nil }), fakeclock.NewFakeClock(time.Unix(0, 0)), 4)
	if err := w.WriteByte('a'); err == nil {
		t.Error("WriteByte succeeded; want error")
	}
}

func TestChunkWriterObserverError(t *testing.T) {
	fail := errors.New("observer failed")
	w := newChunkWriter(event.Stdout, event.ObserverFunc(func(event.Event) error { return fail }), fakeclock.NewFakeClock(time.Unix(0, 0)), 4)
	w.Write([]byte("ab"))
	if err := w.Flush(); !errors.Is(err, fail) {
		t.Errorf("Flush = %v; want %v", err, fail)
	}
	// The buffer is dropped even if the observer failed.
	if err := w.Flush(); err != nil {
		t.Errorf("Second Flush = %v; want nil", err)
	}
}

func TestChunkWriterHandOff(t *testing.T) {
	var got []string
	obs := event.ObserverFunc(func(ev event.Event) error {
		got = append(got, string(ev.(*event.OutputChunk).Data))
		return nil
	})
	w := newChunkWriter(event.Stdout, obs, fakeclock.NewFakeClock(time.Unix(0, 0)), 16)

	w.Write([]byte("pending"))
	var orig bytes.Buffer
	if err := w.handOff(&orig); err != nil {
		t.Fatal("handOff failed: ", err)
	}
	if n, err := w.Write([]byte("late")); n != 4 || err != nil {
		t.Errorf("Write after handOff = (%d, %v); want (4, nil)", n, err)
	}
	if err := w.Flush(); err != nil {
		t.Error("Flush after handOff failed: ", err)
	}

	if diff := cmp.Diff(got, []string{"pending"}); diff != "" {
		t.Errorf("Chunks mismatch (-got +want):\n%s", diff)
	}
	if got := orig.String(); got != "late" {
		t.Errorf("Original got %q; want %q", got, "late")
	}
}
