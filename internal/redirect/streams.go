// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package redirect captures the worker's standard output channels as
// OutputChunk events.
//
// Test code does not write to os.Stdout and os.Stderr directly; it writes to
// the writers of a Streams value the worker hands out. Redirect swaps the
// targets behind those writers for capturing adapters and Restore swaps the
// originals back.
package redirect

import (
	"io"
	"sync"

	"go.chromium.org/testworker/internal/event"
)

// Flusher is implemented by writers that buffer.
type Flusher interface {
	Flush() error
}

// Streams is the process's pair of output channels, passed around as a
// handle instead of being global state.
type Streams struct {
	mu      sync.RWMutex
	targets [2]io.Writer // indexed by event.Stream
}

// NewStreams returns Streams that write to stdout and stderr.
func NewStreams(stdout, stderr io.Writer) *Streams {
	return &Streams{targets: [2]io.Writer{event.Stdout: stdout, event.Stderr: stderr}}
}

// Stdout returns a writer for the standard output channel. The writer always
// forwards to the channel's current target, so it stays valid across
// Redirect and Restore. It also implements io.ByteWriter, which fails
// while the channel is captured.
func (s *Streams) Stdout() io.Writer { return &streamWriter{s, event.Stdout} }

// Stderr is like Stdout for the standard error channel.
func (s *Streams) Stderr() io.Writer { return &streamWriter{s, event.Stderr} }

// Flush flushes both current targets if they buffer.
func (s *Streams) Flush() error {
	var firstErr error
	for _, st := range []event.Stream{event.Stdout, event.Stderr} {
		if f, ok := s.target(st).(Flusher); ok {
			if err := f.Flush(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Streams) target(st event.Stream) io.Writer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.targets[st]
}

// swap installs w as the target of st and returns the previous target.
func (s *Streams) swap(st event.Stream, w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.targets[st]
	s.targets[st] = w
	return prev
}

type streamWriter struct {
	s  *Streams
	st event.Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	t := w.s.target(w.st)
	if t == nil {
		return len(p), nil
	}
	return t.Write(p)
}

// WriteByte forwards to the current target. Captured channels reject it.
func (w *streamWriter) WriteByte(c byte) error {
	t := w.s.target(w.st)
	if t == nil {
		return nil
	}
	if bw, ok := t.(io.ByteWriter); ok {
		return bw.WriteByte(c)
	}
	_, err := t.Write([]byte{c})
	return err
}
