// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package control

import (
	"bufio"
	"io"
	"sync"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/event"
)

// Format names an event stream encoding.
type Format string

const (
	// FormatJSON is the JSON encoding written by MessageWriter.
	FormatJSON Format = "json"
	// FormatProto is the proto encoding written by ProtoWriter.
	FormatProto Format = "proto"
)

// ParseFormat validates s as a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatJSON, FormatProto:
		return f, nil
	default:
		return "", errors.Errorf("unknown event format %q (want %q or %q)", s, FormatJSON, FormatProto)
	}
}

// NewWriter returns a Writer for f writing to w.
func NewWriter(w io.Writer, f Format) (Writer, error) {
	switch f {
	case FormatJSON:
		return NewMessageWriter(w), nil
	case FormatProto:
		return NewProtoWriter(w), nil
	default:
		return nil, errors.Errorf("unknown event format %q", f)
	}
}

// NewReader returns a Reader for f reading from r.
func NewReader(r io.Reader, f Format) (Reader, error) {
	switch f {
	case FormatJSON:
		return NewMessageReader(r), nil
	case FormatProto:
		return NewProtoReader(r), nil
	default:
		return nil, errors.Errorf("unknown event format %q", f)
	}
}

var errSinkClosed = errors.New("event sink closed")

// Sink is an event.Observer that writes events to the worker's event
// stream. It is goroutine-safe.
//
// Writes are buffered. The buffer is flushed after every event other than
// OutputChunk, so output is batched while the stream still reflects case
// boundaries and heartbeats promptly.
type Sink struct {
	mu     sync.Mutex
	bw     *bufio.Writer
	mw     Writer
	dst    io.Writer
	closed bool
}

var _ event.Observer = &Sink{}

// NewSink returns a Sink writing events in format f to w.
func NewSink(w io.Writer, f Format) (*Sink, error) {
	bw := bufio.NewWriter(w)
	mw, err := NewWriter(bw, f)
	if err != nil {
		return nil, err
	}
	return &Sink{bw: bw, mw: mw, dst: w}, nil
}

// Observe writes ev.
func (s *Sink) Observe(ev event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.Wrapf(errSinkClosed, "dropping %T", ev)
	}
	if err := s.mw.WriteMessage(ev); err != nil {
		return err
	}
	if _, ok := ev.(*event.OutputChunk); ok {
		return nil
	}
	return s.bw.Flush()
}

// Flush writes buffered events to the underlying writer.
func (s *Sink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bw.Flush()
}

// Close flushes buffered events and closes the underlying writer if it is
// an io.Closer. Events observed after Close are rejected.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.bw.Flush()
	if c, ok := s.dst.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Guard returns an observer forwarding to obs until s is closed, and
// failing afterwards. Periodic producers use it to stop once the stream
// has ended.
func (s *Sink) Guard(obs event.Observer) event.Observer {
	return event.ObserverFunc(func(ev event.Event) error {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return errSinkClosed
		}
		return obs.Observe(ev)
	})
}
