// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package control writes and reads the event stream a worker sends to the
// process that launched it.
//
// Two encodings are supported. In the JSON encoding every event is one JSON
// object. Events of different types are unmarshaled into a single
// messageUnion struct; since every field of an event has a JSON name
// prefixed with the event type (e.g. "runStartTime" for RunStart.Time), the
// type of a message can be inferred from its keys. The proto encoding is
// described in proto.go.
package control

import (
	"encoding/json"
	"io"
	"sync"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/event"
)

// Writer writes events in some encoding.
type Writer interface {
	WriteMessage(ev event.Event) error
}

// Reader reads events written by a Writer of the same encoding.
type Reader interface {
	// More reports whether more messages may be available.
	More() bool
	ReadMessage() (event.Event, error)
}

// messageUnion contains all event types. It aids in marshaling and
// unmarshaling heterogeneous messages.
type messageUnion struct {
	*event.RunStart
	*event.RunLog
	*event.RunEnd
	*event.UnitFailure
	*event.UnitStart
	*event.UnitEnd
	*event.CaseStart
	*event.CaseLog
	*event.CaseError
	*event.CaseEnd
	*event.OutputChunk
	*event.Heartbeat
}

// MessageWriter writes events as JSON objects, one per line.
// It is safe to call its methods concurrently from multiple goroutines.
type MessageWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

var _ Writer = &MessageWriter{}

// NewMessageWriter returns a new MessageWriter for writing to w.
func NewMessageWriter(w io.Writer) *MessageWriter {
	return &MessageWriter{enc: json.NewEncoder(w)}
}

// WriteMessage writes ev.
func (mw *MessageWriter) WriteMessage(ev event.Event) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var mu messageUnion
	switch v := ev.(type) {
	case *event.RunStart:
		mu.RunStart = v
	case *event.RunLog:
		mu.RunLog = v
	case *event.RunEnd:
		mu.RunEnd = v
	case *event.UnitFailure:
		mu.UnitFailure = v
	case *event.UnitStart:
		mu.UnitStart = v
	case *event.UnitEnd:
		mu.UnitEnd = v
	case *event.CaseStart:
		mu.CaseStart = v
	case *event.CaseLog:
		mu.CaseLog = v
	case *event.CaseError:
		mu.CaseError = v
	case *event.CaseEnd:
		mu.CaseEnd = v
	case *event.OutputChunk:
		mu.OutputChunk = v
	case *event.Heartbeat:
		mu.Heartbeat = v
	default:
		return errors.Errorf("unable to encode message of unknown type %T", ev)
	}
	return mw.enc.Encode(&mu)
}

// MessageReader reads events written by MessageWriter.
type MessageReader json.Decoder

var _ Reader = &MessageReader{}

// NewMessageReader returns a new MessageReader for reading from r.
func NewMessageReader(r io.Reader) *MessageReader {
	return (*MessageReader)(json.NewDecoder(r))
}

// More returns true if more messages are available.
func (mr *MessageReader) More() bool {
	return (*json.Decoder)(mr).More()
}

// ReadMessage reads and returns the next message.
func (mr *MessageReader) ReadMessage() (event.Event, error) {
	dec := (*json.Decoder)(mr)
	var mu messageUnion
	if err := dec.Decode(&mu); err != nil {
		return nil, errors.Wrap(err, "unable to decode message")
	}
	switch {
	case mu.RunStart != nil:
		return mu.RunStart, nil
	case mu.RunLog != nil:
		return mu.RunLog, nil
	case mu.RunEnd != nil:
		return mu.RunEnd, nil
	case mu.UnitFailure != nil:
		return mu.UnitFailure, nil
	case mu.UnitStart != nil:
		return mu.UnitStart, nil
	case mu.UnitEnd != nil:
		return mu.UnitEnd, nil
	case mu.CaseStart != nil:
		return mu.CaseStart, nil
	case mu.CaseLog != nil:
		return mu.CaseLog, nil
	case mu.CaseError != nil:
		return mu.CaseError, nil
	case mu.CaseEnd != nil:
		return mu.CaseEnd, nil
	case mu.OutputChunk != nil:
		return mu.OutputChunk, nil
	case mu.Heartbeat != nil:
		return mu.Heartbeat, nil
	default:
		return nil, errors.New("unable to decode message of unknown type")
	}
}
