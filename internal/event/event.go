// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package event defines the execution events a worker reports and the
// observers that consume them.
//
// A typical sequence delivered to observers is:
//
//	RunStart
//		UnitFailure (a unit that could not be resolved)
//		UnitStart
//			CaseStart
//				OutputChunk (captured stdout/stderr, possibly concurrent)
//				CaseLog
//				CaseError
//			CaseEnd
//		UnitEnd
//		Heartbeat (periodically, from any goroutine)
//	RunEnd
//
// JSON field names are prefixed with the event name so that a decoder can
// tell events apart by their keys alone.
package event

import (
	"fmt"
	"time"

	"go.chromium.org/testworker/errors"
)

// Event is one of the event types declared in this package.
type Event interface {
	// Timestamp returns the time at which the event was produced.
	Timestamp() time.Time
	isEvent()
}

// Stream identifies a captured output channel.
type Stream int

const (
	// Stdout is the standard output channel.
	Stdout Stream = iota
	// Stderr is the standard error channel.
	Stderr
)

func (s Stream) String() string {
	switch s {
	case Stdout:
		return "STDOUT"
	case Stderr:
		return "STDERR"
	default:
		return fmt.Sprintf("Stream(%d)", int(s))
	}
}

// MarshalText encodes s as "STDOUT" or "STDERR".
func (s Stream) MarshalText() ([]byte, error) {
	switch s {
	case Stdout, Stderr:
		return []byte(s.String()), nil
	default:
		return nil, errors.Errorf("invalid stream %d", int(s))
	}
}

// UnmarshalText decodes "STDOUT" or "STDERR".
func (s *Stream) UnmarshalText(b []byte) error {
	switch string(b) {
	case "STDOUT":
		*s = Stdout
	case "STDERR":
		*s = Stderr
	default:
		return errors.Errorf("invalid stream %q", string(b))
	}
	return nil
}

// Error describes a failure attributed to a unit or a case.
type Error struct {
	Reason string `json:"reason"`
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Stack  string `json:"stack,omitempty"`
}

// NewError converts err to an Error, keeping its origin and trace when err
// was built with the errors package.
func NewError(err error) Error {
	e := Error{Reason: err.Error(), Stack: errors.Trace(err)}
	if file, line, ok := errors.Location(err); ok {
		e.File, e.Line = file, line
	}
	return e
}

// RunStart is sent once, before any unit is resolved.
type RunStart struct {
	Time  time.Time `json:"runStartTime"`
	RunID string    `json:"runStartRunId"`
	// Units lists the identifiers requested for this run, in order.
	Units []string `json:"runStartUnits"`
	Seed  int64    `json:"runStartSeed,omitempty"`
}

// RunLog is an informational message about the run as a whole.
type RunLog struct {
	Time time.Time `json:"runLogTime"`
	Text string    `json:"runLogText"`
}

// RunEnd is sent once, after output channels have been restored.
type RunEnd struct {
	Time time.Time `json:"runEndTime"`
	// Fault is set if the run was cut short by a worker-level fault.
	Fault string `json:"runEndFault,omitempty"`
}

// UnitFailure reports a unit that failed before any of its cases ran,
// typically because it could not be resolved.
type UnitFailure struct {
	Time  time.Time `json:"unitFailureTime"`
	Unit  string    `json:"unitFailureUnit"`
	Error Error     `json:"unitFailureError"`
}

// UnitStart is sent when the engine starts running a unit.
type UnitStart struct {
	Time  time.Time `json:"unitStartTime"`
	Unit  string    `json:"unitStartUnit"`
	Cases []string  `json:"unitStartCases"`
}

// UnitEnd is sent when the engine finished a unit.
type UnitEnd struct {
	Time time.Time `json:"unitEndTime"`
	Unit string    `json:"unitEndUnit"`
}

// CaseStart is sent when a case starts.
type CaseStart struct {
	Time time.Time `json:"caseStartTime"`
	Unit string    `json:"caseStartUnit"`
	Case string    `json:"caseStartCase"`
}

// CaseLog is a log message written by a case.
type CaseLog struct {
	Time time.Time `json:"caseLogTime"`
	Unit string    `json:"caseLogUnit"`
	Case string    `json:"caseLogCase"`
	Text string    `json:"caseLogText"`
}

// CaseError is an error reported by a case. A case with one or more errors
// has failed.
type CaseError struct {
	Time  time.Time `json:"caseErrorTime"`
	Unit  string    `json:"caseErrorUnit"`
	Case  string    `json:"caseErrorCase"`
	Error Error     `json:"caseErrorError"`
}

// CaseEnd is sent when a case finished, successfully or not.
type CaseEnd struct {
	Time     time.Time     `json:"caseEndTime"`
	Unit     string        `json:"caseEndUnit"`
	Case     string        `json:"caseEndCase"`
	Duration time.Duration `json:"caseEndDuration"`
	Failed   bool          `json:"caseEndFailed,omitempty"`
}

// OutputChunk carries bytes written to a captured channel by a single write
// (or by several small writes batched together). Data is never shared with
// the writer.
type OutputChunk struct {
	Time   time.Time `json:"outputChunkTime"`
	Stream Stream    `json:"outputChunkStream"`
	Data   []byte    `json:"outputChunkData"`
}

// Heartbeat is sent periodically to show that the worker is alive.
type Heartbeat struct {
	Time time.Time `json:"heartbeatTime"`
}

func (e *RunStart) Timestamp() time.Time    { return e.Time }
func (e *RunLog) Timestamp() time.Time      { return e.Time }
func (e *RunEnd) Timestamp() time.Time      { return e.Time }
func (e *UnitFailure) Timestamp() time.Time { return e.Time }
func (e *UnitStart) Timestamp() time.Time   { return e.Time }
func (e *UnitEnd) Timestamp() time.Time     { return e.Time }
func (e *CaseStart) Timestamp() time.Time   { return e.Time }
func (e *CaseLog) Timestamp() time.Time     { return e.Time }
func (e *CaseError) Timestamp() time.Time   { return e.Time }
func (e *CaseEnd) Timestamp() time.Time     { return e.Time }
func (e *OutputChunk) Timestamp() time.Time { return e.Time }
func (e *Heartbeat) Timestamp() time.Time   { return e.Time }

func (*RunStart) isEvent()    {}
func (*RunLog) isEvent()      {}
func (*RunEnd) isEvent()      {}
func (*UnitFailure) isEvent() {}
func (*UnitStart) isEvent()   {}
func (*UnitEnd) isEvent()     {}
func (*CaseStart) isEvent()   {}
func (*CaseLog) isEvent()     {}
func (*CaseError) isEvent()   {}
func (*CaseEnd) isEvent()     {}
func (*OutputChunk) isEvent() {}
func (*Heartbeat) isEvent()   {}

// Observer consumes events.
//
// Observe may be called concurrently for OutputChunk and Heartbeat events,
// so implementations must be goroutine-safe.
type Observer interface {
	Observe(ev Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event) error

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) error { return f(ev) }
