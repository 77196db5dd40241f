// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package testing

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"go.chromium.org/testworker/errors/stack"
	"go.chromium.org/testworker/internal/event"
)

// CaseOutput receives what a case reports through its State.
// Implementations must be goroutine-safe.
type CaseOutput interface {
	Log(msg string)
	Error(e *event.Error)
}

// State is passed to a case function to report logs and errors.
//
// State is goroutine-safe, but Fatal and Fatalf end only the goroutine
// they are called on and must be called from the case's own goroutine.
type State struct {
	suite, name    string
	out            CaseOutput
	stdout, stderr io.Writer

	mu       sync.Mutex
	hasError bool
}

// NewState returns a State for case name of suite. stdout and stderr are
// the channels the case should write console output to.
func NewState(suite, name string, out CaseOutput, stdout, stderr io.Writer) *State {
	return &State{suite: suite, name: name, out: out, stdout: stdout, stderr: stderr}
}

// SuiteName returns the name of the running suite.
func (s *State) SuiteName() string { return s.suite }

// CaseName returns the name of the running case.
func (s *State) CaseName() string { return s.name }

// Stdout returns the captured standard output channel.
func (s *State) Stdout() io.Writer { return s.stdout }

// Stderr returns the captured standard error channel.
func (s *State) Stderr() io.Writer { return s.stderr }

// Log formats its arguments with fmt.Sprint and logs them.
func (s *State) Log(args ...interface{}) {
	s.out.Log(fmt.Sprint(args...))
}

// Logf is like Log but uses fmt.Sprintf.
func (s *State) Logf(format string, args ...interface{}) {
	s.out.Log(fmt.Sprintf(format, args...))
}

// Error marks the case as failed and reports its arguments as the reason.
// The case keeps running.
func (s *State) Error(args ...interface{}) {
	s.report(fmt.Sprint(args...), lastError(args))
}

// Errorf is like Error but uses fmt.Sprintf.
func (s *State) Errorf(format string, args ...interface{}) {
	s.report(fmt.Sprintf(format, args...), lastError(args))
}

// Fatal is like Error but also ends the case immediately.
func (s *State) Fatal(args ...interface{}) {
	s.report(fmt.Sprint(args...), lastError(args))
	runtime.Goexit()
}

// Fatalf is like Fatal but uses fmt.Sprintf.
func (s *State) Fatalf(format string, args ...interface{}) {
	s.report(fmt.Sprintf(format, args...), lastError(args))
	runtime.Goexit()
}

// HasError reports whether the case has reported an error.
func (s *State) HasError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasError
}

// report records an error whose location is the caller of the exported
// State method.
func (s *State) report(msg string, cause error) {
	s.mu.Lock()
	s.hasError = true
	s.mu.Unlock()
	s.out.Error(NewCaseError(msg, cause, 2))
}

// NewCaseError builds an error located skip frames above its caller.
// If cause is non-nil, its chain is appended to the trace.
func NewCaseError(msg string, cause error, skip int) *event.Error {
	_, file, line, _ := runtime.Caller(skip + 1)
	trace := msg + "\n" + stack.New(skip+1).String()
	if cause != nil {
		trace += fmt.Sprintf("\n%+v", cause)
	}
	return &event.Error{Reason: msg, File: file, Line: line, Stack: trace}
}

func lastError(args []interface{}) error {
	if len(args) == 0 {
		return nil
	}
	err, _ := args[len(args)-1].(error)
	return err
}
