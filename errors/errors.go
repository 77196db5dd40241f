// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errors constructs errors that remember where they were created.
//
// Code in this module builds errors with this package instead of the
// standard errors.New and fmt.Errorf so that failures reported through the
// event stream carry a stack trace:
//
//	errors.New("suite has no cases")
//	errors.Errorf("unknown engine %q", name)
//	errors.Wrap(err, "failed to read manifest")
//	errors.Wrapf(err, "failed to load suite %s", name)
//
// Formatting an error with "%+v" prints the whole chain with traces.
// Errors created here interoperate with the standard Is, As and Unwrap,
// which are re-exported for convenience.
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"go.chromium.org/testworker/errors/stack"
)

// E is the error type produced by this package.
type E struct {
	msg   string
	stk   stack.Stack
	cause error
}

// Error returns the message of e followed by the messages of its causes.
func (e *E) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return e.msg + ": " + e.cause.Error()
}

// Unwrap returns the error wrapped by e, or nil.
func (e *E) Unwrap() error { return e.cause }

// Format supports "%+v" to print the chain with stack traces.
func (e *E) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, Trace(e))
		return
	}
	io.WriteString(s, e.Error())
}

// Trace formats err and all of its causes, one block per link, each followed
// by the stack recorded where it was created. Links not created by this
// package are printed with an unknown location.
func Trace(err error) string {
	var blocks []string
	for err != nil {
		e, ok := err.(*E)
		if !ok {
			blocks = append(blocks, err.Error()+"\n\tat ???")
			break
		}
		blocks = append(blocks, e.msg+"\n"+e.stk.String())
		err = e.cause
	}
	return strings.Join(blocks, "\n")
}

// Location returns the file and line where err was created. ok is false if
// err was not created by this package.
func Location(err error) (file string, line int, ok bool) {
	e, isE := err.(*E)
	if !isE {
		return "", 0, false
	}
	f, ok := e.stk.Top()
	if !ok {
		return "", 0, false
	}
	return f.File, f.Line, true
}

// New returns an error with msg that records the caller's location.
func New(msg string) error {
	return &E{msg: msg, stk: stack.New(1)}
}

// Errorf is like New but formats its message with fmt.Sprintf.
func Errorf(format string, args ...interface{}) error {
	return &E{msg: fmt.Sprintf(format, args...), stk: stack.New(1)}
}

// Wrap returns an error with msg that wraps cause. A nil cause makes Wrap
// equivalent to New.
func Wrap(cause error, msg string) error {
	return &E{msg: msg, stk: stack.New(1), cause: cause}
}

// Wrapf is like Wrap but formats its message with fmt.Sprintf.
func Wrapf(cause error, format string, args ...interface{}) error {
	return &E{msg: fmt.Sprintf(format, args...), stk: stack.New(1), cause: cause}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }

// Unwrap returns the result of calling the Unwrap method on err, if any.
func Unwrap(err error) error { return stderrors.Unwrap(err) }
