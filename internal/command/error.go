// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command contains code shared by the worker's executables.
package command

import (
	"fmt"
	"io"

	"go.chromium.org/testworker/errors"
)

// StatusError implements the error interface and contains an additional
// status code that the process should exit with.
type StatusError struct {
	msg    string
	status int
}

func (e *StatusError) Error() string {
	return e.msg
}

// Status returns the exit status.
func (e *StatusError) Status() int {
	return e.status
}

// NewStatusErrorf creates a StatusError with the passed status code and
// formatted string.
func NewStatusErrorf(status int, format string, args ...interface{}) *StatusError {
	return &StatusError{fmt.Sprintf(format, args...), status}
}

// WriteError writes a newline-terminated message for err to w and returns
// the status code to exit with. A StatusError anywhere in err's chain
// decides the status; any other error yields 1.
func WriteError(w io.Writer, err error) int {
	fmt.Fprintln(w, err.Error())
	var se *StatusError
	if errors.As(err, &se) {
		return se.status
	}
	return 1
}
