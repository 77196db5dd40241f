// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stack captures and formats stack traces for the errors package.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	maxDepth = 10 // maximum number of frames kept in a trace

	ellipsis = "\t..." // appended when a trace was cut at maxDepth
)

// Stack is a snapshot of program counters.
type Stack []uintptr

// New captures the current stack. skip is the number of frames to omit;
// skip=0 makes the caller of New the innermost frame.
func New(skip int) Stack {
	pc := make([]uintptr, maxDepth+1)
	n := runtime.Callers(skip+2, pc)
	return Stack(pc[:n])
}

// Frame describes a single stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Frames resolves s into at most maxDepth frames. truncated reports whether
// frames were dropped.
func (s Stack) Frames() (frames []Frame, truncated bool) {
	cf := runtime.CallersFrames(s)
	for {
		f, more := cf.Next()
		frames = append(frames, Frame{Function: f.Function, File: f.File, Line: f.Line})
		if !more {
			return frames, false
		}
		if len(frames) >= maxDepth {
			return frames, true
		}
	}
}

// Top returns the innermost frame of s. ok is false if s is empty.
func (s Stack) Top() (f Frame, ok bool) {
	if len(s) == 0 {
		return Frame{}, false
	}
	frames, _ := s.Frames()
	return frames[0], true
}

// String formats s with one "\tat func (file:line)" line per frame.
func (s Stack) String() string {
	frames, truncated := s.Frames()
	lines := make([]string, 0, len(frames)+1)
	for _, f := range frames {
		lines = append(lines, fmt.Sprintf("\tat %s (%s:%d)", f.Function, filepath.Base(f.File), f.Line))
	}
	if truncated {
		lines = append(lines, ellipsis)
	}
	return strings.Join(lines, "\n")
}
