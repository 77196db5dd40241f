// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// SinkLogger filters and formats logs before handing them to a Sink.
type SinkLogger struct {
	level     Level
	timestamp bool
	sink      Sink
}

// NewSinkLogger creates a new SinkLogger.
//
// Logs below level are dropped. If timestamp is true, a UTC timestamp is
// prepended. Warnings are additionally prefixed with "WARN: ". A multi-line
// message, such as one carrying a stack trace, is sent as one log per line
// with every line prefixed, so interleaved diagnostics stay attributable.
func NewSinkLogger(level Level, timestamp bool, sink Sink) *SinkLogger {
	return &SinkLogger{level: level, timestamp: timestamp, sink: sink}
}

// Log sends a log to the associated sink.
func (l *SinkLogger) Log(level Level, ts time.Time, msg string) {
	if level < l.level {
		return
	}
	var prefix string
	if l.timestamp {
		prefix = ts.UTC().Format("2006-01-02T15:04:05.000000Z ")
	}
	if level == LevelWarn {
		prefix += "WARN: "
	}
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		l.sink.Log(prefix + line)
	}
}

// Sink is a destination of formatted logs, e.g. a file or a console.
type Sink interface {
	Log(msg string)
}

// FuncSink is a Sink that calls a function. Calls are synchronized.
type FuncSink struct {
	mu sync.Mutex
	f  func(msg string)
}

// NewFuncSink creates a new FuncSink.
func NewFuncSink(f func(msg string)) *FuncSink {
	return &FuncSink{f: f}
}

// Log calls the underlying function.
func (s *FuncSink) Log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.f(msg)
}

// WriterSink writes one line per log to an io.Writer. Writes are synchronized.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink creates a new WriterSink.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Log writes msg followed by a newline.
func (s *WriterSink) Log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, msg)
}
