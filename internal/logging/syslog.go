// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"log/syslog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// syslogWriter is the subset of *syslog.Writer used by SyslogLogger.
type syslogWriter interface {
	Warning(m string) error
	Info(m string) error
	Debug(m string) error
	Close() error
}

// SyslogLogger is a Logger that routes logs to syslog.
//
// Syslog entries are single lines, so a multi-line message becomes one entry
// per non-empty line. Logs sent after Close are dropped.
type SyslogLogger struct {
	mu sync.Mutex
	w  syslogWriter // nil after Close
}

var _ Logger = &SyslogLogger{}

// NewSyslogLogger connects to the local syslog endpoint, tagging entries with
// tag, or with the executable name if tag is empty.
func NewSyslogLogger(tag string) (*SyslogLogger, error) {
	if tag == "" {
		tag = filepath.Base(os.Args[0])
	}
	w, err := syslog.New(syslog.LOG_DEBUG|syslog.LOG_USER, tag)
	if err != nil {
		return nil, err
	}
	return &SyslogLogger{w: w}, nil
}

// Close closes the connection to syslog.
func (l *SyslogLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return nil
	}
	err := l.w.Close()
	l.w = nil
	return err
}

// Log sends a log to syslog at the matching priority.
func (l *SyslogLogger) Log(level Level, ts time.Time, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w == nil {
		return
	}
	send := l.w.Debug
	switch level {
	case LevelWarn:
		send = l.w.Warning
	case LevelInfo:
		send = l.w.Info
	}
	for _, line := range strings.Split(msg, "\n") {
		if strings.TrimSpace(line) != "" {
			send(line)
		}
	}
}
