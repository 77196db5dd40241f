// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package event

import (
	"fmt"
	"path/filepath"

	"go.chromium.org/testworker/internal/logging"
)

// LogObserver mirrors events into a diagnostic logger, which makes a run
// easier to follow from the worker's own stderr or syslog. Output chunks
// and heartbeats are not mirrored.
type LogObserver struct {
	lg logging.Logger
}

// NewLogObserver returns a LogObserver writing to lg.
func NewLogObserver(lg logging.Logger) *LogObserver {
	return &LogObserver{lg: lg}
}

// Observe logs ev.
func (o *LogObserver) Observe(ev Event) error {
	level := logging.LevelDebug
	var msg string
	switch e := ev.(type) {
	case *RunStart:
		msg = fmt.Sprintf("Run %s started with %d unit(s)", e.RunID, len(e.Units))
	case *RunLog:
		level, msg = logging.LevelInfo, e.Text
	case *RunEnd:
		msg = "Run ended"
		if e.Fault != "" {
			level, msg = logging.LevelInfo, "Run ended with fault: "+e.Fault
		}
	case *UnitFailure:
		level = logging.LevelInfo
		msg = fmt.Sprintf("%s: ======== failed: %s", e.Unit, e.Error.Reason)
	case *UnitStart:
		msg = fmt.Sprintf("%s: ======== start", e.Unit)
	case *UnitEnd:
		msg = fmt.Sprintf("%s: ======== end", e.Unit)
	case *CaseStart:
		msg = fmt.Sprintf("%s.%s: start", e.Unit, e.Case)
	case *CaseLog:
		msg = fmt.Sprintf("%s.%s: %s", e.Unit, e.Case, e.Text)
	case *CaseError:
		level = logging.LevelInfo
		msg = fmt.Sprintf("%s.%s: Error at %s:%d: %s", e.Unit, e.Case, filepath.Base(e.Error.File), e.Error.Line, e.Error.Reason)
	case *CaseEnd:
		msg = fmt.Sprintf("%s.%s: end (%v, failed=%v)", e.Unit, e.Case, e.Duration, e.Failed)
	default:
		return nil
	}
	o.lg.Log(level, ev.Timestamp(), msg)
	return nil
}
