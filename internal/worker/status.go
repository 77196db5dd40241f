// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package worker

import "fmt"

// Exit statuses of a worker process. Failures of individual units are
// reported as events and do not affect the status.
const (
	// StatusSuccess means the run completed without a worker-level fault.
	StatusSuccess = 0
	// StatusSetupUnavailable means the run could not start: flags were
	// invalid, a manifest could not be read or the engine is missing.
	// Retrying the same invocation will not help.
	StatusSetupUnavailable = 254
	// StatusFault means the worker itself failed during execution.
	StatusFault = 255
)

// State is a step of a worker run. A run visits the states in order and
// never goes back.
type State int

const (
	StateInit State = iota
	StateArgsResolved
	StateStreamsRedirected
	StateExecuting
	StateStreamsRestored
	StateEventsFlushed
	StateExited
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateArgsResolved:
		return "ARGS_RESOLVED"
	case StateStreamsRedirected:
		return "STREAMS_REDIRECTED"
	case StateExecuting:
		return "EXECUTING"
	case StateStreamsRestored:
		return "STREAMS_RESTORED"
	case StateEventsFlushed:
		return "EVENTS_FLUSHED"
	case StateExited:
		return "EXITED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
