// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package engine

import (
	"sync"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/testing"
)

// caseOutput turns what a case reports into events.
type caseOutput struct {
	obs        event.Observer
	clk        clock.Clock
	unit, name string

	mu     sync.Mutex
	errors int
}

var _ testing.CaseOutput = &caseOutput{}

func (o *caseOutput) Log(msg string) {
	o.obs.Observe(&event.CaseLog{Time: o.clk.Now(), Unit: o.unit, Case: o.name, Text: msg})
}

func (o *caseOutput) Error(e *event.Error) {
	o.mu.Lock()
	o.errors++
	o.mu.Unlock()
	o.obs.Observe(&event.CaseError{Time: o.clk.Now(), Unit: o.unit, Case: o.name, Error: *e})
}

func (o *caseOutput) failed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.errors > 0
}
