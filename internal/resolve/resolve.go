// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package resolve turns test unit identifiers into runnable suites.
//
// Resolution is isolated per identifier: a unit that cannot be resolved is
// reported as a UnitFailure event and skipped, and the remaining units are
// still resolved.
package resolve

import (
	"fmt"
	"runtime/debug"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/logging"
	"go.chromium.org/testworker/internal/testing"
)

// Result is the outcome of resolving one identifier. Exactly one of Suite
// and Err is set.
type Result struct {
	ID    string
	Suite *testing.Suite
	Err   error
}

// OK reports whether the identifier was resolved.
func (r Result) OK() bool { return r.Err == nil }

// One resolves id against reg: it looks the suite up and runs its Load hook.
// It never panics; a panicking Load hook becomes Result.Err.
func One(reg *testing.Registry, id string) Result {
	s, err := reg.Lookup(id)
	if err != nil {
		return Result{ID: id, Err: err}
	}
	if err := load(s); err != nil {
		return Result{ID: id, Err: errors.Wrapf(err, "failed to load %s", id)}
	}
	return Result{ID: id, Suite: s}
}

func load(s *testing.Suite) (err error) {
	if s.Load == nil {
		return nil
	}
	defer func() {
		if val := recover(); val != nil {
			err = errors.Errorf("panic: %v\n%s", val, debug.Stack())
		}
	}()
	return s.Load()
}

// All resolves ids in order and returns the suites that were resolved, in
// the same order. For every identifier that fails, a UnitFailure event is
// sent to obs. If that report itself fails, the problem is logged to diag
// and resolution continues.
func All(reg *testing.Registry, ids []string, obs event.Observer, clk clock.Clock, diag logging.Logger) []*testing.Suite {
	var suites []*testing.Suite
	for _, id := range ids {
		res := One(reg, id)
		if res.OK() {
			suites = append(suites, res.Suite)
			continue
		}
		diag.Log(logging.LevelWarn, clk.Now(), fmt.Sprintf("Could not resolve %s: %v", id, res.Err))
		if err := reportFailure(obs, clk, res); err != nil {
			diag.Log(logging.LevelWarn, clk.Now(), fmt.Sprintf("Could not report failure of %s: %+v", id, err))
		}
	}
	return suites
}

func reportFailure(obs event.Observer, clk clock.Clock, res Result) (err error) {
	defer func() {
		if val := recover(); val != nil {
			err = errors.Errorf("observer panicked: %v", val)
		}
	}()
	return obs.Observe(&event.UnitFailure{
		Time:  clk.Now(),
		Unit:  res.ID,
		Error: event.NewError(res.Err),
	})
}
