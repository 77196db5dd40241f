// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package testing defines test suites, their cases and the registry bundles
// add them to.
//
// A suite is the unit a worker is asked to run by name. Bundles register
// suites from init functions; the worker later resolves requested names
// against the registry.
package testing

import (
	"context"
	"regexp"
	"time"

	"go.chromium.org/testworker/errors"
)

// Suite is a named group of cases that is resolved and run as one unit.
type Suite struct {
	// Name identifies the suite, e.g. "network.Resolver".
	Name string
	// Desc is a one-line description of the suite.
	Desc string
	// Load is run once when the suite is resolved, before any case runs.
	// A returned error (or a panic) makes the whole suite unresolvable, e.g.
	// because a dependency it needs is missing.
	Load func() error
	// Cases are run in order.
	Cases []*Case
}

// Case is a single test function inside a suite.
type Case struct {
	// Name identifies the case within its suite.
	Name string
	// Func is the test body.
	Func func(ctx context.Context, s *State)
	// Timeout overrides the engine's default per-case timeout if positive.
	Timeout time.Duration
}

// nameRE matches valid suite and case names.
var nameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)

// Validate reports whether s is well-formed.
func (s *Suite) Validate() error {
	if !nameRE.MatchString(s.Name) {
		return errors.Errorf("invalid suite name %q", s.Name)
	}
	if len(s.Cases) == 0 {
		return errors.Errorf("suite %s has no cases", s.Name)
	}
	seen := make(map[string]struct{}, len(s.Cases))
	for i, c := range s.Cases {
		if c == nil {
			return errors.Errorf("suite %s: case %d is nil", s.Name, i)
		}
		if !nameRE.MatchString(c.Name) {
			return errors.Errorf("suite %s: invalid case name %q", s.Name, c.Name)
		}
		if _, ok := seen[c.Name]; ok {
			return errors.Errorf("suite %s: case %s defined more than once", s.Name, c.Name)
		}
		seen[c.Name] = struct{}{}
		if c.Func == nil {
			return errors.Errorf("suite %s: case %s has no function", s.Name, c.Name)
		}
	}
	return nil
}

// CaseNames returns the names of s's cases in order.
func (s *Suite) CaseNames() []string {
	names := make([]string, len(s.Cases))
	for i, c := range s.Cases {
		names[i] = c.Name
	}
	return names
}

// clone returns a copy of s that shares no slices with it.
func (s *Suite) clone() *Suite {
	ns := *s
	ns.Cases = make([]*Case, len(s.Cases))
	for i, c := range s.Cases {
		if c != nil {
			nc := *c
			ns.Cases[i] = &nc
		}
	}
	return &ns
}
