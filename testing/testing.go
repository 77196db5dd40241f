// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package testing is used by bundles to define suites that a worker can
// run.
//
// Suites are registered from init functions:
//
//	func init() {
//		testing.AddSuite(&testing.Suite{
//			Name: "network.Resolver",
//			Desc: "Checks name resolution",
//			Cases: []*testing.Case{
//				{Name: "Localhost", Func: Localhost},
//			},
//		})
//	}
//
//	func Localhost(ctx context.Context, s *testing.State) {
//		...
//	}
package testing

import (
	itesting "go.chromium.org/testworker/internal/testing"
)

type (
	// Suite is a named group of cases resolved and run as one unit.
	Suite = itesting.Suite
	// Case is a single test function inside a suite.
	Case = itesting.Case
	// State is passed to a case function to report logs and errors.
	State = itesting.State
	// Registry holds suites by name.
	Registry = itesting.Registry
)

// AddSuite adds s to the global registry. It is meant to be called from
// init functions. A malformed suite is still registered and fails when it
// is requested.
func AddSuite(s *Suite) {
	itesting.AddSuite(s)
}

// NewRegistry returns an empty registry, e.g. for bundle.Delegate.
func NewRegistry() *Registry {
	return itesting.NewRegistry()
}
