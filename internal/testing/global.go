// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package testing

var globalRegistry = NewRegistry()

// GlobalRegistry returns the registry that AddSuite adds to.
func GlobalRegistry() *Registry {
	return globalRegistry
}

// AddSuite adds s to the global registry. Registration errors are kept in
// the registry and reported when the suite is requested.
func AddSuite(s *Suite) {
	globalRegistry.AddSuite(s)
}

// SetGlobalRegistryForTesting replaces the global registry with reg until
// the returned function is called.
func SetGlobalRegistryForTesting(reg *Registry) (restore func()) {
	orig := globalRegistry
	globalRegistry = reg
	return func() { globalRegistry = orig }
}
