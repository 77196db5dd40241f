// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package testing

import (
	"sync"

	"go.chromium.org/testworker/errors"
)

// ErrNotRegistered is wrapped by Lookup errors for unknown suite names.
var ErrNotRegistered = errors.New("suite is not registered")

// registration is a registry entry. err is set for suites whose definition
// was rejected; such suites stay in the registry so that asking for them
// reports why they cannot run.
type registration struct {
	suite *Suite
	err   error
}

// Registry holds suites by name.
type Registry struct {
	mu     sync.Mutex
	order  []string
	byName map[string]*registration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*registration)}
}

// AddSuite registers a copy of s. A malformed or duplicate suite is still
// recorded and its error is returned both here and by later lookups.
func (r *Registry) AddSuite(s *Suite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s = s.clone()
	if prev, ok := r.byName[s.Name]; ok {
		prev.err = errors.Errorf("suite %s registered more than once", s.Name)
		return prev.err
	}
	reg := &registration{suite: s, err: s.Validate()}
	r.byName[s.Name] = reg
	r.order = append(r.order, s.Name)
	return reg.err
}

// Lookup returns a copy of the suite registered as name.
func (r *Registry) Lookup(name string) (*Suite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotRegistered, "%s", name)
	}
	if reg.err != nil {
		return nil, errors.Wrap(reg.err, "malformed definition")
	}
	return reg.suite.clone(), nil
}

// Names returns the names of all registered suites in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Errors returns the registration errors recorded so far.
func (r *Registry) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, name := range r.order {
		if err := r.byName[name].err; err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
