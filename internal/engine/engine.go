// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package engine defines the execution engine a worker hands resolved
// suites to, and provides a default implementation.
package engine

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/testing"
)

// Output gives an engine access to the captured output channels. Cases
// write console output to Stdout and Stderr; Flush makes buffered output
// visible as events.
type Output interface {
	Stdout() io.Writer
	Stderr() io.Writer
	Flush() error
}

// Engine runs suites and reports what happens as events.
//
// Run returns an error only for failures of the engine itself. Failures of
// cases are reported as events and are not errors.
type Engine interface {
	Run(ctx context.Context, suites []*testing.Suite, obs event.Observer, out Output) error
}

// Config holds the settings shared by all engines.
type Config struct {
	// Seed orders suites. Zero keeps the requested order.
	Seed int64
	// Parallel is the maximum number of suites run at once. Values below
	// one mean one.
	Parallel int
	// CaseTimeout limits cases that do not set their own timeout. Zero
	// means no limit.
	CaseTimeout time.Duration
	// Clock timestamps events. The real clock is used if nil.
	Clock clock.Clock
}

func (c *Config) clock() clock.Clock {
	if c.Clock == nil {
		return clock.NewClock()
	}
	return c.Clock
}

// Factory creates an engine.
type Factory func(cfg *Config) Engine

// ErrNotFound is wrapped by Lookup errors for unknown engine names.
var ErrNotFound = errors.New("engine not available")

// DefaultName is the name the default engine is registered under.
const DefaultName = "default"

// Registry holds engine factories by name.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
}

// NewRegistry returns a registry containing the default engine.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories[DefaultName] = NewDefault
	return r
}

// Register adds f as name. Registering a name twice is an error.
func (r *Registry) Register(name string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[name]; ok {
		return errors.Errorf("engine %q registered more than once", name)
	}
	r.factories[name] = f
	return nil
}

// Lookup returns the factory registered as name.
func (r *Registry) Lookup(name string) (Factory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "%q", name)
	}
	return f, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var names []string
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
