// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package event

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"code.cloudfoundry.org/clock"
	"golang.org/x/exp/slices"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/logging"
)

// Multiplexer presents a list of observers as a single Observer.
//
// Observers are added before execution starts and the list is frozen by
// Seal. Every event passed to Observe is delivered synchronously, in the
// caller's goroutine, to each observer in registration order. A failing or
// panicking observer is reported to the diagnostic logger right away and
// does not prevent delivery to the others.
type Multiplexer struct {
	diag logging.Logger
	clk  clock.Clock

	mu        sync.Mutex
	observers []Observer
	sealed    atomic.Pointer[[]Observer] // non-nil once Seal was called
}

var _ Observer = &Multiplexer{}

// NewMultiplexer returns a Multiplexer that reports observer faults to diag,
// timestamped by clk. Nil values mean no reporting and the real clock.
func NewMultiplexer(diag logging.Logger, clk clock.Clock, observers ...Observer) *Multiplexer {
	if diag == nil {
		diag = logging.Discard
	}
	if clk == nil {
		clk = clock.NewClock()
	}
	return &Multiplexer{diag: diag, clk: clk, observers: slices.Clone(observers)}
}

// Add appends observers. It fails once the multiplexer has been sealed.
func (m *Multiplexer) Add(observers ...Observer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed.Load() != nil {
		return errors.New("observers cannot be added after execution started")
	}
	m.observers = append(m.observers, observers...)
	return nil
}

// Seal freezes the observer list. Calling Seal more than once is harmless.
func (m *Multiplexer) Seal() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sealed.Load() != nil {
		return
	}
	frozen := slices.Clone(m.observers)
	m.sealed.Store(&frozen)
}

// Len returns the number of registered observers.
func (m *Multiplexer) Len() int {
	return len(m.list())
}

func (m *Multiplexer) list() []Observer {
	if l := m.sealed.Load(); l != nil {
		return *l
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.observers)
}

// Observe delivers ev to every observer. It always returns nil; observer
// faults are logged instead.
func (m *Multiplexer) Observe(ev Event) error {
	for i, o := range m.list() {
		m.deliver(i, o, ev)
	}
	return nil
}

func (m *Multiplexer) deliver(i int, o Observer, ev Event) {
	defer func() {
		if val := recover(); val != nil {
			m.warn(fmt.Sprintf("Observer %d (%T) panicked on %T: %v\n%s", i, o, ev, val, debug.Stack()))
		}
	}()
	if err := o.Observe(ev); err != nil {
		m.warn(fmt.Sprintf("Observer %d (%T) failed on %T: %+v", i, o, ev, err))
	}
}

func (m *Multiplexer) warn(msg string) {
	m.diag.Log(logging.LevelWarn, m.clk.Now(), msg)
}
