// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package usercode runs code supplied by suites so that its bad behavior
// (panics, hangs) cannot take the worker down.
package usercode

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/testworker/errors"
)

// DefaultGracePeriod is the grace period used when Options.GracePeriod is
// zero.
const DefaultGracePeriod = 30 * time.Second

// PanicHandler specifies how to handle panics in SafeCall.
type PanicHandler func(val interface{})

// ErrorReporter is the interface for reporting errors. It is implemented by
// testing.State.
type ErrorReporter interface {
	Error(args ...interface{})
}

// ErrorOnPanic returns a PanicHandler that reports a panic via e.
func ErrorOnPanic(e ErrorReporter) PanicHandler {
	return func(val interface{}) {
		e.Error("Panic: ", fmt.Sprint(val))
	}
}

// Options controls SafeCall.
type Options struct {
	// Name describes the called code in error messages.
	Name string
	// Timeout is how long f may run. Zero means no limit.
	Timeout time.Duration
	// GracePeriod is how long f may keep running after Timeout before it
	// is abandoned. DefaultGracePeriod is used if zero.
	GracePeriod time.Duration
	// Clock measures Timeout and GracePeriod. The real clock is used if nil.
	Clock clock.Clock
	// OnPanic is called on f's goroutine if f panics. The panic value is
	// dropped if nil.
	OnPanic PanicHandler
}

// SafeCall runs f on a goroutine to protect the caller from it.
//
// f receives a context that is canceled, with context.DeadlineExceeded as
// its cause, once Timeout elapses. If f does not return within a further
// GracePeriod, or ctx is canceled before f finishes, SafeCall abandons the
// goroutine and returns an error right away.
//
// If f panics, OnPanic is called with the recovered value. OnPanic is never
// called once SafeCall decided to abandon f, even if f panics later. If f
// calls runtime.Goexit, it is handled just like a normal return.
//
// SafeCall returns an error only if f was abandoned.
func SafeCall(ctx context.Context, f func(ctx context.Context), opts Options) error {
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewClock()
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	// The calling goroutine and f's goroutine race for a token. If the
	// caller takes it on timeout or cancellation, it returns without
	// waiting and OnPanic is never called. If f's goroutine takes it, it
	// recovers and handles a panic before SafeCall returns.
	var token atomic.Bool
	takeToken := func() bool { return token.CompareAndSwap(false, true) }

	fctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	done := make(chan struct{}) // closed when f's goroutine finishes
	go func() {
		defer close(done)
		defer func() {
			// Always recover to avoid crashing the process.
			val := recover()
			if !takeToken() {
				return
			}
			// The handler runs here so that the panic location is part of
			// the current stack.
			if val != nil && opts.OnPanic != nil {
				opts.OnPanic(val)
			}
		}()
		f(fctx)
	}()

	// Do not return while f's goroutine is still handling a panic.
	defer func() {
		if !takeToken() {
			<-done
		}
	}()

	if opts.Timeout <= 0 {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	deadline := clk.NewTimer(opts.Timeout)
	defer deadline.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-deadline.C():
		cancel(context.DeadlineExceeded)
		deadline.Stop()
	}

	abandon := clk.NewTimer(grace)
	defer abandon.Stop()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-abandon.C():
		return errors.Errorf("%s did not return on timeout", opts.Name)
	}
}
