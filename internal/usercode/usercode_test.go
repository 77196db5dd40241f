// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package usercode_test

import (
	"context"
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"

	"go.chromium.org/testworker/internal/usercode"
)

func failOnPanic(t *testing.T) usercode.PanicHandler {
	return func(val interface{}) {
		t.Error("Panic: ", val)
	}
}

func TestSafeCall(t *testing.T) {
	called := false
	if err := usercode.SafeCall(context.Background(), func(ctx context.Context) {
		called = true
	}, usercode.Options{Name: "foo", OnPanic: failOnPanic(t)}); err != nil {
		t.Fatal("SafeCall: ", err)
	}
	if !called {
		t.Error("Function was not called")
	}
}

func TestSafeCallGoexit(t *testing.T) {
	if err := usercode.SafeCall(context.Background(), func(ctx context.Context) {
		runtime.Goexit()
	}, usercode.Options{Name: "foo", OnPanic: failOnPanic(t)}); err != nil {
		t.Fatal("SafeCall: ", err)
	}
}

func TestSafeCallTimeout(t *testing.T) {
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	go clk.WaitForWatcherAndIncrement(time.Minute)

	var cause error
	if err := usercode.SafeCall(context.Background(), func(ctx context.Context) {
		<-ctx.Done() // wait until the deadline is reached
		cause = context.Cause(ctx)
	}, usercode.Options{Name: "foo", Timeout: time.Minute, Clock: clk, OnPanic: failOnPanic(t)}); err != nil {
		t.Error("SafeCall returned an error though f returned soon after timeout: ", err)
	}
	if cause != context.DeadlineExceeded {
		t.Errorf("Context cause = %v; want %v", cause, context.DeadlineExceeded)
	}
}

func TestSafeCallIgnoreTimeout(t *testing.T) {
	ch := make(chan struct{})
	defer close(ch)

	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		// Keep advancing time until both the deadline and the grace period expire.
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				clk.Increment(time.Second)
			}
		}
	}()

	err := usercode.SafeCall(context.Background(), func(ctx context.Context) {
		<-ch // freeze until the test finishes
	}, usercode.Options{Name: "foo", Timeout: time.Second, GracePeriod: time.Second, Clock: clk, OnPanic: failOnPanic(t)})
	if err == nil {
		t.Fatal("SafeCall returned success on timeout")
	}
	const exp = "foo did not return on timeout"
	if err.Error() != exp {
		t.Errorf("SafeCall: %v; want: %v", err, exp)
	}
}

func TestSafeCallContextCancel(t *testing.T) {
	ch := make(chan struct{})
	defer close(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := usercode.SafeCall(ctx, func(ctx context.Context) {
		cancel()
		<-ch // freeze until the test finishes
	}, usercode.Options{Name: "foo", OnPanic: failOnPanic(t)})
	if err != context.Canceled {
		t.Errorf("SafeCall: %v; want: %v", err, context.Canceled)
	}
}

const panicMsg = "panicking"

func callPanic(ctx context.Context) {
	panic(panicMsg)
}

func TestSafeCallPanic(t *testing.T) {
	panicked := false
	onPanic := func(val interface{}) {
		panicked = true
		if s, ok := val.(string); !ok || s != panicMsg {
			t.Errorf("onPanic: got %v, want %v", val, panicMsg)
		}
		// The current call stack should contain the location where panic was called.
		stack := string(debug.Stack())
		const funcName = "callPanic"
		if !strings.Contains(stack, funcName) {
			t.Errorf("Stack does not contain %q:\n%s", funcName, stack)
		}
	}

	if err := usercode.SafeCall(context.Background(), callPanic, usercode.Options{OnPanic: onPanic}); err != nil {
		t.Fatal("SafeCall: ", err)
	}
	if !panicked {
		t.Error("PanicHandler not called")
	}
}

type reporter struct{ msgs []string }

func (r *reporter) Error(args ...interface{}) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.(string))
	}
	r.msgs = append(r.msgs, sb.String())
}

func TestErrorOnPanic(t *testing.T) {
	var r reporter
	usercode.ErrorOnPanic(&r)(42)
	if len(r.msgs) != 1 || r.msgs[0] != "Panic: 42" {
		t.Errorf("Reported %q; want [\"Panic: 42\"]", r.msgs)
	}
}
