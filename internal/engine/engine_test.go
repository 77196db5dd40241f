// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package engine_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	gotesting "testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/engine"
	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/testing"
)

var startTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// recorder summarizes events as strings.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Observe(ev event.Event) error {
	var msg string
	switch e := ev.(type) {
	case *event.UnitStart:
		msg = fmt.Sprintf("UnitStart %s %v", e.Unit, e.Cases)
	case *event.UnitEnd:
		msg = "UnitEnd " + e.Unit
	case *event.CaseStart:
		msg = fmt.Sprintf("CaseStart %s.%s", e.Unit, e.Case)
	case *event.CaseLog:
		msg = fmt.Sprintf("CaseLog %s.%s: %s", e.Unit, e.Case, e.Text)
	case *event.CaseError:
		msg = fmt.Sprintf("CaseError %s.%s: %s", e.Unit, e.Case, e.Error.Reason)
	case *event.CaseEnd:
		msg = fmt.Sprintf("CaseEnd %s.%s failed=%v", e.Unit, e.Case, e.Failed)
	default:
		msg = fmt.Sprintf("%T", ev)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

type fakeOutput struct {
	mu      sync.Mutex
	flushes int
}

func (o *fakeOutput) Stdout() io.Writer { return io.Discard }
func (o *fakeOutput) Stderr() io.Writer { return io.Discard }
func (o *fakeOutput) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flushes++
	return nil
}

func newDefault(cfg engine.Config) engine.Engine {
	if cfg.Clock == nil {
		cfg.Clock = fakeclock.NewFakeClock(startTime)
	}
	return engine.NewDefault(&cfg)
}

func TestDefaultEngineReportsCases(t *gotesting.T) {
	s := &testing.Suite{
		Name: "pkg.Suite",
		Cases: []*testing.Case{
			{Name: "Pass", Func: func(ctx context.Context, s *testing.State) {
				s.Log("hello")
			}},
			{Name: "Fail", Func: func(ctx context.Context, s *testing.State) {
				s.Error("expected failure")
				s.Log("still running")
			}},
			{Name: "Fatal", Func: func(ctx context.Context, s *testing.State) {
				s.Fatal("stop here")
				s.Log("unreachable")
			}},
			{Name: "Panic", Func: func(ctx context.Context, s *testing.State) {
				panic("boom")
			}},
		},
	}
	rec := &recorder{}
	out := &fakeOutput{}
	if err := newDefault(engine.Config{}).Run(context.Background(), []*testing.Suite{s}, rec, out); err != nil {
		t.Fatal("Run failed: ", err)
	}

	want := []string{
		"UnitStart pkg.Suite [Pass Fail Fatal Panic]",
		"CaseStart pkg.Suite.Pass",
		"CaseLog pkg.Suite.Pass: hello",
		"CaseEnd pkg.Suite.Pass failed=false",
		"CaseStart pkg.Suite.Fail",
		"CaseError pkg.Suite.Fail: expected failure",
		"CaseLog pkg.Suite.Fail: still running",
		"CaseEnd pkg.Suite.Fail failed=true",
		"CaseStart pkg.Suite.Fatal",
		"CaseError pkg.Suite.Fatal: stop here",
		"CaseEnd pkg.Suite.Fatal failed=true",
		"CaseStart pkg.Suite.Panic",
		"CaseError pkg.Suite.Panic: Panic: boom",
		"CaseEnd pkg.Suite.Panic failed=true",
		"UnitEnd pkg.Suite",
	}
	if diff := cmp.Diff(rec.get(), want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
	if out.flushes != len(s.Cases) {
		t.Errorf("Output flushed %d times; want %d", out.flushes, len(s.Cases))
	}
}

func suitesNamed(names ...string) []*testing.Suite {
	var suites []*testing.Suite
	for _, n := range names {
		suites = append(suites, &testing.Suite{Name: n, Cases: []*testing.Case{{Name: "Run", Func: func(context.Context, *testing.State) {}}}})
	}
	return suites
}

func unitOrder(msgs []string) []string {
	var order []string
	for _, m := range msgs {
		if unit := strings.TrimPrefix(m, "UnitEnd "); unit != m {
			order = append(order, unit)
		}
	}
	return order
}

func TestDefaultEngineOrder(t *gotesting.T) {
	names := []string{"a.A", "b.B", "c.C", "d.D", "e.E", "f.F"}
	run := func(seed int64) []string {
		rec := &recorder{}
		if err := newDefault(engine.Config{Seed: seed}).Run(context.Background(), suitesNamed(names...), rec, &fakeOutput{}); err != nil {
			t.Fatal("Run failed: ", err)
		}
		return unitOrder(rec.get())
	}

	if diff := cmp.Diff(run(0), names); diff != "" {
		t.Errorf("Order with zero seed mismatch (-got +want):\n%s", diff)
	}
	first := run(42)
	if diff := cmp.Diff(run(42), first); diff != "" {
		t.Errorf("Order with the same seed differs (-got +want):\n%s", diff)
	}
}

func TestDefaultEngineParallel(t *gotesting.T) {
	// Both suites must be running at once for either to finish.
	var wg sync.WaitGroup
	wg.Add(2)
	rendezvous := func(ctx context.Context, s *testing.State) {
		wg.Done()
		wg.Wait()
	}
	suites := []*testing.Suite{
		{Name: "pkg.A", Cases: []*testing.Case{{Name: "Run", Func: rendezvous}}},
		{Name: "pkg.B", Cases: []*testing.Case{{Name: "Run", Func: rendezvous}}},
	}

	done := make(chan error, 1)
	go func() {
		done <- newDefault(engine.Config{Parallel: 2}).Run(context.Background(), suites, &recorder{}, &fakeOutput{})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal("Run failed: ", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Suites did not run in parallel")
	}
}

func TestDefaultEngineCaseTimeout(t *gotesting.T) {
	clk := fakeclock.NewFakeClock(startTime)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			case <-time.After(time.Millisecond):
				clk.Increment(time.Second)
			}
		}
	}()

	s := &testing.Suite{Name: "pkg.Slow", Cases: []*testing.Case{{
		Name: "Wait",
		Func: func(ctx context.Context, s *testing.State) {
			<-ctx.Done()
			s.Error("timed out")
		},
	}}}
	rec := &recorder{}
	if err := newDefault(engine.Config{CaseTimeout: time.Minute, Clock: clk}).Run(context.Background(), []*testing.Suite{s}, rec, &fakeOutput{}); err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []string{
		"UnitStart pkg.Slow [Wait]",
		"CaseStart pkg.Slow.Wait",
		"CaseError pkg.Slow.Wait: timed out",
		"CaseEnd pkg.Slow.Wait failed=true",
		"UnitEnd pkg.Slow",
	}
	if diff := cmp.Diff(rec.get(), want); diff != "" {
		t.Errorf("Events mismatch (-got +want):\n%s", diff)
	}
}

func TestDefaultEngineCanceled(t *gotesting.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := newDefault(engine.Config{}).Run(ctx, suitesNamed("pkg.A"), &recorder{}, &fakeOutput{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v; want %v", err, context.Canceled)
	}
}

func TestRegistry(t *gotesting.T) {
	reg := engine.NewRegistry()
	if _, err := reg.Lookup(engine.DefaultName); err != nil {
		t.Errorf("Lookup(%q) failed: %v", engine.DefaultName, err)
	}
	if _, err := reg.Lookup("junit"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("Lookup(junit) = %v; want %v", err, engine.ErrNotFound)
	}
	if err := reg.Register("junit", engine.NewDefault); err != nil {
		t.Error("Register failed: ", err)
	}
	if err := reg.Register("junit", engine.NewDefault); err == nil {
		t.Error("Register succeeded for a duplicate name")
	}
	if diff := cmp.Diff(reg.Names(), []string{"default", "junit"}); diff != "" {
		t.Errorf("Names mismatch (-got +want):\n%s", diff)
	}
}
