// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package engine

import (
	"context"
	"fmt"
	"math/rand"

	"code.cloudfoundry.org/clock"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/logging"
	"go.chromium.org/testworker/internal/testing"
	"go.chromium.org/testworker/internal/usercode"
)

type defaultEngine struct {
	cfg Config
	clk clock.Clock
}

// NewDefault returns the default engine.
//
// It shuffles suites with Seed if it is non-zero, runs up to Parallel
// suites at once and the cases of a suite one after another. Each case runs
// under usercode.SafeCall, so a panic or a timeout fails only that case.
// Output channels are flushed after every case. With Parallel at most one,
// the same seed and a fake clock yield the same events.
func NewDefault(cfg *Config) Engine {
	return &defaultEngine{cfg: *cfg, clk: cfg.clock()}
}

func (e *defaultEngine) Run(ctx context.Context, suites []*testing.Suite, obs event.Observer, out Output) error {
	order := slices.Clone(suites)
	if e.cfg.Seed != 0 {
		rnd := rand.New(rand.NewSource(e.cfg.Seed))
		rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	parallel := e.cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	var g errgroup.Group
	g.SetLimit(parallel)
	for _, s := range order {
		s := s
		g.Go(func() error {
			return e.runSuite(ctx, s, obs, out)
		})
	}
	return g.Wait()
}

func (e *defaultEngine) runSuite(ctx context.Context, s *testing.Suite, obs event.Observer, out Output) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.Debugf(ctx, "Running suite %s", s.Name)
	if err := obs.Observe(&event.UnitStart{Time: e.clk.Now(), Unit: s.Name, Cases: s.CaseNames()}); err != nil {
		return err
	}
	for _, c := range s.Cases {
		if err := e.runCase(ctx, s, c, obs, out); err != nil {
			return err
		}
	}
	return obs.Observe(&event.UnitEnd{Time: e.clk.Now(), Unit: s.Name})
}

func (e *defaultEngine) runCase(ctx context.Context, s *testing.Suite, c *testing.Case, obs event.Observer, out Output) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := e.clk.Now()
	if err := obs.Observe(&event.CaseStart{Time: start, Unit: s.Name, Case: c.Name}); err != nil {
		return err
	}

	co := &caseOutput{obs: obs, clk: e.clk, unit: s.Name, name: c.Name}
	st := testing.NewState(s.Name, c.Name, co, out.Stdout(), out.Stderr())

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = e.cfg.CaseTimeout
	}
	fullName := fmt.Sprintf("%s.%s", s.Name, c.Name)
	if err := usercode.SafeCall(ctx, func(ctx context.Context) {
		c.Func(ctx, st)
	}, usercode.Options{
		Name:    fullName,
		Timeout: timeout,
		Clock:   e.clk,
		OnPanic: usercode.ErrorOnPanic(st),
	}); err != nil {
		co.Error(testing.NewCaseError(err.Error(), err, 0))
	}

	if err := out.Flush(); err != nil {
		co.Error(testing.NewCaseError("Failed to flush output", err, 0))
	}
	failed := st.HasError() || co.failed()
	return obs.Observe(&event.CaseEnd{
		Time:     e.clk.Now(),
		Unit:     s.Name,
		Case:     c.Name,
		Duration: e.clk.Since(start),
		Failed:   failed,
	})
}
