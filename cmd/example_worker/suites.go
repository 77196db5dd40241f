// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.chromium.org/testworker/testing"
)

func init() {
	testing.AddSuite(&testing.Suite{
		Name: "example.Echo",
		Desc: "Writes to both captured output channels",
		Cases: []*testing.Case{
			{Name: "Stdout", Func: EchoStdout},
			{Name: "Stderr", Func: EchoStderr},
		},
	})
	testing.AddSuite(&testing.Suite{
		Name: "example.Arith",
		Desc: "Checks integer arithmetic",
		Cases: []*testing.Case{
			{Name: "Add", Func: ArithAdd},
			{Name: "Div", Func: ArithDiv},
		},
	})
	testing.AddSuite(&testing.Suite{
		Name: "example.NeedsTool",
		Desc: "Requires a tool that is usually not installed",
		Load: func() error {
			_, err := exec.LookPath("frobnicate")
			return err
		},
		Cases: []*testing.Case{{Name: "Run", Func: func(ctx context.Context, s *testing.State) {}}},
	})
	testing.AddSuite(&testing.Suite{
		Name:  "example.Slow",
		Desc:  "Exceeds its timeout",
		Cases: []*testing.Case{{Name: "Sleep", Func: SlowSleep, Timeout: time.Second}},
	})
}

func EchoStdout(ctx context.Context, s *testing.State) {
	fmt.Fprintln(s.Stdout(), "hello")
}

func EchoStderr(ctx context.Context, s *testing.State) {
	fmt.Fprintln(s.Stderr(), "oops")
}

func ArithAdd(ctx context.Context, s *testing.State) {
	if got, want := 2+2, 4; got != want {
		s.Errorf("2+2 = %d; want %d", got, want)
	}
}

func ArithDiv(ctx context.Context, s *testing.State) {
	divisor := 0
	s.Log("Dividing by ", divisor)
	_ = 1 / divisor // panics; the case fails and the run continues
}

func SlowSleep(ctx context.Context, s *testing.State) {
	select {
	case <-ctx.Done():
		s.Error("Timed out: ", context.Cause(ctx))
	case <-time.After(time.Minute):
	}
}
