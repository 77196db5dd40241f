// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"go.chromium.org/testworker/internal/args"
	"go.chromium.org/testworker/internal/logging"
	"go.chromium.org/testworker/shutil"
)

// expandCmd implements subcommands.Command to print the identifiers a
// worker would receive for a list of arguments.
type expandCmd struct {
	stdout io.Writer
	shell  bool
}

var _ = subcommands.Command(&expandCmd{})

func newExpandCmd(stdout io.Writer) *expandCmd {
	return &expandCmd{stdout: stdout}
}

func (*expandCmd) Name() string     { return "expand" }
func (*expandCmd) Synopsis() string { return "expand @manifest arguments" }
func (*expandCmd) Usage() string {
	return `Usage: expand [flag]... <suite | @manifest>...

Print the suite identifiers the arguments expand to, one per line.

`
}

func (c *expandCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.shell, "shell", false, "print a single shell-escaped line instead")
}

func (c *expandCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	ids, err := args.Expand(f.Args())
	if err != nil {
		logging.Infof(ctx, "Failed to expand arguments: %v", err)
		return subcommands.ExitFailure
	}
	logging.Debugf(ctx, "%d argument(s) expanded to %d identifier(s)", f.NArg(), len(ids))

	if c.shell {
		fmt.Fprintln(c.stdout, shutil.EscapeSlice(ids))
		return subcommands.ExitSuccess
	}
	for _, id := range ids {
		fmt.Fprintln(c.stdout, id)
	}
	return subcommands.ExitSuccess
}
