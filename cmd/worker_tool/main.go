// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements worker_tool, a helper for preparing worker
// invocations and reading their event streams.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"

	"go.chromium.org/testworker/internal/logging"
)

// doMain implements the main body of the program. It's a separate function so
// that its deferred functions will run before os.Exit makes the program exit
// immediately.
func doMain() int {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newExpandCmd(os.Stdout), "")
	subcommands.Register(newDecodeCmd(os.Stdin, os.Stdout), "")

	verbose := flag.Bool("verbose", false, "use verbose logging")
	flag.Parse()

	level := logging.LevelInfo
	if *verbose {
		level = logging.LevelDebug
	}
	lg := logging.NewSinkLogger(level, false, logging.NewWriterSink(os.Stderr))
	ctx := logging.AttachLogger(context.Background(), lg)

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}
