// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package bundle provides the main function of worker binaries.
//
// A worker binary links the packages that register its suites and calls
// Main:
//
//	func main() {
//		os.Exit(bundle.Main(bundle.Delegate{}))
//	}
package bundle

import (
	"context"
	"io"
	"os"

	"go.chromium.org/testworker/internal/worker"
	"go.chromium.org/testworker/testing"
)

// Delegate customizes a worker binary.
type Delegate struct {
	// Registry holds the suites the binary can run. Suites added with
	// testing.AddSuite are used if nil.
	Registry *testing.Registry
}

// Main runs the worker with the process's arguments and standard streams
// and returns the status to exit with. It handles SIGINT and SIGTERM.
func Main(d Delegate) int {
	return run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, d, true)
}

// Run is like Main but takes the arguments and streams explicitly and does
// not handle signals.
func Run(clArgs []string, stdout, stderr io.Writer, d Delegate) int {
	return run(context.Background(), clArgs, stdout, stderr, d, false)
}

func run(ctx context.Context, clArgs []string, stdout, stderr io.Writer, d Delegate, handleSignals bool) int {
	return worker.Run(ctx, clArgs, stdout, stderr, &worker.StaticConfig{
		Registry:      d.Registry,
		HandleSignals: handleSignals,
	})
}
