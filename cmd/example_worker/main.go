// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements example_worker, a worker binary bundling a few
// demonstration suites.
//
// Run it as
//
//	example_worker -verbose example.Echo example.Arith example.NeedsTool
//
// and decode its output with "worker_tool decode".
package main

import (
	"os"

	"go.chromium.org/testworker/bundle"
)

func main() {
	os.Exit(bundle.Main(bundle.Delegate{}))
}
