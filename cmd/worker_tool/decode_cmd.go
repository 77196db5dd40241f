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
	"strings"

	"github.com/google/subcommands"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/control"
	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/logging"
)

// decodeCmd implements subcommands.Command to print a worker's event
// stream in a human-readable form.
type decodeCmd struct {
	stdin      io.Reader
	stdout     io.Writer
	format     string
	heartbeats bool
	timestamps bool
}

var _ = subcommands.Command(&decodeCmd{})

func newDecodeCmd(stdin io.Reader, stdout io.Writer) *decodeCmd {
	return &decodeCmd{stdin: stdin, stdout: stdout}
}

func (*decodeCmd) Name() string     { return "decode" }
func (*decodeCmd) Synopsis() string { return "print a worker event stream" }
func (*decodeCmd) Usage() string {
	return `Usage: decode [flag]... [file]

Print the events written by a worker, read from file or stdin.

`
}

func (c *decodeCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", string(control.FormatJSON), `stream encoding ("json" or "proto")`)
	f.BoolVar(&c.heartbeats, "heartbeats", false, "also print heartbeat events")
	f.BoolVar(&c.timestamps, "timestamps", true, "prefix lines with event timestamps")
}

func (c *decodeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	format, err := control.ParseFormat(c.format)
	if err != nil {
		logging.Info(ctx, err)
		return subcommands.ExitUsageError
	}

	in := c.stdin
	if f.NArg() == 1 {
		fl, err := os.Open(f.Arg(0))
		if err != nil {
			logging.Infof(ctx, "Failed to open stream: %v", err)
			return subcommands.ExitFailure
		}
		defer fl.Close()
		in = fl
	}

	if err := c.decode(in, format); err != nil {
		logging.Infof(ctx, "Failed to decode stream: %v", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// decode prints every event read from r. Lifecycle events are formatted by
// event.LogObserver; output chunks are printed line by line.
func (c *decodeCmd) decode(r io.Reader, format control.Format) error {
	rd, err := control.NewReader(r, format)
	if err != nil {
		return err
	}
	lg := logging.NewSinkLogger(logging.LevelDebug, c.timestamps, logging.NewWriterSink(c.stdout))
	lo := event.NewLogObserver(lg)

	for rd.More() {
		ev, err := rd.ReadMessage()
		if err != nil {
			return err
		}
		switch e := ev.(type) {
		case *event.OutputChunk:
			for _, line := range strings.SplitAfter(string(e.Data), "\n") {
				if line != "" {
					lg.Log(logging.LevelDebug, e.Time, fmt.Sprintf("[%v] %s", e.Stream, strings.TrimSuffix(line, "\n")))
				}
			}
		case *event.Heartbeat:
			if c.heartbeats {
				lg.Log(logging.LevelDebug, e.Time, "Heartbeat")
			}
		default:
			if err := lo.Observe(ev); err != nil {
				return errors.Wrapf(err, "failed to print %T", ev)
			}
		}
	}
	return nil
}
