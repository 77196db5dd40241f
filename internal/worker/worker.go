// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package worker implements the main function of a worker process.
//
// A worker resolves the suites named on its command line, captures its own
// standard output channels, hands the suites to an execution engine and
// writes everything that happens to stdout as an event stream. Diagnostics
// about the worker itself go to the original stderr.
package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"

	"go.chromium.org/testworker/internal/command"
	"go.chromium.org/testworker/internal/control"
	"go.chromium.org/testworker/internal/engine"
	"go.chromium.org/testworker/internal/event"
	"go.chromium.org/testworker/internal/logging"
	"go.chromium.org/testworker/internal/redirect"
	"go.chromium.org/testworker/internal/resolve"
	"go.chromium.org/testworker/internal/testing"
	"go.chromium.org/testworker/shutil"
)

// StaticConfig contains settings fixed by the binary that links the worker.
type StaticConfig struct {
	// Registry holds the suites that may be run. testing.GlobalRegistry()
	// is used if nil.
	Registry *testing.Registry
	// Engines holds the available engines. engine.NewRegistry() is used if
	// nil.
	Engines *engine.Registry
	// Clock timestamps events. The real clock is used if nil.
	Clock clock.Clock
	// Observers receive every event in addition to the event stream.
	Observers []event.Observer
	// OnStateChange is called on every state transition if non-nil.
	OnStateChange func(s State)
	// HandleSignals installs a SIGINT/SIGTERM handler for the duration of
	// execution. Only main functions should set it.
	HandleSignals bool
}

// Run runs a worker and returns the status the process should exit with.
// clArgs is typically os.Args[1:]. Events are written to stdout; test code
// writes to captured channels whose originals are stdout and stderr.
func Run(ctx context.Context, clArgs []string, stdout, stderr io.Writer, scfg *StaticConfig) int {
	d := &driver{scfg: *scfg, stdout: stdout, stderr: stderr}
	if d.scfg.Registry == nil {
		d.scfg.Registry = testing.GlobalRegistry()
	}
	if d.scfg.Engines == nil {
		d.scfg.Engines = engine.NewRegistry()
	}
	if d.scfg.Clock == nil {
		d.scfg.Clock = clock.NewClock()
	}
	return d.run(ctx, clArgs)
}

// driver holds the state of one run.
type driver struct {
	scfg           StaticConfig
	stdout, stderr io.Writer

	state State
	diag  logging.Logger
	fault string
}

func (d *driver) setState(s State) {
	if s < d.state {
		panic(fmt.Sprintf("worker state moved back from %v to %v", d.state, s))
	}
	d.state = s
	if d.scfg.OnStateChange != nil {
		d.scfg.OnStateChange(s)
	}
}

func (d *driver) warnf(format string, args ...interface{}) {
	d.diag.Log(logging.LevelWarn, d.scfg.Clock.Now(), fmt.Sprintf(format, args...))
}

func (d *driver) run(ctx context.Context, clArgs []string) (status int) {
	d.setState(StateInit)
	defer d.setState(StateExited)

	cfg, ids, err := readArgs(clArgs, d.stderr)
	if err != nil {
		return command.WriteError(d.stderr, err)
	}
	newEngine, err := d.scfg.Engines.Lookup(cfg.Engine)
	if err != nil {
		return command.WriteError(d.stderr, command.NewStatusErrorf(StatusSetupUnavailable,
			"%v (available: %s)", err, strings.Join(d.scfg.Engines.Names(), ", ")))
	}

	// With fd capture, fds 1 and 2 are about to be replaced, so the event
	// stream and diagnostics must use duplicates of the originals.
	var fdc *redirect.FDCapture
	if cfg.CaptureFDs {
		if fdc, err = redirect.NewFDCapture(); err != nil {
			return command.WriteError(d.stderr, command.NewStatusErrorf(StatusSetupUnavailable, "%v", err))
		}
		defer fdc.Close()
		if d.stdout == os.Stdout {
			d.stdout = fdc.Stdout()
		}
		if d.stderr == os.Stderr {
			d.stderr = fdc.Stderr()
		}
	}

	releaseDiag := d.initDiag(cfg)
	defer releaseDiag()
	ctx = logging.AttachLogger(ctx, d.diag)
	logging.Debugf(ctx, "Worker invoked with %s", shutil.EscapeSlice(clArgs))
	d.setState(StateArgsResolved)

	// The original stdout stays usable after the sink is closed.
	sink, err := control.NewSink(writerOnly{d.stdout}, control.Format(cfg.Format))
	if err != nil {
		return command.WriteError(d.stderr, command.NewStatusErrorf(StatusSetupUnavailable, "%v", err))
	}
	clk := d.scfg.Clock
	observers := []event.Observer{sink}
	if cfg.Verbose {
		observers = append(observers, event.NewLogObserver(d.diag))
	}
	mux := event.NewMultiplexer(d.diag, clk)
	if err := mux.Add(append(observers, d.scfg.Observers...)...); err != nil {
		return command.WriteError(d.stderr, command.NewStatusErrorf(StatusFault, "%v", err))
	}
	mux.Seal()

	hbw := control.NewHeartbeatWriter(sink.Guard(mux), clk, cfg.Heartbeat)
	mux.Observe(&event.RunStart{Time: clk.Now(), RunID: runID(cfg.Seed, ids), Units: ids, Seed: cfg.Seed})

	streams := redirect.NewStreams(d.stdout, d.stderr)
	status = d.execute(ctx, cfg, ids, newEngine, mux, streams, fdc, sink)

	hbw.Stop()
	logging.Debugf(ctx, "Sent %d heartbeat(s)", hbw.Beats())
	mux.Observe(&event.RunEnd{Time: clk.Now(), Fault: d.fault})
	if err := sink.Close(); err != nil {
		d.warnf("Failed to flush events: %v", err)
	}
	d.setState(StateEventsFlushed)
	return status
}

// execute redirects the output channels, resolves and runs the suites, and
// restores the channels on every path.
func (d *driver) execute(ctx context.Context, cfg *Config, ids []string, newEngine engine.Factory,
	mux *event.Multiplexer, streams *redirect.Streams, fdc *redirect.FDCapture, sink *control.Sink) (status int) {
	clk := d.scfg.Clock
	rd := redirect.Redirect(streams, mux, redirect.Options{BufferSize: cfg.BufferSize, Clock: clk})
	if fdc != nil {
		if err := fdc.Start(streams.Stdout(), streams.Stderr()); err != nil {
			d.warnf("Raw output will not be captured: %v", err)
			fdc = nil
		}
	}
	restore := func() {
		if fdc != nil {
			if err := fdc.Stop(); err != nil {
				d.warnf("Failed to stop capturing raw output: %v", err)
			}
		}
		if err := rd.Restore(); err != nil {
			d.warnf("Failed to flush captured output: %v", err)
		}
	}
	d.setState(StateStreamsRedirected)

	defer func() {
		restore()
		d.setState(StateStreamsRestored)
	}()
	defer func() {
		if val := recover(); val != nil {
			d.fault = fmt.Sprintf("panic: %v", val)
			d.warnf("Worker fault: %s\n%s", d.fault, debug.Stack())
			status = StatusFault
		}
	}()

	if d.scfg.HandleSignals {
		uninstall := command.InstallSignalHandler(d.stderr, StatusFault, func(sig os.Signal) {
			restore()
			mux.Observe(&event.RunEnd{Time: clk.Now(), Fault: fmt.Sprintf("caught %v signal", sig)})
			sink.Close()
		})
		defer uninstall()
	}

	d.setState(StateExecuting)
	suites := resolve.All(d.scfg.Registry, ids, mux, clk, d.diag)
	mux.Observe(&event.RunLog{Time: clk.Now(), Text: fmt.Sprintf("Resolved %d of %d unit(s)", len(suites), len(ids))})

	eng := newEngine(&engine.Config{
		Seed:        cfg.Seed,
		Parallel:    cfg.Parallel,
		CaseTimeout: cfg.CaseTimeout,
		Clock:       clk,
	})
	if err := eng.Run(ctx, suites, mux, streams); err != nil {
		d.fault = err.Error()
		d.warnf("Execution engine failed: %+v", err)
		return StatusFault
	}
	return StatusSuccess
}

// initDiag sets up the diagnostic logger writing to the original stderr
// and optionally syslog. The returned function releases it.
func (d *driver) initDiag(cfg *Config) (release func()) {
	level := logging.LevelInfo
	if cfg.Verbose {
		level = logging.LevelDebug
	}
	ml := logging.NewMultiLogger(logging.NewSinkLogger(level, true, logging.NewWriterSink(d.stderr)))
	d.diag = ml
	if !cfg.Syslog {
		return func() {}
	}
	sl, err := logging.NewSyslogLogger("")
	if err != nil {
		d.warnf("Failed to connect to syslog: %v", err)
		return func() {}
	}
	ml.AddLogger(sl)
	return func() {
		ml.RemoveLogger(sl)
		sl.Close()
	}
}

// runID returns a random run ID, or one derived from the seed and units so
// that seeded runs are reproducible.
func runID(seed int64, ids []string) string {
	if seed == 0 {
		return uuid.NewString()
	}
	name := fmt.Sprintf("%d\n%s", seed, strings.Join(ids, "\n"))
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// writerOnly hides any Close method of the wrapped writer.
type writerOnly struct {
	io.Writer
}
