// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

var selfName = filepath.Base(os.Args[0])

// exit is replaced in unit tests.
var exit = os.Exit

// InstallSignalHandler installs a handler for SIGINT and SIGTERM. On a
// signal it writes a notice to out, calls callback, and for SIGTERM dumps
// all goroutines and terminates child processes. Then it exits the process
// with status. out should be the process's original stderr.
//
// The returned function uninstalls the handler if no signal arrived yet.
func InstallSignalHandler(out io.Writer, status int, callback func(sig os.Signal)) (uninstall func()) {
	ch := make(chan os.Signal, 1)
	stop := make(chan struct{})
	go func() {
		select {
		case sig := <-ch:
			fmt.Fprintf(out, "\n%s: Caught %v signal; exiting\n", selfName, sig)
			callback(sig)
			if sig == unix.SIGTERM {
				handleSIGTERM(out)
			}
			exit(status)
		case <-stop:
		}
	}()
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
	return func() {
		signal.Stop(ch)
		close(stop)
	}
}

func handleSIGTERM(out io.Writer) {
	// SIGTERM is usually sent by the parent process on timeout, so print
	// stack traces to help debugging.
	fmt.Fprintf(out, "\n%s: Dumping all goroutines...\n\n", selfName)
	if p := pprof.Lookup("goroutine"); p != nil {
		p.WriteTo(out, 2)
	}
	fmt.Fprintf(out, "\n%s: Finished dumping goroutines\n", selfName)

	terminateChildren(out)
}

// terminateChildren sends SIGTERM to all direct child processes, e.g.
// helpers started by cases.
func terminateChildren(out io.Writer) int {
	procs, err := process.Processes()
	if err != nil {
		fmt.Fprintf(out, "Failed to terminate subprocesses: %v\n", err)
		return 0
	}

	selfPid := int32(os.Getpid())
	n := 0
	for _, proc := range procs {
		ppid, err := proc.Ppid()
		if err != nil || ppid != selfPid {
			continue
		}
		if err := proc.Terminate(); err != nil {
			fmt.Fprintf(out, "Failed to terminate process %d: %v\n", proc.Pid, err)
			continue
		}
		n++
	}
	return n
}
