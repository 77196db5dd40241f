// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package redirect

import (
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"go.chromium.org/testworker/errors"
)

// drainTimeout bounds how long Stop waits for captured pipes to reach EOF.
// A child process that inherited the pipe and is still running keeps it
// open indefinitely.
const drainTimeout = 5 * time.Second

// FDCapture captures writes made directly to file descriptors 1 and 2, e.g.
// by code that uses os.Stdout or by child processes.
//
// NewFDCapture keeps duplicates of the original descriptors, which the
// worker uses for its event stream and diagnostics. Start points fds 1 and 2
// at pipes whose contents are copied to the given writers; Stop points them
// back. Pipe reads are not aligned with the writer's writes, so chunk
// boundaries are only guaranteed for writes up to the pipe buffer size.
type FDCapture struct {
	orig [2]*os.File

	mu      sync.Mutex
	readers [2]*os.File
	wg      sync.WaitGroup
}

var captureFDs = [2]int{1, 2}

// NewFDCapture duplicates the current fds 1 and 2.
func NewFDCapture() (*FDCapture, error) {
	c := &FDCapture{}
	for i, fd := range captureFDs {
		nfd, err := unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 3)
		if err != nil {
			c.Close()
			return nil, errors.Wrapf(err, "failed to duplicate fd %d", fd)
		}
		c.orig[i] = os.NewFile(uintptr(nfd), []string{"stdout", "stderr"}[i])
	}
	return c, nil
}

// Stdout returns the original standard output.
func (c *FDCapture) Stdout() *os.File { return c.orig[0] }

// Stderr returns the original standard error.
func (c *FDCapture) Stderr() *os.File { return c.orig[1] }

// Start redirects fds 1 and 2 to pipes copied into stdout and stderr.
func (c *FDCapture) Start(stdout, stderr io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.readers[0] != nil {
		return errors.New("fd capture already started")
	}

	dsts := [2]io.Writer{stdout, stderr}
	for i, fd := range captureFDs {
		r, w, err := os.Pipe()
		if err != nil {
			c.stopLocked()
			return errors.Wrap(err, "failed to create pipe")
		}
		err = unix.Dup3(int(w.Fd()), fd, 0)
		w.Close()
		if err != nil {
			r.Close()
			c.stopLocked()
			return errors.Wrapf(err, "failed to redirect fd %d", fd)
		}
		c.readers[i] = r
		c.wg.Add(1)
		go func(r *os.File, dst io.Writer) {
			defer c.wg.Done()
			buf := make([]byte, 32*1024)
			for {
				n, err := r.Read(buf)
				if n > 0 {
					dst.Write(buf[:n])
				}
				if err != nil {
					return
				}
			}
		}(r, dsts[i])
	}
	return nil
}

// Stop points fds 1 and 2 back at the original descriptors and waits for
// the captured output to be copied.
func (c *FDCapture) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopLocked()
}

func (c *FDCapture) stopLocked() error {
	if c.readers[0] == nil && c.readers[1] == nil {
		return nil
	}

	var firstErr error
	for i, fd := range captureFDs {
		if c.readers[i] == nil {
			continue
		}
		if err := unix.Dup3(int(c.orig[i].Fd()), fd, 0); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "failed to restore fd %d", fd)
		}
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	tm := time.NewTimer(drainTimeout)
	defer tm.Stop()
	select {
	case <-done:
	case <-tm.C:
		if firstErr == nil {
			firstErr = errors.New("captured output did not reach EOF; a child process may still hold it")
		}
	}

	for i, r := range c.readers {
		if r != nil {
			r.Close()
			c.readers[i] = nil
		}
	}
	<-done
	return firstErr
}

// Close releases the duplicated descriptors. Stop must be called first.
func (c *FDCapture) Close() error {
	var firstErr error
	for i, f := range c.orig {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.orig[i] = nil
	}
	return firstErr
}
