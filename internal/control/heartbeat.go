// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package control

import (
	"sync"
	"sync/atomic"
	"time"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/testworker/internal/event"
)

// HeartbeatWriter sends Heartbeat events periodically to an observer so a
// controller can tell a slow worker from a dead one.
//
// Beats stop for good once the observer returns an error, e.g. because the
// event stream was closed by a signal handler. The writer then idles until
// Stop.
type HeartbeatWriter struct {
	mu      sync.Mutex
	stopped bool
	fin     chan struct{} // unbuffered; the background goroutine receives from it exactly once
	beats   atomic.Int64
}

// NewHeartbeatWriter starts sending heartbeats to obs every d, the first one
// right away. A non-positive d disables heartbeats. Stop must be called in
// any case to release the background goroutine.
func NewHeartbeatWriter(obs event.Observer, clk clock.Clock, d time.Duration) *HeartbeatWriter {
	w := &HeartbeatWriter{fin: make(chan struct{})}
	go w.loop(obs, clk, d)
	return w
}

func (w *HeartbeatWriter) loop(obs event.Observer, clk clock.Clock, d time.Duration) {
	defer close(w.fin)
	if d <= 0 {
		<-w.fin
		return
	}

	tick := clk.NewTicker(d)
	defer tick.Stop()

	alive := w.beat(obs, clk)
	for {
		select {
		case <-tick.C():
			if alive {
				alive = w.beat(obs, clk)
			}
		case <-w.fin:
			return
		}
	}
}

// beat sends one heartbeat and reports whether the observer accepted it.
func (w *HeartbeatWriter) beat(obs event.Observer, clk clock.Clock) bool {
	if err := obs.Observe(&event.Heartbeat{Time: clk.Now()}); err != nil {
		return false
	}
	w.beats.Add(1)
	return true
}

// Beats returns the number of heartbeats accepted by the observer so far.
func (w *HeartbeatWriter) Beats() int {
	return int(w.beats.Load())
}

// Stop stops the background goroutine. Once it returns, no more heartbeats
// are sent. It may block while the observer is blocking. Calling Stop more
// than once is harmless.
func (w *HeartbeatWriter) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.fin <- struct{}{}
	w.stopped = true
}
