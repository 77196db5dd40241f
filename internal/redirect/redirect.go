// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package redirect

import (
	"io"
	"sync"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/testworker/errors"
	"go.chromium.org/testworker/internal/event"
)

// Options configures Redirect.
type Options struct {
	// BufferSize is the per-channel buffer capacity. DefaultBufferSize is
	// used if it is not positive.
	BufferSize int
	// Clock timestamps chunks. The real clock is used if nil.
	Clock clock.Clock
}

// Redirection is an active redirection of a Streams. It must be released
// with Restore.
type Redirection struct {
	streams *Streams
	orig    [2]io.Writer
	writers [2]*chunkWriter

	once       sync.Once
	restoreErr error
}

// Redirect makes every write to s's channels an OutputChunk event sent to
// obs, tagged with the channel it was written to.
func Redirect(s *Streams, obs event.Observer, opts Options) *Redirection {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewClock()
	}

	r := &Redirection{streams: s}
	// Each channel gets its own adapter, tagged with its own stream.
	for _, st := range []event.Stream{event.Stdout, event.Stderr} {
		r.writers[st] = newChunkWriter(st, obs, clk, size)
		r.orig[st] = s.swap(st, r.writers[st])
	}
	return r
}

// Restore flushes both channels and reinstalls the original targets. It is
// safe to call more than once; later calls return the first result.
func (r *Redirection) Restore() error {
	r.once.Do(func() {
		var errs []error
		for _, st := range []event.Stream{event.Stdout, event.Stderr} {
			// Hand off before swapping: a writer still holding the adapter
			// forwards to the original from now on.
			if err := r.writers[st].handOff(r.orig[st]); err != nil {
				errs = append(errs, errors.Wrapf(err, "failed to flush %v", st))
			}
			r.streams.swap(st, r.orig[st])
		}
		if len(errs) > 0 {
			r.restoreErr = errs[0]
		}
	})
	return r.restoreErr
}
