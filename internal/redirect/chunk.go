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

// DefaultBufferSize is the capacity of each channel's buffer.
const DefaultBufferSize = 8192

var errSingleByte = errors.New("single-byte writes are not supported on captured streams; use Write")

// chunkWriter turns writes to one channel into OutputChunk events.
//
// Small writes are batched in a buffer. A single write is never split across
// two chunks: if it does not fit in the remaining space the buffer is
// flushed first, and a write at least as large as the buffer bypasses it.
// The mutex serializes concurrent writers, so the bytes of one write are
// forwarded contiguously.
//
// Once handOff is called, the writer stops capturing and forwards writes to
// the original target. A caller that picked up the writer just before
// Restore swapped it out thus still lands its bytes somewhere.
type chunkWriter struct {
	stream event.Stream
	obs    event.Observer
	clk    clock.Clock

	mu   sync.Mutex
	buf  []byte
	next io.Writer // non-nil after handOff
}

func newChunkWriter(st event.Stream, obs event.Observer, clk clock.Clock, size int) *chunkWriter {
	return &chunkWriter{stream: st, obs: obs, clk: clk, buf: make([]byte, 0, size)}
}

func (w *chunkWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	if next := w.next; next != nil {
		w.mu.Unlock()
		return next.Write(p)
	}
	defer w.mu.Unlock()

	if len(p) >= cap(w.buf) {
		if err := w.flushLocked(); err != nil {
			return 0, err
		}
		if err := w.emit(p); err != nil {
			return 0, err
		}
		return len(p), nil
	}
	if len(p) > cap(w.buf)-len(w.buf) {
		if err := w.flushLocked(); err != nil {
			return 0, err
		}
	}
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteString lets io.WriteString go through the chunking path.
func (w *chunkWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// WriteByte is rejected: every write must be a byte range.
func (w *chunkWriter) WriteByte(c byte) error {
	return errSingleByte
}

func (w *chunkWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// handOff flushes pending bytes and makes later writes go to next.
func (w *chunkWriter) handOff(next io.Writer) error {
	if next == nil {
		next = io.Discard
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.flushLocked()
	w.next = next
	return err
}

func (w *chunkWriter) flushLocked() error {
	if len(w.buf) == 0 {
		return nil
	}
	err := w.emit(w.buf)
	w.buf = w.buf[:0]
	return err
}

// emit sends a copy of p as one event.
func (w *chunkWriter) emit(p []byte) error {
	data := make([]byte, len(p))
	copy(data, p)
	return w.obs.Observe(&event.OutputChunk{Time: w.clk.Now(), Stream: w.stream, Data: data})
}
