// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

//go:build !linux

package redirect

import (
	"io"
	"os"

	"go.chromium.org/testworker/errors"
)

// FDCapture is only supported on Linux.
type FDCapture struct{}

// NewFDCapture always fails on this platform.
func NewFDCapture() (*FDCapture, error) {
	return nil, errors.New("fd capture is only supported on Linux")
}

func (c *FDCapture) Stdout() *os.File                     { return os.Stdout }
func (c *FDCapture) Stderr() *os.File                     { return os.Stderr }
func (c *FDCapture) Start(stdout, stderr io.Writer) error { return errors.New("not supported") }
func (c *FDCapture) Stop() error                          { return nil }
func (c *FDCapture) Close() error                         { return nil }
