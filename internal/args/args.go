// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package args expands worker command-line arguments into test unit
// identifiers.
//
// A token of the form "@path" names a manifest file whose lines are spliced
// into the argument list at that position. Manifest lines are trimmed;
// blank lines and lines starting with "#" are ignored, and lines starting
// with "@" are expanded recursively. Every other token is an identifier.
package args

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.chromium.org/testworker/errors"
)

const (
	// ManifestPrefix marks a token that refers to a manifest file.
	ManifestPrefix = "@"
	// CommentPrefix marks a manifest line that is ignored.
	CommentPrefix = "#"
)

// Expand returns the identifiers named by tokens, with manifests expanded
// depth-first in place. Any unreadable or non-UTF-8 manifest, or a manifest
// that references itself, fails the whole expansion.
func Expand(tokens []string) ([]string, error) {
	var ids []string
	if err := expand(tokens, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// expand appends the identifiers of tokens to ids. open holds the absolute
// paths of manifests currently being expanded.
func expand(tokens, open []string, ids *[]string) error {
	for _, tok := range tokens {
		if !strings.HasPrefix(tok, ManifestPrefix) {
			*ids = append(*ids, tok)
			continue
		}
		path := strings.TrimPrefix(tok, ManifestPrefix)
		abs, err := filepath.Abs(path)
		if err != nil {
			return errors.Wrapf(err, "failed to resolve manifest path %s", path)
		}
		for _, p := range open {
			if p == abs {
				return errors.Errorf("manifest %s references itself", path)
			}
		}
		lines, err := ReadFile(path)
		if err != nil {
			return err
		}
		if err := expand(lines, append(open, abs), ids); err != nil {
			return errors.Wrapf(err, "in manifest %s", path)
		}
	}
	return nil
}

// ReadFile returns the meaningful lines of the manifest at path: trimmed,
// with blank and comment lines dropped. Nested references are returned
// unexpanded.
func ReadFile(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}
	if !utf8.Valid(b) {
		return nil, errors.Errorf("manifest %s is not valid UTF-8", path)
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(b))
	sc.Buffer(nil, len(b)+1)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to scan manifest %s", path)
	}
	return lines, nil
}
