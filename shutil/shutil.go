// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil quotes worker arguments for display as shell command lines.
package shutil

import (
	"strings"
)

// safePunct lists the punctuation allowed unquoted in an argument. "=" is
// only safe after the first character since a leading one triggers
// expansion in zsh.
const safePunct = "-@%+:,./_"

func safe(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		case strings.ContainsRune(safePunct, r):
		case r == '=' && i > 0:
		default:
			return false
		}
	}
	return true
}

// Escape returns s quoted for a POSIX shell, or s itself if it needs no
// quoting.
func Escape(s string) string {
	if safe(s) {
		return s
	}
	var b strings.Builder
	b.WriteByte('\'')
	b.WriteString(strings.ReplaceAll(s, "'", `'"'"'`))
	b.WriteByte('\'')
	return b.String()
}

// EscapeSlice escapes each of args and joins them with spaces, so that a
// shell splits the result back into args.
func EscapeSlice(args []string) string {
	escaped := make([]string, 0, len(args))
	for _, arg := range args {
		escaped = append(escaped, Escape(arg))
	}
	return strings.Join(escaped, " ")
}
