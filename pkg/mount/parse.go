// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package mount

import (
	"strings"

	"github.com/zonys/zonys/pkg/errors"
)

// Entry is one line of `mount` output: source on destination, with the
// flag set BSD prints in parentheses (e.g. "local, read-only").
type Entry struct {
	Source      string
	Destination string
	Flags       []string
}

// HasFlag reports whether flag is present in the entry's flag set.
func (e Entry) HasFlag(flag string) bool {
	for _, f := range e.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// ParseMountOutput parses the line-oriented output of the `mount` command,
// "source on destination (flag, flag, ...)", into structured Entry values.
func ParseMountOutput(output []byte) ([]Entry, error) {
	lines := strings.Split(string(output), "\n")
	entries := make([]Entry, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		onIdx := strings.Index(line, " on ")
		if onIdx < 0 {
			return nil, errors.New(errors.MountParse, "missing \" on \" separator: "+line)
		}
		source := line[:onIdx]
		rest := line[onIdx+len(" on "):]

		parenIdx := strings.Index(rest, " (")
		if parenIdx < 0 || !strings.HasSuffix(rest, ")") {
			return nil, errors.New(errors.MountParse, "missing flag set: "+line)
		}
		destination := rest[:parenIdx]
		flagStr := rest[parenIdx+len(" (") : len(rest)-1]

		var flags []string
		for _, f := range strings.Split(flagStr, ",") {
			f = strings.TrimSpace(f)
			if f != "" {
				flags = append(flags, f)
			}
		}

		entries = append(entries, Entry{Source: source, Destination: destination, Flags: flags})
	}

	return entries, nil
}

// Find returns the Entry whose Destination matches destination, if any.
func Find(entries []Entry, destination string) (Entry, bool) {
	for _, e := range entries {
		if e.Destination == destination {
			return e, true
		}
	}
	return Entry{}, false
}
