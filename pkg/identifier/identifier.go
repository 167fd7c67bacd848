// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package identifier implements CoW-FS dataset and snapshot identifiers:
// ordered, non-empty sequences of path segments naming a dataset, and the
// (dataset, snapshot name) pair naming a snapshot of that dataset.
package identifier

import (
	"strings"

	"github.com/zonys/zonys/pkg/errors"
)

// Identifier names a CoW-FS dataset by an ordered, non-empty list of path
// segments. It is immutable and comparable by value once normalized via
// String().
type Identifier struct {
	segments []string
}

// New constructs an Identifier from already-split segments.
func New(segments ...string) (Identifier, error) {
	if len(segments) == 0 {
		return Identifier{}, errors.New(errors.IdentifierEmpty, "identifier requires at least one segment")
	}
	out := make([]string, len(segments))
	for i, s := range segments {
		if s == "" {
			return Identifier{}, errors.New(errors.IdentifierInvalidSegment, "identifier segment must not be empty")
		}
		if strings.ContainsAny(s, "@#/") {
			return Identifier{}, errors.New(errors.IdentifierInvalidSegment, "identifier segment must not contain '@', '#' or '/': "+s)
		}
		out[i] = s
	}
	return Identifier{segments: out}, nil
}

// Parse accepts the canonical "a/b/c" form.
func Parse(s string) (Identifier, error) {
	if s == "" {
		return Identifier{}, errors.New(errors.IdentifierEmpty, "identifier must not be empty")
	}
	return New(strings.Split(s, "/")...)
}

// MustParse is Parse that panics on error; for use with compile-time-known
// literals (tests, constants).
func MustParse(s string) Identifier {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Child returns a new identifier with segment appended.
func (i Identifier) Child(segment string) (Identifier, error) {
	return New(append(append([]string{}, i.segments...), segment)...)
}

// Parent returns the identifier with its last segment removed, and whether
// a parent exists (a single-segment identifier has none).
func (i Identifier) Parent() (Identifier, bool) {
	if len(i.segments) <= 1 {
		return Identifier{}, false
	}
	return Identifier{segments: append([]string{}, i.segments[:len(i.segments)-1]...)}, true
}

// Last returns the final path segment, e.g. the zone UUID.
func (i Identifier) Last() string {
	if len(i.segments) == 0 {
		return ""
	}
	return i.segments[len(i.segments)-1]
}

// Segments returns a copy of the underlying path segments.
func (i Identifier) Segments() []string {
	return append([]string{}, i.segments...)
}

// Empty reports whether this is the zero Identifier.
func (i Identifier) Empty() bool {
	return len(i.segments) == 0
}

// Equal reports structural equality.
func (i Identifier) Equal(other Identifier) bool {
	return i.String() == other.String()
}

// String renders the canonical "a/b/c" form.
func (i Identifier) String() string {
	return strings.Join(i.segments, "/")
}

// Snapshot names a snapshot of a dataset: (dataset identifier, name).
type Snapshot struct {
	Dataset Identifier
	Name    string
}

// NewSnapshot constructs a Snapshot identifier.
func NewSnapshot(dataset Identifier, name string) (Snapshot, error) {
	if dataset.Empty() {
		return Snapshot{}, errors.New(errors.IdentifierInvalidSnapshot, "snapshot requires a dataset identifier")
	}
	if name == "" || strings.ContainsAny(name, "@#/") {
		return Snapshot{}, errors.New(errors.IdentifierInvalidSnapshot, "snapshot name is invalid: "+name)
	}
	return Snapshot{Dataset: dataset, Name: name}, nil
}

// ParseSnapshot accepts the canonical "a/b/c@name" form.
func ParseSnapshot(s string) (Snapshot, error) {
	parts := strings.SplitN(s, "@", 2)
	if len(parts) != 2 {
		return Snapshot{}, errors.New(errors.IdentifierInvalidSnapshot, "snapshot identifier requires '@name': "+s)
	}
	dataset, err := Parse(parts[0])
	if err != nil {
		return Snapshot{}, err
	}
	return NewSnapshot(dataset, parts[1])
}

// Equal reports structural equality.
func (s Snapshot) Equal(other Snapshot) bool {
	return s.String() == other.String()
}

// String renders the canonical "a/b/c@name" form.
func (s Snapshot) String() string {
	return s.Dataset.String() + "@" + s.Name
}
