// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package namespace

// Volume is a single entry in a namespace's storage collection.
type Volume struct {
	Name string
	Path string
}

// VolumeStore is the namespace's "storage" child collection. Ancillary
// volumes (bulk data mounted into zones outside the zone's own dataset)
// are out of scope: every lookup reports empty/not-found, matching the
// behavior of a collection that is wired up but never populated.
type VolumeStore struct{}

// All always returns an empty list.
func (*VolumeStore) All() []Volume {
	return nil
}

// Contains always reports false.
func (*VolumeStore) Contains(string) bool {
	return false
}
