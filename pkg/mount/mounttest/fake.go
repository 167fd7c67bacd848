// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package mounttest provides an in-memory mount.Mountpoint for tests.
package mounttest

import (
	"context"
	"sync"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/mount"
)

// Fake is an in-memory registry of mounted destinations shared by every
// Mountpoint value created through it, so Exists/Mount/Open calls against
// the same destination observe each other's state.
type Fake struct {
	mu      sync.Mutex
	mounted map[string]bool
}

func New() *Fake {
	return &Fake{mounted: make(map[string]bool)}
}

// Devfs returns a Mountpoint at destination backed by this Fake.
func (f *Fake) Devfs(destination string) mount.Mountpoint {
	return point{fake: f, destination: destination}
}

// Nullfs returns a Mountpoint at destination backed by this Fake (the
// source and read-only flag are recorded for assertions, but the fake
// itself doesn't distinguish nullfs from devfs mounts).
func (f *Fake) Nullfs(source, destination string, readOnly bool) mount.Mountpoint {
	return point{fake: f, destination: destination, source: source, readOnly: readOnly}
}

type point struct {
	fake        *Fake
	destination string
	source      string
	readOnly    bool
}

var _ mount.Mountpoint = point{}

func (p point) Exists(_ context.Context) (bool, error) {
	p.fake.mu.Lock()
	defer p.fake.mu.Unlock()
	return p.fake.mounted[p.destination], nil
}

func (p point) Mount(_ context.Context) (mount.Handle, error) {
	p.fake.mu.Lock()
	defer p.fake.mu.Unlock()
	if p.fake.mounted[p.destination] {
		return nil, errors.New(errors.MountAlreadyMounted, p.destination)
	}
	p.fake.mounted[p.destination] = true
	return handle{point: p}, nil
}

func (p point) Open(_ context.Context) (mount.Handle, error) {
	p.fake.mu.Lock()
	defer p.fake.mu.Unlock()
	if !p.fake.mounted[p.destination] {
		return nil, errors.New(errors.MountNotFound, p.destination)
	}
	return handle{point: p}, nil
}

type handle struct {
	point point
}

func (h handle) Destination() string { return h.point.destination }

func (h handle) Unmount(_ context.Context) error {
	h.point.fake.mu.Lock()
	defer h.point.fake.mu.Unlock()
	if !h.point.fake.mounted[h.point.destination] {
		return errors.New(errors.MountNotFound, h.point.destination)
	}
	delete(h.point.fake.mounted, h.point.destination)
	return nil
}
