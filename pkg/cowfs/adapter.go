// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package cowfs adapts the copy-on-write filesystem's dataset and snapshot
// primitives (create/open/clone/destroy, mount/unmount, send/receive) for
// the zone lifecycle. A CoW-FS dataset is named by a pkg/identifier
// Identifier; a snapshot by a pkg/identifier Snapshot.
package cowfs

import (
	"context"
	"io"

	"github.com/zonys/zonys/pkg/identifier"
)

// Sink receives a send stream when the caller does not hand Send a raw
// file descriptor directly (see Adapter.Send doc).
type Sink interface {
	io.Writer
}

// Adapter is the CoW-FS operations the rest of zonys depends on. The real
// implementation (ZFSAdapter) shells out to zfs/zpool; cowfstest.Fake
// implements the same surface in memory for unit tests.
type Adapter interface {
	Exists(ctx context.Context, id identifier.Identifier) (bool, error)
	// Create makes id, creating any missing ancestor datasets along the
	// way (the CoW-FS equivalent of `zfs create -p`).
	Create(ctx context.Context, id identifier.Identifier) error
	// Destroy destroys id's snapshots, unmounts id if mounted, then
	// destroys id itself.
	Destroy(ctx context.Context, id identifier.Identifier) error
	Mount(ctx context.Context, id identifier.Identifier) error
	Unmount(ctx context.Context, id identifier.Identifier) error
	MountPoint(ctx context.Context, id identifier.Identifier) (string, error)
	Children(ctx context.Context, id identifier.Identifier) ([]identifier.Identifier, error)
	Rename(ctx context.Context, id, newID identifier.Identifier) error

	Snapshots(ctx context.Context, id identifier.Identifier) ([]identifier.Snapshot, error)
	CreateSnapshot(ctx context.Context, snap identifier.Snapshot) error
	DestroySnapshot(ctx context.Context, snap identifier.Snapshot) error
	Clone(ctx context.Context, snap identifier.Snapshot, target identifier.Identifier) error

	// Send streams snap to w. When w wraps an os.File's fd directly the
	// native send writes straight to it; otherwise (an arbitrary Sink) the
	// implementation isolates the native send in a worker goroutine
	// draining into an anonymous pipe, so the native command's own I/O
	// stack never blocks on the caller's sink.
	Send(ctx context.Context, snap identifier.Snapshot, w Sink, compress bool) error
	// Receive reads a send stream from r into a dataset at id, returning
	// the identifier of the snapshot embedded in the stream.
	Receive(ctx context.Context, id identifier.Identifier, r io.Reader) (identifier.Snapshot, error)
}

// Dataset is a handle bound to one identifier, for callers that prefer a
// method-on-handle style over passing the identifier to every Adapter call.
type Dataset struct {
	Adapter Adapter
	ID      identifier.Identifier
}

func Open(adapter Adapter, id identifier.Identifier) Dataset {
	return Dataset{Adapter: adapter, ID: id}
}

func (d Dataset) Exists(ctx context.Context) (bool, error) { return d.Adapter.Exists(ctx, d.ID) }
func (d Dataset) Create(ctx context.Context) error         { return d.Adapter.Create(ctx, d.ID) }
func (d Dataset) Destroy(ctx context.Context) error        { return d.Adapter.Destroy(ctx, d.ID) }
func (d Dataset) Mount(ctx context.Context) error          { return d.Adapter.Mount(ctx, d.ID) }
func (d Dataset) Unmount(ctx context.Context) error        { return d.Adapter.Unmount(ctx, d.ID) }
func (d Dataset) MountPoint(ctx context.Context) (string, error) {
	return d.Adapter.MountPoint(ctx, d.ID)
}
func (d Dataset) Children(ctx context.Context) ([]identifier.Identifier, error) {
	return d.Adapter.Children(ctx, d.ID)
}
func (d Dataset) Rename(ctx context.Context, newID identifier.Identifier) error {
	if err := d.Adapter.Rename(ctx, d.ID, newID); err != nil {
		return err
	}
	d.ID = newID
	return nil
}
func (d Dataset) Snapshots(ctx context.Context) ([]identifier.Snapshot, error) {
	return d.Adapter.Snapshots(ctx, d.ID)
}
func (d Dataset) CreateSnapshot(ctx context.Context, name string) (SnapshotHandle, error) {
	snap, err := identifier.NewSnapshot(d.ID, name)
	if err != nil {
		return SnapshotHandle{}, err
	}
	if err := d.Adapter.CreateSnapshot(ctx, snap); err != nil {
		return SnapshotHandle{}, err
	}
	return SnapshotHandle{Adapter: d.Adapter, Snapshot: snap}, nil
}

// SnapshotHandle is a handle bound to a single snapshot identifier.
type SnapshotHandle struct {
	Adapter  Adapter
	Snapshot identifier.Snapshot
}

func (s SnapshotHandle) Destroy(ctx context.Context) error {
	return s.Adapter.DestroySnapshot(ctx, s.Snapshot)
}

func (s SnapshotHandle) Clone(ctx context.Context, target identifier.Identifier) (Dataset, error) {
	if err := s.Adapter.Clone(ctx, s.Snapshot, target); err != nil {
		return Dataset{}, err
	}
	return Dataset{Adapter: s.Adapter, ID: target}, nil
}

func (s SnapshotHandle) Send(ctx context.Context, w Sink, compress bool) error {
	return s.Adapter.Send(ctx, s.Snapshot, w, compress)
}
