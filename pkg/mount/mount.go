// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package mount adapts devfs and nullfs mounts, the filesystem-presentation
// half of a zone (device visibility and host-path bind-mounts), in the same
// adapter-over-external-tool shape pkg/cowfs and pkg/jail use.
package mount

import "context"

// Handle is a live mount; Unmount releases it via the native umount(8).
type Handle interface {
	Destination() string
	Unmount(ctx context.Context) error
}

// Mountpoint is something that can be mounted, or — if already mounted —
// opened as a Handle without mounting again.
type Mountpoint interface {
	Exists(ctx context.Context) (bool, error)
	Mount(ctx context.Context) (Handle, error)
	Open(ctx context.Context) (Handle, error)
}
