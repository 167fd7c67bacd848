// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package namespace implements the top-level zonys namespace: the
// root CoW-FS dataset holding a "zone" child (wrapping a pkg/zone.Store)
// and a "storage" child for ancillary volumes, plus a zonys.core.yaml
// sidecar and FreeBSD rc.d service registration via internal/services/rc.
package namespace

import (
	"context"
	"path/filepath"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/services/rc"
	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/sidecar"
	"github.com/zonys/zonys/pkg/zone"
)

// DefaultIdentifier is the CoW-FS dataset zonys manages when no
// explicit namespace is given ("-n/--namespace", ZONYS_NAMESPACE).
const DefaultIdentifier = "zroot/zonys"

const (
	zoneChild    = "zone"
	storageChild = "storage"
	sidecarFile  = "zonys.core.yaml"
)

// Handle is one opened namespace: its dataset, its zone store, its
// (stub) volume store, and its rc.d service registration.
type Handle struct {
	CowFS     cowfs.Adapter
	Root      identifier.Identifier
	Zones     *zone.Store
	Volumes   *VolumeStore
	persisted *sidecar.Sidecar
	rc        *rc.Client
}

// Open ensures root (and its "zone"/"storage" children) exist and are
// mounted, then returns a Handle wired to them. sidecarDir is where each
// zone's own "<uuid>.yaml" sidecar lives (distinct from this namespace's
// own "zonys.core.yaml", which lives inside the mounted dataset itself).
func Open(ctx context.Context, cowFS cowfs.Adapter, jailAdapter jail.Adapter, logConfig logger.Config, root identifier.Identifier, sidecarDir, program string) (*Handle, error) {
	if err := ensureMounted(ctx, cowFS, root); err != nil {
		return nil, err
	}

	zoneID, err := root.Child(zoneChild)
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigLoadFailed)
	}
	if err := ensureMounted(ctx, cowFS, zoneID); err != nil {
		return nil, err
	}

	storageID, err := root.Child(storageChild)
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigLoadFailed)
	}
	if err := ensureMounted(ctx, cowFS, storageID); err != nil {
		return nil, err
	}

	mountPoint, err := cowFS.MountPoint(ctx, root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigLoadFailed)
	}

	persisted, err := sidecar.Open(filepath.Join(mountPoint, sidecarFile))
	if err != nil {
		return nil, err
	}

	store := zone.NewStore(cowFS, jailAdapter, logConfig, zoneID, sidecarDir)
	if err := store.Scan(ctx); err != nil {
		return nil, err
	}

	var rcClient *rc.Client
	if program != "" {
		if rcLogger, logErr := logger.NewTag(logConfig, "namespace-rc"); logErr == nil {
			// rc.d registration is unavailable on this host (non-FreeBSD dev
			// box, missing sysrc/service); Enable/Disable/IsEnabled report
			// the error lazily instead of failing Open.
			rcClient, _ = rc.NewClient(rcLogger, program)
		}
	}

	return &Handle{
		CowFS:     cowFS,
		Root:      root,
		Zones:     store,
		Volumes:   &VolumeStore{},
		persisted: persisted,
		rc:        rcClient,
	}, nil
}

func ensureMounted(ctx context.Context, cowFS cowfs.Adapter, id identifier.Identifier) error {
	exists, err := cowFS.Exists(ctx, id)
	if err != nil {
		return errors.Wrap(err, errors.ConfigLoadFailed).WithMetadata("dataset", id.String())
	}
	if !exists {
		if err := cowFS.Create(ctx, id); err != nil {
			return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("dataset", id.String())
		}
	}
	if err := cowFS.Mount(ctx, id); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("dataset", id.String())
	}
	return nil
}

// Identifier returns the namespace's dataset identifier as a slash-joined
// string, e.g. "zroot/zonys".
func (h *Handle) Identifier() string {
	return h.Root.String()
}

// IsDefault reports whether this namespace is the built-in default.
func (h *Handle) IsDefault() bool {
	return h.Identifier() == DefaultIdentifier
}

// Enable registers this namespace with the FreeBSD rc.d zonys service,
// so `service zonys start` brings its zones back up on boot.
func (h *Handle) Enable(ctx context.Context) error {
	if h.rc == nil {
		return errors.New(errors.ConfigWriteFailed, "rc.d service registration unavailable on this host")
	}
	return h.rc.Enable(ctx, h.Identifier())
}

// Disable unregisters this namespace from the FreeBSD rc.d zonys service.
func (h *Handle) Disable(ctx context.Context) error {
	if h.rc == nil {
		return errors.New(errors.ConfigWriteFailed, "rc.d service registration unavailable on this host")
	}
	return h.rc.Disable(ctx, h.Identifier())
}

// IsEnabled reports whether this namespace is currently registered.
func (h *Handle) IsEnabled(ctx context.Context) (bool, error) {
	if h.rc == nil {
		return false, errors.New(errors.ConfigLoadFailed, "rc.d service registration unavailable on this host")
	}
	enabled, err := h.rc.IsEnabled(ctx)
	if err != nil || !enabled {
		return false, err
	}
	namespaces, err := h.rc.Namespaces(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range namespaces {
		if n == h.Identifier() {
			return true, nil
		}
	}
	return false, nil
}
