// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package mount

import (
	"context"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/pkg/errors"
)

// Nullfs bind-mounts Source onto Destination, optionally read-only.
type Nullfs struct {
	Source      string
	Destination string
	ReadOnly    bool
	logger      logger.Logger
}

var _ Mountpoint = Nullfs{}

// NewNullfs builds a Nullfs mountpoint, logging through logConfig.
func NewNullfs(source, destination string, readOnly bool, logConfig logger.Config) (Nullfs, error) {
	l, err := logger.NewTag(logConfig, "mount-nullfs")
	if err != nil {
		return Nullfs{}, errors.Wrap(err, errors.MountCreate)
	}
	return Nullfs{Source: source, Destination: destination, ReadOnly: readOnly, logger: l}, nil
}

func (n Nullfs) Exists(ctx context.Context) (bool, error) {
	out, err := command.ExecCommand(ctx, n.logger, binMount)
	if err != nil {
		return false, errors.Wrap(err, errors.MountParse)
	}
	entries, err := ParseMountOutput(out)
	if err != nil {
		return false, err
	}
	_, ok := Find(entries, n.Destination)
	return ok, nil
}

func (n Nullfs) Mount(ctx context.Context) (Handle, error) {
	exists, err := n.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New(errors.MountAlreadyMounted, n.Destination)
	}

	args := []string{"-t", "nullfs"}
	if n.ReadOnly {
		args = append(args, "-o", "ro")
	}
	args = append(args, n.Source, n.Destination)

	if _, err := command.ExecCommand(ctx, n.logger, binMount, args...); err != nil {
		return nil, errors.Wrap(err, errors.MountCreate).WithMetadata("destination", n.Destination)
	}
	return &nullfsHandle{nullfs: n}, nil
}

func (n Nullfs) Open(ctx context.Context) (Handle, error) {
	exists, err := n.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New(errors.MountNotFound, n.Destination)
	}
	return &nullfsHandle{nullfs: n}, nil
}

type nullfsHandle struct {
	nullfs Nullfs
}

func (h *nullfsHandle) Destination() string { return h.nullfs.Destination }

func (h *nullfsHandle) Unmount(ctx context.Context) error {
	if _, err := command.ExecCommand(ctx, h.nullfs.logger, binUmount, h.nullfs.Destination); err != nil {
		return errors.Wrap(err, errors.MountDestroy).WithMetadata("destination", h.nullfs.Destination)
	}
	return nil
}
