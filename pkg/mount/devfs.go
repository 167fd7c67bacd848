// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package mount

import (
	"context"
	"fmt"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/pkg/errors"
)

const (
	binMountDevfs = "/sbin/mount_devfs"
	binUmount     = "/sbin/umount"
	binMount      = "/sbin/mount"
	binDevfs      = "/sbin/devfs"
)

// Devfs mounts a devfs ruleset at Destination, hiding every device entry
// by default (ruleset 0, ephemeral "hide all" applyset) unless Rules are
// applied afterward through Handle's Rules().
type Devfs struct {
	Destination string
	logger      logger.Logger
}

var _ Mountpoint = Devfs{}

// NewDevfs builds a Devfs mountpoint at destination, logging through
// logConfig.
func NewDevfs(destination string, logConfig logger.Config) (Devfs, error) {
	l, err := logger.NewTag(logConfig, "mount-devfs")
	if err != nil {
		return Devfs{}, errors.Wrap(err, errors.MountCreate)
	}
	return Devfs{Destination: destination, logger: l}, nil
}

func (d Devfs) Exists(ctx context.Context) (bool, error) {
	out, err := command.ExecCommand(ctx, d.logger, binMount)
	if err != nil {
		return false, errors.Wrap(err, errors.MountParse)
	}
	entries, err := ParseMountOutput(out)
	if err != nil {
		return false, err
	}
	_, ok := Find(entries, d.Destination)
	return ok, nil
}

func (d Devfs) Mount(ctx context.Context) (Handle, error) {
	exists, err := d.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New(errors.MountAlreadyMounted, d.Destination)
	}

	if _, err := command.ExecCommand(ctx, d.logger, binMountDevfs, binDevfs, d.Destination); err != nil {
		return nil, errors.Wrap(err, errors.MountCreate).WithMetadata("destination", d.Destination)
	}

	h := &devfsHandle{devfs: d}
	if err := h.Rules().Hide(ctx, ""); err != nil {
		_ = h.Unmount(ctx)
		return nil, err
	}
	return h, nil
}

func (d Devfs) Open(ctx context.Context) (Handle, error) {
	exists, err := d.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.New(errors.MountNotFound, d.Destination)
	}
	return &devfsHandle{devfs: d}, nil
}

type devfsHandle struct {
	devfs Devfs
}

func (h *devfsHandle) Destination() string { return h.devfs.Destination }

func (h *devfsHandle) Unmount(ctx context.Context) error {
	if _, err := command.ExecCommand(ctx, h.devfs.logger, binUmount, h.devfs.Destination); err != nil {
		return errors.Wrap(err, errors.MountDestroy).WithMetadata("destination", h.devfs.Destination)
	}
	return nil
}

// Rules returns the devfs ruleset API scoped to this handle's mount.
func (h *devfsHandle) Rules() Rules {
	return Rules{destination: h.devfs.Destination, logger: h.devfs.logger}
}

// Rules issues devfs(8) unhide/hide rules against a mounted devfs,
// optionally scoped to a path glob pattern.
type Rules struct {
	destination string
	logger      logger.Logger
}

func (r Rules) apply(ctx context.Context, action, pattern string) error {
	args := []string{"-m", r.destination, "rule"}
	if pattern != "" {
		args = append(args, action, "match", pattern)
	} else {
		args = append(args, action, "-s", "0", "applyset")
	}
	if _, err := command.ExecCommand(ctx, r.logger, binDevfs, args...); err != nil {
		return errors.Wrap(err, errors.MountCreate).WithMetadata("action", fmt.Sprintf("%s %s", action, pattern))
	}
	return nil
}

// Hide hides entries matching pattern ("" hides everything).
func (r Rules) Hide(ctx context.Context, pattern string) error {
	return r.apply(ctx, "hide", pattern)
}

// Unhide reveals entries matching pattern.
func (r Rules) Unhide(ctx context.Context, pattern string) error {
	return r.apply(ctx, "unhide", pattern)
}
