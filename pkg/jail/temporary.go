// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"context"
	"os"
	"path/filepath"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/pkg/errors"
)

const (
	binMountDevfs = "/sbin/mount_devfs"
	binUmount     = "/sbin/umount"
	binDevfs      = "/sbin/devfs"
	binLdconfig   = "/sbin/ldconfig"

	resolvConfPath = "/etc/resolv.conf"
)

// Temporary acquires a throwaway jail for the duration of fn: it mounts a
// devfs under <path>/dev with every entry hidden, seeds resolv.conf,
// creates a jail inheriting the host's IP stack, and starts the dynamic
// linker cache before invoking fn with the jail. Every step taken is
// unwound in reverse order once fn returns, regardless of whether fn (or
// any setup step after the first) failed — release is guaranteed on all
// exit paths.
func Temporary(ctx context.Context, adapter Adapter, logConfig logger.Config, name, path string, params Params, fn func(Jail) error) (err error) {
	l, err := logger.NewTag(logConfig, "jail-temporary")
	if err != nil {
		return errors.Wrap(err, errors.JailCreate)
	}

	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	devPath := filepath.Join(path, "dev")
	if err := os.MkdirAll(devPath, 0o755); err != nil {
		return errors.Wrap(err, errors.JailCreate)
	}
	if _, err := command.ExecCommand(ctx, l, binMountDevfs, binDevfs, devPath); err != nil {
		return errors.Wrap(err, errors.JailCreate).WithMetadata("step", "mount devfs")
	}
	cleanups = append(cleanups, func() {
		_, _ = command.ExecCommand(ctx, l, binUmount, devPath)
	})
	if _, err := command.ExecCommand(ctx, l, binDevfs, "-m", devPath, "rule", "-s", "0", "applyset"); err != nil {
		return errors.Wrap(err, errors.JailCreate).WithMetadata("step", "hide devfs entries")
	}

	restoreResolv, err := backupResolvConf(path)
	if err != nil {
		return errors.Wrap(err, errors.JailCreate).WithMetadata("step", "backup resolv.conf")
	}
	cleanups = append(cleanups, restoreResolv)

	j := Open(adapter, name)
	jailParams := params.merge(Params{"ip4": "inherit"})
	if err := j.Create(ctx, path, jailParams); err != nil {
		return err
	}
	cleanups = append(cleanups, func() {
		_ = j.Destroy(ctx)
	})

	if _, err := j.Execute(ctx, binLdconfig, "start"); err != nil {
		return errors.Wrap(err, errors.JailCreate).WithMetadata("step", "ldconfig start")
	}
	cleanups = append(cleanups, func() {
		_, _ = j.Execute(ctx, binLdconfig, "stop")
	})

	return fn(j)
}

// backupResolvConf copies the host's resolv.conf into the jail root,
// preserving any file already there so it can be restored on release.
func backupResolvConf(jailPath string) (restore func(), err error) {
	dst := filepath.Join(jailPath, "etc", "resolv.conf")
	var prior []byte
	hadPrior := false
	if data, readErr := os.ReadFile(dst); readErr == nil {
		prior = data
		hadPrior = true
	}

	src, err := os.ReadFile(resolvConfPath)
	if err != nil {
		return func() {}, errors.Wrap(err, errors.JailCreate)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return func() {}, errors.Wrap(err, errors.JailCreate)
	}
	if err := os.WriteFile(dst, src, 0o644); err != nil {
		return func() {}, errors.Wrap(err, errors.JailCreate)
	}

	restore = func() {
		if hadPrior {
			_ = os.WriteFile(dst, prior, 0o644)
		} else {
			_ = os.Remove(dst)
		}
	}
	return restore, nil
}
