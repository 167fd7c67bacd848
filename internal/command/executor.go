// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package command provides validated external-process execution shared by
// the jail and mount adapters, where the subject is a single system binary
// (jail, jexec, mount, umount, devfs, ifconfig) rather than the zfs/zpool
// command family that pkg/cowfs/command already covers.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/pkg/errors"
)

const (
	defaultCommandTimeout = 30 * time.Second
	maxCommandArgs        = 64
)

var dangerousChars = []string{";", "&", "|", "`", "$(", "\n", "\r"}

// ExecCommand runs name with args after validating both, returning combined
// stdout+stderr. It is the single entry point external callers use for
// one-shot commands (jexec, mount, umount, ifconfig, ldconfig).
func ExecCommand(ctx context.Context, log logger.Logger, name string, args ...string) ([]byte, error) {
	if err := validateCommand(name, args); err != nil {
		return nil, err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	cmd := exec.CommandContext(timeoutCtx, name, args...)
	cmd.Env = nil

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	log.Debug("executing command", "name", name, "args", args)

	if err := cmd.Run(); err != nil {
		if timeoutCtx.Err() == context.DeadlineExceeded {
			return out.Bytes(), errors.New(errors.CommandTimeout, fmt.Sprintf("%s: timed out", name))
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			return out.Bytes(), errors.Wrap(err, errors.CommandExecution).
				WithMetadata("exit_code", exitErr.ExitCode()).
				WithMetadata("output", out.String())
		}
		return out.Bytes(), errors.Wrap(err, errors.CommandExecution)
	}

	return out.Bytes(), nil
}

func validateCommand(name string, args []string) error {
	if name == "" {
		return errors.New(errors.CommandInvalidInput, "empty command name")
	}
	if !filepath.IsAbs(name) && strings.ContainsAny(name, "/ \t") {
		return errors.New(errors.CommandInvalidInput, fmt.Sprintf("invalid command name %q", name))
	}
	if len(args) > maxCommandArgs {
		return errors.New(errors.CommandInvalidInput, "too many arguments")
	}
	for _, c := range dangerousChars {
		if strings.Contains(name, c) {
			return errors.New(errors.CommandInvalidInput, fmt.Sprintf("command name contains disallowed character %q", c))
		}
	}
	for _, a := range args {
		for _, c := range dangerousChars {
			if strings.Contains(a, c) {
				return errors.New(errors.CommandInvalidInput, fmt.Sprintf("argument contains disallowed character %q", c))
			}
		}
		if strings.Contains(a, "..") {
			return errors.New(errors.CommandInvalidInput, "argument contains path traversal sequence")
		}
	}
	return nil
}
