// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package command runs the CoW-FS command-line tools (zfs, zpool) with the
// same safety discipline as internal/command.ExecCommand: no shell
// expansion, argument validation, and a bounded default timeout.
package command

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/pkg/errors"
)

// Executor runs zfs/zpool commands.
type Executor struct {
	logger logger.Logger
}

// Flags toggles optional command-line switches.
type Flags uint8

const (
	FlagJSON Flags = 1 << iota
	FlagRecursive
	FlagForce
	FlagNoHeaders
)

// Options configures a single command invocation.
type Options struct {
	Flags   Flags
	Timeout time.Duration
	// Stdin, when set, is streamed to the child process (used by `zfs
	// receive`); Stdout, when set, receives the child's stdout directly
	// instead of being buffered (used by `zfs send`).
	Stdin  io.Reader
	Stdout io.Writer
}

func New(logConfig logger.Config) *Executor {
	l, err := logger.NewTag(logConfig, "cowfs-cmd")
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return &Executor{logger: l}
}

// Execute runs `cmd args...` (cmd is e.g. "zfs list", "zpool get") and
// returns captured stdout, unless Options.Stdout redirects it.
func (e *Executor) Execute(ctx context.Context, opts Options, cmd string, args ...string) ([]byte, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return nil, errors.New(errors.CommandNotFound, "empty command")
	}

	if err := validateArgs(args); err != nil {
		return nil, err
	}

	cmdArgs := buildArgs(cmd, opts, args...)
	if err := validateBuilt(cmdArgs); err != nil {
		return nil, err
	}

	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	e.logger.Debug("executing command", "cmd", strings.Join(cmdArgs, " "))

	execCmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	execCmd.Env = []string{}

	if opts.Stdin != nil {
		execCmd.Stdin = opts.Stdin
	}

	var stdoutBuf bytes.Buffer
	var stderrBuf bytes.Buffer
	if opts.Stdout != nil {
		execCmd.Stdout = opts.Stdout
	} else {
		execCmd.Stdout = &stdoutBuf
	}
	execCmd.Stderr = &stderrBuf

	if err := execCmd.Start(); err != nil {
		return nil, errors.New(errors.CommandExecution, fmt.Sprintf("failed to start command: %v", err)).
			WithMetadata("command", strings.Join(cmdArgs, " "))
	}

	waitErr := execCmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, errors.New(errors.CommandTimeout, "command execution timed out").
			WithMetadata("command", strings.Join(cmdArgs, " "))
	}
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			return nil, errors.New(errors.CommandExecution, "command exited non-zero").
				WithMetadata("command", strings.Join(cmdArgs, " ")).
				WithMetadata("exit_code", fmt.Sprintf("%d", exitErr.ExitCode())).
				WithMetadata("stderr", stderrBuf.String())
		}
		return nil, errors.Wrap(waitErr, errors.CommandExecution).
			WithMetadata("command", strings.Join(cmdArgs, " ")).
			WithMetadata("stderr", stderrBuf.String())
	}

	return stdoutBuf.Bytes(), nil
}

func buildArgs(cmd string, opts Options, args ...string) []string {
	var out []string
	parts := strings.Fields(cmd)

	switch {
	case strings.HasPrefix(parts[0], "zpool"):
		out = append(out, BinZpool)
	default:
		out = append(out, BinZFS)
	}
	if len(parts) > 1 {
		out = append(out, parts[1])
	}

	if opts.Flags&FlagJSON != 0 && jsonSupportedCommands[cmd] {
		out = append(out, "-j")
	}
	if opts.Flags&FlagRecursive != 0 {
		out = append(out, "-r")
	}
	if opts.Flags&FlagForce != 0 {
		out = append(out, "-f")
	}
	if opts.Flags&FlagNoHeaders != 0 {
		out = append(out, "-H")
	}

	for _, a := range args {
		if len(parts) > 1 && a == parts[1] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func validateArgs(args []string) error {
	for _, a := range args {
		if strings.ContainsAny(a, dangerousChars) {
			return errors.New(errors.CommandInvalidInput, "argument contains invalid characters: "+a)
		}
	}
	return nil
}

func validateBuilt(args []string) error {
	if len(args) == 0 {
		return errors.New(errors.CommandInvalidInput, "empty command")
	}
	switch args[0] {
	case BinZFS, BinZpool:
	default:
		return errors.New(errors.CommandNotFound, "invalid command binary: "+args[0])
	}
	if len(args) > maxCommandArgs {
		return errors.New(errors.CommandInvalidInput, "too many arguments")
	}
	for _, a := range args {
		if strings.Contains(a, "..") {
			return errors.New(errors.CommandInvalidInput, "path traversal not allowed")
		}
	}
	return nil
}
