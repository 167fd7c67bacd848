// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"context"
	"fmt"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/pkg/errors"
)

const (
	binJail  = "/usr/sbin/jail"
	binJls   = "/usr/sbin/jls"
	binJexec = "/usr/sbin/jexec"
)

// System is the real Adapter, shelling out to jail(8)/jls(8)/jexec(8).
type System struct {
	logger logger.Logger
}

var _ Adapter = (*System)(nil)

// NewSystem builds a System adapter, logging through logConfig.
func NewSystem(logConfig logger.Config) (*System, error) {
	l, err := logger.NewTag(logConfig, "jail")
	if err != nil {
		return nil, errors.Wrap(err, errors.JailCreate)
	}
	return &System{logger: l}, nil
}

// Exists reports whether the kernel's jail table currently holds a jail
// with this name.
func (s *System) Exists(ctx context.Context, name string) (bool, error) {
	_, err := command.ExecCommand(ctx, s.logger, binJls, "-j", name, "jid")
	if err != nil {
		if errors.HasCode(err, errors.CommandExecution) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.JailNotFound)
	}
	return true, nil
}

// Create builds a persistent jail named name rooted at path with params
// already merged with the caller's defaults.
func (s *System) Create(ctx context.Context, name, path string, params Params) error {
	exists, err := s.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return errors.New(errors.JailAlreadyExists, name)
	}

	args := append([]string{"-c", "name=" + name, "path=" + path}, flatten(params)...)
	if _, err := command.ExecCommand(ctx, s.logger, binJail, args...); err != nil {
		return errors.Wrap(err, errors.JailCreate).WithMetadata("name", name)
	}
	return nil
}

// Destroy removes the jail from the kernel's jail table.
func (s *System) Destroy(ctx context.Context, name string) error {
	if _, err := command.ExecCommand(ctx, s.logger, binJail, "-r", name); err != nil {
		return errors.Wrap(err, errors.JailDestroy).WithMetadata("name", name)
	}
	return nil
}

// Execute runs cmd inside the jail via jexec -l (login-style environment).
func (s *System) Execute(ctx context.Context, name string, cmd ...string) ([]byte, error) {
	if len(cmd) == 0 {
		return nil, errors.New(errors.JailExecute, "empty command")
	}
	args := append([]string{"-l", name}, cmd...)
	out, err := command.ExecCommand(ctx, s.logger, binJexec, args...)
	if err != nil {
		return out, errors.Wrap(err, errors.JailExecute).WithMetadata("name", name)
	}
	return out, nil
}

// flatten renders params as jail(8) "key[=value]" argument tokens.
func flatten(p Params) []string {
	args := make([]string, 0, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case nil:
			args = append(args, k)
		case bool:
			if val {
				args = append(args, fmt.Sprintf("%s=1", k))
			} else {
				args = append(args, fmt.Sprintf("%s=0", k))
			}
		default:
			args = append(args, fmt.Sprintf("%s=%v", k, val))
		}
	}
	return args
}
