// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package rc implements the FreeBSD rc.d half of namespace service
// registration: writing/removing the zonys init script and maintaining
// the rc.conf `zonys_namespaces` list via sysrc(8), the same
// detect-the-external-tool-then-wrap-it-in-typed-methods shape
// internal/services/systemd.Client uses for systemd units.
package rc

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"text/template"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/internal/templates"
	"github.com/zonys/zonys/pkg/errors"
)

const (
	scriptPath  = "/usr/local/etc/rc.d/zonys"
	serviceName = "zonys"
)

// Client manages the zonys rc.d script and rc.conf state.
type Client struct {
	logger     logger.Logger
	sysrcBin   string
	serviceBin string
	scriptPath string
	program    string
}

// NewClient resolves sysrc(8) and service(8) on PATH. program is the
// zonys binary path recorded as zonys_program in the rendered script.
func NewClient(log logger.Logger, program string) (*Client, error) {
	if log == nil {
		return nil, errors.New(errors.ConfigLoadFailed, "rc: logger cannot be nil")
	}

	sysrcBin, err := exec.LookPath("sysrc")
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigLoadFailed).WithMetadata("step", "lookup sysrc")
	}
	serviceBin, err := exec.LookPath("service")
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigLoadFailed).WithMetadata("step", "lookup service")
	}

	return &Client{
		logger:     log,
		sysrcBin:   sysrcBin,
		serviceBin: serviceBin,
		scriptPath: scriptPath,
		program:    program,
	}, nil
}

// IsEnabled reports whether the zonys rc.d script is present and enabled.
// It shells to service(8) rather than trusting rc.conf alone, since
// service(8) also accounts for rcvar overrides on the command line.
func (c *Client) IsEnabled(ctx context.Context) (bool, error) {
	if _, err := os.Stat(c.scriptPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.ConfigLoadFailed)
	}

	if _, err := command.ExecCommand(ctx, c.logger, c.serviceBin, serviceName, "enabled"); err != nil {
		return false, nil
	}
	return true, nil
}

// Namespaces returns the rc.conf-recorded namespace identifier list.
func (c *Client) Namespaces(ctx context.Context) ([]string, error) {
	value, err := c.sysrcGet(ctx, "zonys_namespaces")
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, nil
	}
	return strings.Fields(value), nil
}

// SetNamespaces overwrites the rc.conf-recorded namespace identifier list.
func (c *Client) SetNamespaces(ctx context.Context, namespaces []string) error {
	return c.sysrcSet(ctx, "zonys_namespaces", strings.Join(namespaces, " "))
}

// Enable renders and installs the rc.d script, sets zonys_enable=YES, and
// records namespace in the rc.conf namespace list if not already present.
func (c *Client) Enable(ctx context.Context, namespace string) error {
	rendered, err := renderScript(c.program)
	if err != nil {
		return err
	}

	if err := os.MkdirAll("/usr/local/etc/rc.d", 0o755); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed)
	}
	if err := os.WriteFile(c.scriptPath, rendered, 0o555); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("path", c.scriptPath)
	}
	if err := os.Chmod(c.scriptPath, 0o555); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("path", c.scriptPath)
	}

	if err := c.sysrcSet(ctx, "zonys_enable", "YES"); err != nil {
		return err
	}

	namespaces, err := c.Namespaces(ctx)
	if err != nil {
		return err
	}
	if !contains(namespaces, namespace) {
		namespaces = append(namespaces, namespace)
		if err := c.SetNamespaces(ctx, namespaces); err != nil {
			return err
		}
	}
	return nil
}

// Disable removes namespace from the rc.conf namespace list. The rc.d
// script and zonys_enable flag are left in place for any other namespace
// still registered.
func (c *Client) Disable(ctx context.Context, namespace string) error {
	namespaces, err := c.Namespaces(ctx)
	if err != nil {
		return err
	}
	out := namespaces[:0]
	for _, n := range namespaces {
		if n != namespace {
			out = append(out, n)
		}
	}
	return c.SetNamespaces(ctx, out)
}

func (c *Client) sysrcGet(ctx context.Context, key string) (string, error) {
	output, err := command.ExecCommand(ctx, c.logger, c.sysrcBin, "-n", key)
	if err != nil {
		return "", errors.Wrap(err, errors.ConfigLoadFailed).WithMetadata("key", key)
	}
	return strings.TrimSpace(string(output)), nil
}

func (c *Client) sysrcSet(ctx context.Context, key, value string) error {
	_, err := command.ExecCommand(ctx, c.logger, c.sysrcBin, key+"="+value)
	if err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("key", key)
	}
	return nil
}

func renderScript(program string) ([]byte, error) {
	raw, err := templates.GetRcTemplate("zonys.rc.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigLoadFailed)
	}

	tmpl, err := template.New("zonys.rc").Parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigParseError)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, struct{ Program string }{Program: program}); err != nil {
		return nil, errors.Wrap(err, errors.ConfigWriteFailed)
	}
	return []byte(buf.String()), nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
