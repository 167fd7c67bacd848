// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/stratastor/logger"
	"github.com/zonys/zonys/config"
	"github.com/zonys/zonys/pkg/cowfs"
	cowfscommand "github.com/zonys/zonys/pkg/cowfs/command"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/namespace"
)

// namespaceIdentifier resolves -n/--namespace with the same flag > env >
// config-file > built-in-default precedence config.LoadConfig uses for
// the rest of zonys' configuration.
func namespaceIdentifier(cmd *cobra.Command) string {
	if flag := cmd.Flags().Lookup("namespace"); flag != nil && flag.Changed {
		return flag.Value.String()
	}
	if env := os.Getenv("ZONYS_NAMESPACE"); env != "" {
		return env
	}
	cfg := config.GetConfig()
	if cfg != nil && cfg.Namespace.Default != "" {
		return cfg.Namespace.Default
	}
	return namespace.DefaultIdentifier
}

// openNamespace wires the real CoW-FS and jail adapters and opens the
// namespace named by -n/--namespace (or its resolved default).
func openNamespace(ctx context.Context, cmd *cobra.Command) (*namespace.Handle, error) {
	return openNamespaceID(ctx, namespaceIdentifier(cmd))
}

// openNamespaceID opens the namespace named by an explicit identifier,
// bypassing -n/--namespace resolution. Used by `service start|stop|
// restart` when the rc.d script names one or more namespaces directly on
// the command line.
func openNamespaceID(ctx context.Context, id string) (*namespace.Handle, error) {
	cfg := config.GetConfig()
	logConfig := config.NewLoggerConfig(cfg)

	root, err := identifier.Parse(id)
	if err != nil {
		return nil, err
	}

	cowFS := cowfs.NewZFSAdapter(cowfscommand.New(logConfig))
	jailAdapter, err := jail.NewSystem(logConfig)
	if err != nil {
		return nil, err
	}

	l, err := logger.NewTag(logConfig, "namespace")
	if err != nil {
		return nil, err
	}
	l.Debug("opening namespace", "identifier", root.String())

	sidecarDir := config.GetZonesDir()
	if cfg != nil && cfg.Namespace.SidecarDir != "" {
		sidecarDir = cfg.Namespace.SidecarDir
	}

	program := ""
	if cfg != nil {
		program = cfg.Service.Program
	}

	return namespace.Open(ctx, cowFS, jailAdapter, logConfig, root, sidecarDir, program)
}
