// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zonys/zonys/cmd/config"
	"github.com/zonys/zonys/cmd/service"
	"github.com/zonys/zonys/cmd/version"
	"github.com/zonys/zonys/cmd/zone"
)

// NewRootCmd builds the zonys CLI: "zone"/"service" verb groups plus the
// ambient "config"/"version" commands, composed the way the teacher
// composes its own subcommand packages under cmd/root.go.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "zonys",
		Short: "zonys: OS-level containers on CoW-FS datasets and jails",
	}

	rootCmd.PersistentFlags().StringP("namespace", "n", "", "namespace dataset identifier (default: ZONYS_NAMESPACE, config, or zroot/zonys)")

	rootCmd.AddCommand(zone.NewZoneCmd(openNamespace))
	rootCmd.AddCommand(service.NewServiceCmd(openNamespace, openNamespaceID))
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(config.NewConfigCmd())

	return rootCmd
}
