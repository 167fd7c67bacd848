// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the "service" cobra command group: FreeBSD
// rc.d registration for the namespace resolved via -n/--namespace, and
// the start/stop/restart/status verbs the rendered rc.d script dispatches
// to (`zonys service <verb> <namespace...>`), which fan each verb out
// across every zone registered in the given namespaces.
package service

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zonys/zonys/pkg/namespace"
	"github.com/zonys/zonys/pkg/zonectl"
)

// Opener resolves the namespace the CLI operates against (via
// -n/--namespace). OpenByID opens an explicit namespace identifier
// instead, bypassing that flag.
type Opener func(ctx context.Context, cmd *cobra.Command) (*namespace.Handle, error)
type OpenByID func(ctx context.Context, id string) (*namespace.Handle, error)

// NewServiceCmd builds the "service" command group.
func NewServiceCmd(open Opener, openByID OpenByID) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the zonys rc.d service registration",
	}

	cmd.AddCommand(
		newEnableCmd(open),
		newDisableCmd(open),
		newVerbCmd(open, openByID, "start", "Start every zone in the given namespaces (or the current one)"),
		newVerbCmd(open, openByID, "stop", "Stop every zone in the given namespaces (or the current one)"),
		newVerbCmd(open, openByID, "restart", "Restart every zone in the given namespaces (or the current one)"),
		newVerbCmd(open, openByID, "status", "Report whether the namespace's rc.d registration is enabled"),
	)
	return cmd
}

func newEnableCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "enable",
		Short: "Install the rc.d script and register the namespace for boot-time start",
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			return ns.Enable(cmd.Context())
		},
	}
}

func newDisableCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Unregister the namespace from boot-time start",
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			return ns.Disable(cmd.Context())
		},
	}
}

// newVerbCmd implements start/stop/restart/status. ARGS, when given, name
// the namespace identifiers the rc.d script passes along
// (`zonys service start zroot/zonys zroot/other`), each opened directly
// by identifier. With no ARGS the verb runs against whatever
// -n/--namespace (or its resolved default) already names.
func newVerbCmd(open Opener, openByID OpenByID, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " [NAMESPACE...]",
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			namespaces, err := resolveNamespaces(cmd, open, openByID, args)
			if err != nil {
				return err
			}

			for _, ns := range namespaces {
				if verb == "status" {
					enabled, err := ns.IsEnabled(cmd.Context())
					if err != nil {
						return err
					}
					if enabled {
						fmt.Printf("%s: enabled\n", ns.Identifier())
					} else {
						fmt.Printf("%s: disabled\n", ns.Identifier())
					}
					continue
				}

				for _, z := range ns.Zones.All() {
					var verbErr error
					switch verb {
					case "start":
						verbErr = zonectl.Up(cmd.Context(), ns.Zones, z.UUID)
					case "stop":
						verbErr = zonectl.Down(cmd.Context(), ns.Zones, z.UUID)
					case "restart":
						verbErr = zonectl.Restart(cmd.Context(), ns.Zones, z.UUID)
					}
					if verbErr != nil {
						return fmt.Errorf("namespace %s zone %s: %w", ns.Identifier(), z.UUID, verbErr)
					}
				}
			}
			return nil
		},
	}
}

func resolveNamespaces(cmd *cobra.Command, open Opener, openByID OpenByID, args []string) ([]*namespace.Handle, error) {
	if len(args) == 0 {
		ns, err := open(cmd.Context(), cmd)
		if err != nil {
			return nil, err
		}
		return []*namespace.Handle{ns}, nil
	}

	namespaces := make([]*namespace.Handle, 0, len(args))
	for _, id := range args {
		ns, err := openByID(cmd.Context(), id)
		if err != nil {
			return nil, err
		}
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}
