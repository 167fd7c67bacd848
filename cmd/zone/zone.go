// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package zone implements the "zone" cobra command group: the verb-based
// surface spec.md §6 names, each one resolving -n/--namespace (via the
// parent root command) and forwarding to pkg/zonectl.
package zone

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zonys/zonys/pkg/namespace"
	"github.com/zonys/zonys/pkg/zonectl"
)

// Opener resolves the namespace the CLI operates against; cmd/app.go
// supplies the real implementation so this package doesn't import cmd
// (which would cycle back into this one).
type Opener func(ctx context.Context, cmd *cobra.Command) (*namespace.Handle, error)

// NewZoneCmd builds the "zone" command group. open wires each subcommand
// to the namespace resolved from -n/--namespace.
func NewZoneCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zone",
		Short: "Manage zones",
	}

	cmd.AddCommand(
		newStatusCmd(open),
		newCreateCmd(open),
		newRunCmd(open),
		newDeployCmd(open),
		newReplaceCmd(open),
		newRedeployCmd(open),
		newUndeployCmd(open),
		newDestroyCmd(open),
		newStartCmd(open),
		newStopCmd(open),
		newRestartCmd(open),
		newUpCmd(open),
		newDownCmd(open),
		newReupCmd(open),
		newSendCmd(open),
		newPathCmd(open),
		newConsoleCmd(open),
	)
	return cmd
}

func newStatusCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List zones and their current state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UUID\tNAME\tBASE\tSNAPSHOTS\tSTATUS")
			for _, z := range ns.Zones.All() {
				st, err := z.Status(cmd.Context())
				if err != nil {
					return err
				}
				status := "stopped"
				if st.Running {
					status = "running"
				}
				name := st.Name
				if name == "" {
					name = "-"
				}
				base := st.Base
				if base == "" {
					base = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", st.UUID, name, base, len(st.Snapshots), status)
			}
			return w.Flush()
		},
	}
}

func newCreateCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:                "create ARGS...",
		Short:              "Create a zone without starting it",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			spec, err := parseSpec(args)
			if err != nil {
				return err
			}
			z, err := zonectl.Create(cmd.Context(), ns.Zones, spec, ".")
			if err != nil {
				return err
			}
			fmt.Println(z.UUID)
			return nil
		},
	}
}

func newRunCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:                "run ARGS...",
		Short:              "Create a temporary zone and start it",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			spec, err := parseSpec(args)
			if err != nil {
				return err
			}
			z, err := zonectl.Run(cmd.Context(), ns.Zones, spec, ".")
			if err != nil {
				return err
			}
			fmt.Println(z.UUID)
			return nil
		},
	}
}

func newDeployCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:                "deploy ARGS...",
		Short:              "Create a zone and start it",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			spec, err := parseSpec(args)
			if err != nil {
				return err
			}
			z, err := zonectl.Deploy(cmd.Context(), ns.Zones, spec, ".")
			if err != nil {
				return err
			}
			fmt.Println(z.UUID)
			return nil
		},
	}
}

func newReplaceCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:                "replace ID ARGS...",
		Short:              "Destroy the zone matching ID, then create ARGS in its place",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			spec, err := parseSpec(args[1:])
			if err != nil {
				return err
			}
			z, err := zonectl.Replace(cmd.Context(), ns.Zones, args[0], spec, ".")
			if err != nil {
				return err
			}
			fmt.Println(z.UUID)
			return nil
		},
	}
}

func newRedeployCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:                "redeploy ID ARGS...",
		Short:              "Undeploy the zone matching ID, then deploy ARGS as a new zone",
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			spec, err := parseSpec(args[1:])
			if err != nil {
				return err
			}
			z, err := zonectl.Redeploy(cmd.Context(), ns.Zones, args[0], spec, ".")
			if err != nil {
				return err
			}
			fmt.Println(z.UUID)
			return nil
		},
	}
}

func queryVerbCmd(open Opener, use, short string, verb func(context.Context, *namespace.Handle, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			return verb(cmd.Context(), ns, args[0])
		},
	}
}

func newUndeployCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "undeploy", "Stop and destroy the zone matching ID", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Undeploy(ctx, ns.Zones, query)
	})
}

func newDestroyCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "destroy", "Destroy the zone matching ID", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Destroy(ctx, ns.Zones, query)
	})
}

func newStartCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "start", "Start the zone matching ID", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Start(ctx, ns.Zones, query)
	})
}

func newStopCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "stop", "Stop the zone matching ID", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Stop(ctx, ns.Zones, query)
	})
}

func newRestartCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "restart", "Stop then start the zone matching ID", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Restart(ctx, ns.Zones, query)
	})
}

func newUpCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "up", "Start the zone matching ID iff not already running", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Up(ctx, ns.Zones, query)
	})
}

func newDownCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "down", "Stop the zone matching ID iff running", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Down(ctx, ns.Zones, query)
	})
}

func newReupCmd(open Opener) *cobra.Command {
	return queryVerbCmd(open, "reup", "Bring the zone matching ID down then back up", func(ctx context.Context, ns *namespace.Handle, query string) error {
		return zonectl.Reup(ctx, ns.Zones, query)
	})
}

func newSendCmd(open Opener) *cobra.Command {
	var dest string
	var compress bool

	cmd := &cobra.Command{
		Use:   "send ID",
		Short: "Stream a throwaway snapshot of the zone matching ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}

			var w io.Writer = os.Stdout
			if dest != "" {
				f, err := os.Create(dest)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return zonectl.Send(cmd.Context(), ns.Zones, args[0], w, compress)
		},
	}
	cmd.Flags().StringVarP(&dest, "dest", "d", "", "write the send stream to this path instead of stdout")
	cmd.Flags().BoolVar(&compress, "compress", false, "compress the send stream")
	return cmd
}

func newPathCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "path ID",
		Short: "Print the mounted path of the zone matching ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			z, err := ns.Zones.MatchOne(args[0])
			if err != nil {
				return err
			}
			fmt.Println(z.Path())
			return nil
		},
	}
}

func newConsoleCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "console ID",
		Short: "Run a shell inside the zone matching ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ns, err := open(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			return zonectl.Console(cmd.Context(), ns.Zones, args[0], os.Stdout)
		},
	}
}
