// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
)

const hostResolvConfPath = "/etc/resolv.conf"

// Network implements the "host" network mode: copy the host's resolv.conf
// into the zone and inherit the host IP stack (jail ip4=inherit).
type Network struct{}

var _ handler.Committer = Network{}

func (Network) Key() string { return "network" }

func (Network) Phases() []handler.Phase {
	return []handler.Phase{handler.PhaseBeforeStartZone, handler.PhaseAfterStopZone}
}

func (Network) Commit(_ context.Context, phase handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	mode, _ := ev.Options["value"].(string)
	if mode != "host" {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "network: unsupported mode "+mode)
	}

	destination := filepath.Join(ev.Context.Zone.Path(), "etc", "resolv.conf")

	switch phase {
	case handler.PhaseBeforeStartZone:
		_ = os.Remove(destination)
		data, err := os.ReadFile(hostResolvConfPath)
		if err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
		}
		if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
		}
		if err := os.WriteFile(destination, data, 0o644); err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
		}
		if ev.Context.JailConfiguration == nil {
			ev.Context.JailConfiguration = map[string]any{}
		}
		ev.Context.JailConfiguration["ip4"] = "inherit"

		return func(_ context.Context, _ *handler.CommitEvent) error {
			return removeIfExists(destination)
		}, nil

	case handler.PhaseAfterStopZone:
		return nil, removeIfExists(destination)
	}
	return nil, nil
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
