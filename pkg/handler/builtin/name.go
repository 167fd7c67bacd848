// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
)

// Name records the zone's name in its persistence sidecar.
type Name struct{}

var _ handler.Committer = Name{}

func (Name) Key() string { return "name" }

func (Name) Phases() []handler.Phase {
	return []handler.Phase{handler.PhaseBeforeCreateZone}
}

func (Name) Commit(_ context.Context, _ handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	name, _ := ev.Options["value"].(string)
	if ev.Context.Persistence == nil {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "name: no persistence sidecar in context")
	}
	if err := ev.Context.Persistence.Set("name", name); err != nil {
		return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}
	return nil, nil
}
