// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"

	"github.com/zonys/zonys/pkg/handler"
)

// Jail merges its option map into the zone's jail parameters, letting a
// zone spec pass through arbitrary jail(8) parameters the other handlers
// don't already set.
type Jail struct{}

var _ handler.Committer = Jail{}

func (Jail) Key() string { return "jail" }

func (Jail) Phases() []handler.Phase {
	return []handler.Phase{handler.PhaseBeforeStartZone}
}

func (Jail) Commit(_ context.Context, _ handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	if ev.Context.JailConfiguration == nil {
		ev.Context.JailConfiguration = map[string]any{}
	}
	for k, v := range ev.Options {
		ev.Context.JailConfiguration[k] = v
	}
	return nil, nil
}
