// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
)

// destroyer is the subset of pkg/zone's zone handle Temporary needs; a
// local interface avoids an import cycle, mirroring ParentResolver.
type destroyer interface {
	Destroy(ctx context.Context) error
}

// Temporary destroys the zone once it stops, when its boolean value is
// true — used for throwaway zones that should not outlive a single run.
type Temporary struct{}

var _ handler.Committer = Temporary{}

func (Temporary) Key() string { return "temporary" }

func (Temporary) Phases() []handler.Phase {
	return []handler.Phase{handler.PhaseAfterStopZone}
}

func (Temporary) Commit(ctx context.Context, _ handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	destroy, _ := ev.Options["value"].(bool)
	if !destroy {
		return nil, nil
	}

	d, ok := ev.Context.Zone.(destroyer)
	if !ok {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "temporary: zone handle cannot be destroyed")
	}
	if err := d.Destroy(ctx); err != nil {
		return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}
	return nil, nil
}
