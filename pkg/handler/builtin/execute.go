// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/jail"
)

// Execute runs lifecycle hook command lists against the zone's jail.
// afterCreate/beforeDestroy run in a scoped temporary jail (the zone's own
// jail does not exist yet, or no longer exists, at those phases); the rest
// run against the already-running jail in ev.Context.Jail. rc, if set,
// additionally runs /etc/rc at start and /etc/rc.shutdown at stop.
type Execute struct {
	JailAdapter jail.Adapter
	LogConfig   logger.Config
}

var _ handler.Committer = (*Execute)(nil)

func (*Execute) Key() string { return "execute" }

func (*Execute) Phases() []handler.Phase {
	return []handler.Phase{
		handler.PhaseAfterCreateZone,
		handler.PhaseAfterStartZone,
		handler.PhaseBeforeStopZone,
		handler.PhaseBeforeDestroyZone,
	}
}

func (e *Execute) Commit(ctx context.Context, phase handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	switch phase {
	case handler.PhaseAfterCreateZone:
		return nil, e.runTemporary(ctx, ev, "afterCreate")

	case handler.PhaseAfterStartZone:
		if err := e.runInJail(ctx, ev, "beforeStart"); err != nil {
			return nil, err
		}
		if rc, _ := ev.Options["rc"].(bool); rc {
			if err := e.execInJail(ctx, ev, "/bin/sh", "/etc/rc"); err != nil {
				return nil, err
			}
		}
		if err := e.runInJail(ctx, ev, "start"); err != nil {
			return nil, err
		}
		return nil, e.runInJail(ctx, ev, "afterStart")

	case handler.PhaseBeforeStopZone:
		if err := e.runInJail(ctx, ev, "beforeStop"); err != nil {
			return nil, err
		}
		if err := e.runInJail(ctx, ev, "stop"); err != nil {
			return nil, err
		}
		if rc, _ := ev.Options["rc"].(bool); rc {
			if err := e.execInJail(ctx, ev, "/bin/sh", "/etc/rc.shutdown"); err != nil {
				return nil, err
			}
		}
		return nil, e.runInJail(ctx, ev, "afterStop")

	case handler.PhaseBeforeDestroyZone:
		return nil, e.runTemporary(ctx, ev, "beforeDestroy")
	}
	return nil, nil
}

func (e *Execute) commands(ev *handler.CommitEvent, key string) []string {
	list, _ := ev.Options[key].([]any)
	cmds := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			cmds = append(cmds, s)
		}
	}
	return cmds
}

func (e *Execute) runInJail(ctx context.Context, ev *handler.CommitEvent, key string) error {
	cmds := e.commands(ev, key)
	if len(cmds) == 0 {
		return nil
	}
	if ev.Context.Jail == nil {
		return errors.New(errors.HandlerInvalidConfiguration, "execute: no jail in context")
	}
	for _, cmd := range cmds {
		if err := e.execInJail(ctx, ev, "/bin/sh", "-c", cmd); err != nil {
			return err
		}
	}
	return nil
}

func (e *Execute) execInJail(ctx context.Context, ev *handler.CommitEvent, cmd ...string) error {
	_, err := ev.Context.Jail.Execute(ctx, cmd...)
	if err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}
	return nil
}

func (e *Execute) runTemporary(ctx context.Context, ev *handler.CommitEvent, key string) error {
	cmds := e.commands(ev, key)
	if len(cmds) == 0 {
		return nil
	}

	zone := ev.Context.Zone
	return jail.Temporary(ctx, e.JailAdapter, e.LogConfig, zone.ID().String(), zone.Path(), nil, func(j jail.Jail) error {
		for _, cmd := range cmds {
			if _, err := j.Execute(ctx, "/bin/sh", "-c", cmd); err != nil {
				return err
			}
		}
		return nil
	})
}
