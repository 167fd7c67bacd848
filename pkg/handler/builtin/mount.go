// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"

	"github.com/stratastor/logger"
	"github.com/zonys/zonys/internal/command"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/mount"
)

const binZfs = "/sbin/zfs"

// Mount runs the zone's list of mount entries (devfs/nullfs/zfs), mounting
// at before_start_zone and unmounting at after_stop_zone. A zfs entry also
// jails/unjails its dataset around start/stop and contributes jail
// parameters permitting in-jail zfs mounts.
type Mount struct {
	LogConfig logger.Config
}

var _ handler.Committer = (*Mount)(nil)

func (*Mount) Key() string { return "mount" }

func (*Mount) Phases() []handler.Phase {
	return []handler.Phase{
		handler.PhaseBeforeStartZone,
		handler.PhaseAfterStartZone,
		handler.PhaseBeforeStopZone,
		handler.PhaseAfterStopZone,
	}
}

func (m *Mount) Commit(ctx context.Context, phase handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	entries, _ := ev.Options["value"].([]any)
	root := ev.Context.Zone.Path()

	var rollbacks []handler.RollbackFunc
	for _, raw := range entries {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		for kind, opts := range entry {
			rb, err := m.commitEntry(ctx, phase, ev, root, kind, opts)
			if err != nil {
				for _, prior := range rollbacks {
					_ = prior(ctx, ev)
				}
				return nil, err
			}
			if rb != nil {
				rollbacks = append(rollbacks, rb)
			}
		}
	}

	return func(ctx context.Context, ev *handler.CommitEvent) error {
		var firstErr error
		for i := len(rollbacks) - 1; i >= 0; i-- {
			if err := rollbacks[i](ctx, ev); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}, nil
}

func (m *Mount) commitEntry(ctx context.Context, phase handler.Phase, ev *handler.CommitEvent, root, kind string, opts any) (handler.RollbackFunc, error) {
	switch kind {
	case "devfs", "device", "devices", "dev":
		return m.commitDevfs(ctx, phase, root, opts)
	case "nullfs":
		return m.commitNullfs(ctx, phase, root, opts)
	case "zfs":
		return m.commitZfs(ctx, phase, ev, opts)
	default:
		return nil, errors.New(errors.HandlerInvalidConfiguration, "mount: unknown kind "+kind)
	}
}

func (m *Mount) commitDevfs(ctx context.Context, phase handler.Phase, root string, opts any) (handler.RollbackFunc, error) {
	path := "/dev"
	var include []string

	if o, ok := opts.(map[string]any); ok {
		if p, ok := o["path"].(string); ok {
			path = p
		}
		if list, ok := o["include"].([]any); ok {
			for _, v := range list {
				if s, ok := v.(string); ok {
					include = append(include, s)
				}
			}
		}
	}

	destination, err := zonePath(root, path)
	if err != nil {
		return nil, err
	}

	switch phase {
	case handler.PhaseBeforeStartZone:
		mp, err := mount.NewDevfs(destination, m.LogConfig)
		if err != nil {
			return nil, err
		}
		exists, err := mp.Exists(ctx)
		if err != nil {
			return nil, err
		}
		var h mount.Handle
		if exists {
			h, err = mp.Open(ctx)
		} else {
			h, err = mp.Mount(ctx)
		}
		if err != nil {
			return nil, err
		}

		if devfsH, ok := h.(interface {
			Rules() mount.Rules
		}); ok {
			for _, pattern := range include {
				if err := devfsH.Rules().Unhide(ctx, pattern); err != nil {
					_ = h.Unmount(ctx)
					return nil, err
				}
			}
		}

		return func(ctx context.Context, _ *handler.CommitEvent) error {
			return h.Unmount(ctx)
		}, nil

	case handler.PhaseAfterStopZone:
		mp, err := mount.NewDevfs(destination, m.LogConfig)
		if err != nil {
			return nil, err
		}
		exists, err := mp.Exists(ctx)
		if err != nil || !exists {
			return nil, err
		}
		h, err := mp.Open(ctx)
		if err != nil {
			return nil, err
		}
		return nil, h.Unmount(ctx)
	}
	return nil, nil
}

func (m *Mount) commitNullfs(ctx context.Context, phase handler.Phase, root string, opts any) (handler.RollbackFunc, error) {
	o, ok := opts.(map[string]any)
	if !ok {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "mount: nullfs entry must be a mapping")
	}
	source, _ := o["source"].(string)
	destPath, _ := o["destination"].(string)
	readOnly, _ := o["readOnly"].(bool)

	destination, err := zonePath(root, destPath)
	if err != nil {
		return nil, err
	}

	switch phase {
	case handler.PhaseBeforeStartZone:
		mp, err := mount.NewNullfs(source, destination, readOnly, m.LogConfig)
		if err != nil {
			return nil, err
		}
		h, err := mp.Mount(ctx)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, _ *handler.CommitEvent) error {
			return h.Unmount(ctx)
		}, nil

	case handler.PhaseAfterStopZone:
		mp, err := mount.NewNullfs(source, destination, readOnly, m.LogConfig)
		if err != nil {
			return nil, err
		}
		exists, err := mp.Exists(ctx)
		if err != nil || !exists {
			return nil, err
		}
		h, err := mp.Open(ctx)
		if err != nil {
			return nil, err
		}
		return nil, h.Unmount(ctx)
	}
	return nil, nil
}

// commitZfs grounds on original_source's mount/zfs.py: jailed=on before
// start, `zfs jail`+in-jail mount after start, in-jail unmount+unjail
// before stop, jailed=inherit after stop.
func (m *Mount) commitZfs(ctx context.Context, phase handler.Phase, ev *handler.CommitEvent, opts any) (handler.RollbackFunc, error) {
	dataset, _ := opts.(string)
	if dataset == "" {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "mount: zfs entry must name a dataset")
	}
	l := m.logger()

	switch phase {
	case handler.PhaseBeforeStartZone:
		if _, err := command.ExecCommand(ctx, l, binZfs, "set", "jailed=on", dataset); err != nil {
			return nil, err
		}
		if ev.Context.JailConfiguration == nil {
			ev.Context.JailConfiguration = map[string]any{}
		}
		ev.Context.JailConfiguration["allow.mount"] = true
		ev.Context.JailConfiguration["allow.mount.zfs"] = true
		ev.Context.JailConfiguration["enforce_statfs"] = 0
		ev.Context.JailConfiguration["children.max"] = 100

		return func(ctx context.Context, _ *handler.CommitEvent) error {
			_, err := command.ExecCommand(ctx, l, binZfs, "set", "jailed=inherit", dataset)
			return err
		}, nil

	case handler.PhaseAfterStartZone:
		if ev.Context.Jail == nil {
			return nil, errors.New(errors.HandlerInvalidConfiguration, "mount: no jail in context")
		}
		jailName := ev.Context.Jail.Name
		if _, err := command.ExecCommand(ctx, l, binZfs, "jail", jailName, dataset); err != nil {
			return nil, err
		}
		if _, err := ev.Context.Jail.Execute(ctx, "zfs", "mount", dataset); err != nil {
			return nil, err
		}

		return func(ctx context.Context, ev *handler.CommitEvent) error {
			_, err := ev.Context.Jail.Execute(ctx, "zfs", "unmount", dataset)
			if err != nil {
				return err
			}
			_, err = command.ExecCommand(ctx, l, binZfs, "unjail", jailName, dataset)
			return err
		}, nil

	case handler.PhaseBeforeStopZone:
		if ev.Context.Jail == nil {
			return nil, errors.New(errors.HandlerInvalidConfiguration, "mount: no jail in context")
		}
		if _, err := ev.Context.Jail.Execute(ctx, "zfs", "unmount", dataset); err != nil {
			return nil, err
		}
		_, err := command.ExecCommand(ctx, l, binZfs, "unjail", ev.Context.Jail.Name, dataset)
		return nil, err

	case handler.PhaseAfterStopZone:
		_, err := command.ExecCommand(ctx, l, binZfs, "set", "jailed=inherit", dataset)
		return nil, err
	}
	return nil, nil
}

func (m *Mount) logger() logger.Logger {
	l, err := logger.NewTag(m.LogConfig, "mount")
	if err != nil {
		panic(err)
	}
	return l
}
