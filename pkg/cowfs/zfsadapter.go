// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cowfs

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/zonys/zonys/pkg/cowfs/command"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/identifier"
)

// listEntry mirrors the subset of `zfs list -j` output this adapter reads.
type listEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type listResult struct {
	Datasets map[string]listEntry `json:"datasets"`
}

// ZFSAdapter implements Adapter on top of the real zfs/zpool binaries.
type ZFSAdapter struct {
	executor *command.Executor
}

func NewZFSAdapter(executor *command.Executor) *ZFSAdapter {
	return &ZFSAdapter{executor: executor}
}

var _ Adapter = (*ZFSAdapter)(nil)

func (a *ZFSAdapter) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	_, err := a.executor.Execute(ctx, command.Options{}, "zfs list", "-H", "-o", "name", id.String())
	if err != nil {
		if errors.HasCode(err, errors.CommandExecution) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.CowFSDatasetNotFound).WithMetadata("identifier", id.String())
	}
	return true, nil
}

func (a *ZFSAdapter) Create(ctx context.Context, id identifier.Identifier) error {
	out, err := a.executor.Execute(ctx, command.Options{}, "zfs create", "-p", id.String())
	if err != nil {
		return errors.Wrap(err, errors.CowFSDatasetCreate).
			WithMetadata("identifier", id.String()).WithMetadata("output", string(out))
	}
	return nil
}

func (a *ZFSAdapter) Destroy(ctx context.Context, id identifier.Identifier) error {
	snaps, err := a.Snapshots(ctx, id)
	if err != nil {
		return err
	}
	for _, snap := range snaps {
		if err := a.DestroySnapshot(ctx, snap); err != nil {
			return err
		}
	}

	mounted, err := a.isMounted(ctx, id)
	if err != nil {
		return err
	}
	if mounted {
		if err := a.Unmount(ctx, id); err != nil {
			return err
		}
	}

	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs destroy", id.String()); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetDestroy).WithMetadata("identifier", id.String())
	}
	return nil
}

func (a *ZFSAdapter) Mount(ctx context.Context, id identifier.Identifier) error {
	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs mount", id.String()); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetMount).WithMetadata("identifier", id.String())
	}
	return nil
}

func (a *ZFSAdapter) Unmount(ctx context.Context, id identifier.Identifier) error {
	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs unmount", id.String()); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetUnmount).WithMetadata("identifier", id.String())
	}
	return nil
}

func (a *ZFSAdapter) isMounted(ctx context.Context, id identifier.Identifier) (bool, error) {
	out, err := a.executor.Execute(ctx, command.Options{}, "zfs get", "-H", "-o", "value", "mounted", id.String())
	if err != nil {
		return false, errors.Wrap(err, errors.CowFSDatasetNotFound).WithMetadata("identifier", id.String())
	}
	return strings.TrimSpace(string(out)) == "yes", nil
}

func (a *ZFSAdapter) MountPoint(ctx context.Context, id identifier.Identifier) (string, error) {
	out, err := a.executor.Execute(ctx, command.Options{}, "zfs get", "-H", "-o", "value", "mountpoint", id.String())
	if err != nil {
		return "", errors.Wrap(err, errors.CowFSDatasetNotFound).WithMetadata("identifier", id.String())
	}
	return strings.TrimSpace(string(out)), nil
}

func (a *ZFSAdapter) Children(ctx context.Context, id identifier.Identifier) ([]identifier.Identifier, error) {
	out, err := a.executor.Execute(ctx, command.Options{Flags: command.FlagJSON}, "zfs list",
		"-t", "filesystem", "-d", "1", "-j", id.String())
	if err != nil {
		return nil, errors.Wrap(err, errors.CowFSDatasetList).WithMetadata("identifier", id.String())
	}

	var result listResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, errors.Wrap(err, errors.CommandOutputParse)
	}

	var children []identifier.Identifier
	for name := range result.Datasets {
		if name == id.String() {
			continue
		}
		childID, err := identifier.Parse(name)
		if err != nil {
			continue
		}
		children = append(children, childID)
	}
	return children, nil
}

func (a *ZFSAdapter) Rename(ctx context.Context, id, newID identifier.Identifier) error {
	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs rename", id.String(), newID.String()); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetRename).
			WithMetadata("from", id.String()).WithMetadata("to", newID.String())
	}
	return nil
}

func (a *ZFSAdapter) Snapshots(ctx context.Context, id identifier.Identifier) ([]identifier.Snapshot, error) {
	out, err := a.executor.Execute(ctx, command.Options{Flags: command.FlagJSON}, "zfs list",
		"-t", "snapshot", "-d", "1", "-j", id.String())
	if err != nil {
		// No snapshots yet is not an error condition for our purposes.
		if errors.HasCode(err, errors.CommandExecution) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CowFSDatasetList).WithMetadata("identifier", id.String())
	}

	var result listResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, errors.Wrap(err, errors.CommandOutputParse)
	}

	var snaps []identifier.Snapshot
	for name := range result.Datasets {
		snap, err := identifier.ParseSnapshot(name)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (a *ZFSAdapter) CreateSnapshot(ctx context.Context, snap identifier.Snapshot) error {
	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs snapshot", snap.String()); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotCreate).WithMetadata("snapshot", snap.String())
	}
	return nil
}

func (a *ZFSAdapter) DestroySnapshot(ctx context.Context, snap identifier.Snapshot) error {
	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs destroy", snap.String()); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotDestroy).WithMetadata("snapshot", snap.String())
	}
	return nil
}

func (a *ZFSAdapter) Clone(ctx context.Context, snap identifier.Snapshot, target identifier.Identifier) error {
	if _, err := a.executor.Execute(ctx, command.Options{}, "zfs clone", "-p", snap.String(), target.String()); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotClone).
			WithMetadata("snapshot", snap.String()).WithMetadata("target", target.String())
	}
	return nil
}

func (a *ZFSAdapter) Send(ctx context.Context, snap identifier.Snapshot, w Sink, compress bool) error {
	args := []string{snap.String()}
	if compress {
		args = append([]string{"-c"}, args...)
	}

	if file, ok := w.(fileWriter); ok {
		_, err := a.executor.Execute(ctx, command.Options{Stdout: file}, "zfs send", args...)
		if err != nil {
			return errors.Wrap(err, errors.CowFSSend).WithMetadata("snapshot", snap.String())
		}
		return nil
	}

	return sendViaPipe(ctx, a.executor, args, w)
}

// fileWriter identifies a Sink that already wraps an *os.File, letting Send
// hand it directly to the subprocess without an intermediate drain.
type fileWriter interface {
	io.Writer
	Fd() uintptr
}

func (a *ZFSAdapter) Receive(ctx context.Context, id identifier.Identifier, r io.Reader) (identifier.Snapshot, error) {
	_, err := a.executor.Execute(ctx, command.Options{Stdin: r, Timeout: 0}, "zfs receive", "-F", id.String())
	if err != nil {
		return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive).WithMetadata("identifier", id.String())
	}

	snaps, err := a.Snapshots(ctx, id)
	if err != nil || len(snaps) == 0 {
		return identifier.Snapshot{}, errors.New(errors.CowFSReceive, "received stream produced no snapshot").
			WithMetadata("identifier", id.String())
	}
	return snaps[len(snaps)-1], nil
}
