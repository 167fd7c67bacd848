// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/pipeline"
	"gopkg.in/yaml.v3"
)

// ParentResolver resolves a "base" string option — a zone name or a zone
// UUID — to the parent zone's dataset identifier and UUID. pkg/zone implements this over its store; Base
// itself only knows how to use the result.
type ParentResolver interface {
	ResolveParent(ctx context.Context, query string) (id identifier.Identifier, uuid string, err error)
}

// Base implements the "base" handler: an integer option is a readable
// send-stream file descriptor (receive into a fresh dataset, expand any
// embedded ".zonys.yaml" spec, then rename that dataset onto the new
// zone's identifier once it commits); a string option names a parent
// zone (clone its initial snapshot directly onto the new zone's
// identifier). A string is never read as a path to a YAML spec file.
//
// Schemas must be assigned after the pipeline.Schema slice is built, since
// that slice necessarily contains this handler itself (mirrors Include).
type Base struct {
	CowFS    cowfs.Adapter
	Resolver ParentResolver
	Root     identifier.Identifier
	Schemas  *[]pipeline.Schema

	received identifier.Identifier
}

var _ handler.ConfigExpander = (*Base)(nil)
var _ handler.Committer = (*Base)(nil)

func (*Base) Key() string { return "base" }

func (*Base) Phases() []handler.Phase {
	return []handler.Phase{handler.PhaseBeforeCreateZone}
}

// BeforeConfiguration handles the send-stream case only: it receives the
// stream into a fresh, throwaway dataset identifier (Commit hands that
// dataset on, and pkg/zone's Store.Create renames it onto the zone's own
// identifier), then reads any ".zonys.yaml" the stream carried and
// recursively expands it through the pipeline exactly as Include expands
// an included file, so any mount/provision/execute bindings the base
// implies are discovered before the commit list is finalized. A string
// option names an existing local zone and needs no expansion here — its lineage is already inherited through the store's
// own parent-chain walk.
func (b *Base) BeforeConfiguration(ctx context.Context, ev *handler.ConfigEvent) error {
	v, ok := ev.Options["value"].(int)
	if !ok {
		return nil
	}

	f := os.NewFile(uintptr(v), "base-fd")
	if f == nil {
		return errors.New(errors.HandlerInvalidConfiguration, "base: invalid file descriptor")
	}
	defer f.Close()

	fresh, err := b.Root.Child(uuid.NewString())
	if err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}

	if _, err := b.CowFS.Receive(ctx, fresh, f); err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration).WithMetadata("step", "receive")
	}
	b.received = fresh

	if err := b.mergeInheritedSpec(ctx, ev); err != nil {
		_ = b.CowFS.Destroy(ctx, fresh)
		return err
	}

	// The stream has already been consumed; nothing is left for a later
	// re-read (zone start/stop/destroy) to act on.
	delete(ev.Configuration, "base")

	return nil
}

func (*Base) AfterConfiguration(_ context.Context, _ *handler.ConfigEvent) error {
	return nil
}

func (b *Base) Commit(ctx context.Context, _ handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	value := ev.Options["value"]
	target := ev.Context.FileSystemIdentifier

	switch v := value.(type) {
	case int:
		if b.received.Empty() {
			return nil, errors.New(errors.HandlerInvalidConfiguration, "base: no received dataset recorded")
		}
		ds := cowfs.Open(b.CowFS, b.received)
		ev.Context.FileSystem = &ds

	case string:
		parentID, parentUUID, err := b.Resolver.ResolveParent(ctx, v)
		if err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration).WithMetadata("query", v)
		}

		snap, err := identifier.NewSnapshot(parentID, "initial")
		if err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
		}
		handle := cowfs.SnapshotHandle{Adapter: b.CowFS, Snapshot: snap}
		ds, err := handle.Clone(ctx, target)
		if err != nil {
			return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration).WithMetadata("step", "clone")
		}
		ev.Context.FileSystem = &ds

		if ev.Context.Persistence != nil {
			if err := ev.Context.Persistence.Set("parent", parentUUID); err != nil {
				return nil, errors.Wrap(err, errors.HandlerInvalidConfiguration)
			}
		}

	default:
		return nil, errors.New(errors.HandlerInvalidConfiguration, "base: value must be an integer fd or a string")
	}

	return nil, nil
}

// mergeInheritedSpec reads the just-received dataset's ".zonys.yaml"
// sidecar, if present, recursively reads it through the same schema set
// (so any handler bindings it implies — mount, provision, execute — are
// discovered and appended to the commit list, exactly as Include expands
// an included file), then additively merges its content into
// ev.Configuration with the zone's own local spec taking precedence.
func (b *Base) mergeInheritedSpec(ctx context.Context, ev *handler.ConfigEvent) error {
	mountPoint, err := b.CowFS.MountPoint(ctx, b.received)
	if err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}

	data, err := os.ReadFile(filepath.Join(mountPoint, ".zonys.yaml"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}

	var inherited map[string]any
	if err := yaml.Unmarshal(data, &inherited); err != nil {
		return errors.Wrap(err, errors.HandlerInvalidConfiguration)
	}

	// The inherited "name" belongs to the zone the stream was taken from;
	// the new zone keeps its own.
	delete(inherited, "name")

	if b.Schemas != nil {
		if err := pipeline.Read(ctx, ev.Manager, *b.Schemas, inherited, mountPoint); err != nil {
			return err
		}
	}

	merged := pipeline.Merge(inherited, ev.Configuration)
	for k, v := range merged {
		ev.Configuration[k] = v
	}
	return nil
}
