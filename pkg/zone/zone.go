// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package zone

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/pipeline"
	"github.com/zonys/zonys/pkg/sidecar"
	"github.com/zonys/zonys/pkg/transaction"
	"gopkg.in/yaml.v3"
)

// Zone is one zone: a CoW-FS dataset plus the jail it runs under, named by
// a UUID and, when set, a human-chosen name. It satisfies
// handler.ZoneHandle so handler commits can read its identity, and the
// local destroyer interfaces pkg/handler/builtin's Temporary and Base
// handlers need.
type Zone struct {
	UUID      string
	Name      string
	DatasetID identifier.Identifier
	Temporary bool

	mountPoint string
	Store      *Store
}

var _ handler.ZoneHandle = (*Zone)(nil)

func (z *Zone) ID() identifier.Identifier { return z.DatasetID }
func (z *Zone) Path() string              { return z.mountPoint }

// Create reads spec against the local schema set, runs before/after
// create-zone commits, materializes the dataset, registers the zone, and
// takes its "initial" snapshot. On any failure the transaction is rolled
// back and any dataset/persistence already created is destroyed.
func (s *Store) Create(ctx context.Context, spec map[string]any, basePath string, temporary bool) (*Zone, error) {
	id := uuid.NewString()
	datasetID, err := s.Root.Child(id)
	if err != nil {
		return nil, err
	}

	persistence, err := sidecar.Open(s.sidecarPath(id))
	if err != nil {
		return nil, err
	}

	if temporary {
		spec["temporary"] = true
	}

	schemas, manager := s.schemas()
	if err := pipeline.Read(ctx, manager, schemas, spec, basePath); err != nil {
		_ = persistence.Destroy()
		return nil, err
	}

	tx := transaction.New(manager)
	zctx := &handler.Context{
		FileSystemIdentifier: datasetID,
		Persistence:          persistence,
	}

	zctx, err = tx.Commit(ctx, handler.PhaseBeforeCreateZone, zctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		_ = persistence.Destroy()
		return nil, err
	}

	ds := zctx.FileSystem
	if ds == nil {
		if err := s.CowFS.Create(ctx, datasetID); err != nil {
			_ = tx.Rollback(ctx)
			_ = persistence.Destroy()
			return nil, err
		}
		opened := cowfs.Open(s.CowFS, datasetID)
		ds = &opened
	} else if !ds.ID.Equal(datasetID) {
		// A handler (e.g. "base" receiving a send-stream) materialized the
		// dataset under a throwaway identifier; rename it onto the zone's
		// own. A rename failure here means the received stream can never
		// become this zone, so the throwaway dataset is destroyed too.
		if err := ds.Rename(ctx, datasetID); err != nil {
			_ = tx.Rollback(ctx)
			_ = s.CowFS.Destroy(ctx, ds.ID)
			_ = persistence.Destroy()
			return nil, errors.Wrap(err, errors.CowFSIllegalIdentifier).
				WithMetadata("from", ds.ID.String()).
				WithMetadata("to", datasetID.String())
		}
		ds.ID = datasetID
	}

	if err := s.CowFS.Mount(ctx, datasetID); err != nil {
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}

	mountPoint, err := s.CowFS.MountPoint(ctx, datasetID)
	if err != nil {
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}

	var name string
	_, _ = persistence.Get("name", &name)

	z := &Zone{
		UUID:       id,
		Name:       name,
		DatasetID:  datasetID,
		Temporary:  temporary,
		mountPoint: mountPoint,
		Store:      s,
	}

	if err := s.register(z); err != nil {
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}

	zctx.Zone = z
	if zctx, err = tx.Commit(ctx, handler.PhaseAfterCreateZone, zctx); err != nil {
		s.unregister(z)
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}

	if err := persistence.Set("local", spec); err != nil {
		s.unregister(z)
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}
	if temporary {
		_ = persistence.Set("temporary", true)
	}
	if err := persistence.Flush(); err != nil {
		s.unregister(z)
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}

	if err := z.createSnapshot(ctx, tx, zctx, "initial", spec); err != nil {
		s.unregister(z)
		_ = tx.Rollback(ctx)
		_ = s.CowFS.Destroy(ctx, datasetID)
		_ = persistence.Destroy()
		return nil, err
	}

	return z, nil
}

// Deploy creates a zone then starts it.
func (s *Store) Deploy(ctx context.Context, spec map[string]any, basePath string) (*Zone, error) {
	z, err := s.Create(ctx, spec, basePath, false)
	if err != nil {
		return nil, err
	}
	if err := z.Up(ctx); err != nil {
		return z, err
	}
	return z, nil
}

// Run creates a temporary zone (destroyed the moment it stops) then starts it.
func (s *Store) Run(ctx context.Context, spec map[string]any, basePath string) (*Zone, error) {
	z, err := s.Create(ctx, spec, basePath, true)
	if err != nil {
		return nil, err
	}
	if err := z.Up(ctx); err != nil {
		return z, err
	}
	return z, nil
}

// Redeploy undeploys the zone matching query, then deploys spec as a
// brand new zone (a new UUID, not a reuse of the old one).
func (s *Store) Redeploy(ctx context.Context, query string, spec map[string]any, basePath string) (*Zone, error) {
	z, err := s.MatchOne(query)
	if err != nil {
		return nil, err
	}
	if err := z.Undeploy(ctx); err != nil {
		return nil, err
	}
	return s.Deploy(ctx, spec, basePath)
}

// Replace destroys the zone matching query, then creates spec in its place.
func (s *Store) Replace(ctx context.Context, query string, spec map[string]any, basePath string) (*Zone, error) {
	z, err := s.MatchOne(query)
	if err != nil {
		return nil, err
	}
	if err := z.Destroy(ctx); err != nil {
		return nil, err
	}
	return s.Create(ctx, spec, basePath, false)
}

func (z *Zone) jailName() string { return z.UUID }

// Running reports whether the zone's jail currently exists.
func (z *Zone) Running(ctx context.Context) (bool, error) {
	return z.Store.JailAdapter.Exists(ctx, z.jailName())
}

// Status is the display-oriented summary `zone status` renders a table
// row from.
type Status struct {
	UUID      string
	Name      string
	Base      string // parent UUID, empty when the zone has no base
	Snapshots []string
	Running   bool
}

// Status reads the zone's sidecar and dataset to build its display
// summary.
func (z *Zone) Status(ctx context.Context) (Status, error) {
	running, err := z.Running(ctx)
	if err != nil {
		return Status{}, err
	}

	sc, err := sidecar.Open(z.Store.sidecarPath(z.UUID))
	if err != nil {
		return Status{}, err
	}
	var base string
	_, _ = sc.Get("parent", &base)

	snaps, err := z.Store.CowFS.Snapshots(ctx, z.DatasetID)
	if err != nil {
		return Status{}, err
	}
	names := make([]string, 0, len(snaps))
	for _, s := range snaps {
		names = append(names, s.Name)
	}

	return Status{
		UUID:      z.UUID,
		Name:      z.Name,
		Base:      base,
		Snapshots: names,
		Running:   running,
	}, nil
}

func (z *Zone) buildMergedManager(ctx context.Context) (*transaction.Transaction, *handler.Context, error) {
	merged, err := z.Store.mergedConfiguration(ctx, z.UUID)
	if err != nil {
		return nil, nil, err
	}

	schemas, manager := z.Store.schemas()
	mountPoint, err := z.Store.CowFS.MountPoint(ctx, z.DatasetID)
	if err != nil {
		return nil, nil, err
	}
	z.mountPoint = mountPoint

	if err := pipeline.Read(ctx, manager, schemas, merged, z.mountPoint); err != nil {
		return nil, nil, err
	}

	return transaction.New(manager), &handler.Context{Zone: z}, nil
}

// Start commits before_start_zone, creates a persistent jail with the
// accumulated jail configuration, then commits after_start_zone.
func (z *Zone) Start(ctx context.Context) error {
	running, err := z.Running(ctx)
	if err != nil {
		return err
	}
	if running {
		return errors.New(errors.ZoneAlreadyRunning, "zone is already running: "+z.UUID)
	}

	tx, zctx, err := z.buildMergedManager(ctx)
	if err != nil {
		return err
	}
	zctx.JailConfiguration = jail.Params{}

	zctx, err = tx.Commit(ctx, handler.PhaseBeforeStartZone, zctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	j := jail.Open(z.Store.JailAdapter, z.jailName())
	if err := j.Create(ctx, z.mountPoint, zctx.JailConfiguration); err != nil {
		_ = tx.Rollback(ctx)
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}
	zctx.Jail = &j

	if _, err := tx.Commit(ctx, handler.PhaseAfterStartZone, zctx); err != nil {
		_ = j.Destroy(ctx)
		_ = tx.Rollback(ctx)
		return err
	}
	return nil
}

// Stop destroys the zone's jail, committing before/after stop-zone around it.
func (z *Zone) Stop(ctx context.Context) error {
	running, err := z.Running(ctx)
	if err != nil {
		return err
	}
	if !running {
		return errors.New(errors.ZoneNotRunning, "zone is not running: "+z.UUID)
	}

	tx, zctx, err := z.buildMergedManager(ctx)
	if err != nil {
		return err
	}
	j := jail.Open(z.Store.JailAdapter, z.jailName())
	zctx.Jail = &j

	zctx, err = tx.Commit(ctx, handler.PhaseBeforeStopZone, zctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := j.Destroy(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}

	if _, err := tx.Commit(ctx, handler.PhaseAfterStopZone, zctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return nil
}

// Restart stops then starts the zone.
func (z *Zone) Restart(ctx context.Context) error {
	if err := z.Stop(ctx); err != nil {
		return err
	}
	return z.Start(ctx)
}

// Up starts the zone iff it is not already running.
func (z *Zone) Up(ctx context.Context) error {
	running, err := z.Running(ctx)
	if err != nil {
		return err
	}
	if running {
		return nil
	}
	return z.Start(ctx)
}

// Down stops the zone iff it is running.
func (z *Zone) Down(ctx context.Context) error {
	running, err := z.Running(ctx)
	if err != nil {
		return err
	}
	if !running {
		return nil
	}
	return z.Stop(ctx)
}

// Reup stops the zone (if running) then starts it again.
func (z *Zone) Reup(ctx context.Context) error {
	if err := z.Down(ctx); err != nil {
		return err
	}
	return z.Up(ctx)
}

// Undeploy brings the zone down then destroys it.
func (z *Zone) Undeploy(ctx context.Context) error {
	if err := z.Down(ctx); err != nil {
		return err
	}
	return z.Destroy(ctx)
}

// Destroy rejects a running zone, then commits before/after destroy-zone
// around destroying the dataset and its persistence. It satisfies the
// destroyer interface pkg/handler/builtin.Temporary calls against a
// temporary zone once it has stopped.
func (z *Zone) Destroy(ctx context.Context) error {
	running, err := z.Running(ctx)
	if err != nil {
		return err
	}
	if running {
		return errors.New(errors.ZoneRunning, "zone is running: "+z.UUID)
	}

	tx, zctx, err := z.buildMergedManager(ctx)
	if err != nil {
		return err
	}

	zctx, err = tx.Commit(ctx, handler.PhaseBeforeDestroyZone, zctx)
	if err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := z.Store.CowFS.Destroy(ctx, z.DatasetID); err != nil {
		_ = tx.Rollback(ctx)
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}

	persistence, err := sidecar.Open(z.Store.sidecarPath(z.UUID))
	if err == nil {
		_ = persistence.Destroy()
	}

	if _, err := tx.Commit(ctx, handler.PhaseAfterDestroyZone, zctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	z.Store.unregister(z)
	return nil
}

// createSnapshot embeds merged as ".zonys.yaml" into the live dataset,
// creates the snapshot (capturing the sidecar), then removes the sidecar
// from the live dataset whether creation succeeded or failed.
func (z *Zone) createSnapshot(ctx context.Context, tx *transaction.Transaction, zctx *handler.Context, name string, merged map[string]any) error {
	sidecarPath := filepath.Join(z.mountPoint, ".zonys.yaml")

	data, err := yaml.Marshal(merged)
	if err != nil {
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}
	if err := os.WriteFile(sidecarPath, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}
	defer os.Remove(sidecarPath)

	zctx, err = tx.Commit(ctx, handler.PhaseBeforeCreateSnapshot, zctx)
	if err != nil {
		return err
	}

	snap, err := identifier.NewSnapshot(z.DatasetID, name)
	if err != nil {
		return err
	}
	if err := z.Store.CowFS.CreateSnapshot(ctx, snap); err != nil {
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}
	zctx.Snapshot = &snap

	_, err = tx.Commit(ctx, handler.PhaseAfterCreateSnapshot, zctx)
	return err
}

// CreateSnapshot reads the zone's current merged configuration and takes
// a named snapshot of it, embedding that configuration as ".zonys.yaml"
// for the duration of the snapshot operation.
func (z *Zone) CreateSnapshot(ctx context.Context, name string) error {
	merged, err := z.Store.mergedConfiguration(ctx, z.UUID)
	if err != nil {
		return err
	}
	tx, zctx, err := z.buildMergedManager(ctx)
	if err != nil {
		return err
	}
	return z.createSnapshot(ctx, tx, zctx, name, merged)
}

// Send takes a throwaway snapshot, streams it to w, and destroys the
// snapshot once streaming completes (or fails) — the snapshot never
// outlives the call.
func (z *Zone) Send(ctx context.Context, w cowfs.Sink, compress bool) (err error) {
	snap, err := identifier.NewSnapshot(z.DatasetID, "send-"+uuid.NewString())
	if err != nil {
		return err
	}
	if err := z.Store.CowFS.CreateSnapshot(ctx, snap); err != nil {
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}
	defer func() {
		if destroyErr := z.Store.CowFS.DestroySnapshot(ctx, snap); destroyErr != nil && err == nil {
			err = destroyErr
		}
	}()

	return z.Store.CowFS.Send(ctx, snap, w, compress)
}

// Console executes /bin/sh inside the zone's jail, writing its combined
// output to out. The jail.Adapter surface is non-interactive, so this is
// a single request/response shell invocation rather than a true attached
// console.
func (z *Zone) Console(ctx context.Context, out io.Writer) error {
	return z.Execute(ctx, []string{"/bin/sh"}, out)
}

// Execute runs cmd inside the zone's jail, writing its combined output to out.
func (z *Zone) Execute(ctx context.Context, cmd []string, out io.Writer) error {
	j := jail.Open(z.Store.JailAdapter, z.jailName())
	output, err := j.Execute(ctx, cmd...)
	if err != nil {
		return errors.Wrap(err, errors.ZoneInvalidSpec)
	}
	if out != nil {
		_, err = out.Write(output)
	}
	return err
}
