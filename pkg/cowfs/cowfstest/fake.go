// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package cowfstest implements an in-memory (disk-backed-by-tempdir)
// cowfs.Adapter so the pipeline, transaction, and zone-store packages can
// be exercised without a real CoW-FS host, mirroring the teacher's own
// fake-executor test fixtures (pkg/zfs/testutil).
package cowfstest

import (
	"archive/tar"
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/identifier"
)

type dataset struct {
	mounted   bool
	snapshots map[string]string // name -> path under root/.snapshots holding a captured copy
}

// Fake is an in-memory cowfs.Adapter. Each dataset is backed by a real
// directory under a temporary root, so provisioning handlers that create
// files/directories/symlinks can be exercised faithfully.
type Fake struct {
	mu       sync.Mutex
	root     string
	datasets map[string]*dataset
}

var _ cowfs.Adapter = (*Fake)(nil)

// New creates a Fake rooted at a fresh temporary directory.
func New() (*Fake, error) {
	root, err := os.MkdirTemp("", "zonys-cowfs-fake-*")
	if err != nil {
		return nil, err
	}
	return &Fake{root: root, datasets: map[string]*dataset{}}, nil
}

// Root returns the temporary directory backing this fake.
func (f *Fake) Root() string { return f.root }

func (f *Fake) path(id identifier.Identifier) string {
	return filepath.Join(append([]string{f.root, "data"}, id.Segments()...)...)
}

func (f *Fake) snapshotDir(id identifier.Identifier) string {
	return filepath.Join(append([]string{f.root, "snapshots"}, id.Segments()...)...)
}

func (f *Fake) Exists(ctx context.Context, id identifier.Identifier) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.datasets[id.String()]
	return ok, nil
}

func (f *Fake) Create(ctx context.Context, id identifier.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[id.String()]; ok {
		return errors.New(errors.CowFSDatasetAlreadyExists, id.String())
	}
	if err := os.MkdirAll(f.path(id), 0o755); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetCreate)
	}
	f.datasets[id.String()] = &dataset{mounted: true, snapshots: map[string]string{}}
	return nil
}

func (f *Fake) Destroy(ctx context.Context, id identifier.Identifier) error {
	f.mu.Lock()
	ds, ok := f.datasets[id.String()]
	f.mu.Unlock()
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, id.String())
	}
	for name := range ds.snapshots {
		if err := f.DestroySnapshot(ctx, identifier.Snapshot{Dataset: id, Name: name}); err != nil {
			return err
		}
	}
	if err := os.RemoveAll(f.path(id)); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetDestroy)
	}
	f.mu.Lock()
	delete(f.datasets, id.String())
	f.mu.Unlock()
	return nil
}

func (f *Fake) Mount(ctx context.Context, id identifier.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id.String()]
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, id.String())
	}
	ds.mounted = true
	return nil
}

func (f *Fake) Unmount(ctx context.Context, id identifier.Identifier) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id.String()]
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, id.String())
	}
	ds.mounted = false
	return nil
}

func (f *Fake) MountPoint(ctx context.Context, id identifier.Identifier) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.datasets[id.String()]; !ok {
		return "", errors.New(errors.CowFSDatasetNotFound, id.String())
	}
	return f.path(id), nil
}

func (f *Fake) Children(ctx context.Context, id identifier.Identifier) ([]identifier.Identifier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := id.String() + "/"
	var out []identifier.Identifier
	for name := range f.datasets {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		rest := strings.TrimPrefix(name, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		childID, err := identifier.Parse(name)
		if err == nil {
			out = append(out, childID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (f *Fake) Rename(ctx context.Context, id, newID identifier.Identifier) error {
	f.mu.Lock()
	ds, ok := f.datasets[id.String()]
	f.mu.Unlock()
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, id.String())
	}
	if err := os.MkdirAll(filepath.Dir(f.path(newID)), 0o755); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetRename)
	}
	if err := os.Rename(f.path(id), f.path(newID)); err != nil {
		return errors.Wrap(err, errors.CowFSDatasetRename)
	}
	f.mu.Lock()
	delete(f.datasets, id.String())
	f.datasets[newID.String()] = ds
	f.mu.Unlock()
	return nil
}

func (f *Fake) Snapshots(ctx context.Context, id identifier.Identifier) ([]identifier.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ds, ok := f.datasets[id.String()]
	if !ok {
		return nil, errors.New(errors.CowFSDatasetNotFound, id.String())
	}
	var out []identifier.Snapshot
	for name := range ds.snapshots {
		out = append(out, identifier.Snapshot{Dataset: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

func (f *Fake) CreateSnapshot(ctx context.Context, snap identifier.Snapshot) error {
	f.mu.Lock()
	ds, ok := f.datasets[snap.Dataset.String()]
	f.mu.Unlock()
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, snap.Dataset.String())
	}
	dst := filepath.Join(f.snapshotDir(snap.Dataset), snap.Name)
	if err := copyTree(f.path(snap.Dataset), dst); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotCreate)
	}
	f.mu.Lock()
	ds.snapshots[snap.Name] = dst
	f.mu.Unlock()
	return nil
}

func (f *Fake) DestroySnapshot(ctx context.Context, snap identifier.Snapshot) error {
	f.mu.Lock()
	ds, ok := f.datasets[snap.Dataset.String()]
	f.mu.Unlock()
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, snap.Dataset.String())
	}
	path, ok := ds.snapshots[snap.Name]
	if !ok {
		return errors.New(errors.CowFSSnapshotNotFound, snap.String())
	}
	if err := os.RemoveAll(path); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotDestroy)
	}
	f.mu.Lock()
	delete(ds.snapshots, snap.Name)
	f.mu.Unlock()
	return nil
}

func (f *Fake) Clone(ctx context.Context, snap identifier.Snapshot, target identifier.Identifier) error {
	f.mu.Lock()
	ds, ok := f.datasets[snap.Dataset.String()]
	f.mu.Unlock()
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, snap.Dataset.String())
	}
	src, ok := ds.snapshots[snap.Name]
	if !ok {
		return errors.New(errors.CowFSSnapshotNotFound, snap.String())
	}

	f.mu.Lock()
	if _, exists := f.datasets[target.String()]; exists {
		f.mu.Unlock()
		return errors.New(errors.CowFSDatasetAlreadyExists, target.String())
	}
	f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path(target)), 0o755); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotClone)
	}
	if err := copyTree(src, f.path(target)); err != nil {
		return errors.Wrap(err, errors.CowFSSnapshotClone)
	}

	f.mu.Lock()
	f.datasets[target.String()] = &dataset{mounted: true, snapshots: map[string]string{}}
	f.mu.Unlock()
	return nil
}

// Send/Receive use a tar stream with the snapshot name carried as the first
// PAX header record so Receive can recover it on the other end, faithfully
// exercising the round-trip property (spec.md testable property
// "Send/receive round-trip") without a real CoW-FS host.
func (f *Fake) Send(ctx context.Context, snap identifier.Snapshot, w cowfs.Sink, compress bool) error {
	f.mu.Lock()
	ds, ok := f.datasets[snap.Dataset.String()]
	f.mu.Unlock()
	if !ok {
		return errors.New(errors.CowFSDatasetNotFound, snap.Dataset.String())
	}
	src, ok := ds.snapshots[snap.Name]
	if !ok {
		return errors.New(errors.CowFSSnapshotNotFound, snap.String())
	}

	tw := tar.NewWriter(w)
	if err := tw.WriteHeader(&tar.Header{
		Name:     "." ,
		Typeflag: tar.TypeXGlobalHeader,
		PAXRecords: map[string]string{
			"zonys.snapshot": snap.Name,
		},
	}); err != nil {
		return errors.Wrap(err, errors.CowFSSend)
	}
	if err := writeTree(tw, src); err != nil {
		return errors.Wrap(err, errors.CowFSSend)
	}
	if err := tw.Close(); err != nil {
		return errors.Wrap(err, errors.CowFSSend)
	}
	return nil
}

func (f *Fake) Receive(ctx context.Context, id identifier.Identifier, r io.Reader) (identifier.Snapshot, error) {
	tr := tar.NewReader(r)
	snapName := "received"

	if err := os.MkdirAll(f.path(id), 0o755); err != nil {
		return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
	}

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
		}
		if hdr.Typeflag == tar.TypeXGlobalHeader {
			if name, ok := hdr.PAXRecords["zonys.snapshot"]; ok {
				snapName = name
			}
			continue
		}
		target := filepath.Join(f.path(id), hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
			}
		case tar.TypeSymlink:
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
			}
		default:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return identifier.Snapshot{}, errors.Wrap(err, errors.CowFSReceive)
			}
			out.Close()
		}
	}

	f.mu.Lock()
	f.datasets[id.String()] = &dataset{mounted: true, snapshots: map[string]string{}}
	f.mu.Unlock()

	snap, err := identifier.NewSnapshot(id, snapName)
	if err != nil {
		return identifier.Snapshot{}, err
	}
	if err := f.CreateSnapshot(ctx, snap); err != nil {
		return identifier.Snapshot{}, err
	}
	return snap, nil
}
