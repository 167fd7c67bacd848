// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package zone implements the zone store: an indexable, iterable
// collection of zones keyed by UUID and, when set, by name, plus the
// constructors and persistence conventions shared by every per-zone
// operation. Per-zone lifecycle verbs live alongside the Zone type in
// this package; pkg/zonectl wraps them for the CLI layer.
package zone

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/stratastor/logger"
	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/handler/builtin"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/pipeline"
	"github.com/zonys/zonys/pkg/sidecar"
)

// Store is the zone collection for one namespace: the CoW-FS subtree zone
// datasets are created under, the jail adapter zones run on, and the
// sibling sidecar directory persisting each zone's own "local"
// configuration and lineage.
type Store struct {
	CowFS       cowfs.Adapter
	JailAdapter jail.Adapter
	LogConfig   logger.Config

	// Root is the dataset identifier zone datasets are created under
	// (e.g. "zroot/zone"); a zone's dataset is Root.Child(uuid).
	Root identifier.Identifier

	// SidecarDir is the host directory holding each zone's sibling
	// "<uuid>.yaml" persistence file (distinct from the transient
	// ".zonys.yaml" embedded into a dataset only at snapshot-create time).
	SidecarDir string

	mu    sync.Mutex
	zones map[string]*Zone
	names map[string]string
}

// NewStore builds an empty Store. Scan loads any zones already persisted
// under sidecarDir.
func NewStore(cowFS cowfs.Adapter, jailAdapter jail.Adapter, logConfig logger.Config, root identifier.Identifier, sidecarDir string) *Store {
	return &Store{
		CowFS:       cowFS,
		JailAdapter: jailAdapter,
		LogConfig:   logConfig,
		Root:        root,
		SidecarDir:  sidecarDir,
		zones:       make(map[string]*Zone),
		names:       make(map[string]string),
	}
}

func (s *Store) sidecarPath(id string) string {
	return filepath.Join(s.SidecarDir, id+".yaml")
}

// Scan loads every zone persisted under SidecarDir into the in-memory
// collection. Call it once per process before matching or operating on
// zones by name/UUID — zonys has no daemon, so each CLI invocation
// rehydrates the collection from disk (spec.md §5).
func (s *Store) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(s.SidecarDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, errors.ConfigLoadFailed).WithMetadata("path", s.SidecarDir)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		if _, err := uuid.Parse(id); err != nil {
			continue
		}
		if _, exists := s.zones[id]; exists {
			continue
		}
		z, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := s.register(z); err != nil {
			return err
		}
	}
	return nil
}

// load rehydrates a Zone handle from its persisted sidecar, without
// registering it in the collection.
func (s *Store) load(ctx context.Context, id string) (*Zone, error) {
	persistence, err := sidecar.Open(s.sidecarPath(id))
	if err != nil {
		return nil, err
	}

	var name string
	_, _ = persistence.Get("name", &name)

	datasetID, err := s.Root.Child(id)
	if err != nil {
		return nil, err
	}

	mountPoint, err := s.CowFS.MountPoint(ctx, datasetID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ZoneInvalidSpec).WithMetadata("uuid", id)
	}

	return &Zone{
		UUID:       id,
		Name:       name,
		DatasetID:  datasetID,
		mountPoint: mountPoint,
		Store:      s,
	}, nil
}

func (s *Store) register(z *Zone) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.zones[z.UUID]; exists {
		return errors.New(errors.ZoneAlreadyExists, "zone already exists: "+z.UUID)
	}
	if z.Name != "" {
		if _, exists := s.names[z.Name]; exists {
			return errors.New(errors.ZoneNameAlreadyUsed, "zone name already used: "+z.Name)
		}
	}

	s.zones[z.UUID] = z
	if z.Name != "" {
		s.names[z.Name] = z.UUID
	}
	return nil
}

func (s *Store) unregister(z *Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.zones, z.UUID)
	if z.Name != "" {
		delete(s.names, z.Name)
	}
}

// Get returns the zone with the given UUID, if registered.
func (s *Store) Get(uuid string) (*Zone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z, ok := s.zones[uuid]
	return z, ok
}

// All returns every registered zone, in no particular order.
func (s *Store) All() []*Zone {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Zone, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, z)
	}
	return out
}

// Match returns every zone whose UUID or name starts with query.
func (s *Store) Match(query string) []*Zone {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool)
	var out []*Zone
	for uuidKey, z := range s.zones {
		if strings.HasPrefix(uuidKey, query) || (z.Name != "" && strings.HasPrefix(z.Name, query)) {
			if !seen[uuidKey] {
				seen[uuidKey] = true
				out = append(out, z)
			}
		}
	}
	return out
}

// MatchOne returns the first zone whose UUID or name starts with query,
// failing if none or more than one match.
func (s *Store) MatchOne(query string) (*Zone, error) {
	matches := s.Match(query)
	switch len(matches) {
	case 0:
		return nil, errors.New(errors.ZoneNoMatch, "no zone matches: "+query)
	case 1:
		return matches[0], nil
	default:
		return nil, errors.New(errors.ZoneAmbiguousMatch, "query matches more than one zone: "+query)
	}
}

// ResolveParent implements builtin.ParentResolver: a "base" string option
// names a parent zone by name, UUID, or prefix of either.
func (s *Store) ResolveParent(_ context.Context, query string) (identifier.Identifier, string, error) {
	z, err := s.MatchOne(query)
	if err != nil {
		return identifier.Identifier{}, "", err
	}
	return z.DatasetID, z.UUID, nil
}

var _ builtin.ParentResolver = (*Store)(nil)

// schemas binds the full built-in handler set, in the order spec.md §4.5
// lists them: variable, include, name, base, provision, mount, temporary,
// network, execute, jail. Create reads this against the zone's own fresh
// spec; Start/Stop/Destroy/snapshot re-read it against the zone's merged
// (lineage-resolved) configuration, rebuilding a fresh manager each time
// since each is, per spec.md §5, its own process invocation.
func (s *Store) schemas() ([]pipeline.Schema, *handler.Manager) {
	variable := builtin.Variable{}
	include := &builtin.Include{}
	name := builtin.Name{}
	base := &builtin.Base{CowFS: s.CowFS, Resolver: s, Root: s.Root}
	provision := &builtin.Provision{JailAdapter: s.JailAdapter, LogConfig: s.LogConfig}
	mount := &builtin.Mount{LogConfig: s.LogConfig}
	temporary := builtin.Temporary{}
	network := builtin.Network{}
	execute := &builtin.Execute{JailAdapter: s.JailAdapter, LogConfig: s.LogConfig}
	jailHandler := builtin.Jail{}

	schemas := []pipeline.Schema{
		{Handler: variable},
		{Handler: include},
		{Handler: name},
		{Handler: base},
		{Handler: provision},
		{Handler: mount},
		{Handler: temporary},
		{Handler: network},
		{Handler: execute},
		{Handler: jailHandler},
	}
	include.Schemas = &schemas
	base.Schemas = &schemas

	manager := handler.NewManager(variable, include, name, base, provision, mount, temporary, network, execute, jailHandler)
	return schemas, manager
}

// mergedConfiguration resolves a zone's full configuration by walking its
// parent chain and additively merging ancestor-most first, so the zone's
// own "local" configuration always wins on conflict.
func (s *Store) mergedConfiguration(ctx context.Context, id string) (map[string]any, error) {
	persistence, err := sidecar.Open(s.sidecarPath(id))
	if err != nil {
		return nil, err
	}

	var local map[string]any
	if ok, err := persistence.Get("local", &local); err != nil {
		return nil, err
	} else if !ok {
		local = map[string]any{}
	}

	var parentQuery string
	hasParent, err := persistence.Get("parent", &parentQuery)
	if err != nil {
		return nil, err
	}
	if !hasParent || parentQuery == "" {
		return local, nil
	}

	parentUUID := parentQuery
	if z, ok := s.Get(parentQuery); ok {
		parentUUID = z.UUID
	} else if z, err := s.MatchOne(parentQuery); err == nil {
		parentUUID = z.UUID
	}

	ancestors, err := s.mergedConfiguration(ctx, parentUUID)
	if err != nil {
		return nil, err
	}
	return pipeline.Merge(ancestors, local), nil
}
