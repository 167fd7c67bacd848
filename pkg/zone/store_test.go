// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package zone_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/cowfs/cowfstest"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail/jailtest"
	"github.com/zonys/zonys/pkg/zone"
)

// sendInitialSnapshot streams parent's "initial" snapshot (the one
// embedding ".zonys.yaml") to w, the way a "base" sender would pipe it to
// a receiving end's file descriptor. Returns the error instead of failing
// t directly, since it runs on its own goroutine in the fd-based tests.
func sendInitialSnapshot(s *zone.Store, parent *zone.Zone, w *os.File) error {
	snap, err := identifier.NewSnapshot(parent.DatasetID, "initial")
	if err != nil {
		_ = w.Close()
		return err
	}
	if err := s.CowFS.Send(context.Background(), snap, w, false); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func TestBaseClonesParentsInitialSnapshot(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	parent, err := s.Create(ctx, map[string]any{"name": "base-zone"}, "/etc/zonys", false)
	require.NoError(t, err)

	child, err := s.Create(ctx, map[string]any{"name": "child", "base": "base-zone"}, "/etc/zonys", false)
	require.NoError(t, err)

	assert.NotEqual(t, parent.UUID, child.UUID)
	exists, err := child.Store.CowFS.Exists(ctx, child.DatasetID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBaseReceivesFreshDatasetRenamesAndExpandsInheritedProvision(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	parent, err := s.Create(ctx, map[string]any{
		"name":      "provisioning-base",
		"provision": []any{map[string]any{"directory": map[string]any{"path": "/from-base"}}},
	}, "/etc/zonys", false)
	require.NoError(t, err)

	r, w, err := os.Pipe()
	require.NoError(t, err)

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- sendInitialSnapshot(s, parent, w)
	}()

	child, err := s.Create(ctx, map[string]any{
		"name": "child-of-stream",
		"base": int(r.Fd()),
	}, "/etc/zonys", false)
	require.NoError(t, err)
	require.NoError(t, <-sendErr)

	// The dataset materialized under a throwaway identifier during
	// BeforeConfiguration was renamed onto the child's own, not left
	// behind under the fresh one.
	exists, err := child.Store.CowFS.Exists(ctx, child.DatasetID)
	require.NoError(t, err)
	assert.True(t, exists)

	// The parent's ".zonys.yaml"-embedded "provision" entry was
	// discovered and committed for the child, not merged in as inert
	// configuration data.
	_, err = os.Stat(filepath.Join(child.Path(), "from-base"))
	assert.NoError(t, err, "inherited provision entry should have created this directory")
}

func TestScanRehydratesZonesFromSidecarDirectory(t *testing.T) {
	cow, err := cowfstest.New()
	require.NoError(t, err)
	jailAdapter := jailtest.New()
	root := identifier.MustParse("zroot/zone")
	sidecarDir := t.TempDir()

	s1 := zone.NewStore(cow, jailAdapter, logger.Config{LogLevel: "debug"}, root, sidecarDir)
	z, err := s1.Create(context.Background(), map[string]any{"name": "persisted"}, "/etc/zonys", false)
	require.NoError(t, err)

	entries, err := os.ReadDir(sidecarDir)
	require.NoError(t, err)
	var sawSidecar bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".yaml" {
			sawSidecar = true
		}
	}
	require.True(t, sawSidecar)

	s2 := zone.NewStore(cow, jailAdapter, logger.Config{LogLevel: "debug"}, root, sidecarDir)
	require.NoError(t, s2.Scan(context.Background()))

	found, ok := s2.Get(z.UUID)
	require.True(t, ok)
	assert.Equal(t, "persisted", found.Name)
}
