// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package zonectl_test

import (
	"context"
	"testing"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/cowfs/cowfstest"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail/jailtest"
	"github.com/zonys/zonys/pkg/zone"
	"github.com/zonys/zonys/pkg/zonectl"
)

func newStore(t *testing.T) *zone.Store {
	t.Helper()
	cow, err := cowfstest.New()
	require.NoError(t, err)
	root := identifier.MustParse("zroot/zone")
	return zone.NewStore(cow, jailtest.New(), logger.Config{LogLevel: "debug"}, root, t.TempDir())
}

func TestDeployStartsTheZoneItCreates(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	z, err := zonectl.Deploy(ctx, store, map[string]any{"name": "svc"}, "/etc/zonys")
	require.NoError(t, err)

	running, err := z.Running(ctx)
	require.NoError(t, err)
	assert.True(t, running)
}

func TestUndeployStopsAndDestroysByQuery(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	z, err := zonectl.Deploy(ctx, store, map[string]any{"name": "gone"}, "/etc/zonys")
	require.NoError(t, err)

	require.NoError(t, zonectl.Undeploy(ctx, store, z.UUID))

	_, ok := store.Get(z.UUID)
	assert.False(t, ok)
}

func TestStartStopByNamePrefix(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	_, err := zonectl.Create(ctx, store, map[string]any{"name": "prefix-zone"}, "/etc/zonys")
	require.NoError(t, err)

	require.NoError(t, zonectl.Start(ctx, store, "prefix-"))
	require.NoError(t, zonectl.Stop(ctx, store, "prefix-"))
}
