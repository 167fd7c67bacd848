// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package zone_test

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
)

func newStore(t *testing.T) *zone.Store {
	t.Helper()
	cow, err := cowfstest.New()
	require.NoError(t, err)
	jailAdapter := jailtest.New()
	root := identifier.MustParse("zroot/zone")
	return zone.NewStore(cow, jailAdapter, logger.Config{LogLevel: "debug"}, root, t.TempDir())
}

func TestCreateRegistersZoneAndTakesInitialSnapshot(t *testing.T) {
	s := newStore(t)

	z, err := s.Create(context.Background(), map[string]any{"name": "web-a"}, "/etc/zonys", false)
	require.NoError(t, err)
	assert.Equal(t, "web-a", z.Name)

	found, ok := s.Get(z.UUID)
	require.True(t, ok)
	assert.Same(t, z, found)

	snaps, err := z.Store.CowFS.Snapshots(context.Background(), z.DatasetID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "initial", snaps[0].Name)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, map[string]any{"name": "dup"}, "/etc/zonys", false)
	require.NoError(t, err)

	_, err = s.Create(ctx, map[string]any{"name": "dup"}, "/etc/zonys", false)
	require.Error(t, err)
}

func TestStartStopLifecycle(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	z, err := s.Create(ctx, map[string]any{"name": "app"}, "/etc/zonys", false)
	require.NoError(t, err)

	running, err := z.Running(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, z.Start(ctx))
	running, err = z.Running(ctx)
	require.NoError(t, err)
	assert.True(t, running)

	require.Error(t, z.Start(ctx)) // already running

	require.NoError(t, z.Stop(ctx))
	running, err = z.Running(ctx)
	require.NoError(t, err)
	assert.False(t, running)

	require.Error(t, z.Stop(ctx)) // already stopped
}

func TestUpDownAreIdempotent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	z, err := s.Create(ctx, map[string]any{"name": "idem"}, "/etc/zonys", false)
	require.NoError(t, err)

	require.NoError(t, z.Down(ctx)) // already down: no-op
	require.NoError(t, z.Up(ctx))
	require.NoError(t, z.Up(ctx)) // already up: no-op

	running, err := z.Running(ctx)
	require.NoError(t, err)
	assert.True(t, running)
}

func TestDestroyRejectsRunningZone(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	z, err := s.Create(ctx, map[string]any{"name": "locked"}, "/etc/zonys", false)
	require.NoError(t, err)
	require.NoError(t, z.Start(ctx))

	require.Error(t, z.Destroy(ctx))

	require.NoError(t, z.Stop(ctx))
	require.NoError(t, z.Destroy(ctx))

	_, ok := s.Get(z.UUID)
	assert.False(t, ok)
}

func TestRunCreatesTemporaryZoneThatSelfDestroysOnStop(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	z, err := s.Run(ctx, map[string]any{"name": "throwaway"}, "/etc/zonys")
	require.NoError(t, err)

	running, err := z.Running(ctx)
	require.NoError(t, err)
	require.True(t, running)

	require.NoError(t, z.Stop(ctx))

	_, ok := s.Get(z.UUID)
	assert.False(t, ok, "temporary zone should be destroyed once stopped")
}

func TestMatchAndMatchOne(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, map[string]any{"name": "web-a"}, "/etc/zonys", false)
	require.NoError(t, err)
	_, err = s.Create(ctx, map[string]any{"name": "web-b"}, "/etc/zonys", false)
	require.NoError(t, err)

	matches := s.Match("web-")
	assert.Len(t, matches, 2)

	one, err := s.MatchOne(a.UUID)
	require.NoError(t, err)
	assert.Equal(t, a, one)

	_, err = s.MatchOne("web-")
	assert.Error(t, err) // ambiguous

	_, err = s.MatchOne("does-not-exist")
	assert.Error(t, err)
}

func TestSendStreamsAndDestroysThrowawaySnapshot(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	z, err := s.Create(ctx, map[string]any{"name": "sender"}, "/etc/zonys", false)
	require.NoError(t, err)

	var buf countingSink
	require.NoError(t, z.Send(ctx, &buf, false))
	assert.True(t, buf.wrote)

	snaps, err := z.Store.CowFS.Snapshots(ctx, z.DatasetID)
	require.NoError(t, err)
	require.Len(t, snaps, 1) // only "initial" remains; the throwaway is gone
	assert.Equal(t, "initial", snaps[0].Name)
}

type countingSink struct{ wrote bool }

func (c *countingSink) Write(p []byte) (int, error) {
	c.wrote = true
	return len(p), nil
}
