// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package cowfstest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/identifier"
)

func TestFakeSendReceiveRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake, err := New()
	require.NoError(t, err)

	id := identifier.MustParse("zroot/zonys/zone/abc")
	require.NoError(t, fake.Create(ctx, id))

	mp, err := fake.MountPoint(ctx, id)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(mp, "f"), []byte("hello-world"), 0o644))

	snap, err := identifier.NewSnapshot(id, "initial")
	require.NoError(t, err)
	require.NoError(t, fake.CreateSnapshot(ctx, snap))

	var buf bytes.Buffer
	require.NoError(t, fake.Send(ctx, snap, &buf, false))

	target := identifier.MustParse("zroot/zonys/zone/def")
	gotSnap, err := fake.Receive(ctx, target, &buf)
	require.NoError(t, err)
	assert.Equal(t, "initial", gotSnap.Name)

	targetMP, err := fake.MountPoint(ctx, target)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(targetMP, "f"))
	require.NoError(t, err)
	assert.Equal(t, "hello-world", string(data))
}

func TestFakeCloneMirrorsInitialSnapshot(t *testing.T) {
	ctx := context.Background()
	fake, err := New()
	require.NoError(t, err)

	base := identifier.MustParse("zroot/zonys/zone/base")
	require.NoError(t, fake.Create(ctx, base))
	mp, _ := fake.MountPoint(ctx, base)
	require.NoError(t, os.Mkdir(filepath.Join(mp, "d"), 0o755))

	snap, _ := identifier.NewSnapshot(base, "initial")
	require.NoError(t, fake.CreateSnapshot(ctx, snap))

	child := identifier.MustParse("zroot/zonys/zone/child")
	err = fake.Clone(ctx, snap, child)
	require.NoError(t, err)

	childMP, _ := fake.MountPoint(ctx, child)
	info, err := os.Stat(filepath.Join(childMP, "d"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
