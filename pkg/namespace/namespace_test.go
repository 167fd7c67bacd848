// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package namespace_test

import (
	"context"
	"testing"

	"github.com/stratastor/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/cowfs/cowfstest"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail/jailtest"
	"github.com/zonys/zonys/pkg/namespace"
)

func newHandle(t *testing.T) *namespace.Handle {
	t.Helper()
	cow, err := cowfstest.New()
	require.NoError(t, err)
	root := identifier.MustParse(namespace.DefaultIdentifier)

	h, err := namespace.Open(context.Background(), cow, jailtest.New(), logger.Config{LogLevel: "debug"}, root, t.TempDir(), "")
	require.NoError(t, err)
	return h
}

func TestOpenCreatesZoneAndStorageChildren(t *testing.T) {
	ctx := context.Background()
	cow, err := cowfstest.New()
	require.NoError(t, err)
	root := identifier.MustParse(namespace.DefaultIdentifier)

	h, err := namespace.Open(ctx, cow, jailtest.New(), logger.Config{LogLevel: "debug"}, root, t.TempDir(), "")
	require.NoError(t, err)

	zoneID, err := root.Child("zone")
	require.NoError(t, err)
	exists, err := cow.Exists(ctx, zoneID)
	require.NoError(t, err)
	assert.True(t, exists)

	storageID, err := root.Child("storage")
	require.NoError(t, err)
	exists, err = cow.Exists(ctx, storageID)
	require.NoError(t, err)
	assert.True(t, exists)

	assert.NotNil(t, h.Zones)
	assert.Equal(t, namespace.DefaultIdentifier, h.Identifier())
	assert.True(t, h.IsDefault())
}

func TestOpenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cow, err := cowfstest.New()
	require.NoError(t, err)
	root := identifier.MustParse(namespace.DefaultIdentifier)

	_, err = namespace.Open(ctx, cow, jailtest.New(), logger.Config{LogLevel: "debug"}, root, t.TempDir(), "")
	require.NoError(t, err)

	_, err = namespace.Open(ctx, cow, jailtest.New(), logger.Config{LogLevel: "debug"}, root, t.TempDir(), "")
	assert.NoError(t, err)
}

func TestVolumesStoreIsAlwaysEmpty(t *testing.T) {
	h := newHandle(t)
	assert.Empty(t, h.Volumes.All())
	assert.False(t, h.Volumes.Contains("anything"))
}

func TestEnableWithoutRcClientReportsError(t *testing.T) {
	h := newHandle(t)
	err := h.Enable(context.Background())
	assert.Error(t, err)

	_, err = h.IsEnabled(context.Background())
	assert.Error(t, err)
}
