// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package mounttest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/mount/mounttest"
)

func TestFakeMountOpenUnmount(t *testing.T) {
	ctx := context.Background()
	fake := mounttest.New()
	mp := fake.Devfs("/zonys/zone/abc/dev")

	exists, err := mp.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = mp.Open(ctx)
	assert.Error(t, err)

	handle, err := mp.Mount(ctx)
	require.NoError(t, err)
	assert.Equal(t, "/zonys/zone/abc/dev", handle.Destination())

	_, err = mp.Mount(ctx)
	assert.Error(t, err, "mounting twice should fail")

	reopened, err := mp.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, reopened.Unmount(ctx))

	exists, err = mp.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}
