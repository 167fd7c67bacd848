// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package jail_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/jail/jailtest"
)

func TestJailCreateExecuteDestroy(t *testing.T) {
	ctx := context.Background()
	fake := jailtest.New()
	j := jail.Open(fake, "zone-abc")

	exists, err := j.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, j.Create(ctx, "/zonys/zone/abc", nil))

	exists, err = j.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = j.Execute(ctx, "echo", "hello")
	require.NoError(t, err)
	assert.Contains(t, fake.Executed, "zone-abc: [echo hello]")

	require.NoError(t, j.Destroy(ctx))
	exists, err = j.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestJailCreateAlreadyExists(t *testing.T) {
	ctx := context.Background()
	fake := jailtest.New()
	j := jail.Open(fake, "zone-abc")

	require.NoError(t, j.Create(ctx, "/zonys/zone/abc", nil))
	err := j.Create(ctx, "/zonys/zone/abc", nil)
	assert.Error(t, err)
}
