// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarSetGetFlush(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc.yaml")

	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Set("name", "base"))
	require.NoError(t, s.Set("local", map[string]any{"provision": []any{"x"}}))
	require.NoError(t, s.Flush())

	reopened, err := Open(path)
	require.NoError(t, err)

	var name string
	found, err := reopened.Get("name", &name)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "base", name)

	assert.Equal(t, []string{"name", "local"}, reopened.Keys())
}

func TestSidecarDestroyIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abc.yaml")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Destroy())
	require.NoError(t, s.Destroy())
}
