// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package mount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/mount"
)

func TestParseMountOutput(t *testing.T) {
	output := []byte(`zroot/zonys/zone/abc on /zonys/zone/abc (zfs, local, noatime)
devfs on /zonys/zone/abc/dev (devfs)
`)

	entries, err := mount.ParseMountOutput(output)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "zroot/zonys/zone/abc", entries[0].Source)
	assert.Equal(t, "/zonys/zone/abc", entries[0].Destination)
	assert.Equal(t, []string{"zfs", "local", "noatime"}, entries[0].Flags)
	assert.True(t, entries[0].HasFlag("local"))
	assert.False(t, entries[0].HasFlag("read-only"))

	found, ok := mount.Find(entries, "/zonys/zone/abc/dev")
	require.True(t, ok)
	assert.Equal(t, "devfs", found.Source)
}

func TestParseMountOutputRejectsMalformedLine(t *testing.T) {
	_, err := mount.ParseMountOutput([]byte("not a mount line\n"))
	assert.Error(t, err)
}
