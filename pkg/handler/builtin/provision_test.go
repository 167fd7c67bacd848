// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvisionDirectoryCreatesUnderRoot(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, provisionDirectory(root, map[string]any{"path": "/var/lib/app"}))

	info, err := os.Stat(filepath.Join(root, "var", "lib", "app"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestProvisionDirectoryRejectsRelativePath(t *testing.T) {
	root := t.TempDir()
	err := provisionDirectory(root, map[string]any{"path": "relative"})
	assert.Error(t, err)
}

func TestProvisionFileWritesContentAndAppendsPrepend(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, provisionFile(root, map[string]any{
		"path":    "/etc/app.conf",
		"content": "body\n",
	}))
	require.NoError(t, provisionFile(root, map[string]any{
		"path":   "/etc/app.conf",
		"prepend": "# header\n",
	}))
	require.NoError(t, provisionFile(root, map[string]any{
		"path":   "/etc/app.conf",
		"append": "# footer\n",
	}))

	data, err := os.ReadFile(filepath.Join(root, "etc", "app.conf"))
	require.NoError(t, err)
	assert.Equal(t, "# header\nbody\n# footer\n", string(data))
}

func TestProvisionLinkStripsLeadingSlashFromSourceText(t *testing.T) {
	root := t.TempDir()

	require.NoError(t, provisionLink(root, map[string]any{
		"source":      "/usr/local/bin/real",
		"destination": "/usr/bin/shim",
	}))

	target, err := os.Readlink(filepath.Join(root, "usr", "bin", "shim"))
	require.NoError(t, err)
	assert.Equal(t, "usr/local/bin/real", target)
}

func TestProvisionPathCopiesFileResolvedAgainstBasePath(t *testing.T) {
	root := t.TempDir()
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "payload.txt"), []byte("hello"), 0o644))

	require.NoError(t, provisionPath(root, base, map[string]any{
		"source":      "payload.txt",
		"destination": "/opt/payload.txt",
	}))

	data, err := os.ReadFile(filepath.Join(root, "opt", "payload.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestProvisionPathCopiesDirectoryTree(t *testing.T) {
	root := t.TempDir()
	base := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(base, "tree", "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "tree", "nested", "leaf.txt"), []byte("x"), 0o644))

	require.NoError(t, provisionPath(root, base, map[string]any{
		"source":      filepath.Join(base, "tree"),
		"destination": "/srv/tree",
	}))

	data, err := os.ReadFile(filepath.Join(root, "srv", "tree", "nested", "leaf.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestZonePathRejectsRelative(t *testing.T) {
	_, err := zonePath("/zroot/zone", "not-absolute")
	assert.Error(t, err)
}

func TestZonePathJoinsUnderRoot(t *testing.T) {
	p, err := zonePath("/zroot/zone", "/etc/app.conf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/zroot/zone", "etc", "app.conf"), p)
}
