// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	id, err := Parse("zroot/zonys/zone")
	require.NoError(t, err)
	assert.Equal(t, []string{"zroot", "zonys", "zone"}, id.Segments())
	assert.Equal(t, "zroot/zonys/zone", id.String())
	assert.Equal(t, "zone", id.Last())
}

func TestParseRejectsEmpty(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)

	_, err = Parse("zroot//zone")
	assert.Error(t, err)
}

func TestChildAndParent(t *testing.T) {
	root := MustParse("zroot/zonys")
	child, err := root.Child("zone")
	require.NoError(t, err)
	assert.Equal(t, "zroot/zonys/zone", child.String())

	parent, ok := child.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equal(root))

	_, ok = MustParse("zroot").Parent()
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	snap, err := ParseSnapshot("zroot/zonys/zone/abc@initial")
	require.NoError(t, err)
	assert.Equal(t, "abc", snap.Dataset.Last())
	assert.Equal(t, "initial", snap.Name)
	assert.Equal(t, "zroot/zonys/zone/abc@initial", snap.String())

	_, err = ParseSnapshot("zroot/zonys/zone/abc")
	assert.Error(t, err)
}
