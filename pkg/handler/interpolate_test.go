// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterpolateKnownPath(t *testing.T) {
	m := NewManager()
	m.MergeVariables(map[string]any{
		"foo": map[string]any{"bar": "baz"},
	})

	got := Interpolate("value is {foo.bar}", m)
	assert.Equal(t, "value is baz", got)
}

func TestInterpolateMissingPathIsEmpty(t *testing.T) {
	m := NewManager()

	got := Interpolate("value is {foo.bar.baz}", m)
	assert.Equal(t, "value is ", got)
}

func TestInterpolateRecursesThroughMapsAndLists(t *testing.T) {
	m := NewManager()
	m.MergeVariables(map[string]any{"name": "zone-a"})

	input := map[string]any{
		"list": []any{"{name}-1", "{name}-2"},
		"nested": map[string]any{
			"key": "{name}",
		},
	}
	got := Interpolate(input, m).(map[string]any)
	assert.Equal(t, []any{"zone-a-1", "zone-a-2"}, got["list"])
	assert.Equal(t, map[string]any{"key": "zone-a"}, got["nested"])
}
