// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zonys/zonys/pkg/pipeline"
)

func TestMergeConcatenatesLists(t *testing.T) {
	dst := map[string]any{"provision": []any{"a"}}
	src := map[string]any{"provision": []any{"b"}}
	got := pipeline.Merge(dst, src)
	assert.Equal(t, []any{"a", "b"}, got["provision"])
}

func TestMergeRecursesIntoMaps(t *testing.T) {
	dst := map[string]any{"jail": map[string]any{"a": 1}}
	src := map[string]any{"jail": map[string]any{"b": 2}}
	got := pipeline.Merge(dst, src)
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, got["jail"])
}

func TestMergeChildWinsOnScalarConflict(t *testing.T) {
	dst := map[string]any{"name": "base-name"}
	src := map[string]any{"name": "child-name"}
	got := pipeline.Merge(dst, src)
	assert.Equal(t, "child-name", got["name"])
}
