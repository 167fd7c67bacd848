// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/pipeline"
)

type nameHandler struct{}

func (nameHandler) Key() string { return "name" }

type variableHandler struct{ attached int }

func (h *variableHandler) Key() string { return "variable" }
func (h *variableHandler) OnAttach(_ context.Context, ev *handler.AttachEvent) error {
	h.attached++
	ev.Manager.MergeVariables(map[string]any{"release": "2026.1"})
	return nil
}

func TestReadDiscoversBindingsInHandlerOrder(t *testing.T) {
	m := handler.NewManager()
	varHandler := &variableHandler{}
	schemas := []pipeline.Schema{
		{Handler: varHandler},
		{Handler: nameHandler{}},
	}

	config := map[string]any{
		"variable": map[string]any{"release": "2025.12"},
		"name":     "zone-a",
	}

	require.NoError(t, pipeline.Read(context.Background(), m, schemas, config, "/etc/zonys"))

	require.Len(t, m.CommitList, 2)
	assert.Equal(t, "variable", m.CommitList[0].Handler.Key())
	assert.Equal(t, "name", m.CommitList[1].Handler.Key())
	assert.Equal(t, "zone-a", m.CommitList[1].Options["value"])
	assert.Equal(t, 1, varHandler.attached)
}

func TestReadSkipsUnboundKeys(t *testing.T) {
	m := handler.NewManager()
	schemas := []pipeline.Schema{{Handler: nameHandler{}}}

	require.NoError(t, pipeline.Read(context.Background(), m, schemas, map[string]any{}, "/etc/zonys"))
	assert.Empty(t, m.CommitList)
}
