// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package transaction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/transaction"
)

// recordingHandler commits by appending to a shared log and records a
// rollback that appends its own undo marker.
type recordingHandler struct {
	key    string
	phases []handler.Phase
	log    *[]string
}

func (h *recordingHandler) Key() string            { return h.key }
func (h *recordingHandler) Phases() []handler.Phase { return h.phases }

func (h *recordingHandler) Commit(_ context.Context, phase handler.Phase, ev *handler.CommitEvent) (handler.RollbackFunc, error) {
	*h.log = append(*h.log, "commit:"+h.key+":"+string(phase))
	return func(_ context.Context, _ *handler.CommitEvent) error {
		*h.log = append(*h.log, "rollback:"+h.key+":"+string(phase))
		return nil
	}, nil
}

func TestTransactionCommitRunsBindingsInOrder(t *testing.T) {
	var log []string
	m := handler.NewManager()
	m.Append(handler.Binding{
		Handler: &recordingHandler{key: "a", phases: []handler.Phase{handler.PhaseBeforeCreateZone}, log: &log},
		Options: map[string]any{},
	})
	m.Append(handler.Binding{
		Handler: &recordingHandler{key: "b", phases: []handler.Phase{handler.PhaseBeforeCreateZone}, log: &log},
		Options: map[string]any{},
	})

	tx := transaction.New(m)
	_, err := tx.Commit(context.Background(), handler.PhaseBeforeCreateZone, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"commit:a:before_create_zone",
		"commit:b:before_create_zone",
	}, log)
}

func TestTransactionRollbackReversesAcrossPhases(t *testing.T) {
	var log []string
	m := handler.NewManager()
	m.Append(handler.Binding{
		Handler: &recordingHandler{key: "a", phases: []handler.Phase{handler.PhaseBeforeCreateZone, handler.PhaseAfterCreateZone}, log: &log},
		Options: map[string]any{},
	})

	tx := transaction.New(m)
	ctx := context.Background()
	_, err := tx.Commit(ctx, handler.PhaseBeforeCreateZone, nil)
	require.NoError(t, err)
	_, err = tx.Commit(ctx, handler.PhaseAfterCreateZone, nil)
	require.NoError(t, err)

	log = nil
	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, []string{
		"rollback:a:after_create_zone",
		"rollback:a:before_create_zone",
	}, log)
}
