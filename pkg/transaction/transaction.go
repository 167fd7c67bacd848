// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package transaction runs a handler.Manager's commit list through a named
// lifecycle phase, interpolating variables, normalizing options, and
// recording compensating rollbacks for a later failure to unwind.
package transaction

import (
	"context"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
)

type rollbackRecord struct {
	fn  handler.RollbackFunc
	ev  *handler.CommitEvent
}

// Transaction tracks the phases committed so far and the rollback thunks
// recorded for each, so Rollback can unwind in reverse phase-group order
// and, within a phase, reverse append order.
type Transaction struct {
	manager    *handler.Manager
	phaseOrder []handler.Phase
	rollbacks  map[handler.Phase][]rollbackRecord
}

// New builds a Transaction over manager's commit list.
func New(manager *handler.Manager) *Transaction {
	return &Transaction{
		manager:   manager,
		rollbacks: make(map[handler.Phase][]rollbackRecord),
	}
}

// Commit runs every binding in the manager's commit list whose handler
// participates in phase, threading zoneCtx through each in commit-list
// order and returning the (possibly mutated) context.
func (t *Transaction) Commit(ctx context.Context, phase handler.Phase, zoneCtx *handler.Context) (*handler.Context, error) {
	if zoneCtx == nil {
		zoneCtx = &handler.Context{}
	}
	t.phaseOrder = append(t.phaseOrder, phase)

	for _, binding := range t.manager.CommitList {
		committer, ok := binding.Handler.(handler.Committer)
		if !ok || !participatesIn(committer, phase) {
			continue
		}

		options := handler.Interpolate(binding.Options, t.manager).(map[string]any)

		var normalized any
		if normalizer, ok := binding.Handler.(handler.Normalizer); ok {
			ev := &handler.NormalizeEvent{
				Manager:       t.manager,
				Options:       options,
				Configuration: binding.Configuration,
				BasePath:      binding.BasePath,
			}
			if err := normalizer.OnNormalize(ctx, ev); err != nil {
				return zoneCtx, errors.Wrap(err, errors.TransactionCommitFailed).
					WithMetadata("handler", binding.Handler.Key()).
					WithMetadata("step", "on_normalize")
			}
			normalized = ev.Normalized
		}

		commitEv := &handler.CommitEvent{
			Manager:       t.manager,
			Options:       options,
			Configuration: binding.Configuration,
			BasePath:      binding.BasePath,
			Normalized:    normalized,
			Context:       zoneCtx,
		}

		rollback, err := committer.Commit(ctx, phase, commitEv)
		if err != nil {
			return zoneCtx, errors.Wrap(err, errors.TransactionCommitFailed).
				WithMetadata("handler", binding.Handler.Key()).
				WithMetadata("phase", string(phase))
		}
		zoneCtx = commitEv.Context

		if rollback != nil {
			t.rollbacks[phase] = append(t.rollbacks[phase], rollbackRecord{fn: rollback, ev: commitEv})
		}
	}

	return zoneCtx, nil
}

// Rollback drains every recorded rollback thunk, phase-groups in the
// reverse of commit order and, within a phase, in reverse append order. A
// thunk that errors aborts the rest of the rollback and surfaces.
func (t *Transaction) Rollback(ctx context.Context) error {
	seen := make(map[handler.Phase]bool)
	for i := len(t.phaseOrder) - 1; i >= 0; i-- {
		phase := t.phaseOrder[i]
		if seen[phase] {
			continue
		}
		seen[phase] = true

		records := t.rollbacks[phase]
		for j := len(records) - 1; j >= 0; j-- {
			r := records[j]
			if err := r.fn(ctx, r.ev); err != nil {
				return errors.Wrap(err, errors.TransactionRollbackFailed).
					WithMetadata("phase", string(phase))
			}
		}
	}
	return nil
}

func participatesIn(c handler.Committer, phase handler.Phase) bool {
	for _, p := range c.Phases() {
		if p == phase {
			return true
		}
	}
	return false
}
