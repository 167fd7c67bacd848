// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package handler

import "context"

// Handler is the schema-fragment + phase-callback unit configuration
// binds to. Key identifies the schema fragment's binding field (e.g.
// "provision", "mount"); every other capability is optional and detected
// by type assertion, so a handler implements only what it needs.
type Handler interface {
	Key() string
}

// AttachEvent is delivered once per (manager, handler) pair, at the first
// binding discovered for that handler.
type AttachEvent struct {
	Manager       *Manager
	Options       map[string]any
	Configuration map[string]any
	BasePath      string
}

// Attacher handlers run once, the first time they bind within a manager.
type Attacher interface {
	Handler
	OnAttach(ctx context.Context, ev *AttachEvent) error
}

// ConfigEvent is delivered during pipeline expansion, before and after a
// binding's position in the commit list is finalized.
type ConfigEvent struct {
	Manager       *Manager
	Options       map[string]any
	Configuration map[string]any
	BasePath      string
}

// ConfigExpander handlers may recurse into the pipeline (Manager.Read) to
// expand includes or lineage before/after their binding is recorded.
type ConfigExpander interface {
	Handler
	BeforeConfiguration(ctx context.Context, ev *ConfigEvent) error
	AfterConfiguration(ctx context.Context, ev *ConfigEvent) error
}

// NormalizeEvent is delivered once per commit, before on_commit_<phase>,
// so a handler can compute Normalized from (possibly templated) Options.
type NormalizeEvent struct {
	Manager       *Manager
	Options       map[string]any
	Configuration map[string]any
	BasePath      string
	Normalized    any
}

// Normalizer handlers compute ev.Normalized from ev.Options.
type Normalizer interface {
	Handler
	OnNormalize(ctx context.Context, ev *NormalizeEvent) error
}

// CommitEvent is delivered to a handler's Commit for a specific phase.
type CommitEvent struct {
	Manager       *Manager
	Options       map[string]any
	Configuration map[string]any
	BasePath      string
	Normalized    any
	Context       *Context
}

// RollbackFunc compensates a prior Commit call for the same phase/binding.
// It must not return an error except when the rollback itself is fatal to
// the surrounding rollback sequence.
type RollbackFunc func(ctx context.Context, ev *CommitEvent) error

// Committer handlers contribute to named lifecycle phases. Phases reports
// which phases this handler participates in (the Go analogue of the
// source's on_commit_<phase> method-name dispatch); Commit is only called
// for phases Phases() lists. Commit may return a non-nil rollback, which
// the transaction manager records under this phase and drains, in reverse,
// if a later phase fails.
type Committer interface {
	Handler
	Phases() []Phase
	Commit(ctx context.Context, phase Phase, ev *CommitEvent) (RollbackFunc, error)
}
