// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package handler

import "sync"

// Binding is one (handler, options, configuration, base) tuple discovered
// while reading a configuration tree, in the order it was discovered.
// The commit list is this slice; ordering handler registration
// (registration order) x depth-first validation order is the canonical
// execution order the transaction manager walks.
type Binding struct {
	Handler       Handler
	Options       map[string]any
	Configuration map[string]any
	BasePath      string
}

// Manager owns the registry of available handlers, the variable table fed
// to interpolation, and the append-only commit list built by the
// configuration pipeline.
type Manager struct {
	mu sync.Mutex

	handlers  []Handler
	attached  map[Handler]bool
	variables map[string]any

	CommitList []Binding
}

// NewManager builds a Manager over the given handler set, in the order
// they should be tried during schema validation (spec.md's "handler list,
// top-to-bottom").
func NewManager(handlers ...Handler) *Manager {
	return &Manager{
		handlers:  handlers,
		attached:  make(map[Handler]bool),
		variables: make(map[string]any),
	}
}

// Handlers returns the registered handler list in registration order.
func (m *Manager) Handlers() []Handler {
	return m.handlers
}

// MergeVariables merges vars into the manager's variable table; later
// merges overwrite earlier keys at the top level.
func (m *Manager) MergeVariables(vars map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range vars {
		m.variables[k] = v
	}
}

// Variables returns a snapshot of the manager's variable table.
func (m *Manager) Variables() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.variables))
	for k, v := range m.variables {
		out[k] = v
	}
	return out
}

// MarkAttached reports whether h has already been attached to this
// manager and, if not, marks it attached and returns false (so the caller
// fires OnAttach exactly once per handler).
func (m *Manager) MarkAttached(h Handler) (alreadyAttached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.attached[h] {
		return true
	}
	m.attached[h] = true
	return false
}

// Append records a binding at the end of the commit list.
func (m *Manager) Append(b Binding) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitList = append(m.CommitList, b)
}
