// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package builtin implements the built-in handlers spec.md §4.5 enumerates:
// variable, include, base, name, provision, mount, temporary, network,
// execute, jail.
package builtin

import (
	"context"

	"github.com/zonys/zonys/pkg/handler"
)

// Variable merges its mapping into the manager's variable table the first
// time it attaches, making those values available to template
// interpolation for every handler that commits afterward.
type Variable struct{}

var _ handler.Attacher = Variable{}

func (Variable) Key() string { return "variable" }

func (Variable) OnAttach(_ context.Context, ev *handler.AttachEvent) error {
	ev.Manager.MergeVariables(ev.Options)
	return nil
}
