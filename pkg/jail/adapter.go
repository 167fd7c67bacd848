// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package jail adapts the FreeBSD jail facility (jail(8)/jexec(8)) to the
// process-isolation half of a zone, the same adapter-over-external-tool
// shape pkg/cowfs uses for the storage half.
package jail

import "context"

// Params are jail(8) parameters; a nil value emits the bare key, and a bool
// value maps true/false to "1"/"0" per FreeBSD's parameter convention.
type Params map[string]any

func defaultParams() Params {
	return Params{
		"persist":           nil,
		"exec.clean":        true,
		"allow.raw_sockets": true,
	}
}

func (p Params) merge(overrides Params) Params {
	out := make(Params, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Adapter is the process-isolation backend a Jail value delegates to: the
// real FreeBSD jail(8)/jexec(8) tools, or a fake for tests.
type Adapter interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name, path string, params Params) error
	Destroy(ctx context.Context, name string) error
	Execute(ctx context.Context, name string, cmd ...string) ([]byte, error)
}

// Jail names one jail by its jail(8) "name" parameter and the Adapter used
// to operate on it.
type Jail struct {
	Adapter Adapter
	Name    string
}

// Open binds name to adapter without checking existence.
func Open(adapter Adapter, name string) Jail {
	return Jail{Adapter: adapter, Name: name}
}

func (j Jail) Exists(ctx context.Context) (bool, error) {
	return j.Adapter.Exists(ctx, j.Name)
}

// Create builds a persistent jail rooted at path, with defaultParams() as a
// base overridden by params.
func (j Jail) Create(ctx context.Context, path string, params Params) error {
	return j.Adapter.Create(ctx, j.Name, path, defaultParams().merge(params))
}

func (j Jail) Destroy(ctx context.Context) error {
	return j.Adapter.Destroy(ctx, j.Name)
}

// Execute runs cmd inside the jail via jexec -l (login-style environment).
func (j Jail) Execute(ctx context.Context, cmd ...string) ([]byte, error) {
	return j.Adapter.Execute(ctx, j.Name, cmd...)
}
