// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/sidecar"
)

// ZoneHandle is the subset of a zone's identity that handlers may read
// during commit; pkg/zone's concrete handle type satisfies it structurally,
// avoiding an import cycle between pkg/handler and pkg/zone.
type ZoneHandle interface {
	ID() identifier.Identifier
	Path() string
}

// Context is the strongly typed record threaded between handlers during a
// single commit call, per the design guidance to prefer a typed context
// record over an untyped map. Handlers read and write only the fields
// relevant to them; unused fields stay at their zero value.
type Context struct {
	FileSystem           *cowfs.Dataset
	FileSystemIdentifier identifier.Identifier
	Persistence          *sidecar.Sidecar
	Zone                 ZoneHandle
	Jail                 *jail.Jail
	JailConfiguration    jail.Params
	Snapshot             *identifier.Snapshot

	// Extra carries handler-specific values (e.g. a provisioning handler's
	// temporary-jail path) that don't warrant a dedicated field.
	Extra map[string]any
}

// Set records a value under key in Extra, initializing the map lazily.
func (c *Context) Set(key string, value any) {
	if c.Extra == nil {
		c.Extra = make(map[string]any)
	}
	c.Extra[key] = value
}

// Get reads a value previously stored with Set.
func (c *Context) Get(key string) (any, bool) {
	if c.Extra == nil {
		return nil, false
	}
	v, ok := c.Extra[key]
	return v, ok
}
