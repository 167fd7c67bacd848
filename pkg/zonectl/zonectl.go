// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package zonectl exposes the zone store's constructors and per-zone
// operational verbs as a flat function surface for the CLI layer, so
// cmd/ doesn't need to reach into pkg/zone's Store/Zone method set
// directly. The logic itself lives on pkg/zone.Store and pkg/zone.Zone;
// this package only resolves a query string to a zone and forwards.
package zonectl

import (
	"context"
	"io"

	"github.com/zonys/zonys/pkg/cowfs"
	"github.com/zonys/zonys/pkg/zone"
)

// Create reads spec and registers a new zone.
func Create(ctx context.Context, store *zone.Store, spec map[string]any, basePath string) (*zone.Zone, error) {
	return store.Create(ctx, spec, basePath, false)
}

// Deploy creates a zone then starts it.
func Deploy(ctx context.Context, store *zone.Store, spec map[string]any, basePath string) (*zone.Zone, error) {
	return store.Deploy(ctx, spec, basePath)
}

// Run creates a temporary zone (destroyed the moment it stops) then starts it.
func Run(ctx context.Context, store *zone.Store, spec map[string]any, basePath string) (*zone.Zone, error) {
	return store.Run(ctx, spec, basePath)
}

// Redeploy undeploys the zone matching query, then deploys spec as a new zone.
func Redeploy(ctx context.Context, store *zone.Store, query string, spec map[string]any, basePath string) (*zone.Zone, error) {
	return store.Redeploy(ctx, query, spec, basePath)
}

// Replace destroys the zone matching query, then creates spec in its place.
func Replace(ctx context.Context, store *zone.Store, query string, spec map[string]any, basePath string) (*zone.Zone, error) {
	return store.Replace(ctx, query, spec, basePath)
}

func resolve(store *zone.Store, query string) (*zone.Zone, error) {
	return store.MatchOne(query)
}

// Start starts the zone matching query.
func Start(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Start(ctx)
}

// Stop stops the zone matching query.
func Stop(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Stop(ctx)
}

// Restart stops then starts the zone matching query.
func Restart(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Restart(ctx)
}

// Up starts the zone matching query iff it is not already running.
func Up(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Up(ctx)
}

// Down stops the zone matching query iff it is running.
func Down(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Down(ctx)
}

// Reup brings the zone matching query down then back up.
func Reup(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Reup(ctx)
}

// Undeploy brings the zone matching query down then destroys it.
func Undeploy(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Undeploy(ctx)
}

// Destroy destroys the zone matching query.
func Destroy(ctx context.Context, store *zone.Store, query string) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Destroy(ctx)
}

// Send streams a throwaway snapshot of the zone matching query to w.
func Send(ctx context.Context, store *zone.Store, query string, w cowfs.Sink, compress bool) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Send(ctx, w, compress)
}

// Console executes /bin/sh inside the jail of the zone matching query.
func Console(ctx context.Context, store *zone.Store, query string, out io.Writer) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Console(ctx, out)
}

// Execute runs cmd inside the jail of the zone matching query.
func Execute(ctx context.Context, store *zone.Store, query string, cmd []string, out io.Writer) error {
	z, err := resolve(store, query)
	if err != nil {
		return err
	}
	return z.Execute(ctx, cmd, out)
}
