// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package handler defines the schema-fragment + phase-callback unit that
// binds declarative configuration to zone lifecycle behavior, and the
// Manager that accumulates bindings discovered while reading a
// configuration tree.
package handler

// Phase names a point in the zone lifecycle at which bound handlers may
// contribute to (on_commit) or compensate (on_rollback) a transaction.
type Phase string

const (
	PhaseBeforeCreateZone     Phase = "before_create_zone"
	PhaseAfterCreateZone      Phase = "after_create_zone"
	PhaseBeforeStartZone      Phase = "before_start_zone"
	PhaseAfterStartZone       Phase = "after_start_zone"
	PhaseBeforeStopZone       Phase = "before_stop_zone"
	PhaseAfterStopZone        Phase = "after_stop_zone"
	PhaseBeforeDestroyZone    Phase = "before_destroy_zone"
	PhaseAfterDestroyZone     Phase = "after_destroy_zone"
	PhaseBeforeCreateSnapshot Phase = "before_create_snapshot"
	PhaseAfterCreateSnapshot  Phase = "after_create_snapshot"
	PhaseBeforeDestroySnapshot Phase = "before_destroy_snapshot"
	PhaseAfterDestroySnapshot  Phase = "after_destroy_snapshot"
)
