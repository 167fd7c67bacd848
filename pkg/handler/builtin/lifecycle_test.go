// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/identifier"
	"github.com/zonys/zonys/pkg/jail"
	"github.com/zonys/zonys/pkg/jail/jailtest"
)

type fakeZone struct {
	id        identifier.Identifier
	path      string
	destroyed bool
}

func (z *fakeZone) ID() identifier.Identifier { return z.id }
func (z *fakeZone) Path() string              { return z.path }
func (z *fakeZone) Destroy(context.Context) error {
	z.destroyed = true
	return nil
}

func newFakeZone(t *testing.T, name, path string) *fakeZone {
	t.Helper()
	id, err := identifier.New(name)
	require.NoError(t, err)
	return &fakeZone{id: id, path: path}
}

func TestTemporaryDestroysZoneWhenTrue(t *testing.T) {
	zone := newFakeZone(t, "throwaway", "/zroot/zone/throwaway")
	ev := &handler.CommitEvent{
		Options: map[string]any{"value": true},
		Context: &handler.Context{Zone: zone},
	}

	_, err := Temporary{}.Commit(context.Background(), handler.PhaseAfterStopZone, ev)
	require.NoError(t, err)
	assert.True(t, zone.destroyed)
}

func TestTemporaryLeavesZoneWhenFalse(t *testing.T) {
	zone := newFakeZone(t, "keep", "/zroot/zone/keep")
	ev := &handler.CommitEvent{
		Options: map[string]any{"value": false},
		Context: &handler.Context{Zone: zone},
	}

	_, err := Temporary{}.Commit(context.Background(), handler.PhaseAfterStopZone, ev)
	require.NoError(t, err)
	assert.False(t, zone.destroyed)
}

func TestJailHandlerMergesOptionsIntoJailConfiguration(t *testing.T) {
	ev := &handler.CommitEvent{
		Options: map[string]any{"allow.raw_sockets": true, "exec.clean": true},
		Context: &handler.Context{JailConfiguration: jail.Params{"existing": "1"}},
	}

	_, err := Jail{}.Commit(context.Background(), handler.PhaseBeforeStartZone, ev)
	require.NoError(t, err)
	assert.Equal(t, true, ev.Context.JailConfiguration["allow.raw_sockets"])
	assert.Equal(t, true, ev.Context.JailConfiguration["exec.clean"])
	assert.Equal(t, "1", ev.Context.JailConfiguration["existing"])
}

func TestExecuteRunsStartHooksInOrderAgainstContextJail(t *testing.T) {
	fake := jailtest.New()
	require.NoError(t, fake.Create(context.Background(), "zone-a", "/zroot/zone/a", nil))
	j := jail.Open(fake, "zone-a")

	zone := newFakeZone(t, "zone-a", "/zroot/zone/a")
	ev := &handler.CommitEvent{
		Options: map[string]any{
			"beforeStart": []any{"echo before"},
			"start":       []any{"echo start"},
			"afterStart":  []any{"echo after"},
		},
		Context: &handler.Context{Zone: zone, Jail: &j},
	}

	e := &Execute{JailAdapter: fake}
	_, err := e.Commit(context.Background(), handler.PhaseAfterStartZone, ev)
	require.NoError(t, err)

	require.Len(t, fake.Executed, 3)
	assert.Contains(t, fake.Executed[0], "before")
	assert.Contains(t, fake.Executed[1], "start")
	assert.Contains(t, fake.Executed[2], "after")
}

func TestExecuteSkipsHooksThatAreNotConfigured(t *testing.T) {
	fake := jailtest.New()
	require.NoError(t, fake.Create(context.Background(), "zone-b", "/zroot/zone/b", nil))
	j := jail.Open(fake, "zone-b")

	zone := newFakeZone(t, "zone-b", "/zroot/zone/b")
	ev := &handler.CommitEvent{
		Options: map[string]any{},
		Context: &handler.Context{Zone: zone, Jail: &j},
	}

	e := &Execute{JailAdapter: fake}
	_, err := e.Commit(context.Background(), handler.PhaseAfterStartZone, ev)
	require.NoError(t, err)
	assert.Empty(t, fake.Executed)
}
