// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package jailtest provides an in-memory jail.Adapter for tests that
// exercise the zone lifecycle without a FreeBSD host.
package jailtest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/jail"
)

type entry struct {
	path   string
	params jail.Params
}

// Fake is an in-memory jail.Adapter: Create/Destroy only track jail
// existence and the command lines Execute was called with, for assertions.
type Fake struct {
	mu       sync.Mutex
	jails    map[string]entry
	Executed []string
}

var _ jail.Adapter = (*Fake)(nil)

func New() *Fake {
	return &Fake{jails: make(map[string]entry)}
}

func (f *Fake) Exists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jails[name]
	return ok, nil
}

func (f *Fake) Create(_ context.Context, name, path string, params jail.Params) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jails[name]; ok {
		return errors.New(errors.JailAlreadyExists, name)
	}
	f.jails[name] = entry{path: path, params: params}
	return nil
}

func (f *Fake) Destroy(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jails[name]; !ok {
		return errors.New(errors.JailNotFound, name)
	}
	delete(f.jails, name)
	return nil
}

func (f *Fake) Execute(_ context.Context, name string, cmd ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jails[name]; !ok {
		return nil, errors.New(errors.JailNotFound, name)
	}
	f.Executed = append(f.Executed, fmt.Sprintf("%s: %v", name, cmd))
	return []byte("ok"), nil
}

// Names returns the currently-registered jail names, sorted.
func (f *Fake) Names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.jails))
	for n := range f.jails {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
