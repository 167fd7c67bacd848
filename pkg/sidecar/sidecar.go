// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package sidecar implements the per-zone/per-namespace/per-snapshot YAML
// persistence file: an ordered mapping loaded from (or created at) a path,
// mutated in memory, and explicitly flushed back to disk.
package sidecar

import (
	"os"

	"github.com/zonys/zonys/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Sidecar is an ordered YAML mapping backed by a file on disk. Mutations
// are in-memory only until Flush is called, mirroring the explicit
// load/mutate/persist discipline the host application's own configuration
// loader uses for its app-wide config file.
type Sidecar struct {
	path string
	node *yaml.Node // mapping node, preserves key order
}

// Open loads path if it exists, or returns an empty Sidecar bound to path.
func Open(path string) (*Sidecar, error) {
	s := &Sidecar{path: path, node: emptyMapping()}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, errors.ConfigLoadFailed).WithMetadata("path", path)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, errors.ConfigParseError).WithMetadata("path", path)
	}
	if len(doc.Content) == 0 {
		return s, nil
	}
	s.node = doc.Content[0]
	return s, nil
}

func emptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// Get decodes the value at key into out. Returns false if key is absent.
func (s *Sidecar) Get(key string, out any) (bool, error) {
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		if s.node.Content[i].Value == key {
			if err := s.node.Content[i+1].Decode(out); err != nil {
				return true, errors.Wrap(err, errors.ConfigParseError).WithMetadata("key", key)
			}
			return true, nil
		}
	}
	return false, nil
}

// Set replaces (or appends) the value at key, preserving existing key
// order and appending new keys at the end.
func (s *Sidecar) Set(key string, value any) error {
	var valueNode yaml.Node
	if err := valueNode.Encode(value); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("key", key)
	}

	for i := 0; i+1 < len(s.node.Content); i += 2 {
		if s.node.Content[i].Value == key {
			s.node.Content[i+1] = &valueNode
			return nil
		}
	}

	keyNode := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
	s.node.Content = append(s.node.Content, keyNode, &valueNode)
	return nil
}

// Delete removes key if present.
func (s *Sidecar) Delete(key string) {
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		if s.node.Content[i].Value == key {
			s.node.Content = append(s.node.Content[:i], s.node.Content[i+2:]...)
			return
		}
	}
}

// Keys returns the ordered key list.
func (s *Sidecar) Keys() []string {
	keys := make([]string, 0, len(s.node.Content)/2)
	for i := 0; i+1 < len(s.node.Content); i += 2 {
		keys = append(keys, s.node.Content[i].Value)
	}
	return keys
}

// Flush overwrites the file at path with the current in-memory contents.
func (s *Sidecar) Flush() error {
	data, err := yaml.Marshal(s.node)
	if err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("path", s.path)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("path", s.path)
	}
	return nil
}

// Bytes renders the current in-memory contents without writing to disk;
// used to embed a sidecar's content inside a snapshot body (.zonys.yaml).
func (s *Sidecar) Bytes() ([]byte, error) {
	data, err := yaml.Marshal(s.node)
	if err != nil {
		return nil, errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("path", s.path)
	}
	return data, nil
}

// Destroy removes the sidecar file if present. Idempotent.
func (s *Sidecar) Destroy() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ConfigWriteFailed).WithMetadata("path", s.path)
	}
	return nil
}

// Path returns the backing file path.
func (s *Sidecar) Path() string {
	return s.path
}
