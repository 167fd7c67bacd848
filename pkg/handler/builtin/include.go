// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"context"
	"os"
	"path/filepath"

	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
	"github.com/zonys/zonys/pkg/pipeline"
	"gopkg.in/yaml.v3"
)

// Include loads a YAML file (absolute, or relative to the current base
// path), recursively reads it with the same schema set, and additively
// merges its contents into the enclosing configuration before this
// binding's own position in the commit list is recorded.
//
// Schemas must be assigned after the pipeline.Schema slice is built, since
// that slice necessarily contains this handler itself.
type Include struct {
	Schemas *[]pipeline.Schema
}

var _ handler.ConfigExpander = (*Include)(nil)

func (i *Include) Key() string { return "include" }

func (i *Include) BeforeConfiguration(ctx context.Context, ev *handler.ConfigEvent) error {
	path, _ := ev.Options["value"].(string)
	if path == "" {
		return errors.New(errors.PipelineInvalidConfiguration, "include: empty path")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(ev.BasePath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.PipelineIncludeFailed).WithMetadata("path", path)
	}

	var loaded map[string]any
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return errors.Wrap(err, errors.PipelineIncludeFailed).WithMetadata("path", path)
	}

	newBase := filepath.Dir(path)
	if i.Schemas != nil {
		if err := pipeline.Read(ctx, ev.Manager, *i.Schemas, loaded, newBase); err != nil {
			return err
		}
	}

	// The included file's content is the base; the enclosing
	// configuration is the more specific override (child wins).
	merged := pipeline.Merge(loaded, ev.Configuration)
	for k, v := range merged {
		ev.Configuration[k] = v
	}
	ev.BasePath = newBase

	return nil
}

func (*Include) AfterConfiguration(_ context.Context, _ *handler.ConfigEvent) error {
	return nil
}
