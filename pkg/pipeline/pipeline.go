// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline implements the configuration pipeline: validating a
// configuration tree against a handler's declared schema, discovering
// handler bindings in depth-first order, and additively expanding
// includes and base-imported configuration while tracking the base path
// relative paths resolve against.
package pipeline

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/zonys/zonys/pkg/errors"
	"github.com/zonys/zonys/pkg/handler"
)

var validate = validator.New()

// Schema describes the shape pipeline.Read expects under a handler's key:
// a target struct type (field-validated with `validate` tags) that the
// binding's raw options are decoded into before being handed to the
// handler's phase callbacks (still as the original map[string]any —
// decoding is for validation only, the handler receives the raw map).
type Schema struct {
	Handler handler.Handler
	Target  func() any
}

// Read validates configuration against schemas, discovers handler
// bindings depth-first, and expands include/base subtrees, merging them
// additively into configuration in place. basePath is the directory
// relative paths in this configuration resolve against.
func Read(ctx context.Context, manager *handler.Manager, schemas []Schema, configuration map[string]any, basePath string) error {
	for _, schema := range schemas {
		key := schema.Handler.Key()
		raw, present := configuration[key]
		if !present {
			continue
		}

		if schema.Target != nil {
			target := schema.Target()
			if err := mapstructure.Decode(raw, target); err != nil {
				return errors.Wrap(err, errors.HandlerInvalidConfiguration).
					WithMetadata("handler", key)
			}
			if err := validate.Struct(target); err != nil {
				return errors.Wrap(err, errors.HandlerSchemaValidation).
					WithMetadata("handler", key).
					WithMetadata("messages", err.Error())
			}
		}

		options, ok := raw.(map[string]any)
		if !ok {
			// Non-map bindings (e.g. "name", "temporary", "base" with a
			// scalar value) are wrapped so handlers always receive a map.
			options = map[string]any{"value": raw}
		}

		if already := manager.MarkAttached(schema.Handler); !already {
			if attacher, ok := schema.Handler.(handler.Attacher); ok {
				attachEv := &handler.AttachEvent{
					Manager:       manager,
					Options:       options,
					Configuration: configuration,
					BasePath:      basePath,
				}
				if err := attacher.OnAttach(ctx, attachEv); err != nil {
					return errors.Wrap(err, errors.HandlerInvalidConfiguration).
						WithMetadata("handler", key).WithMetadata("step", "on_attach")
				}
			}
		}

		ev := &handler.ConfigEvent{
			Manager:       manager,
			Options:       options,
			Configuration: configuration,
			BasePath:      basePath,
		}

		expander, isExpander := schema.Handler.(handler.ConfigExpander)
		if isExpander {
			if err := expander.BeforeConfiguration(ctx, ev); err != nil {
				return errors.Wrap(err, errors.PipelineInvalidConfiguration).
					WithMetadata("handler", key).WithMetadata("step", "before_configuration")
			}
		}

		manager.Append(handler.Binding{
			Handler:       schema.Handler,
			Options:       ev.Options,
			Configuration: ev.Configuration,
			BasePath:      ev.BasePath,
		})

		if isExpander {
			if err := expander.AfterConfiguration(ctx, ev); err != nil {
				return errors.Wrap(err, errors.PipelineInvalidConfiguration).
					WithMetadata("handler", key).WithMetadata("step", "after_configuration")
			}
		}
	}

	return nil
}
