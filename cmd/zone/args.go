// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package zone

import (
	"strconv"
	"strings"

	"github.com/zonys/zonys/pkg/errors"
)

// parseSpec turns "zone create" / "zone run" ARGS into a spec map. A
// single "-" means: read a CoW-FS send-stream from stdin as the zone's
// base (fd 0, the same int-fd shape the "base" handler already accepts
// for a piped `zone send`). Otherwise args must be alternating
// "--key value" pairs; values are coerced to bool/int/float when they
// parse as one, else kept as a string.
func parseSpec(args []string) (map[string]any, error) {
	if len(args) == 1 && args[0] == "-" {
		return map[string]any{"base": 0}, nil
	}

	if len(args)%2 != 0 {
		return nil, errors.New(errors.HandlerInvalidConfiguration, "arguments must be alternating --key value pairs")
	}

	spec := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key := strings.TrimPrefix(args[i], "--")
		if key == args[i] {
			return nil, errors.New(errors.HandlerInvalidConfiguration, "expected --key, got "+args[i])
		}
		spec[key] = coerce(args[i+1])
	}
	return spec, nil
}

func coerce(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return int(i)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
