// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"os"
	"regexp"
	"strings"
)

// variableRef matches "{dotted.path}" template references.
var variableRef = regexp.MustCompile(`\{([a-zA-Z0-9_.]+)\}`)

// Interpolate expands every string found anywhere inside v (recursing
// through maps and slices) against an environment composed of the process
// environment (under both "env" and "environment") plus m's variable
// table. Missing references expand to the empty string; Interpolate never
// fails.
func Interpolate(v any, m *Manager) any {
	env := buildEnvironment(m)
	return interpolateValue(v, env)
}

func buildEnvironment(m *Manager) map[string]navigator {
	envMap := make(map[string]any)
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			envMap[kv[:idx]] = kv[idx+1:]
		}
	}

	env := map[string]navigator{
		"env":         newNavigator(envMap),
		"environment": newNavigator(envMap),
	}
	for k, v := range m.Variables() {
		env[k] = newNavigator(v)
	}
	return env
}

func interpolateValue(v any, env map[string]navigator) any {
	switch val := v.(type) {
	case string:
		return interpolateString(val, env)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, sub := range val {
			out[k] = interpolateValue(sub, env)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = interpolateValue(sub, env)
		}
		return out
	default:
		return v
	}
}

func interpolateString(s string, env map[string]navigator) string {
	return variableRef.ReplaceAllStringFunc(s, func(match string) string {
		path := strings.Split(match[1:len(match)-1], ".")
		root, ok := env[path[0]]
		if !ok {
			return ""
		}
		nav := root
		for _, segment := range path[1:] {
			nav = nav.child(segment)
		}
		return nav.String()
	})
}
