// Copyright 2025 The zonys Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package handler

import "fmt"

// navigator wraps an arbitrary value so attribute-style access through a
// dotted path never fails: missing keys and type mismatches both resolve
// to an empty navigator, which stringifies to "". This is what lets
// variable interpolation expand "{foo.bar.baz}" even when foo is absent.
type navigator struct {
	value any
	valid bool
}

func newNavigator(value any) navigator {
	return navigator{value: value, valid: true}
}

// child looks up key on the wrapped value if it is a map; any other shape
// (or a missing key) yields an invalid navigator.
func (n navigator) child(key string) navigator {
	if !n.valid {
		return navigator{}
	}
	m, ok := n.value.(map[string]any)
	if !ok {
		return navigator{}
	}
	v, ok := m[key]
	if !ok {
		return navigator{}
	}
	return newNavigator(v)
}

// String renders the wrapped value for interpolation; an invalid
// navigator (missing path) renders as the empty string rather than
// panicking or erroring.
func (n navigator) String() string {
	if !n.valid {
		return ""
	}
	switch v := n.value.(type) {
	case string:
		return v
	case nil:
		return ""
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
