/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spans

import (
	"maps"
	"slices"

	"go.opentelemetry.io/otel/attribute"
)

// Attributes is a span's attribute map. Keys are unique; a later write for a
// key overrides the earlier value. Iteration order is not meaningful.
type Attributes map[string]attribute.Value

// Set merges kvs into a, in argument order. Invalid key-values are ignored.
func (a Attributes) Set(kvs ...attribute.KeyValue) {
	for _, kv := range kvs {
		if !kv.Valid() {
			continue
		}
		a[string(kv.Key)] = kv.Value
	}
}

// Get returns the value stored under key.
func (a Attributes) Get(key string) (attribute.Value, bool) {
	v, ok := a[key]
	return v, ok
}

// Keys returns the keys of a in sorted order.
func (a Attributes) Keys() []string {
	return slices.Sorted(maps.Keys(a))
}

// Clone returns a copy of a.
func (a Attributes) Clone() Attributes {
	return maps.Clone(a)
}

// AsMap flattens a into plain Go values for export.
func (a Attributes) AsMap() map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v.AsInterface()
	}
	return out
}
