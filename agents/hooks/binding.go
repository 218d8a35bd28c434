/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hooks

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// Binding is a resolvable value of type T with a fallback and an optional override.
type Binding[T any] struct {
	key      string
	version  string
	fallback func() T
	override atomic.Pointer[T]
}

// Key returns the lookup key the binding was registered under.
func (b *Binding[T]) Key() string { return b.key }

// Version returns the version the owner declared when registering the binding.
func (b *Binding[T]) Version() string { return b.version }

// Load returns the override if one is set, otherwise the fallback value.
func (b *Binding[T]) Load() T {
	if p := b.override.Load(); p != nil {
		return *p
	}
	return b.fallback()
}

// Overridden reports whether an override is currently installed.
func (b *Binding[T]) Overridden() bool {
	return b.override.Load() != nil
}

// Current returns the override and whether one is set.
func (b *Binding[T]) Current() (T, bool) {
	if p := b.override.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Swap installs v as the override and returns the previous override.
// The boolean is false when there was no previous override.
func (b *Binding[T]) Swap(v T) (T, bool) {
	prev := b.override.Swap(&v)
	if prev == nil {
		var zero T
		return zero, false
	}
	return *prev, true
}

// Restore reinstates a previous override as returned by Swap.
// When had is false the override is cleared and Load returns the fallback again.
func (b *Binding[T]) Restore(prev T, had bool) {
	if !had {
		b.override.Store(nil)
		return
	}
	b.override.Store(&prev)
}

var registry = struct {
	sync.RWMutex
	bindings map[string]any
}{bindings: make(map[string]any)}

// Register creates the binding for key, or returns the existing one when the key
// is already registered with the same type. A type clash is a programming error.
func Register[T any](key, version string, fallback func() T) *Binding[T] {
	if fallback == nil {
		panic(fmt.Sprintf("hooks: nil fallback for %q", key))
	}

	registry.Lock()
	defer registry.Unlock()

	if existing, ok := registry.bindings[key]; ok {
		b, ok := existing.(*Binding[T])
		if !ok {
			panic(fmt.Sprintf("hooks: %q already registered as %T", key, existing))
		}
		return b
	}

	b := &Binding[T]{key: key, version: version, fallback: fallback}
	registry.bindings[key] = b
	return b
}

// Lookup returns the binding registered under key. Callers type-assert the result
// to the *Binding[T] shape they expect.
func Lookup(key string) (any, bool) {
	registry.RLock()
	defer registry.RUnlock()
	b, ok := registry.bindings[key]
	return b, ok
}

// Keys returns the registered lookup keys in sorted order.
func Keys() []string {
	registry.RLock()
	defer registry.RUnlock()
	keys := make([]string, 0, len(registry.bindings))
	for k := range registry.bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
