/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package hooks holds the well-known, swappable bindings through which the agent
runtime resolves its tracer provider and its telemetry field recorders.

A binding has a fallback (what the runtime uses when nobody has overridden it)
and an optional override. Bindings are registered once under a stable lookup key
so that code outside the runtime can find them without importing the package
that owns them:

	var providerBinding = hooks.Register(
		"agenttrace.tracer_provider", "v1.1.0",
		func() oteltrace.TracerProvider { return otel.GetTracerProvider() },
	)

	// Later, somewhere else:
	raw, ok := hooks.Lookup("agenttrace.tracer_provider")
	b, ok := raw.(*hooks.Binding[oteltrace.TracerProvider])
	prev, _ := b.Swap(noop.NewTracerProvider())
	defer b.Restore(prev)

Overrides are reversible: Swap returns whatever override was in place before,
and Restore puts it back.
*/
package hooks
