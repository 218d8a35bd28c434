/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package execctx

import (
	"context"

	"chainguard.dev/agentscope/instrumentation/spans"
)

// Scope is what a context.Context knows about tracing: the execution context it
// runs in, and the span (and its trace) that was active when it was derived.
type Scope struct {
	Context ID
	Span    spans.ID
	Trace   spans.ID
}

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFrom returns the Scope carried by ctx, if any.
func ScopeFrom(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}
