/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"github.com/chainguard-dev/clog"
)

// NewDefaultTracer returns the tracer used when none is installed in ctx.
// It logs a summary of every completed trace at debug level, or warn when
// the run failed.
func NewDefaultTracer[T any](ctx context.Context) Tracer[T] {
	log := clog.FromContext(ctx)

	return ByCode(func(trace *Trace[T]) {
		l := log.With("trace_id", trace.ID).
			With("run", trace.Run.Key).
			With("duration_ms", trace.Duration().Milliseconds()).
			With("tool_calls", len(trace.ToolCalls)).
			With("tokens", trace.InputTokens+trace.OutputTokens)
		if trace.Error != nil {
			l.With("error", trace.Error).Warn("Agent run failed")
			return
		}
		l.Debug("Agent run completed", "trace", trace.String())
	})
}
