/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"context"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/toolcall"
	"chainguard.dev/agentscope/instrumentation/spans"
	"go.opentelemetry.io/otel/attribute"
)

// Tool decorates a tool so each handler call runs inside a tool span named
// after the tool. A result carrying an "error" key closes the span with
// status error. A call the tool call entry point already opened a span for
// is not wrapped twice.
func Tool[Resp any](w *Wrapper, t toolcall.Tool[Resp]) toolcall.Tool[Resp] {
	inner := t.Handler
	if inner == nil {
		return t
	}
	name := t.Def.Name
	t.Handler = func(ctx context.Context, call toolcall.ToolCall, trace *agenttrace.Trace[Resp], result *Resp) map[string]any {
		if id, ok := ctx.Value(toolKey{}).(string); ok && id == call.ID {
			return inner(context.WithValue(ctx, toolKey{}, nil), call, trace, result)
		}
		out, _ := around(ctx, w, spans.KindTool, name, toolAttrs(call),
			func(ctx context.Context) (map[string]any, error) {
				return inner(ctx, call, trace, result), nil
			},
			toolFailure)
		return out
	}
	return t
}

func toolAttrs(call toolcall.ToolCall) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("tool.call_id", call.ID),
		attribute.Int("tool.args", len(call.Args)),
	}
}

// Tools decorates every tool in tools and returns the decorated set.
func Tools[Resp any](w *Wrapper, tools map[string]toolcall.Tool[Resp]) map[string]toolcall.Tool[Resp] {
	out := make(map[string]toolcall.Tool[Resp], len(tools))
	for k, t := range tools {
		out[k] = Tool(w, t)
	}
	return out
}
