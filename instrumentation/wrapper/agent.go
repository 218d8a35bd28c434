/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"context"
	"reflect"

	"chainguard.dev/agentscope/agents/executor"
	"chainguard.dev/agentscope/agents/toolcall"
	"chainguard.dev/agentscope/instrumentation/spans"
	"go.opentelemetry.io/otel/attribute"
)

type agent[Resp any] struct {
	w     *Wrapper
	name  string
	inner executor.Interface[Resp]
}

// Agent decorates an agent so each Execute runs inside an agent span.
// An empty name falls back to the implementation's type name. An executor
// whose run entry point w already decorates gets one span, not two.
func Agent[Resp any](w *Wrapper, name string, inner executor.Interface[Resp]) executor.Interface[Resp] {
	if name == "" {
		name = typeName(inner)
	}
	return &agent[Resp]{w: w, name: name, inner: inner}
}

func (a *agent[Resp]) Execute(ctx context.Context, prompt string, tools map[string]toolcall.Tool[Resp]) (Resp, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("agent.prompt_length", len(prompt)),
		attribute.Int("agent.tools", len(tools)),
	}
	if _, hooked := a.inner.(executor.Hooked); hooked && a.w.installed() {
		// The run entry point opens the span, under this name.
		return a.inner.Execute(context.WithValue(ctx, runKey{}, &runInfo{name: a.name, attrs: attrs}), prompt, tools)
	}
	return Around(ctx, a.w, spans.KindAgent, a.name, attrs, func(ctx context.Context) (Resp, error) {
		return a.inner.Execute(ctx, prompt, tools)
	})
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "agent"
	}
	return t.Name()
}
