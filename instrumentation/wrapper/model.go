/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"context"

	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/instrumentation/spans"
	"go.opentelemetry.io/otel/attribute"
)

type llm struct {
	w     *Wrapper
	inner model.Model
}

// Model decorates a model so each Generate runs inside an llm span named
// after the model.
func Model(w *Wrapper, inner model.Model) model.Model {
	return &llm{w: w, inner: inner}
}

func (m *llm) Name() string { return m.inner.Name() }

func (m *llm) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	var attrs []attribute.KeyValue
	if req != nil {
		attrs = append(attrs,
			attribute.Int("llm.messages", len(req.Messages)),
			attribute.Int("llm.tools", len(req.Tools)))
	}
	return Around(ctx, m.w, spans.KindLLM, m.inner.Name(), attrs, func(ctx context.Context) (*model.Response, error) {
		return m.inner.Generate(ctx, req)
	})
}
