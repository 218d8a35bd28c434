/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"

	"chainguard.dev/agentscope/agents/agenttrace"
	"go.opentelemetry.io/otel/attribute"
)

// AttributeEnricher enriches metric attributes with additional context.
// It receives the base attributes (model, tool) and returns the enriched set.
type AttributeEnricher func(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue

// RunEnricher adds the bounded labels of the agenttrace.RunContext carried by ctx.
func RunEnricher(ctx context.Context, baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	run := agenttrace.GetRunContext(ctx)
	if run == (agenttrace.RunContext{}) {
		return baseAttrs
	}
	return run.EnrichAttributes(baseAttrs)
}
