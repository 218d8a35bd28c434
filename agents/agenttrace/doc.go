/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace provides the agent runtime's own tracing.

# Overview

  - RunContext: run-level metadata (PR, path, commit, turn) for trace enrichment
  - Trace[T]: complete agent interaction from prompt to result
  - ToolCall[T]: individual tool invocation within a trace
  - Tracer[T]: interface for creating and recording traces

# Bindings

The runtime never holds on to a tracer. Every span is started through OTelTracer(),
which resolves the tracer provider registered under TracerProviderKey in the
hooks registry, falling back to the global OpenTelemetry provider.

Fields extracted from model and tool exchanges (model name, token usage, tool
name and parameters) are not written onto spans directly. They go through the
FieldRecorder bound under LLMFieldsKey and ToolFieldsKey; the default recorder
writes them onto the runtime span. Code that wants the fields elsewhere swaps
the recorder.

# Usage

	tracer := agenttrace.ByCode[string](func(trace *agenttrace.Trace[string]) {
		log.Printf("Trace completed: %s", trace.ID)
	})
	ctx = agenttrace.WithTracer[string](ctx, tracer)

	trace := agenttrace.StartTrace[string](ctx, "Analyze the security report")
	toolCall := trace.StartToolCall(ctx, "tc1", "file-reader", map[string]any{
		"path": "/var/logs/security.log",
	})
	toolCall.Complete("File content here", nil)
	trace.Complete("Analysis complete", nil)
*/
package agenttrace
