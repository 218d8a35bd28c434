/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"

	"chainguard.dev/agentscope/agents/hooks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

const (
	// InstrumentationName is the scope name of every span the runtime starts.
	InstrumentationName = "chainguard.ai.agents.agenttrace"
	// InstrumentationVersion is the version of the runtime's tracing surface.
	// It is also the version of the bindings below.
	InstrumentationVersion = "1.1.0"
)

// Well-known lookup keys for the runtime's telemetry bindings.
const (
	TracerProviderKey = "agenttrace.tracer_provider"
	LLMFieldsKey      = "agenttrace.llm_fields"
	ToolFieldsKey     = "agenttrace.tool_fields"
)

// FieldRecorder receives telemetry fields extracted from a model or tool exchange,
// together with the runtime span they belong to.
type FieldRecorder func(ctx context.Context, span oteltrace.Span, fields ...attribute.KeyValue)

// SpanRecorder is the default FieldRecorder: it writes the fields onto the runtime span.
func SpanRecorder(_ context.Context, span oteltrace.Span, fields ...attribute.KeyValue) {
	if span == nil {
		return
	}
	span.SetAttributes(fields...)
}

var (
	providerBinding = hooks.Register(TracerProviderKey, "v"+InstrumentationVersion,
		func() oteltrace.TracerProvider { return otel.GetTracerProvider() })

	llmFieldsBinding = hooks.Register(LLMFieldsKey, "v"+InstrumentationVersion,
		func() FieldRecorder { return SpanRecorder })

	toolFieldsBinding = hooks.Register(ToolFieldsKey, "v"+InstrumentationVersion,
		func() FieldRecorder { return SpanRecorder })
)

// OTelTracer returns the tracer the runtime starts its spans with.
// It is resolved through the tracer provider binding on every call so that a
// substituted provider takes effect immediately.
func OTelTracer() oteltrace.Tracer {
	return providerBinding.Load().Tracer(InstrumentationName,
		oteltrace.WithInstrumentationVersion(InstrumentationVersion))
}

// LLMRequest describes the request side of a model call.
type LLMRequest struct {
	Provider    string
	Model       string
	MaxTokens   int64
	Temperature float64
	Messages    int
	Tools       int
}

// LLMResponse describes the response side of a model call.
type LLMResponse struct {
	Model        string
	StopReason   string
	InputTokens  int64
	OutputTokens int64
	ToolCalls    int
}

// StartLLMCall starts the runtime span for a single model call.
// The returned function ends it, recording err when non-nil.
func StartLLMCall(ctx context.Context, model string) (context.Context, func(error)) {
	ctx, span := OTelTracer().Start(ctx, "agent.llm_call",
		oteltrace.WithAttributes(attribute.String("gen_ai.request.model", model)))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// RecordLLMRequest extracts the request fields of a model call and hands them to
// the bound LLM field recorder.
func RecordLLMRequest(ctx context.Context, req LLMRequest) {
	fields := []attribute.KeyValue{
		attribute.String("gen_ai.request.model", req.Model),
		attribute.Int("gen_ai.request.messages", req.Messages),
		attribute.Int("gen_ai.request.tools", req.Tools),
	}
	if req.Provider != "" {
		fields = append(fields, attribute.String("gen_ai.system", req.Provider))
	}
	if req.MaxTokens > 0 {
		fields = append(fields, attribute.Int64("gen_ai.request.max_tokens", req.MaxTokens))
	}
	fields = append(fields, attribute.Float64("gen_ai.request.temperature", req.Temperature))

	llmFieldsBinding.Load()(ctx, oteltrace.SpanFromContext(ctx), fields...)
}

// RecordLLMResponse extracts the response fields of a model call and hands them to
// the bound LLM field recorder.
func RecordLLMResponse(ctx context.Context, resp LLMResponse) {
	fields := []attribute.KeyValue{
		attribute.Int64("gen_ai.usage.input_tokens", resp.InputTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.OutputTokens),
		attribute.Int64("gen_ai.usage.total_tokens", resp.InputTokens+resp.OutputTokens),
		attribute.Int("gen_ai.response.tool_calls", resp.ToolCalls),
	}
	if resp.Model != "" {
		fields = append(fields, attribute.String("gen_ai.response.model", resp.Model))
	}
	if resp.StopReason != "" {
		fields = append(fields, attribute.String("gen_ai.response.finish_reason", resp.StopReason))
	}

	llmFieldsBinding.Load()(ctx, oteltrace.SpanFromContext(ctx), fields...)
}

// RecordToolFields hands tool-call fields for span to the bound tool field recorder.
func RecordToolFields(ctx context.Context, span oteltrace.Span, fields ...attribute.KeyValue) {
	toolFieldsBinding.Load()(ctx, span, fields...)
}
