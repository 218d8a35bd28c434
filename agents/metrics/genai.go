/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the meter shared by every model adapter and the executor.
// The model name is a dimension on the recorded metrics.
const MeterName = "chainguard.ai.agents"

// GenAI provides OpenTelemetry metrics for model calls: token usage, tool calls
// and call latency. Instruments that fail to initialize degrade to no-ops.
type GenAI struct {
	promptTokens     metric.Int64Counter
	completionTokens metric.Int64Counter
	toolCalls        metric.Int64Counter
	callErrors       metric.Int64Counter
	callLatency      metric.Float64Histogram
	attrEnricher     AttributeEnricher
}

// NewGenAI creates a GenAI metrics instance on the named meter of the global
// meter provider.
func NewGenAI(meterName string) *GenAI {
	return NewGenAIWithProvider(otel.GetMeterProvider(), meterName)
}

// NewGenAIWithProvider creates a GenAI metrics instance on an explicit provider.
func NewGenAIWithProvider(mp metric.MeterProvider, meterName string) *GenAI {
	meter := mp.Meter(meterName, metric.WithInstrumentationVersion("1.1.0"))

	return &GenAI{
		promptTokens: counter(meter, meterName, "genai.token.prompt",
			"The number of prompt tokens used", "{tokens}"),
		completionTokens: counter(meter, meterName, "genai.token.completion",
			"The number of completion tokens used", "{tokens}"),
		toolCalls: counter(meter, meterName, "genai.tool.calls",
			"The number of tool calls made during execution", "{calls}"),
		callErrors: counter(meter, meterName, "genai.call.errors",
			"The number of model calls that returned an error", "{calls}"),
		callLatency: histogram(meter, meterName, "genai.call.duration",
			"The wall clock duration of model calls", "s"),
	}
}

func counter(meter metric.Meter, meterName, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		slog.Warn("Failed to create counter, metric will be disabled", "error", err, "meter", meterName, "metric", name)
		return noop.Int64Counter{}
	}
	return c
}

func histogram(meter metric.Meter, meterName, name, desc, unit string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		slog.Warn("Failed to create histogram, metric will be disabled", "error", err, "meter", meterName, "metric", name)
		return noop.Float64Histogram{}
	}
	return h
}

// SetAttributeEnricher sets the enricher called before recording each metric.
func (m *GenAI) SetAttributeEnricher(enricher AttributeEnricher) {
	m.attrEnricher = enricher
}

func (m *GenAI) attributes(ctx context.Context, base []attribute.KeyValue, extra []attribute.KeyValue) metric.MeasurementOption {
	if m.attrEnricher != nil {
		base = m.attrEnricher(ctx, base)
	}
	return metric.WithAttributes(append(base, extra...)...)
}

// RecordTokens records prompt and completion token usage for model.
func (m *GenAI) RecordTokens(ctx context.Context, model string, promptTokens, completionTokens int64, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{attribute.String("model", model)}, attrs)
	m.promptTokens.Add(ctx, promptTokens, opt)
	m.completionTokens.Add(ctx, completionTokens, opt)
}

// RecordToolCall records one tool invocation requested by model.
func (m *GenAI) RecordToolCall(ctx context.Context, model, toolName string, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.String("tool", toolName),
	}, attrs)
	m.toolCalls.Add(ctx, 1, opt)
}

// RecordCall records the latency of one model call, and counts it as an error when err is set.
func (m *GenAI) RecordCall(ctx context.Context, model string, elapsed time.Duration, err error, attrs ...attribute.KeyValue) {
	opt := m.attributes(ctx, []attribute.KeyValue{
		attribute.String("model", model),
		attribute.Bool("error", err != nil),
	}, attrs)
	m.callLatency.Record(ctx, elapsed.Seconds(), opt)
	if err != nil {
		m.callErrors.Add(ctx, 1, opt)
	}
}
