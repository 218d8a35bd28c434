/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// ReasoningContent represents internal reasoning from an LLM
type ReasoningContent struct {
	Thinking string `json:"thinking"`
}

// ToolCall represents a single tool invocation within a trace
type ToolCall[T any] struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Params    map[string]any `json:"params"`
	Result    any            `json:"result"`
	Error     error          `json:"error,omitempty"`
	StartTime time.Time      `json:"start_time"`
	EndTime   time.Time      `json:"end_time"`
	trace     *Trace[T]
	mu        sync.Mutex
	ctx       context.Context // caller context, used for field extraction
	span      oteltrace.Span
}

// Trace represents a complete agent interaction from prompt to result
type Trace[T any] struct {
	ID           string             `json:"id"`
	InputPrompt  string             `json:"input_prompt"`
	Run          RunContext         `json:"run,omitempty"`
	ToolCalls    []*ToolCall[T]     `json:"tool_calls"`
	Reasoning    []ReasoningContent `json:"reasoning,omitempty"`
	Result       T                  `json:"result"`
	Error        error              `json:"error,omitempty"`
	StartTime    time.Time          `json:"start_time"`
	EndTime      time.Time          `json:"end_time"`
	InputTokens  int64              `json:"input_tokens"`
	OutputTokens int64              `json:"output_tokens"`
	Metadata     map[string]any     `json:"metadata,omitempty"`
	tracer       Tracer[T]
	mu           sync.Mutex
	ctx          context.Context
	span         oteltrace.Span
}

// newTraceWithTracer creates a new trace with the given tracer and prompt
func newTraceWithTracer[T any](ctx context.Context, tracer Tracer[T], prompt string) *Trace[T] {
	run := GetRunContext(ctx)

	opts := []oteltrace.SpanStartOption{
		oteltrace.WithAttributes(attribute.String("agent.prompt", prompt)),
	}
	if run.Key != "" {
		opts = append(opts, oteltrace.WithAttributes(attribute.String("run.key", run.Key)))
	}
	if run.Kind != "" {
		opts = append(opts, oteltrace.WithAttributes(attribute.String("run.kind", run.Kind)))
	}
	if run.CommitSHA != "" {
		opts = append(opts, oteltrace.WithAttributes(attribute.String("commit_sha", run.CommitSHA)))
	}

	ctx, span := OTelTracer().Start(ctx, "agent.execution", opts...)

	return &Trace[T]{
		ID:          generateTraceID(),
		InputPrompt: prompt,
		Run:         run,
		ToolCalls:   []*ToolCall[T]{},
		StartTime:   time.Now(),
		Metadata:    make(map[string]any),
		tracer:      tracer,
		ctx:         ctx,
		span:        span,
	}
}

// StartToolCall starts a new tool call and returns it.
// ctx is the context the tool is executing under; the runtime span is parented
// to the trace, the tool fields are extracted against ctx.
func (t *Trace[T]) StartToolCall(ctx context.Context, id, name string, params map[string]any) *ToolCall[T] {
	_, span := OTelTracer().Start(t.ctx, "agent.tool_call")

	fields := []attribute.KeyValue{
		attribute.String("tool.name", name),
		attribute.String("tool.id", id),
		attribute.Int("tool.params", len(params)),
	}
	for k, v := range params {
		fields = append(fields, paramAttribute(k, v))
	}
	RecordToolFields(ctx, span, fields...)

	return &ToolCall[T]{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: time.Now(),
		trace:     t,
		ctx:       ctx,
		span:      span,
	}
}

// RecordTokenUsage adds the token usage of one model call to the trace totals
// and mirrors the totals on the runtime span.
func (t *Trace[T]) RecordTokenUsage(model string, inputTokens, outputTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.InputTokens += inputTokens
	t.OutputTokens += outputTokens

	if t.span != nil {
		t.span.SetAttributes(
			attribute.String("model", model),
			attribute.Int64("tokens.input", t.InputTokens),
			attribute.Int64("tokens.output", t.OutputTokens),
			attribute.Int64("tokens.total", t.InputTokens+t.OutputTokens),
		)
	}
}

// BadToolCall records a tool call that failed due to bad arguments or unknown tool
func (t *Trace[T]) BadToolCall(ctx context.Context, id, name string, params map[string]any, err error) {
	_, span := OTelTracer().Start(t.ctx, "agent.tool_call")
	RecordToolFields(ctx, span,
		attribute.String("tool.name", name),
		attribute.String("tool.id", id),
		attribute.String("tool.error", err.Error()),
	)
	span.SetStatus(codes.Error, err.Error())
	span.End()

	now := time.Now()
	tc := &ToolCall[T]{
		ID:        id,
		Name:      name,
		Params:    params,
		StartTime: now,
		EndTime:   now,
		Error:     err,
		trace:     t,
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.ToolCalls = append(t.ToolCalls, tc)
}

// Complete marks the tool call as complete and adds it to the parent trace
func (tc *ToolCall[T]) Complete(result any, err error) {
	tc.mu.Lock()
	tc.Result = result
	tc.Error = err
	tc.EndTime = time.Now()
	trace := tc.trace
	span := tc.span
	ctx := tc.ctx
	duration := tc.EndTime.Sub(tc.StartTime)
	tc.mu.Unlock()

	if span != nil {
		fields := []attribute.KeyValue{
			attribute.Int64("tool.duration_ms", duration.Milliseconds()),
		}
		if err != nil {
			fields = append(fields, attribute.String("tool.error", err.Error()))
		}
		RecordToolFields(ctx, span, fields...)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	trace.mu.Lock()
	defer trace.mu.Unlock()
	trace.ToolCalls = append(trace.ToolCalls, tc)
}

// Duration returns the duration of the tool call
func (tc *ToolCall[T]) Duration() time.Duration {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.EndTime.IsZero() {
		return time.Since(tc.StartTime)
	}
	return tc.EndTime.Sub(tc.StartTime)
}

// AddReasoning appends a reasoning block to the trace.
func (t *Trace[T]) AddReasoning(thinking string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Reasoning = append(t.Reasoning, ReasoningContent{Thinking: thinking})
}

// Complete marks the trace as complete with the given result and automatically records it
func (t *Trace[T]) Complete(result T, err error) {
	t.mu.Lock()
	t.Result = result
	t.Error = err
	t.EndTime = time.Now()
	tracer := t.tracer
	span := t.span
	t.mu.Unlock()

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}

	tracer.RecordTrace(t)
}

// Duration returns the total duration of the trace
func (t *Trace[T]) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.EndTime.IsZero() {
		return time.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}

// String returns a structured representation of the trace
func (t *Trace[T]) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var sb strings.Builder

	var duration time.Duration
	if t.EndTime.IsZero() {
		duration = time.Since(t.StartTime)
	} else {
		duration = t.EndTime.Sub(t.StartTime)
	}

	fmt.Fprintf(&sb, "=== Trace %s ===\n", t.ID)
	fmt.Fprintf(&sb, "Prompt: %q\n", truncate(t.InputPrompt, 200))
	fmt.Fprintf(&sb, "Duration: %v\n", duration)
	fmt.Fprintf(&sb, "Tokens: %d in / %d out\n", t.InputTokens, t.OutputTokens)

	if len(t.Reasoning) > 0 {
		fmt.Fprintf(&sb, "\nReasoning (%d blocks):\n", len(t.Reasoning))
		for i, r := range t.Reasoning {
			fmt.Fprintf(&sb, "  [%d] %s\n", i+1, truncate(r.Thinking, 200))
		}
	}

	if len(t.ToolCalls) == 0 {
		sb.WriteString("\nNo tool calls\n")
	} else {
		fmt.Fprintf(&sb, "\nTool Calls (%d):\n", len(t.ToolCalls))
		for i, tc := range t.ToolCalls {
			fmt.Fprintf(&sb, "  [%d] %s (ID: %s)\n", i+1, tc.Name, tc.ID)

			// Inline rather than tc.Duration() to avoid taking tc.mu under t.mu.
			var tcDuration time.Duration
			if tc.EndTime.IsZero() {
				tcDuration = time.Since(tc.StartTime)
			} else {
				tcDuration = tc.EndTime.Sub(tc.StartTime)
			}
			fmt.Fprintf(&sb, "      Duration: %v\n", tcDuration)

			if tc.Error != nil {
				fmt.Fprintf(&sb, "      Error: %v\n", tc.Error)
			} else if tc.Result != nil {
				fmt.Fprintf(&sb, "      Result: %s\n", truncate(fmt.Sprintf("%v", tc.Result), 200))
			}
		}
	}

	sb.WriteString("\nCompletion:\n")
	switch {
	case t.Error != nil:
		fmt.Fprintf(&sb, "  Error: %v\n", t.Error)
	case any(t.Result) != nil:
		fmt.Fprintf(&sb, "  Result: %s\n", truncate(fmt.Sprintf("%v", t.Result), 500))
	default:
		sb.WriteString("  Result: <nil>\n")
	}

	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// paramAttribute renders a tool parameter as a span attribute.
func paramAttribute(name string, v any) attribute.KeyValue {
	key := "tool.param." + name
	switch val := v.(type) {
	case string:
		return attribute.String(key, truncate(val, 256))
	case bool:
		return attribute.Bool(key, val)
	case int:
		return attribute.Int(key, val)
	case int64:
		return attribute.Int64(key, val)
	case float64:
		return attribute.Float64(key, val)
	default:
		return attribute.String(key, truncate(fmt.Sprintf("%v", val), 256))
	}
}

// generateTraceID generates a unique trace ID
func generateTraceID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102-150405.000000")
	}
	// Format: YYYYMMDD-HHMMSS-RRRRRRRR
	return fmt.Sprintf("%s-%s", time.Now().Format("20060102-150405"), hex.EncodeToString(b))
}
