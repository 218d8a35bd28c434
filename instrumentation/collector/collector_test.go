/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package collector

import (
	"context"
	"sync"
	"testing"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/instrumentation/lifecycle"
	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/google/go-cmp/cmp"
)

type ended struct {
	mu      sync.Mutex
	records map[spans.ID]spans.Record
}

func (e *ended) get(t *testing.T, id spans.ID) spans.Record {
	t.Helper()
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.records[id]
	if !ok {
		t.Fatalf("span %s never ended", id)
	}
	return r
}

func setup(t *testing.T, opts ...Option) (*lifecycle.Lifecycle, *Collector, *ended) {
	t.Helper()
	e := &ended{records: map[spans.ID]spans.Record{}}
	lc := lifecycle.New(lifecycle.WithProcessors(lifecycle.ProcessorFuncs{
		End: func(_ context.Context, r spans.Record) {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.records[r.ID] = r
		},
	}))
	c := New(lc, opts...)
	t.Cleanup(func() { c.Uninstall(context.Background()) })
	return lc, c, e
}

func TestLLMFields(t *testing.T) {
	ctx := context.Background()
	lc, c, e := setup(t)
	if got := c.Install(ctx); got != 2 {
		t.Fatalf("Install(): got = %d, wanted = 2", got)
	}

	llmCtx, id := lc.Start(ctx, spans.KindLLM, "gemini-pro")
	agenttrace.RecordLLMRequest(llmCtx, agenttrace.LLMRequest{
		Provider: "google",
		Model:    "gemini-pro",
		Messages: 2,
	})
	agenttrace.RecordLLMResponse(llmCtx, agenttrace.LLMResponse{
		InputTokens:  12,
		OutputTokens: 30,
		StopReason:   "STOP",
	})
	lc.Finish(llmCtx, nil)

	attrs := e.get(t, id).Attributes
	want := map[string]any{
		"gen_ai.system":                 "google",
		"gen_ai.request.model":          "gemini-pro",
		"gen_ai.request.messages":       int64(2),
		"gen_ai.usage.total_tokens":     int64(42),
		"gen_ai.response.finish_reason": "STOP",
	}
	for k, v := range want {
		if diff := cmp.Diff(v, attrs[k]); diff != "" {
			t.Errorf("attribute %s: (-want, +got) = %s", k, diff)
		}
	}
}

func TestToolFields(t *testing.T) {
	ctx := context.Background()
	lc, c, e := setup(t)
	c.Install(ctx)

	trace := agenttrace.StartTrace[string](ctx, "look something up")
	toolCtx, id := lc.Start(ctx, spans.KindTool, "Lookup")
	call := trace.StartToolCall(toolCtx, "call_1", "Lookup", map[string]any{"query": "x"})
	call.Complete("found", nil)
	lc.Finish(toolCtx, nil)
	trace.Complete("done", nil)

	attrs := e.get(t, id).Attributes
	if got := attrs["tool.name"]; got != "Lookup" {
		t.Errorf("tool.name: got = %v, wanted = Lookup", got)
	}
	if got := attrs["tool.id"]; got != "call_1" {
		t.Errorf("tool.id: got = %v, wanted = call_1", got)
	}
	if _, ok := attrs["tool.duration_ms"]; !ok {
		t.Error("tool.duration_ms missing")
	}
}

func TestDiscardsWithoutOpenSpan(t *testing.T) {
	ctx := context.Background()
	lc, c, e := setup(t)
	c.Install(ctx)

	// No active span: nothing to write to, nothing to fail.
	agenttrace.RecordLLMRequest(ctx, agenttrace.LLMRequest{Model: "gemini-pro"})

	llmCtx, id := lc.Start(ctx, spans.KindLLM, "gemini-pro")
	lc.Finish(llmCtx, nil)
	agenttrace.RecordLLMResponse(llmCtx, agenttrace.LLMResponse{InputTokens: 1})

	if got := len(e.get(t, id).Attributes); got != 0 {
		t.Errorf("attributes on closed span: got = %d, wanted = 0", got)
	}
}

func TestUninstallRestores(t *testing.T) {
	ctx := context.Background()
	lc, c, _ := setup(t)
	c.Install(ctx)
	if got := c.Install(ctx); got != 2 {
		t.Errorf("repeated Install(): got = %d, wanted = 2", got)
	}
	c.Uninstall(ctx)
	if got := c.Installed(); got != 0 {
		t.Errorf("Installed() after Uninstall: got = %d, wanted = 0", got)
	}

	llmCtx, id := lc.Start(ctx, spans.KindLLM, "gemini-pro")
	agenttrace.RecordLLMRequest(llmCtx, agenttrace.LLMRequest{Model: "gemini-pro"})
	r, ok := lc.Lookup(id)
	if !ok {
		t.Fatal("span not open")
	}
	if got := len(r.Attributes); got != 0 {
		t.Errorf("attributes after Uninstall: got = %d, wanted = 0", got)
	}
	lc.Finish(llmCtx, nil)
}

func TestMissingKeysSkipped(t *testing.T) {
	ctx := context.Background()
	_, c, _ := setup(t, WithKeys("collector_test.missing", agenttrace.LLMFieldsKey))
	if got := c.Install(ctx); got != 1 {
		t.Errorf("Install(): got = %d, wanted = 1", got)
	}
}
