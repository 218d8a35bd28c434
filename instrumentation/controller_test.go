/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package instrumentation

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/executor"
	"chainguard.dev/agentscope/agents/hooks"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/toolcall"
	"chainguard.dev/agentscope/instrumentation/export"
	"chainguard.dev/agentscope/instrumentation/spans"
	"chainguard.dev/agentscope/instrumentation/wrapper"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	oteltrace "go.opentelemetry.io/otel/trace"
)

func TestInitSessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := NewController()
	t.Cleanup(c.Reset)
	rec := export.NewRecorder()

	require.NoError(t, c.Init(ctx, "key", WithProcessors(rec)))
	first := c.Lifecycle().Session()
	require.NoError(t, c.Init(ctx, "key", WithProcessors(rec)))
	if got := c.Lifecycle().Session(); got != first {
		t.Errorf("session after second Init: got = %s, wanted = %s", got, first)
	}
	require.NoError(t, c.Shutdown(ctx))

	sessions := 0
	for _, r := range rec.Records() {
		if r.Kind == spans.KindSession {
			sessions++
			if r.Name != DefaultTraceName {
				t.Errorf("session name: got = %q, wanted = %q", r.Name, DefaultTraceName)
			}
		}
	}
	if sessions != 1 {
		t.Errorf("session spans: got = %d, wanted = 1", sessions)
	}
	if got := len(rec.Records()); got != 1 {
		t.Errorf("records: got = %d, wanted = 1", got)
	}
}

func TestInitAfterShutdownReattaches(t *testing.T) {
	ctx := context.Background()
	c := NewController()
	t.Cleanup(c.Reset)

	first, second := export.NewRecorder(), export.NewRecorder()
	require.NoError(t, c.Init(ctx, "", WithProcessors(first)))
	require.NoError(t, c.Shutdown(ctx))
	require.NoError(t, c.Init(ctx, "", WithProcessors(second)))
	require.NoError(t, c.Shutdown(ctx))

	if got := len(first.Records()); got != 1 {
		t.Errorf("first recorder: got = %d records, wanted = 1", got)
	}
	if got := len(second.Records()); got != 1 {
		t.Errorf("second recorder: got = %d records, wanted = 1", got)
	}
}

func TestInitDecoratesExecutor(t *testing.T) {
	ctx := context.Background()
	c := NewController()
	t.Cleanup(c.Reset)
	rec := export.NewRecorder()
	require.NoError(t, c.Init(ctx, "", WithProcessors(rec), WithTraceName("run")))

	turn := 0
	m := model.Func{
		ModelName: "gemini-pro",
		Fn: func(context.Context, *model.Request) (*model.Response, error) {
			turn++
			if turn == 1 {
				return &model.Response{ToolCalls: []toolcall.ToolCall{{ID: "c1", Name: "Lookup"}}}, nil
			}
			return &model.Response{Text: "42"}, nil
		},
	}
	exec, err := executor.New[string](m, executor.WithName[string]("Researcher"))
	require.NoError(t, err)
	got, err := exec.Execute(ctx, "what is the answer?", map[string]toolcall.Tool[string]{
		"Lookup": {
			Def: toolcall.Definition{Name: "Lookup"},
			Handler: func(context.Context, toolcall.ToolCall, *agenttrace.Trace[string], *string) map[string]any {
				return toolcall.Error("no such key")
			},
		},
	})
	require.NoError(t, err)
	if got != "42" {
		t.Errorf("Execute(): got = %q, wanted = 42", got)
	}
	require.NoError(t, c.Shutdown(ctx))

	traces := rec.Traces()
	require.Len(t, traces, 1)
	tr := traces[0]
	require.NoError(t, tr.Validate())

	var tree []string
	tr.Walk(func(r spans.Record, depth int) bool {
		tree = append(tree, fmt.Sprintf("%s%s:%s:%s", strings.Repeat("  ", depth), r.Kind, r.Name, r.Status))
		return true
	})
	want := []string{
		"session:run:ok",
		"  agent:Researcher:ok",
		"    llm:gemini-pro:ok",
		"    tool:Lookup:error",
		"    llm:gemini-pro:ok",
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("tree: (-want, +got) = %s", diff)
	}
}

func TestInitWithoutSession(t *testing.T) {
	ctx := context.Background()
	c := NewController()
	t.Cleanup(c.Reset)

	require.NoError(t, c.Init(ctx, "", WithAutoStartSession(false)))
	if got := c.Lifecycle().Session(); got != "" {
		t.Errorf("Session(): got = %s, wanted none", got)
	}
}

func TestInitRejectsBadOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{{
		name: "empty trace name",
		opts: []Option{WithTraceName("")},
	}, {
		name: "reaper without max age",
		opts: []Option{WithReaper(time.Second, 0)},
	}, {
		name: "negative reaper interval",
		opts: []Option{WithReaper(-time.Second, time.Minute)},
	}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController()
			t.Cleanup(c.Reset)
			if err := c.Init(context.Background(), "", tt.opts...); err == nil {
				t.Error("Init() = nil, wanted error")
			}
			if got := c.Lifecycle().Session(); got != "" {
				t.Errorf("Session(): got = %s, wanted none", got)
			}
		})
	}
}

// hostTracing points the runtime at a recording provider for the test.
func hostTracing(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	v, ok := hooks.Lookup(agenttrace.TracerProviderKey)
	require.True(t, ok)
	b := v.(*hooks.Binding[oteltrace.TracerProvider])

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev, had := b.Swap(tp)
	t.Cleanup(func() {
		b.Restore(prev, had)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestWorkflow(t *testing.T) {
	ctx := context.Background()
	native := hostTracing(t)

	Default().Reset()
	t.Cleanup(Default().Reset)
	rec := export.NewRecorder()
	require.NoError(t, Init(ctx, "key", WithProcessors(rec), WithTraceName("workflow-test")))

	w := Default().Wrapper()
	llm := wrapper.Model(w, model.Func{
		ModelName: "gemini-pro",
		Fn: func(ctx context.Context, req *model.Request) (*model.Response, error) {
			ctx, end := agenttrace.StartLLMCall(ctx, "gemini-pro")
			defer end(nil)
			agenttrace.RecordLLMRequest(ctx, agenttrace.LLMRequest{Model: "gemini-pro", Messages: len(req.Messages)})
			agenttrace.RecordLLMResponse(ctx, agenttrace.LLMResponse{InputTokens: 10, OutputTokens: 32})
			return &model.Response{Text: "42"}, nil
		},
	})
	tools := wrapper.Tools(w, map[string]toolcall.Tool[string]{
		"Lookup": {
			Def: toolcall.Definition{Name: "Lookup"},
			Handler: func(ctx context.Context, call toolcall.ToolCall, trace *agenttrace.Trace[string], _ *string) map[string]any {
				tc := trace.StartToolCall(ctx, call.ID, call.Name, call.Args)
				result := map[string]any{"value": "42"}
				tc.Complete(result, nil)
				return result
			},
		},
	})
	workflow := wrapper.Agent(w, "Workflow", executor.Func[string](
		func(ctx context.Context, prompt string, tools map[string]toolcall.Tool[string]) (string, error) {
			trace := agenttrace.StartTrace[string](ctx, prompt)
			tools["Lookup"].Handler(ctx, toolcall.ToolCall{ID: "c1", Name: "Lookup", Args: map[string]any{"key": "answer"}}, trace, nil)
			resp, err := llm.Generate(ctx, &model.Request{Messages: []model.Message{{Role: model.RoleUser, Text: prompt}}})
			if err != nil {
				trace.Complete("", err)
				return "", err
			}
			trace.Complete(resp.Text, nil)
			return resp.Text, nil
		}))

	got, err := workflow.Execute(ctx, "what is the answer?", tools)
	require.NoError(t, err)
	if got != "42" {
		t.Errorf("Execute(): got = %q, wanted = 42", got)
	}
	require.NoError(t, Shutdown(ctx))

	if n := len(native.Ended()); n != 0 {
		t.Errorf("native runtime spans: got = %d, wanted = 0", n)
	}

	traces := rec.Traces()
	require.Len(t, traces, 1)
	tr := traces[0]
	require.NoError(t, tr.Validate())

	var tree []string
	tr.Walk(func(r spans.Record, depth int) bool {
		tree = append(tree, fmt.Sprintf("%s%s:%s", strings.Repeat("  ", depth), r.Kind, r.Name))
		return true
	})
	want := []string{
		"session:workflow-test",
		"  agent:Workflow",
		"    tool:Lookup",
		"    llm:gemini-pro",
	}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("tree: (-want, +got) = %s", diff)
	}

	root, _ := tr.Root()
	agent := tr.Children(root.ID)[0]
	kids := tr.Children(agent.ID)
	tool, call := kids[0], kids[1]
	if tool.EndTime == nil || tool.EndTime.After(call.StartTime) {
		t.Errorf("tool end %v after llm start %v", tool.EndTime, call.StartTime)
	}
	if got := tool.Attributes["tool.name"]; got != "Lookup" {
		t.Errorf("tool.name: got = %v, wanted = Lookup", got)
	}
	if got := call.Attributes["gen_ai.usage.total_tokens"]; got != int64(42) {
		t.Errorf("gen_ai.usage.total_tokens: got = %v, wanted = 42", got)
	}
	if got := call.Attributes["gen_ai.request.model"]; got != "gemini-pro" {
		t.Errorf("gen_ai.request.model: got = %v, wanted = gemini-pro", got)
	}
}

func TestShutdownRestoresRuntimeTracing(t *testing.T) {
	ctx := context.Background()
	native := hostTracing(t)
	c := NewController()
	t.Cleanup(c.Reset)

	require.NoError(t, c.Init(ctx, ""))
	_, end := agenttrace.StartLLMCall(ctx, "m")
	end(nil)
	require.NoError(t, c.Shutdown(ctx))

	_, end = agenttrace.StartLLMCall(ctx, "m")
	end(nil)
	if n := len(native.Ended()); n != 1 {
		t.Errorf("native spans: got = %d, wanted = 1", n)
	}
}

func TestReaperFromOptions(t *testing.T) {
	ctx := context.Background()
	c := NewController()
	t.Cleanup(c.Reset)
	rec := export.NewRecorder()

	require.NoError(t, c.Init(ctx, "", WithProcessors(rec), WithReaper(5*time.Millisecond, time.Millisecond)))
	_, id := c.Lifecycle().Start(ctx, spans.KindTool, "Stuck")

	require.Eventually(t, func() bool {
		_, open := c.Lifecycle().Lookup(id)
		return !open
	}, 5*time.Second, 5*time.Millisecond)

	for _, r := range rec.Records() {
		if r.ID == id && r.Status != spans.StatusOrphanClosed {
			t.Errorf("reaped status: got = %s, wanted orphan-closed", r.Status)
		}
	}
	if c.Lifecycle().Session() == "" {
		t.Error("reaper closed the session")
	}
}

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("AGENTSCOPE_API_KEY", "from-env")
	t.Setenv("AGENTSCOPE_TRACE_NAME", "env-session")
	t.Setenv("AGENTSCOPE_AUTO_START_SESSION", "false")
	t.Setenv("AGENTSCOPE_REAP_INTERVAL", "1m")

	key, opts, err := OptionsFromEnv(context.Background())
	require.NoError(t, err)
	if key != "from-env" {
		t.Errorf("api key: got = %q, wanted = from-env", key)
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}
	want := config{
		traceName:    "env-session",
		autoStart:    false,
		reapInterval: time.Minute,
		reapAfter:    30 * time.Minute,
	}
	if diff := cmp.Diff(want, cfg, cmp.AllowUnexported(config{})); diff != "" {
		t.Errorf("options: (-want, +got) = %s", diff)
	}
}
