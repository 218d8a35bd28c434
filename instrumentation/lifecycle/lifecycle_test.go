/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chainguard.dev/agentscope/instrumentation/execctx"
	"chainguard.dev/agentscope/instrumentation/spans"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// collector records every ended span.
type collector struct {
	mu      sync.Mutex
	started int
	ended   map[spans.ID]spans.Record
}

func newCollector() *collector {
	return &collector{ended: map[spans.ID]spans.Record{}}
}

func (c *collector) OnStart(context.Context, spans.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.started++
}

func (c *collector) OnEnd(_ context.Context, r spans.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended[r.ID] = r
}

func (c *collector) get(t *testing.T, id spans.ID) spans.Record {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.ended[id]
	if !ok {
		t.Fatalf("span %s never ended", id)
	}
	return r
}

// clock is a manual time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLifecycle() (*Lifecycle, *collector, *clock) {
	c := newCollector()
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(WithProcessors(c), WithClock(clk.Now)), c, clk
}

func TestStartNests(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	session, _ := l.OpenSession(ctx, "s")

	agentCtx, agent := l.Start(ctx, spans.KindAgent, "Workflow")
	toolCtx, tool := l.Start(agentCtx, spans.KindTool, "Lookup")
	l.Finish(toolCtx, nil)
	llmCtx, llm := l.Start(agentCtx, spans.KindLLM, "gemini-pro")
	l.Finish(llmCtx, nil)
	l.Finish(agentCtx, nil)

	if got := c.get(t, agent).ParentID; got != session {
		t.Errorf("agent parent: got = %s, wanted session %s", got, session)
	}
	for _, id := range []spans.ID{tool, llm} {
		r := c.get(t, id)
		if r.ParentID != agent {
			t.Errorf("%s parent: got = %s, wanted agent %s", r.Name, r.ParentID, agent)
		}
		if r.TraceID != session {
			t.Errorf("%s trace: got = %s, wanted session %s", r.Name, r.TraceID, session)
		}
		if r.Status != spans.StatusOK {
			t.Errorf("%s status: got = %s, wanted ok", r.Name, r.Status)
		}
	}
	if got := l.Registry().Len(); got != 0 {
		t.Errorf("live execution contexts: got = %d, wanted = 0", got)
	}
}

func TestBeginEndOrphanSafety(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	cid := l.NewContext()

	a := l.Begin(ctx, cid, spans.KindAgent, "A")
	b := l.Begin(ctx, cid, spans.KindTool, "B")

	// Ending A skips B.
	l.End(ctx, cid, a, spans.StatusOK)

	if got := c.get(t, a).Status; got != spans.StatusOK {
		t.Errorf("A status: got = %s, wanted ok", got)
	}
	rb := c.get(t, b)
	if rb.Status != spans.StatusOrphanClosed {
		t.Errorf("B status: got = %s, wanted orphan-closed", rb.Status)
	}
	if rb.ParentID != a {
		t.Errorf("B parent: got = %s, wanted = %s", rb.ParentID, a)
	}
	if got := len(l.Open()); got != 0 {
		t.Errorf("open spans: got = %d, wanted = 0", got)
	}

	// Ending B again, or something unknown, is a no-op.
	l.End(ctx, cid, b, spans.StatusOK)
	l.End(ctx, cid, "unknown", spans.StatusOK)
	if got := c.get(t, b).Status; got != spans.StatusOrphanClosed {
		t.Errorf("B status after late end: got = %s, wanted orphan-closed", got)
	}
}

func TestBeginWithoutSession(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	cid := l.NewContext()

	root := l.Begin(ctx, cid, spans.KindAgent, "A")
	child := l.Begin(ctx, cid, spans.KindLLM, "m")
	l.End(ctx, cid, child, spans.StatusOK)
	l.End(ctx, cid, root, spans.StatusOK)

	r := c.get(t, root)
	if r.ParentID != "" || r.TraceID != root {
		t.Errorf("root: got = (parent %q, trace %s), wanted = (none, %s)", r.ParentID, r.TraceID, root)
	}
	if got := c.get(t, child).TraceID; got != root {
		t.Errorf("child trace: got = %s, wanted = %s", got, root)
	}
}

func TestEndForeignContext(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	cid := l.NewContext()
	a := l.Begin(ctx, cid, spans.KindAgent, "A")

	l.End(ctx, cid+100, a, spans.StatusOK)
	if got := c.get(t, a).Status; got != spans.StatusOK {
		t.Errorf("status: got = %s, wanted ok", got)
	}
}

func TestBeginZeroContext(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	session, _ := l.OpenSession(ctx, "s")

	a := l.Begin(ctx, 0, spans.KindAgent, "A")
	l.End(ctx, 0, a, spans.StatusOK)

	r := c.get(t, a)
	if r.Status != spans.StatusOK {
		t.Errorf("A status: got = %s, wanted ok", r.Status)
	}
	if r.ParentID != session {
		t.Errorf("A parent: got = %s, wanted session %s", r.ParentID, session)
	}
	if got := l.Session(); got != session {
		t.Errorf("Session(): got = %q, wanted the session %s to stay open", got, session)
	}
	if _, ok := l.Lookup(session); !ok {
		t.Error("session closed by ending a span begun on context zero")
	}
}

func TestReapZeroContextSpan(t *testing.T) {
	l, c, clk := newTestLifecycle()
	ctx := context.Background()

	a := l.Begin(ctx, 0, spans.KindAgent, "abandoned")
	clk.Advance(time.Hour)

	if n := l.Reap(ctx, time.Minute); n != 1 {
		t.Errorf("Reap(): got = %d, wanted = 1", n)
	}
	if got := c.get(t, a).Status; got != spans.StatusOrphanClosed {
		t.Errorf("status: got = %s, wanted orphan-closed", got)
	}
}

func TestBeginOnStartContext(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	session, _ := l.OpenSession(ctx, "s")

	agentCtx, agent := l.Start(ctx, spans.KindAgent, "A")
	scope, _ := execctx.ScopeFrom(agentCtx)
	manual := l.Begin(ctx, scope.Context, spans.KindTool, "manual")

	l.Finish(agentCtx, nil)
	if got := c.get(t, agent).Status; got != spans.StatusOK {
		t.Errorf("agent status: got = %s, wanted ok", got)
	}
	r, ok := l.Lookup(manual)
	if !ok {
		t.Fatal("manual span closed along with an unrelated Start span")
	}
	if r.ParentID != session {
		t.Errorf("manual parent: got = %s, wanted session %s", r.ParentID, session)
	}
}

func TestStartFaultOpensNothing(t *testing.T) {
	l, _, _ := newTestLifecycle()
	ctx := context.Background()
	parentCtx, parent := l.Start(ctx, spans.KindAgent, "A")

	registry := l.registry
	l.registry = nil
	out, id := l.Start(parentCtx, spans.KindTool, "t")
	l.registry = registry

	if id != "" {
		t.Errorf("Start() id: got = %q, wanted empty after a fault", id)
	}
	if out != parentCtx {
		t.Error("Start() context: got a new context, wanted the caller's after a fault")
	}
	if _, ok := l.Lookup(parent); !ok {
		t.Error("parent span closed by a faulted Start")
	}
	open := l.Open()
	if len(open) != 1 || open[0].ID != parent {
		t.Errorf("open spans: got = %d, wanted only the parent", len(open))
	}
}

func TestFinishWithError(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx, id := l.Start(context.Background(), spans.KindTool, "t")
	l.Finish(ctx, errors.New("boom"))

	r := c.get(t, id)
	if r.Status != spans.StatusError || r.Error != "boom" {
		t.Errorf("record: got = (%s, %q), wanted = (error, boom)", r.Status, r.Error)
	}
}

func TestAttributes(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx, id := l.Start(context.Background(), spans.KindLLM, "m1")

	if !l.SetAttributes(ctx, attribute.String("model", "m1")) {
		t.Error("request write rejected")
	}
	if !l.SetAttributes(ctx, attribute.Int("tokens", 42)) {
		t.Error("response write rejected")
	}
	l.Finish(ctx, nil)

	if l.SetAttributes(ctx, attribute.Bool("late", true)) {
		t.Error("late write accepted")
	}
	if l.SetAttributes(context.Background(), attribute.Bool("orphan", true)) {
		t.Error("write with no active span accepted")
	}

	attrs := c.get(t, id).Attributes
	if attrs["model"] != "m1" || attrs["tokens"] != int64(42) {
		t.Errorf("attributes: got = %v, wanted model=m1 tokens=42", attrs)
	}
	if _, ok := attrs["late"]; ok {
		t.Error("late attribute present")
	}
}

func TestSessionIsIdempotent(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()

	first, opened := l.OpenSession(ctx, "s")
	if !opened {
		t.Fatal("first OpenSession did not open")
	}
	second, opened := l.OpenSession(ctx, "s")
	if opened || second != first {
		t.Errorf("second OpenSession: got = (%s, %v), wanted = (%s, false)", second, opened, first)
	}

	// A span left open is orphan-closed with the session.
	_, dangling := l.Start(ctx, spans.KindAgent, "A")
	l.CloseSession(ctx, spans.StatusOK)

	if got := c.get(t, first).Status; got != spans.StatusOK {
		t.Errorf("session status: got = %s, wanted ok", got)
	}
	if got := c.get(t, dangling).Status; got != spans.StatusOrphanClosed {
		t.Errorf("dangling status: got = %s, wanted orphan-closed", got)
	}
	if l.Session() != "" {
		t.Errorf("Session() after close: got = %s, wanted none", l.Session())
	}
	if _, opened := l.OpenSession(ctx, "s"); !opened {
		t.Error("OpenSession after close did not open")
	}
}

func TestReap(t *testing.T) {
	l, c, clk := newTestLifecycle()
	ctx := context.Background()
	session, _ := l.OpenSession(ctx, "s")
	_, old := l.Start(ctx, spans.KindAgent, "abandoned")

	clk.Advance(time.Hour)
	freshCtx, fresh := l.Start(ctx, spans.KindAgent, "fresh")

	if n := l.Reap(ctx, 10*time.Minute); n != 1 {
		t.Errorf("Reap(): got = %d, wanted = 1", n)
	}
	if got := c.get(t, old).Status; got != spans.StatusOrphanClosed {
		t.Errorf("abandoned status: got = %s, wanted orphan-closed", got)
	}
	if _, ok := l.Lookup(fresh); !ok {
		t.Error("fresh span was reaped")
	}
	if _, ok := l.Lookup(session); !ok {
		t.Error("session was reaped")
	}
	l.Finish(freshCtx, nil)
	if got := c.get(t, fresh).Status; got != spans.StatusOK {
		t.Errorf("fresh status: got = %s, wanted ok", got)
	}
}

func TestRunReaperStops(t *testing.T) {
	l, _, _ := newTestLifecycle()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.RunReaper(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunReaper did not stop after cancel")
	}
}

func TestProcessorPanicIsContained(t *testing.T) {
	l, c, _ := newTestLifecycle()
	l.AddProcessors(ProcessorFuncs{End: func(context.Context, spans.Record) {
		panic("processor bug")
	}})

	ctx, id := l.Start(context.Background(), spans.KindTool, "t")
	l.Finish(ctx, nil)

	if got := c.get(t, id).Status; got != spans.StatusOK {
		t.Errorf("status: got = %s, wanted ok", got)
	}
}

func TestNonTerminalEndIgnored(t *testing.T) {
	l, _, _ := newTestLifecycle()
	ctx := context.Background()
	cid := l.NewContext()
	a := l.Begin(ctx, cid, spans.KindAgent, "A")
	l.End(ctx, cid, a, spans.StatusOpen)
	if _, ok := l.Lookup(a); !ok {
		t.Error("span closed by a non-terminal end")
	}
}

func TestConcurrentSubAgentsShareParent(t *testing.T) {
	l, c, _ := newTestLifecycle()
	ctx := context.Background()
	l.OpenSession(ctx, "s")
	agentCtx, agent := l.Start(ctx, spans.KindAgent, "parent")

	const workers = 8
	ids := make([]spans.ID, workers)
	var g errgroup.Group
	for i := range workers {
		g.Go(func() error {
			subCtx, sub := l.Start(agentCtx, spans.KindAgent, "sub")
			ids[i] = sub
			llmCtx, _ := l.Start(subCtx, spans.KindLLM, "m")
			l.Finish(llmCtx, nil)
			l.Finish(subCtx, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	l.Finish(agentCtx, nil)

	for _, id := range ids {
		r := c.get(t, id)
		if r.ParentID != agent {
			t.Errorf("sub-agent parent: got = %s, wanted = %s", r.ParentID, agent)
		}
		if r.Status != spans.StatusOK {
			t.Errorf("sub-agent status: got = %s, wanted ok", r.Status)
		}
	}
	if got := len(c.ended); got != 2*workers+1 {
		t.Errorf("ended spans: got = %d, wanted = %d", got, 2*workers+1)
	}
	if got := l.Registry().Len(); got != 0 {
		t.Errorf("live execution contexts: got = %d, wanted = 0", got)
	}
}

type closer struct{ err error }

func (closer) OnStart(context.Context, spans.Record) {}
func (closer) OnEnd(context.Context, spans.Record)   {}
func (c closer) Shutdown(context.Context) error      { return c.err }

func TestShutdown(t *testing.T) {
	wantErr := errors.New("flush failed")
	l := New(WithProcessors(closer{}, closer{err: wantErr}, ProcessorFuncs{}))
	if err := l.Shutdown(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("Shutdown(): got = %v, wanted wrapping %v", err, wantErr)
	}
	if got := len(l.processors); got != 0 {
		t.Errorf("processors after Shutdown: got = %d, wanted = 0", got)
	}
}

func TestReset(t *testing.T) {
	l, _, _ := newTestLifecycle()
	ctx := context.Background()
	l.OpenSession(ctx, "s")
	l.Start(ctx, spans.KindAgent, "A")
	l.Reset()
	if l.Session() != "" || len(l.Open()) != 0 || l.Registry().Len() != 0 {
		t.Error("Reset left state behind")
	}
}
