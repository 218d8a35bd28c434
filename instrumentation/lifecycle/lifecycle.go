/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chainguard.dev/agentscope/instrumentation/execctx"
	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
)

type entry struct {
	span    *spans.Span
	ctx     execctx.ID
	session bool // the session sits on no stack
}

// Lifecycle creates, nests and closes spans.
type Lifecycle struct {
	registry   *execctx.Registry
	now        func() time.Time
	processors []Processor

	mu      sync.Mutex
	open    map[spans.ID]*entry
	session spans.ID
}

// New creates a Lifecycle.
func New(opts ...Option) *Lifecycle {
	l := &Lifecycle{
		now:  time.Now,
		open: map[spans.ID]*entry{},
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.registry == nil {
		l.registry = execctx.NewRegistry()
	}
	return l
}

// Registry returns the execution context registry.
func (l *Lifecycle) Registry() *execctx.Registry { return l.registry }

// AddProcessors registers more processors.
func (l *Lifecycle) AddProcessors(ps ...Processor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// Copy so that notify can iterate a snapshot without the lock.
	l.processors = append(l.processors[:len(l.processors):len(l.processors)], ps...)
}

// contain keeps instrumentation faults away from the host.
func contain(ctx context.Context, op string) {
	if v := recover(); v != nil {
		clog.FromContext(ctx).With("op", op).Warnf("Instrumentation fault contained: %v", v)
	}
}

// traceOf returns the trace a child of parent belongs to. Callers hold l.mu.
func (l *Lifecycle) traceOf(parent, fallback spans.ID) spans.ID {
	if e, ok := l.open[parent]; ok {
		return e.span.TraceID()
	}
	return fallback
}

// NewContext allocates an execution context for use with Begin and End. Its
// first span is parented to the session, if one is open. Ids passed to Begin
// should come from here.
func (l *Lifecycle) NewContext() execctx.ID {
	return l.registry.Open(l.Session())
}

// Begin opens a span on execution context cid, parented to the span at the top
// of its stack. A context seen for the first time starts under the session,
// except for session spans which have no parent. Zero, or an id that belongs to
// a context-driven Start, gets a fresh execution context instead; End finds the
// span there.
func (l *Lifecycle) Begin(ctx context.Context, cid execctx.ID, kind spans.Kind, name string, attrs ...attribute.KeyValue) (id spans.ID) {
	defer contain(ctx, "begin")

	sid := spans.NewID()
	span, got := func() (*spans.Span, execctx.ID) {
		l.mu.Lock()
		defer l.mu.Unlock()
		base := l.session
		if kind == spans.KindSession {
			base = ""
		}
		got, parent := l.registry.Push(cid, base, sid)
		span := spans.New(sid, l.traceOf(parent, parent), kind, name, parent, l.now(), attrs...)
		l.open[sid] = &entry{span: span, ctx: got}
		return span, got
	}()
	if got != cid {
		clog.FromContext(ctx).With("context", cid).With("assigned", got).
			Warn("Execution context was not allocated by NewContext, span opened on a fresh one")
	}

	l.notify(ctx, started, span.Record())
	return sid
}

// Start opens a span under the span active for ctx and returns a context
// carrying the new span as active.
//
// A ctx with no scope starts a new execution context under the session. A ctx
// whose execution context has moved on since it was derived (another goroutine
// opened a span on it) is forked into a new execution context under ctx's span.
func (l *Lifecycle) Start(ctx context.Context, kind spans.Kind, name string, attrs ...attribute.KeyValue) (out context.Context, id spans.ID) {
	// A contained fault leaves ctx and an empty id: no span was opened.
	out = ctx
	defer contain(ctx, "start")

	scope, scoped := execctx.ScopeFrom(ctx)
	sid := spans.NewID()

	span, cid := func() (*spans.Span, execctx.ID) {
		l.mu.Lock()
		defer l.mu.Unlock()
		base, trace := scope.Span, scope.Trace
		if !scoped {
			base, trace = l.session, l.session
		}
		cid, parent := l.registry.Enter(scope.Context, scope.Span, base, sid)
		span := spans.New(sid, l.traceOf(parent, trace), kind, name, parent, l.now(), attrs...)
		l.open[sid] = &entry{span: span, ctx: cid}
		return span, cid
	}()

	l.notify(ctx, started, span.Record())
	return execctx.WithScope(ctx, execctx.Scope{Context: cid, Span: sid, Trace: span.TraceID()}), sid
}

// Finish ends the span that Start made active in ctx: ok when err is nil,
// error otherwise.
func (l *Lifecycle) Finish(ctx context.Context, err error) {
	scope, ok := execctx.ScopeFrom(ctx)
	if !ok {
		clog.FromContext(ctx).Warn("Finish called on a context with no active span")
		return
	}
	status := spans.StatusOK
	if err != nil {
		status = spans.StatusError
	}
	l.end(ctx, scope.Context, scope.Span, status, err)
}

// End closes span sid with status. Spans opened above it in the same execution
// context are closed first, as orphan-closed. An unknown or already closed span
// is logged and ignored.
func (l *Lifecycle) End(ctx context.Context, cid execctx.ID, sid spans.ID, status spans.Status) {
	l.end(ctx, cid, sid, status, nil)
}

// EndWithError closes span sid with status error and records cause.
func (l *Lifecycle) EndWithError(ctx context.Context, cid execctx.ID, sid spans.ID, cause error) {
	l.end(ctx, cid, sid, spans.StatusError, cause)
}

type endResult int

const (
	endDone endResult = iota
	endUnknown
	endSession
)

func (l *Lifecycle) end(ctx context.Context, cid execctx.ID, sid spans.ID, status spans.Status, cause error) {
	defer contain(ctx, "end")
	log := clog.FromContext(ctx).With("span", sid)

	if !status.Terminal() {
		log.With("status", status).Warn("Ignoring end with a non-terminal status")
		return
	}

	now := l.now()
	var closed []spans.Record
	orphans := 0

	result := func() endResult {
		l.mu.Lock()
		defer l.mu.Unlock()

		e, ok := l.open[sid]
		switch {
		case !ok:
			return endUnknown
		case e.session:
			return endSession
		case e.ctx != cid:
			log.With("context", cid).With("owner", e.ctx).Warn("Span ended from a foreign execution context")
			cid = e.ctx
		}

		popped, ok := l.registry.Unwind(cid, sid)
		if !ok {
			// Open but off its stack: the reaper or a reset got there first.
			popped = []spans.ID{sid}
		}
		for _, p := range popped {
			pe, ok := l.open[p]
			if !ok {
				continue
			}
			delete(l.open, p)
			st, why := status, cause
			if p != sid {
				st, why = spans.StatusOrphanClosed, nil
				orphans++
			}
			if err := pe.span.Finish(st, now, why); err != nil {
				log.With("error", err).Warn("Span end rejected")
				continue
			}
			closed = append(closed, pe.span.Record())
		}
		return endDone
	}()

	switch result {
	case endUnknown:
		log.Warn("Ignoring end of a span that is not open")
		return
	case endSession:
		l.CloseSession(ctx, status)
		return
	}

	if orphans > 0 {
		log.With("orphans", orphans).Warn("Span ended out of order, closed inner spans as orphan-closed")
	}
	for _, r := range closed {
		l.notify(ctx, ended, r)
	}
}

// SetAttributes merges kvs into the span active for ctx.
func (l *Lifecycle) SetAttributes(ctx context.Context, kvs ...attribute.KeyValue) bool {
	scope, ok := execctx.ScopeFrom(ctx)
	if !ok {
		clog.FromContext(ctx).With("attributes", len(kvs)).Warn("Discarding attributes written with no active span")
		return false
	}
	return l.SetSpanAttributes(ctx, scope.Span, kvs...)
}

// SetSpanAttributes merges kvs into span sid, last write wins per key.
// Writes to a span that is not open are discarded with a warning.
func (l *Lifecycle) SetSpanAttributes(ctx context.Context, sid spans.ID, kvs ...attribute.KeyValue) (accepted bool) {
	defer contain(ctx, "set_attributes")

	l.mu.Lock()
	e, ok := l.open[sid]
	l.mu.Unlock()
	if !ok {
		clog.FromContext(ctx).With("span", sid).With("attributes", len(kvs)).
			Warn("Discarding attributes written to a span that is not open")
		return false
	}
	if err := e.span.SetAttributes(kvs...); err != nil {
		clog.FromContext(ctx).With("span", sid).With("error", err).Warn("Discarding late attributes")
		return false
	}
	return true
}

// OpenSession opens the root session span. While a session is open it returns
// that session and false.
func (l *Lifecycle) OpenSession(ctx context.Context, name string, attrs ...attribute.KeyValue) (spans.ID, bool) {
	span, existing := func() (*spans.Span, spans.ID) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.session != "" {
			return nil, l.session
		}
		id := spans.NewID()
		span := spans.New(id, id, spans.KindSession, name, "", l.now(), attrs...)
		l.open[id] = &entry{span: span, session: true}
		l.session = id
		return span, ""
	}()
	if span == nil {
		return existing, false
	}

	l.notify(ctx, started, span.Record())
	return span.ID(), true
}

// Session returns the open session span, if any.
func (l *Lifecycle) Session() spans.ID {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// CloseSession closes the session span with status. Spans of the session's
// trace that are still open are closed first, as orphan-closed.
func (l *Lifecycle) CloseSession(ctx context.Context, status spans.Status) {
	defer contain(ctx, "close_session")
	if !status.Terminal() {
		clog.FromContext(ctx).With("status", status).Warn("Ignoring session close with a non-terminal status")
		return
	}

	now := l.now()
	closed := func() []spans.Record {
		l.mu.Lock()
		defer l.mu.Unlock()

		sid := l.session
		session, ok := l.open[sid]
		if !ok {
			return nil
		}
		var closed []spans.Record
		for id, e := range l.open {
			if id == sid || e.span.TraceID() != sid {
				continue
			}
			l.registry.Remove(id)
			delete(l.open, id)
			if e.span.Finish(spans.StatusOrphanClosed, now, nil) == nil {
				closed = append(closed, e.span.Record())
			}
		}
		delete(l.open, sid)
		l.session = ""
		if session.span.Finish(status, now, nil) == nil {
			closed = append(closed, session.span.Record())
		}
		return closed
	}()

	if len(closed) > 1 {
		clog.FromContext(ctx).With("orphans", len(closed)-1).Warn("Session closed with open spans")
	}
	for _, r := range closed {
		l.notify(ctx, ended, r)
	}
}

// Lookup returns a snapshot of open span sid.
func (l *Lifecycle) Lookup(sid spans.ID) (spans.Record, bool) {
	l.mu.Lock()
	e, ok := l.open[sid]
	l.mu.Unlock()
	if !ok {
		return spans.Record{}, false
	}
	return e.span.Record(), true
}

// Open returns snapshots of every open span.
func (l *Lifecycle) Open() []spans.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]spans.Record, 0, len(l.open))
	for _, e := range l.open {
		out = append(out, e.span.Record())
	}
	return out
}

// Shutdown detaches every processor and shuts down those that hold resources.
func (l *Lifecycle) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	ps := l.processors
	l.processors = nil
	l.mu.Unlock()

	var errs []error
	for _, p := range ps {
		if s, ok := p.(Shutdowner); ok {
			if err := s.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("shutting down %T: %w", p, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Reset forgets every span, execution context and processor.
func (l *Lifecycle) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.open = map[spans.ID]*entry{}
	l.session = ""
	l.processors = nil
	l.registry.Reset()
}
