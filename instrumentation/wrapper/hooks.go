/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package wrapper

import (
	"context"
	"errors"

	"chainguard.dev/agentscope/agents/executor"
	"chainguard.dev/agentscope/agents/hooks"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/toolcall"
	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/mod/semver"
)

// entryPoints holds what Install replaced in each executor binding.
type entryPoints struct {
	run     restorer
	model   restorer
	tool    restorer
	swapped int
}

type restorer func()

// swap replaces the binding under key with v if it has type *hooks.Binding[T]
// and a supported version. It returns how to undo the swap, or nil.
func swap[T any](ctx context.Context, key string, v T) restorer {
	log := clog.FromContext(ctx).With("key", key)
	got, ok := hooks.Lookup(key)
	if !ok {
		log.Warn("Entry point binding not found, leaving it undecorated")
		return nil
	}
	b, ok := got.(*hooks.Binding[T])
	if !ok {
		log.Warnf("Entry point binding has unexpected shape %T, leaving it undecorated", got)
		return nil
	}
	if version := b.Version(); semver.Major(version) != semver.Major("v"+executor.HooksVersion) {
		log.With("version", version).Warn("Unsupported entry point version, leaving it undecorated")
		return nil
	}
	prev, had := b.Swap(v)
	return func() { b.Restore(prev, had) }
}

// Install decorates the executor's entry points so that every agent run, model
// call and tool call made through executor.New opens a span, without the host
// decorating anything itself. It returns how many entry points it decorated.
func (w *Wrapper) Install(ctx context.Context) int {
	if !w.enabled() {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hooks != nil {
		return w.hooks.swapped
	}

	ep := &entryPoints{
		run:   swap(ctx, executor.AgentRunKey, executor.RunInterceptor(w.run)),
		model: swap(ctx, executor.ModelKey, executor.ModelDecorator(w.model)),
		tool:  swap(ctx, executor.ToolCallKey, executor.ToolInterceptor(w.toolCall)),
	}
	for _, r := range []restorer{ep.run, ep.model, ep.tool} {
		if r != nil {
			ep.swapped++
		}
	}
	w.hooks = ep
	clog.FromContext(ctx).With("entry_points", ep.swapped).Info("Executor entry points decorated")
	return ep.swapped
}

// Uninstall restores the entry points Install replaced.
func (w *Wrapper) Uninstall(ctx context.Context) {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hooks == nil {
		return
	}
	for _, r := range []restorer{w.hooks.run, w.hooks.model, w.hooks.tool} {
		if r != nil {
			r()
		}
	}
	w.hooks = nil
	clog.FromContext(ctx).Info("Executor entry points restored")
}

func (w *Wrapper) installed() bool {
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hooks != nil && w.hooks.run != nil
}

// runInfo is how a decorated agent hands its span name and attributes to the
// run entry point of the executor it wraps.
type runInfo struct {
	name  string
	attrs []attribute.KeyValue
}

type runKey struct{}

// toolKey marks the context of a tool call already inside its span.
type toolKey struct{}

func (w *Wrapper) run(ctx context.Context, name string, run func(context.Context) error) error {
	var attrs []attribute.KeyValue
	if info, ok := ctx.Value(runKey{}).(*runInfo); ok && info != nil {
		name, attrs = info.name, info.attrs
		ctx = context.WithValue(ctx, runKey{}, (*runInfo)(nil))
	}
	_, err := Around(ctx, w, spans.KindAgent, name, attrs, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, run(ctx)
	})
	return err
}

func (w *Wrapper) model(m model.Model) model.Model {
	if _, ok := m.(*llm); ok {
		return m
	}
	return Model(w, m)
}

func (w *Wrapper) toolCall(ctx context.Context, call toolcall.ToolCall, run func(context.Context) map[string]any) map[string]any {
	out, _ := around(ctx, w, spans.KindTool, call.Name, toolAttrs(call),
		func(ctx context.Context) (map[string]any, error) {
			return run(context.WithValue(ctx, toolKey{}, call.ID)), nil
		},
		toolFailure)
	return out
}

func toolFailure(res map[string]any, _ error) error {
	if msg, failed := toolcall.Failed(res); failed {
		return errors.New(msg)
	}
	return nil
}
