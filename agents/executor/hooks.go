/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"

	"chainguard.dev/agentscope/agents/hooks"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/toolcall"
)

// HooksVersion is the version of the entry point bindings below.
const HooksVersion = "1.0.0"

// Well-known lookup keys for the executor's entry points.
const (
	AgentRunKey = "executor.agent_run"
	ModelKey    = "executor.model"
	ToolCallKey = "executor.tool_call"
)

// RunInterceptor runs one agent execution. It must call run exactly once and
// return its error unchanged.
type RunInterceptor func(ctx context.Context, name string, run func(context.Context) error) error

// ModelDecorator is applied to the model at the start of every execution.
type ModelDecorator func(model.Model) model.Model

// ToolInterceptor runs one tool handler call. It must call run exactly once
// and return its result unchanged.
type ToolInterceptor func(ctx context.Context, call toolcall.ToolCall, run func(context.Context) map[string]any) map[string]any

var (
	agentRunBinding = hooks.Register(AgentRunKey, "v"+HooksVersion,
		func() RunInterceptor {
			return func(ctx context.Context, _ string, run func(context.Context) error) error { return run(ctx) }
		})

	modelBinding = hooks.Register(ModelKey, "v"+HooksVersion,
		func() ModelDecorator { return func(m model.Model) model.Model { return m } })

	toolCallBinding = hooks.Register(ToolCallKey, "v"+HooksVersion,
		func() ToolInterceptor {
			return func(ctx context.Context, _ toolcall.ToolCall, run func(context.Context) map[string]any) map[string]any {
				return run(ctx)
			}
		})
)

// Hooked is implemented by agents whose runs go through the entry point
// bindings above.
type Hooked interface {
	RunsThroughHooks()
}

// RunsThroughHooks implements Hooked.
func (e *executor[Resp]) RunsThroughHooks() {}
