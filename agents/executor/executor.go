/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/metrics"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/toolcall"
	"github.com/chainguard-dev/clog"
)

// ErrMaxTurns is returned when the conversation does not finish within the turn limit.
var ErrMaxTurns = errors.New("conversation exceeded max turns")

// Interface is an agent: it turns a prompt into a Resp, calling tools along the way.
type Interface[Resp any] interface {
	Execute(ctx context.Context, prompt string, tools map[string]toolcall.Tool[Resp]) (Resp, error)
}

// Func adapts a plain function into an agent.
type Func[Resp any] func(ctx context.Context, prompt string, tools map[string]toolcall.Tool[Resp]) (Resp, error)

// Execute implements Interface.
func (f Func[Resp]) Execute(ctx context.Context, prompt string, tools map[string]toolcall.Tool[Resp]) (Resp, error) {
	return f(ctx, prompt, tools)
}

type executor[Resp any] struct {
	name        string
	model       model.Model
	system      string
	maxTurns    int
	temperature float64
	maxTokens   int64
	metrics     *metrics.GenAI
}

// New creates an agent that converses with m.
func New[Resp any](m model.Model, opts ...Option[Resp]) (Interface[Resp], error) {
	if m == nil {
		return nil, errors.New("model cannot be nil")
	}
	e := &executor[Resp]{
		name:        "agent",
		model:       m,
		maxTurns:    50,
		temperature: 0.1, // Default temperature for consistency
		metrics:     metrics.NewGenAI(metrics.MeterName),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return e, nil
}

// Execute implements Interface. The run, its model calls and its tool calls
// go through the entry point bindings.
func (e *executor[Resp]) Execute(ctx context.Context, prompt string, tools map[string]toolcall.Tool[Resp]) (Resp, error) {
	var resp Resp
	err := agentRunBinding.Load()(ctx, e.name, func(ctx context.Context) error {
		trace := agenttrace.StartTrace[Resp](ctx, prompt)
		var err error
		resp, err = e.converse(ctx, modelBinding.Load()(e.model), trace, prompt, tools)
		trace.Complete(resp, err)
		return err
	})
	return resp, err
}

func (e *executor[Resp]) converse(ctx context.Context, m model.Model, trace *agenttrace.Trace[Resp], prompt string, tools map[string]toolcall.Tool[Resp]) (Resp, error) {
	log := clog.FromContext(ctx).With("model", m.Name())

	defs := toolcall.Definitions(tools)
	slices.SortFunc(defs, func(a, b toolcall.Definition) int { return strings.Compare(a.Name, b.Name) })

	req := &model.Request{
		System:      e.system,
		Messages:    []model.Message{{Role: model.RoleUser, Text: prompt}},
		Tools:       defs,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	}

	// final is set by a tool handler to end the conversation.
	var final, zero Resp

	for turn := 1; turn <= e.maxTurns; turn++ {
		out, err := m.Generate(ctx, req)
		if err != nil {
			return zero, fmt.Errorf("turn %d: %w", turn, err)
		}
		trace.RecordTokenUsage(m.Name(), out.Usage.InputTokens, out.Usage.OutputTokens)
		for _, thinking := range out.Thinking {
			trace.AddReasoning(thinking)
		}

		if len(out.ToolCalls) == 0 {
			if out.Text == "" {
				return zero, model.ErrNoContent
			}
			resp, err := parse[Resp](out.Text)
			if err != nil {
				log.With("response", out.Text).With("error", err).Error("Failed to parse model response")
				return zero, fmt.Errorf("failed to parse model response: %w", err)
			}
			return resp, nil
		}

		req.Messages = append(req.Messages, model.Message{
			Role:      model.RoleAssistant,
			Text:      out.Text,
			ToolCalls: out.ToolCalls,
		})

		results := make([]model.ToolResult, 0, len(out.ToolCalls))
		for _, call := range out.ToolCalls {
			e.metrics.RecordToolCall(ctx, m.Name(), call.Name)

			var content map[string]any
			if tool, ok := tools[call.Name]; ok {
				log.With("tool", call.Name).With("id", call.ID).Debug("Executing tool call")
				content = toolCallBinding.Load()(ctx, call, func(ctx context.Context) map[string]any {
					return tool.Handler(ctx, call, trace, &final)
				})
			} else {
				log.With("tool", call.Name).Warn("Unknown tool requested by model")
				err := fmt.Errorf("unknown tool: %q", call.Name)
				trace.BadToolCall(ctx, call.ID, call.Name, call.Args, err)
				content = toolcall.Error("%v", err)
			}

			if !reflect.ValueOf(&final).Elem().IsZero() {
				log.Info("Tool set final result, exiting conversation loop")
				return final, nil
			}
			results = append(results, model.ToolResult{
				CallID:  call.ID,
				Name:    call.Name,
				Content: content,
			})
		}

		req.Messages = append(req.Messages, model.Message{
			Role:        model.RoleUser,
			ToolResults: results,
		})
	}

	return zero, fmt.Errorf("%w (%d)", ErrMaxTurns, e.maxTurns)
}
