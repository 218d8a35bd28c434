/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudemodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/metrics"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/model/retry"
	"chainguard.dev/agentscope/agents/toolcall"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/vertex"
)

// Model is a model.Model backed by the Anthropic Messages API.
type Model struct {
	client         anthropic.Client
	name           string
	maxTokens      int64
	thinkingBudget *int64 // nil = disabled
	retryConfig    retry.Config
	metrics        *metrics.GenAI
}

var _ model.Model = (*Model)(nil)

// New creates a Model using client.
func New(client anthropic.Client, opts ...Option) (*Model, error) {
	m := &Model{
		client:      client,
		name:        "claude-sonnet-4@20250514",
		maxTokens:   8192,
		retryConfig: retry.DefaultConfig(),
		metrics:     metrics.NewGenAI(metrics.MeterName),
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	return m, nil
}

// NewVertex creates a Model that reaches Claude through Vertex AI with Google
// application default credentials.
func NewVertex(ctx context.Context, region, projectID string, opts ...Option) (*Model, error) {
	client := anthropic.NewClient(vertex.WithGoogleAuth(ctx, region, projectID))
	return New(client, opts...)
}

// Name implements model.Model.
func (m *Model) Name() string { return m.name }

// Generate implements model.Model.
func (m *Model) Generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	ctx, end := agenttrace.StartLLMCall(ctx, m.name)
	resp, err := m.generate(ctx, req)
	end(err)
	return resp, err
}

func (m *Model) generate(ctx context.Context, req *model.Request) (*model.Response, error) {
	params, err := m.params(req)
	if err != nil {
		return nil, err
	}

	agenttrace.RecordLLMRequest(ctx, agenttrace.LLMRequest{
		Provider:    "anthropic",
		Model:       m.name,
		MaxTokens:   params.MaxTokens,
		Temperature: params.Temperature.Value,
		Messages:    len(params.Messages),
		Tools:       len(params.Tools),
	})

	start := time.Now()
	msg, err := retry.Do(ctx, m.retryConfig, "claude_messages", isRetryable, func() (*anthropic.Message, error) {
		return m.client.Messages.New(ctx, params)
	})
	m.metrics.RecordCall(ctx, m.name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("claude messages: %w", err)
	}

	resp, err := fromMessage(msg)
	if err != nil {
		return nil, err
	}

	agenttrace.RecordLLMResponse(ctx, agenttrace.LLMResponse{
		Model:        string(msg.Model),
		StopReason:   resp.StopReason,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		ToolCalls:    len(resp.ToolCalls),
	})
	m.metrics.RecordTokens(ctx, m.name, resp.Usage.InputTokens, resp.Usage.OutputTokens)

	if resp.Text == "" && len(resp.ToolCalls) == 0 {
		return resp, model.ErrNoContent
	}
	return resp, nil
}

func (m *Model) params(req *model.Request) (anthropic.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = m.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(m.name),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Tools:       toolParams(req.Tools),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if m.thinkingBudget != nil {
		params.Temperature = anthropic.Float(1.0)
		params.Thinking = anthropic.ThinkingConfigParamUnion{
			OfEnabled: &anthropic.ThinkingConfigEnabledParam{
				BudgetTokens: *m.thinkingBudget,
			},
		}
	}

	for _, msg := range req.Messages {
		p, err := messageParam(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, p)
	}
	return params, nil
}

func toolParams(defs []toolcall.Definition) []anthropic.ToolUnionParam {
	tools := make([]anthropic.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        def.Name,
				Description: anthropic.String(def.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: def.JSONSchema()["properties"],
					Required:   def.Required(),
				},
			},
		})
	}
	return tools
}

func messageParam(msg model.Message) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if msg.Text != "" {
		blocks = append(blocks, anthropic.NewTextBlock(msg.Text))
	}
	for _, call := range msg.ToolCalls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Args,
			},
		})
	}
	for _, res := range msg.ToolResults {
		body, err := json.Marshal(res.Content)
		if err != nil {
			return anthropic.MessageParam{}, fmt.Errorf("failed to marshal tool result: %w", err)
		}
		_, failed := toolcall.Failed(res.Content)
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolResult: &anthropic.ToolResultBlockParam{
				ToolUseID: res.CallID,
				IsError:   anthropic.Bool(failed),
				Content: []anthropic.ToolResultBlockParamContentUnion{{
					OfText: &anthropic.TextBlockParam{Text: string(body)},
				}},
			},
		})
	}

	role := anthropic.MessageParamRoleUser
	if msg.Role == model.RoleAssistant {
		role = anthropic.MessageParamRoleAssistant
	}
	return anthropic.MessageParam{Role: role, Content: blocks}, nil
}

func fromMessage(msg *anthropic.Message) (*model.Response, error) {
	resp := &model.Response{
		StopReason: string(msg.StopReason),
		Usage: model.Usage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, content := range msg.Content {
		switch content.Type {
		case "text":
			text.WriteString(content.Text)
		case "tool_use":
			args := map[string]any{}
			if len(content.Input) > 0 {
				if err := json.Unmarshal(content.Input, &args); err != nil {
					return nil, fmt.Errorf("decoding arguments of tool %s: %w", content.Name, err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{
				ID:   content.ID,
				Name: content.Name,
				Args: args,
			})
		case "thinking", "redacted_thinking":
			resp.Thinking = append(resp.Thinking, content.Thinking)
		}
	}
	resp.Text = text.String()
	return resp, nil
}

// isRetryable reports rate limit, overloaded and transient server errors.
var isRetryable = retry.StatusCodes(func(err error) (int, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}, 429, 503, 504, 529)
