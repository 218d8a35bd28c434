/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaimodel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/metrics"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/model/retry"
	"chainguard.dev/agentscope/agents/toolcall"
	"github.com/openai/openai-go"
)

// Model is a model.Model backed by the Chat Completions API.
type Model struct {
	client      openai.Client
	name        string
	maxTokens   int64
	retryConfig retry.Config
	metrics     *metrics.GenAI
}

var _ model.Model = (*Model)(nil)

// New creates a Model using client.
func New(client openai.Client, opts ...Option) (*Model, error) {
	m := &Model{
		client:      client,
		name:        "gpt-4o",
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
		Provider:    "openai",
		Model:       m.name,
		MaxTokens:   params.MaxCompletionTokens.Value,
		Temperature: req.Temperature,
		Messages:    len(params.Messages),
		Tools:       len(params.Tools),
	})

	start := time.Now()
	completion, err := retry.Do(ctx, m.retryConfig, "chat_completion", isRetryable, func() (*openai.ChatCompletion, error) {
		return m.client.Chat.Completions.New(ctx, params)
	})
	m.metrics.RecordCall(ctx, m.name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}

	resp, err := fromCompletion(completion)
	if err != nil {
		return nil, err
	}

	agenttrace.RecordLLMResponse(ctx, agenttrace.LLMResponse{
		Model:        completion.Model,
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

func (m *Model) params(req *model.Request) (openai.ChatCompletionNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = m.maxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(m.name),
		MaxCompletionTokens: openai.Int(maxTokens),
		Temperature:         openai.Float(req.Temperature),
	}

	if req.System != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(req.System))
	}
	for _, msg := range req.Messages {
		converted, err := messageParams(msg)
		if err != nil {
			return params, err
		}
		params.Messages = append(params.Messages, converted...)
	}

	for _, def := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openai.String(def.Description),
				Parameters:  openai.FunctionParameters(def.JSONSchema()),
			},
		})
	}
	return params, nil
}

// messageParams converts one message. Tool results become one tool message each.
func messageParams(msg model.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	if msg.Role == model.RoleAssistant {
		assistant := openai.ChatCompletionAssistantMessageParam{}
		if msg.Text != "" {
			assistant.Content.OfString = openai.String(msg.Text)
		}
		for _, call := range msg.ToolCalls {
			args, err := json.Marshal(call.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal arguments of tool %s: %w", call.Name, err)
			}
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
				ID: call.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
		return []openai.ChatCompletionMessageParamUnion{{OfAssistant: &assistant}}, nil
	}

	var out []openai.ChatCompletionMessageParamUnion
	for _, res := range msg.ToolResults {
		body, err := json.Marshal(res.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tool result: %w", err)
		}
		out = append(out, openai.ToolMessage(string(body), res.CallID))
	}
	if msg.Text != "" {
		out = append(out, openai.UserMessage(msg.Text))
	}
	return out, nil
}

func fromCompletion(completion *openai.ChatCompletion) (*model.Response, error) {
	if len(completion.Choices) == 0 {
		return nil, errors.New("no choices in completion")
	}
	choice := completion.Choices[0]
	resp := &model.Response{
		Text:       choice.Message.Content,
		StopReason: choice.FinishReason,
		Usage: model.Usage{
			InputTokens:  completion.Usage.PromptTokens,
			OutputTokens: completion.Usage.CompletionTokens,
		},
	}
	for _, call := range choice.Message.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("decoding arguments of tool %s: %w", call.Function.Name, err)
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: args,
		})
	}
	return resp, nil
}

var isRetryable = retry.StatusCodes(func(err error) (int, bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable)
