/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googlemodel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/metrics"
	"chainguard.dev/agentscope/agents/model"
	"chainguard.dev/agentscope/agents/model/retry"
	"chainguard.dev/agentscope/agents/toolcall"
	"github.com/chainguard-dev/clog"
	"google.golang.org/genai"
)

// Model is a model.Model backed by Gemini.
type Model struct {
	client          *genai.Client
	name            string
	maxOutputTokens int32
	thinkingBudget  *int32
	retryConfig     retry.Config
	metrics         *metrics.GenAI
}

var _ model.Model = (*Model)(nil)

// New creates a Model using client.
func New(client *genai.Client, opts ...Option) (*Model, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	m := &Model{
		client:          client,
		name:            "gemini-2.5-flash",
		maxOutputTokens: 8192,
		retryConfig:     retry.DefaultConfig(),
		metrics:         metrics.NewGenAI(metrics.MeterName),
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
	config := m.config(req)
	contents := toContents(req.Messages)

	agenttrace.RecordLLMRequest(ctx, agenttrace.LLMRequest{
		Provider:    "gcp.gemini",
		Model:       m.name,
		MaxTokens:   int64(config.MaxOutputTokens),
		Temperature: req.Temperature,
		Messages:    len(contents),
		Tools:       len(req.Tools),
	})

	start := time.Now()
	out, err := retry.Do(ctx, m.retryConfig, "generate_content", isRetryable, func() (*genai.GenerateContentResponse, error) {
		return m.client.Models.GenerateContent(ctx, m.name, contents, config)
	})
	m.metrics.RecordCall(ctx, m.name, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	resp, err := fromResponse(ctx, out)
	if err != nil {
		return nil, err
	}

	agenttrace.RecordLLMResponse(ctx, agenttrace.LLMResponse{
		Model:        out.ModelVersion,
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

func (m *Model) config(req *model.Request) *genai.GenerateContentConfig {
	maxTokens := m.maxOutputTokens
	if req.MaxTokens > 0 {
		maxTokens = int32(req.MaxTokens)
	}
	config := &genai.GenerateContentConfig{
		Temperature:     ptr(float32(req.Temperature)),
		MaxOutputTokens: maxTokens,
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}
	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, def := range req.Tools {
			decls = append(decls, declaration(def))
		}
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	if m.thinkingBudget != nil {
		config.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  m.thinkingBudget,
		}
	}
	return config
}

func declaration(def toolcall.Definition) *genai.FunctionDeclaration {
	props := make(map[string]*genai.Schema, len(def.Parameters))
	for _, p := range def.Parameters {
		props[p.Name] = &genai.Schema{
			Type:        genai.Type(strings.ToUpper(p.Type)),
			Description: p.Description,
		}
	}
	return &genai.FunctionDeclaration{
		Name:        def.Name,
		Description: def.Description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: props,
			Required:   def.Required(),
		},
	}
}

func toContents(msgs []model.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, msg := range msgs {
		c := &genai.Content{Role: "user"}
		if msg.Role == model.RoleAssistant {
			c.Role = "model"
		}
		if msg.Text != "" {
			c.Parts = append(c.Parts, &genai.Part{Text: msg.Text})
		}
		for _, call := range msg.ToolCalls {
			c.Parts = append(c.Parts, &genai.Part{FunctionCall: &genai.FunctionCall{
				ID:   call.ID,
				Name: call.Name,
				Args: call.Args,
			}})
		}
		for _, res := range msg.ToolResults {
			c.Parts = append(c.Parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       res.CallID,
				Name:     res.Name,
				Response: res.Content,
			}})
		}
		contents = append(contents, c)
	}
	return contents
}

func fromResponse(ctx context.Context, out *genai.GenerateContentResponse) (*model.Response, error) {
	resp := &model.Response{}
	if out.UsageMetadata != nil {
		resp.Usage = model.Usage{
			InputTokens:  int64(out.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(out.UsageMetadata.CandidatesTokenCount),
		}
	}
	if len(out.Candidates) == 0 {
		return nil, errors.New("no candidates in response")
	}
	candidate := out.Candidates[0]
	resp.StopReason = string(candidate.FinishReason)
	if candidate.Content == nil {
		return resp, nil
	}

	var text strings.Builder
	for i, part := range candidate.Content.Parts {
		switch {
		case part.Thought:
			resp.Thinking = append(resp.Thinking, part.Text)
		case part.Text != "":
			text.WriteString(part.Text)
		case part.FunctionCall != nil:
			id := part.FunctionCall.ID
			if id == "" {
				// The Gemini API does not always assign call IDs.
				id = fmt.Sprintf("call_%d", i)
			}
			resp.ToolCalls = append(resp.ToolCalls, toolcall.ToolCall{
				ID:   id,
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		default:
			clog.FromContext(ctx).With("part_index", i).Warn("Found part with unexpected content")
		}
	}
	resp.Text = text.String()
	return resp, nil
}

var (
	byStatus = retry.StatusCodes(func(err error) (int, bool) {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return apiErr.Code, true
		}
		var apiErrPtr *genai.APIError
		if errors.As(err, &apiErrPtr) {
			return apiErrPtr.Code, true
		}
		return 0, false
	}, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout)

	byMessage = retry.Messages(
		"Resource exhausted", "RESOURCE_EXHAUSTED", "rate limit", "quota exceeded",
		"Overloaded", "Internal error", "server error",
	)
)

// isRetryable reports quota exhaustion and transient server errors.
func isRetryable(err error) bool {
	return byStatus(err) || byMessage(err)
}

func ptr[T any](v T) *T {
	return &v
}
