/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package model

import (
	"context"
	"errors"

	"chainguard.dev/agentscope/agents/toolcall"
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Model is a single LLM endpoint the executor can converse with.
type Model interface {
	// Name returns the model identifier, e.g. "claude-sonnet-4@20250514".
	Name() string
	// Generate sends the conversation so far and returns the next assistant turn.
	Generate(ctx context.Context, req *Request) (*Response, error)
}

// Request is a provider-independent model request.
type Request struct {
	System      string
	Messages    []Message
	Tools       []toolcall.Definition
	MaxTokens   int64
	Temperature float64
}

// Message is one turn in the conversation.
// Assistant turns may carry tool calls; the user turn that follows carries their results.
type Message struct {
	Role        Role
	Text        string
	ToolCalls   []toolcall.ToolCall
	ToolResults []ToolResult
}

// ToolResult is the outcome of one tool call, sent back to the model.
type ToolResult struct {
	CallID  string
	Name    string
	Content map[string]any
}

// Usage reports the tokens consumed by one Generate call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
}

// Response is the assistant turn produced by Generate.
type Response struct {
	Text       string
	Thinking   []string
	ToolCalls  []toolcall.ToolCall
	StopReason string
	Usage      Usage
}

// ErrNoContent is returned when a provider answers without text or tool calls.
var ErrNoContent = errors.New("model returned no content")

// Func adapts a function into a Model.
type Func struct {
	ModelName string
	Fn        func(ctx context.Context, req *Request) (*Response, error)
}

// Name implements Model.
func (f Func) Name() string { return f.ModelName }

// Generate implements Model.
func (f Func) Generate(ctx context.Context, req *Request) (*Response, error) {
	return f.Fn(ctx, req)
}
