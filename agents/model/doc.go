/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package model defines the provider-independent contract for a single LLM call.
//
// Provider packages (claudemodel, googlemodel, openaimodel) translate Request
// and Response to and from their SDK types. Each Generate call is one model
// round trip: it starts the runtime's agent.llm_call span and reports request
// and response fields through the agenttrace field helpers.
//
// Func adapts a plain function, which is convenient for scripted conversations:
//
//	m := model.Func{ModelName: "scripted", Fn: func(ctx context.Context, req *model.Request) (*model.Response, error) {
//		return &model.Response{Text: `{"answer": 42}`}, nil
//	}}
package model
