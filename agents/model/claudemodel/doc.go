/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package claudemodel implements model.Model on top of the Anthropic Messages API.
//
// The client can talk to Anthropic directly or through Vertex AI:
//
//	m, err := claudemodel.NewVertex(ctx, "us-east5", projectID,
//	    claudemodel.WithModel("claude-sonnet-4@20250514"),
//	    claudemodel.WithMaxTokens(8192),
//	)
//
// Every Generate call starts the runtime's agent.llm_call span, reports the
// request and response fields through agenttrace, records GenAI metrics and
// retries rate limit and overload errors with exponential backoff.
package claudemodel
