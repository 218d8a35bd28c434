/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package claudemodel

import (
	"fmt"
	"strings"

	"chainguard.dev/agentscope/agents/metrics"
	"chainguard.dev/agentscope/agents/model/retry"
)

// Option is a functional option for configuring the model.
type Option func(*Model) error

// WithModel overrides the model name.
func WithModel(name string) Option {
	return func(m *Model) error {
		if !strings.HasPrefix(name, "claude-") {
			return fmt.Errorf("model %q does not appear to be a Claude model (expected claude-* format)", name)
		}
		m.name = name
		return nil
	}
}

// WithMaxTokens sets the default maximum tokens, used when a request does not set one.
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		if tokens > 32000 { // Maximum for Opus
			return fmt.Errorf("max tokens %d exceeds maximum of 32000", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithThinking enables extended thinking with the given token budget.
// Temperature is forced to 1.0 while thinking is enabled.
func WithThinking(budgetTokens int64) Option {
	return func(m *Model) error {
		if budgetTokens < 1024 {
			return fmt.Errorf("thinking budget_tokens must be at least 1024, got %d", budgetTokens)
		}
		if budgetTokens >= m.maxTokens {
			return fmt.Errorf("thinking budget_tokens (%d) must be less than max_tokens (%d)", budgetTokens, m.maxTokens)
		}
		m.thinkingBudget = &budgetTokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for 429 and 529 errors.
func WithRetryConfig(cfg retry.Config) Option {
	return func(m *Model) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m.retryConfig = cfg
		return nil
	}
}

// WithAttributeEnricher sets the enricher used when recording metrics.
func WithAttributeEnricher(enricher metrics.AttributeEnricher) Option {
	return func(m *Model) error {
		m.metrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// WithMetrics replaces the GenAI metrics instance.
func WithMetrics(g *metrics.GenAI) Option {
	return func(m *Model) error {
		if g == nil {
			return fmt.Errorf("metrics cannot be nil")
		}
		m.metrics = g
		return nil
	}
}
