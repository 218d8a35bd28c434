/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package googlemodel

import (
	"errors"
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
		if !strings.HasPrefix(name, "gemini-") {
			return fmt.Errorf("model %q does not appear to be a Gemini model (expected gemini-* format)", name)
		}
		m.name = name
		return nil
	}
}

// WithMaxOutputTokens sets the default output token limit.
func WithMaxOutputTokens(tokens int32) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max output tokens must be positive, got %d", tokens)
		}
		m.maxOutputTokens = tokens
		return nil
	}
}

// WithThinking enables thoughts in responses with the given budget.
func WithThinking(budget int32) Option {
	return func(m *Model) error {
		if budget < 0 {
			return fmt.Errorf("thinking budget cannot be negative, got %d", budget)
		}
		m.thinkingBudget = &budget
		return nil
	}
}

// WithRetryConfig sets the retry configuration for quota and overload errors.
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
			return errors.New("metrics cannot be nil")
		}
		m.metrics = g
		return nil
	}
}
