/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package openaimodel

import (
	"errors"
	"fmt"

	"chainguard.dev/agentscope/agents/metrics"
	"chainguard.dev/agentscope/agents/model/retry"
)

// Option is a functional option for configuring the model.
type Option func(*Model) error

// WithModel overrides the model name.
func WithModel(name string) Option {
	return func(m *Model) error {
		if name == "" {
			return errors.New("model name cannot be empty")
		}
		m.name = name
		return nil
	}
}

// WithMaxTokens sets the default completion token limit.
func WithMaxTokens(tokens int64) Option {
	return func(m *Model) error {
		if tokens <= 0 {
			return fmt.Errorf("max tokens must be positive, got %d", tokens)
		}
		m.maxTokens = tokens
		return nil
	}
}

// WithRetryConfig sets the retry configuration for rate limit errors.
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
