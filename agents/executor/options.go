/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package executor

import (
	"errors"
	"fmt"

	"chainguard.dev/agentscope/agents/metrics"
)

// Option is a functional option for configuring the executor.
type Option[Resp any] func(*executor[Resp]) error

// WithSystemInstructions sets the system instructions sent with every model call.
func WithSystemInstructions[Resp any](instructions string) Option[Resp] {
	return func(e *executor[Resp]) error {
		if instructions == "" {
			return errors.New("system instructions cannot be empty")
		}
		e.system = instructions
		return nil
	}
}

// WithMaxTurns bounds the number of model calls in one execution.
func WithMaxTurns[Resp any](turns int) Option[Resp] {
	return func(e *executor[Resp]) error {
		if turns <= 0 {
			return fmt.Errorf("max turns must be positive, got %d", turns)
		}
		e.maxTurns = turns
		return nil
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature[Resp any](temp float64) Option[Resp] {
	return func(e *executor[Resp]) error {
		if temp < 0.0 || temp > 2.0 {
			return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", temp)
		}
		e.temperature = temp
		return nil
	}
}

// WithMaxTokens sets the output token limit of each model call.
// Zero leaves the model's own default in place.
func WithMaxTokens[Resp any](tokens int64) Option[Resp] {
	return func(e *executor[Resp]) error {
		if tokens < 0 {
			return fmt.Errorf("max tokens cannot be negative, got %d", tokens)
		}
		e.maxTokens = tokens
		return nil
	}
}

// WithAttributeEnricher sets the enricher used when recording tool call metrics.
func WithAttributeEnricher[Resp any](enricher metrics.AttributeEnricher) Option[Resp] {
	return func(e *executor[Resp]) error {
		e.metrics.SetAttributeEnricher(enricher)
		return nil
	}
}

// WithName sets the agent name reported to the agent run binding.
func WithName[Resp any](name string) Option[Resp] {
	return func(e *executor[Resp]) error {
		if name == "" {
			return errors.New("name cannot be empty")
		}
		e.name = name
		return nil
	}
}
