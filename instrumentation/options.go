/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package instrumentation

import (
	"context"
	"fmt"
	"time"

	"chainguard.dev/agentscope/instrumentation/lifecycle"
	"github.com/sethvargo/go-envconfig"
)

// DefaultTraceName labels the session span when no name is configured.
const DefaultTraceName = "agentscope-session"

type config struct {
	traceName    string
	autoStart    bool
	processors   []lifecycle.Processor
	reapInterval time.Duration
	reapAfter    time.Duration
	endpoint     string
}

func (c config) validate() error {
	if c.traceName == "" {
		return fmt.Errorf("trace name must not be empty")
	}
	if c.reapInterval < 0 || c.reapAfter < 0 {
		return fmt.Errorf("reaper durations must not be negative, got interval %v and max age %v", c.reapInterval, c.reapAfter)
	}
	if c.reapInterval > 0 && c.reapAfter == 0 {
		return fmt.Errorf("reaper needs a max age")
	}
	return nil
}

// Option configures Init.
type Option func(*config)

// WithTraceName sets the name of the session span.
func WithTraceName(name string) Option {
	return func(c *config) {
		c.traceName = name
	}
}

// WithAutoStartSession controls whether Init opens the session span.
func WithAutoStartSession(auto bool) Option {
	return func(c *config) {
		c.autoStart = auto
	}
}

// WithProcessors adds span processors.
func WithProcessors(ps ...lifecycle.Processor) Option {
	return func(c *config) {
		c.processors = append(c.processors, ps...)
	}
}

// WithReaper force-closes spans open longer than maxAge, checking every interval.
func WithReaper(interval, maxAge time.Duration) Option {
	return func(c *config) {
		c.reapInterval = interval
		c.reapAfter = maxAge
	}
}

// WithEndpoint exports closed spans to a remote collector, authenticated with
// the API key given to Init.
func WithEndpoint(endpoint string) Option {
	return func(c *config) {
		c.endpoint = endpoint
	}
}

type envConfig struct {
	APIKey           string        `env:"AGENTSCOPE_API_KEY"`
	TraceName        string        `env:"AGENTSCOPE_TRACE_NAME,default=agentscope-session"`
	AutoStartSession bool          `env:"AGENTSCOPE_AUTO_START_SESSION,default=true"`
	ReapInterval     time.Duration `env:"AGENTSCOPE_REAP_INTERVAL"`
	ReapAfter        time.Duration `env:"AGENTSCOPE_REAP_AFTER,default=30m"`
	Endpoint         string        `env:"AGENTSCOPE_ENDPOINT"`
}

// OptionsFromEnv reads the AGENTSCOPE_* environment and returns the API key
// and options to pass to Init.
func OptionsFromEnv(ctx context.Context) (string, []Option, error) {
	var env envConfig
	if err := envconfig.Process(ctx, &env); err != nil {
		return "", nil, fmt.Errorf("processing environment: %w", err)
	}

	opts := []Option{
		WithTraceName(env.TraceName),
		WithAutoStartSession(env.AutoStartSession),
	}
	if env.ReapInterval > 0 {
		opts = append(opts, WithReaper(env.ReapInterval, env.ReapAfter))
	}
	if env.Endpoint != "" {
		opts = append(opts, WithEndpoint(env.Endpoint))
	}
	return env.APIKey, opts, nil
}
