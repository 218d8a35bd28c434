/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package collector

import (
	"context"
	"sync"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/hooks"
	"chainguard.dev/agentscope/instrumentation/lifecycle"
	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Option configures a Collector.
type Option func(*Collector)

// WithKeys sets the FieldRecorder binding keys to capture.
func WithKeys(keys ...string) Option {
	return func(c *Collector) {
		c.keys = keys
	}
}

type swapped struct {
	binding *hooks.Binding[agenttrace.FieldRecorder]
	prev    agenttrace.FieldRecorder
	had     bool
}

// Collector redirects runtime telemetry fields into a Lifecycle.
type Collector struct {
	lc   *lifecycle.Lifecycle
	keys []string

	mu        sync.Mutex
	installed map[string]*swapped
}

// New creates a Collector writing into lc.
func New(lc *lifecycle.Lifecycle, opts ...Option) *Collector {
	c := &Collector{
		lc:        lc,
		keys:      []string{agenttrace.LLMFieldsKey, agenttrace.ToolFieldsKey},
		installed: make(map[string]*swapped),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Install swaps the collector's recorder into every configured binding that
// exists and returns how many bindings it now holds. Keys already captured by
// this Collector are left alone.
func (c *Collector) Install(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range c.keys {
		if _, ok := c.installed[key]; ok {
			continue
		}
		log := clog.FromContext(ctx).With("key", key)

		v, ok := hooks.Lookup(key)
		if !ok {
			log.Warn("Field recorder binding not found, skipping")
			continue
		}
		b, ok := v.(*hooks.Binding[agenttrace.FieldRecorder])
		if !ok {
			log.Warnf("Field recorder binding has unexpected shape %T, skipping", v)
			continue
		}

		s := &swapped{binding: b}
		s.prev, s.had = b.Swap(c.recorder(s))
		c.installed[key] = s
		log.Debug("Field recorder captured")
	}
	return len(c.installed)
}

// recorder writes fields onto the active span, then hands them to whatever
// the binding held before.
func (c *Collector) recorder(s *swapped) agenttrace.FieldRecorder {
	return func(ctx context.Context, span oteltrace.Span, fields ...attribute.KeyValue) {
		c.lc.SetAttributes(ctx, fields...)

		next := agenttrace.SpanRecorder
		if s.had && s.prev != nil {
			next = s.prev
		}
		next(ctx, span, fields...)
	}
}

// Uninstall restores the recorders Install replaced.
func (c *Collector) Uninstall(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, s := range c.installed {
		s.binding.Restore(s.prev, s.had)
		delete(c.installed, key)
		clog.FromContext(ctx).With("key", key).Debug("Field recorder restored")
	}
}

// Installed returns the number of bindings currently captured.
func (c *Collector) Installed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.installed)
}
