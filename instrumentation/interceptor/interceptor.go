/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package interceptor

import (
	"context"
	"sync"

	"chainguard.dev/agentscope/agents/agenttrace"
	"chainguard.dev/agentscope/agents/hooks"
	"github.com/chainguard-dev/clog"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/mod/semver"
)

// Inert is the substitute tracer provider. Its tracers start non-recording
// spans whose End, SetAttributes and RecordError do nothing.
type Inert struct {
	noop.TracerProvider
}

var _ oteltrace.TracerProvider = Inert{}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithKey sets the lookup key of the tracer provider binding.
func WithKey(key string) Option {
	return func(i *Interceptor) {
		i.key = key
	}
}

// WithSupportedMajor sets the binding version major (e.g. "v1") Install accepts.
func WithSupportedMajor(major string) Option {
	return func(i *Interceptor) {
		i.major = major
	}
}

// Interceptor substitutes the runtime's tracer provider.
type Interceptor struct {
	key   string
	major string

	mu        sync.Mutex
	binding   *hooks.Binding[oteltrace.TracerProvider]
	prev      oteltrace.TracerProvider
	had       bool
	installed bool
}

// New creates an Interceptor for the runtime's tracer provider binding.
func New(opts ...Option) *Interceptor {
	i := &Interceptor{
		key:   agenttrace.TracerProviderKey,
		major: semver.Major("v" + agenttrace.InstrumentationVersion),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Install swaps the Inert provider into the binding. It reports whether the
// runtime's tracing is now inert, which includes the case where it already was.
func (i *Interceptor) Install(ctx context.Context) bool {
	i.mu.Lock()
	defer i.mu.Unlock()

	log := clog.FromContext(ctx).With("key", i.key)
	if i.installed {
		return true
	}

	v, ok := hooks.Lookup(i.key)
	if !ok {
		log.Warn("Tracer provider binding not found, leaving runtime tracing intact")
		return false
	}
	b, ok := v.(*hooks.Binding[oteltrace.TracerProvider])
	if !ok {
		log.Warnf("Tracer provider binding has unexpected shape %T, leaving runtime tracing intact", v)
		return false
	}
	if version := b.Version(); !semver.IsValid(version) || semver.Major(version) != i.major {
		log.With("version", version).With("supported", i.major).
			Warn("Unsupported runtime tracing version, leaving runtime tracing intact")
		return false
	}

	if cur, ok := b.Current(); ok && isInert(cur) {
		log.Debug("Runtime tracing is already inert")
		return true
	}
	prev, had := b.Swap(Inert{})
	if had && isInert(prev) {
		// Another interceptor won the race; it owns restoration.
		b.Restore(prev, had)
		return true
	}

	i.binding, i.prev, i.had, i.installed = b, prev, had, true
	log.Info("Runtime tracing intercepted")
	return true
}

// Uninstall restores the provider that Install replaced. It leaves the binding
// alone if something else replaced the Inert provider since.
func (i *Interceptor) Uninstall(ctx context.Context) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.installed {
		return
	}
	if cur, ok := i.binding.Current(); ok && isInert(cur) {
		i.binding.Restore(i.prev, i.had)
		clog.FromContext(ctx).With("key", i.key).Info("Runtime tracing restored")
	} else {
		clog.FromContext(ctx).With("key", i.key).Warn("Tracer provider replaced since install, not restoring")
	}
	i.binding, i.prev, i.had, i.installed = nil, nil, false, false
}

// Installed reports whether this Interceptor holds the substitution.
func (i *Interceptor) Installed() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.installed
}

func isInert(tp oteltrace.TracerProvider) bool {
	_, ok := tp.(Inert)
	return ok
}
