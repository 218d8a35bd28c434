/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"time"

	"chainguard.dev/agentscope/instrumentation/execctx"
)

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithRegistry sets the execution context registry.
func WithRegistry(r *execctx.Registry) Option {
	return func(l *Lifecycle) {
		l.registry = r
	}
}

// WithProcessors registers processors notified of span starts and ends.
func WithProcessors(ps ...Processor) Option {
	return func(l *Lifecycle) {
		l.processors = append(l.processors, ps...)
	}
}

// WithClock overrides the time source used for span timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) {
		l.now = now
	}
}
