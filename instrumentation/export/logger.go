/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package export

import (
	"context"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
)

// Logger logs span starts at debug level and span ends at info, or warn for
// spans that did not close ok.
type Logger struct{}

// OnStart implements lifecycle.Processor.
func (Logger) OnStart(ctx context.Context, r spans.Record) {
	clog.FromContext(ctx).With("span", r.ID).With("parent", r.ParentID).
		Debugf("Span started: %s %s", r.Kind, r.Name)
}

// OnEnd implements lifecycle.Processor.
func (Logger) OnEnd(ctx context.Context, r spans.Record) {
	log := clog.FromContext(ctx).
		With("span", r.ID).
		With("trace", r.TraceID).
		With("status", r.Status).
		With("duration", r.Duration())
	switch r.Status {
	case spans.StatusOK:
		log.Infof("Span closed: %s %s", r.Kind, r.Name)
	default:
		log.With("error", r.Error).Warnf("Span closed: %s %s", r.Kind, r.Name)
	}
}
