/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"context"
	"fmt"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
)

// Processor observes span lifecycle events.
// Implementations must be safe for concurrent use and should return quickly:
// they run on the goroutine of the traced call.
type Processor interface {
	OnStart(ctx context.Context, r spans.Record)
	OnEnd(ctx context.Context, r spans.Record)
}

// Shutdowner is implemented by processors that hold resources.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// ProcessorFuncs adapts plain functions into a Processor. Nil funcs are skipped.
type ProcessorFuncs struct {
	Start func(ctx context.Context, r spans.Record)
	End   func(ctx context.Context, r spans.Record)
}

// OnStart implements Processor.
func (p ProcessorFuncs) OnStart(ctx context.Context, r spans.Record) {
	if p.Start != nil {
		p.Start(ctx, r)
	}
}

// OnEnd implements Processor.
func (p ProcessorFuncs) OnEnd(ctx context.Context, r spans.Record) {
	if p.End != nil {
		p.End(ctx, r)
	}
}

type event int

const (
	started event = iota
	ended
)

func (l *Lifecycle) notify(ctx context.Context, ev event, r spans.Record) {
	l.mu.Lock()
	ps := l.processors
	l.mu.Unlock()

	for _, p := range ps {
		func() {
			defer func() {
				if v := recover(); v != nil {
					clog.FromContext(ctx).With("span", r.ID).
						With("processor", fmt.Sprintf("%T", p)).
						Warnf("Span processor panicked: %v", v)
				}
			}()
			switch ev {
			case started:
				p.OnStart(ctx, r)
			case ended:
				p.OnEnd(ctx, r)
			}
		}()
	}
}
