/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package lifecycle

import (
	"context"
	"time"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
)

// Reap force-closes, as orphan-closed, every span other than the session that
// has been open longer than maxAge. It returns how many spans it closed.
func (l *Lifecycle) Reap(ctx context.Context, maxAge time.Duration) int {
	defer contain(ctx, "reap")

	now := l.now()
	closed := func() []spans.Record {
		l.mu.Lock()
		defer l.mu.Unlock()
		var closed []spans.Record
		for id, e := range l.open {
			if e.session || now.Sub(e.span.StartTime()) <= maxAge {
				continue
			}
			l.registry.Remove(id)
			delete(l.open, id)
			if e.span.Finish(spans.StatusOrphanClosed, now, nil) == nil {
				closed = append(closed, e.span.Record())
			}
		}
		return closed
	}()

	for _, r := range closed {
		clog.FromContext(ctx).With("span", r.ID).With("kind", r.Kind).With("name", r.Name).
			Warn("Reaped span open past its deadline")
		l.notify(ctx, ended, r)
	}
	return len(closed)
}

// RunReaper calls Reap every interval until ctx is done.
func (l *Lifecycle) RunReaper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Reap(ctx, maxAge); n > 0 {
				clog.FromContext(ctx).With("reaped", n).Info("Reaper closed abandoned spans")
			}
		}
	}
}
