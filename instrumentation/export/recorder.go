/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package export

import (
	"context"
	"sync"

	"chainguard.dev/agentscope/instrumentation/lifecycle"
	"chainguard.dev/agentscope/instrumentation/spans"
)

// Recorder keeps every closed span in memory.
type Recorder struct {
	mu      sync.Mutex
	records []spans.Record
}

var _ lifecycle.Processor = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// OnStart implements lifecycle.Processor.
func (*Recorder) OnStart(context.Context, spans.Record) {}

// OnEnd implements lifecycle.Processor.
func (r *Recorder) OnEnd(_ context.Context, rec spans.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns the closed spans in the order they closed.
func (r *Recorder) Records() []spans.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]spans.Record, len(r.records))
	copy(out, r.records)
	return out
}

// Traces assembles the recorded spans into trees.
func (r *Recorder) Traces() []*spans.Trace {
	return spans.Assemble(r.Records())
}

// Reset forgets every recorded span.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}
