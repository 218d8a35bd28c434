/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package export

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/chainguard-dev/clog"
)

// JSONWriter writes each closed span as one JSON object per line.
type JSONWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// JSONLines returns a JSONWriter writing to w.
func JSONLines(w io.Writer) *JSONWriter {
	return &JSONWriter{enc: json.NewEncoder(w)}
}

// OnStart implements lifecycle.Processor.
func (*JSONWriter) OnStart(context.Context, spans.Record) {}

// OnEnd implements lifecycle.Processor.
func (j *JSONWriter) OnEnd(ctx context.Context, r spans.Record) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(r); err != nil {
		clog.FromContext(ctx).With("span", r.ID).With("error", err).Warn("Failed to write span record")
	}
}
