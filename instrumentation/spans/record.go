/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package spans

import "time"

// Record is the export form of a span.
type Record struct {
	ID         ID             `json:"id"`
	TraceID    ID             `json:"trace_id"`
	Kind       Kind           `json:"kind"`
	Name       string         `json:"name"`
	ParentID   ID             `json:"parent_id,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty"`
	Status     Status         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// Duration returns how long the span was open, or zero while it is still open.
func (r Record) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
