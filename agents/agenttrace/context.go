/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package agenttrace

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
)

// RunContext describes the unit of work an agent execution belongs to.
// It enriches traces and metrics with bounded labels.
type RunContext struct {
	Key       string `json:"key,omitempty"`        // e.g. "pr:chainguard-dev/mono/41025" or "path:chainguard-dev/mono/main/images/nginx"
	Kind      string `json:"kind,omitempty"`       // e.g. "pr" or "path"
	CommitSHA string `json:"commit_sha,omitempty"` // optional
	Turn      int    `json:"turn,omitempty"`       // optional, for multi-turn agents
}

// Repository extracts "owner/repo" from the run key.
// Returns empty string if the key does not have that shape.
func (r RunContext) Repository() string {
	_, identifier, found := strings.Cut(r.Key, ":")
	if !found {
		return ""
	}

	owner, rest, found := strings.Cut(identifier, "/")
	if !found || owner == "" {
		return ""
	}
	repo, _, found := strings.Cut(rest, "/")
	if !found || repo == "" {
		return ""
	}
	return owner + "/" + repo
}

// EnrichAttributes appends the bounded run labels to baseAttrs.
// The key and commit are deliberately left out: they are unbounded.
func (r RunContext) EnrichAttributes(baseAttrs []attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, len(baseAttrs), len(baseAttrs)+3)
	copy(attrs, baseAttrs)

	if r.Kind != "" {
		attrs = append(attrs, attribute.String("run_kind", r.Kind))
	}
	if repo := r.Repository(); repo != "" {
		attrs = append(attrs, attribute.String("repository", repo))
	}
	attrs = append(attrs, attribute.Int("turn", r.Turn))

	return attrs
}

type runContextKey struct{}

// WithRunContext adds run metadata to the Go context
func WithRunContext(ctx context.Context, run RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, run)
}

// GetRunContext retrieves run metadata from the Go context
func GetRunContext(ctx context.Context) RunContext {
	if run, ok := ctx.Value(runContextKey{}).(RunContext); ok {
		return run
	}
	return RunContext{}
}
