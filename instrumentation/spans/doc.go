/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package spans holds the data model of agentscope traces.
//
// A Span is one traced unit of work (a session, an agent run, a model call or
// a tool call). It is open until it transitions exactly once to one of the
// terminal statuses ok, error or orphan-closed; after that it is immutable and
// attribute writes are rejected with ErrNotOpen.
//
// Record is the export schema of a span, and Trace reassembles records into
// the tree rooted at the session span.
package spans
