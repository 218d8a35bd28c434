/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package collector captures the telemetry fields the agent runtime extracts
// from model and tool exchanges and writes them onto the instrumentation span
// active for the calling context.
//
// The runtime hands these fields to FieldRecorder bindings registered under
// agenttrace.LLMFieldsKey and agenttrace.ToolFieldsKey. Install replaces each
// of them with a recorder backed by a lifecycle.Lifecycle.
package collector
