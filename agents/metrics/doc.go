/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics records OpenTelemetry GenAI metrics for model calls made by the
// agent runtime: token usage, tool calls, call latency and call errors.
//
// Use NewGenAI with MeterName so that every provider reports under one meter, and
// RunEnricher to label measurements with the run the call belongs to:
//
//	m := metrics.NewGenAI(metrics.MeterName)
//	m.SetAttributeEnricher(metrics.RunEnricher)
//	m.RecordTokens(ctx, "gemini-2.5-pro", 1200, 340)
package metrics
