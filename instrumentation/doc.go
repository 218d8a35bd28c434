/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package instrumentation is the entry point for tracing agent runs.
//
// Init silences the agent runtime's own tracer, captures the telemetry fields
// it extracts, and opens the root session span:
//
//	if err := instrumentation.Init(ctx, apiKey); err != nil {
//		return err
//	}
//	defer instrumentation.Shutdown(ctx)
//
//	w := instrumentation.Default().Wrapper()
//	agent := wrapper.Agent(w, "Workflow", exec)
//
// Spans are delivered to the processors passed with WithProcessors, and to a
// remote collector when WithEndpoint is set.
package instrumentation
