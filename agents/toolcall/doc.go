/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package toolcall defines provider-independent tools for agents.
//
// A Tool pairs a Definition (name, description, parameters) with a Handler.
// Providers translate definitions into their own schema types; the executor
// hands every call back to the handler with the agent's trace:
//
//	lookup := toolcall.Tool[Result]{
//		Def: toolcall.Definition{
//			Name:        "lookup",
//			Description: "Look up a package by name.",
//			Parameters: []toolcall.Parameter{
//				{Name: "name", Type: "string", Description: "Package name", Required: true},
//			},
//		},
//		Handler: func(ctx context.Context, call toolcall.ToolCall, trace *agenttrace.Trace[Result], _ *Result) map[string]any {
//			name, errResp := toolcall.Param[string](ctx, call, trace, "name")
//			if errResp != nil {
//				return errResp
//			}
//			tc := trace.StartToolCall(ctx, call.ID, call.Name, call.Args)
//			version, err := index.Latest(ctx, name)
//			tc.Complete(version, err)
//			if err != nil {
//				return toolcall.Error("lookup failed: %v", err)
//			}
//			return map[string]any{"version": version}
//		},
//	}
//
// Handlers own the runtime tool span: they start it with Trace.StartToolCall
// using the context they were invoked with.
package toolcall
