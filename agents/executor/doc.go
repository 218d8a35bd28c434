/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package executor runs an agent conversation against any model.Model.
//
// The executor sends the prompt, executes the tool calls the model asks for
// through their toolcall handlers, feeds the results back, and stops when a
// handler sets the result or the model answers with text, which is parsed as
// JSON into the response type.
//
//	exec, err := executor.New[*Analysis](m,
//	    executor.WithSystemInstructions[*Analysis]("You are a release engineer."),
//	    executor.WithMaxTurns[*Analysis](20),
//	)
//	analysis, err := exec.Execute(ctx, prompt, tools)
package executor
