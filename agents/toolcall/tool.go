/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package toolcall

import (
	"context"
	"fmt"
	"maps"

	"chainguard.dev/agentscope/agents/agenttrace"
)

// ToolCall is a provider-independent representation of a tool call.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Definition describes a tool's schema (name, description, parameters).
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
}

// Parameter describes a single tool parameter.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "number"
	Description string
	Required    bool
}

// Handler executes a tool call. It may set *result to end the conversation.
// A returned map with an "error" key reports a failed call back to the model.
type Handler[Resp any] func(ctx context.Context, call ToolCall, trace *agenttrace.Trace[Resp], result *Resp) map[string]any

// Tool defines a tool once with a single handler that works with any provider.
type Tool[Resp any] struct {
	Def     Definition
	Handler Handler[Resp]
}

// JSONSchema renders the definition's parameters as a JSON object schema.
func (d Definition) JSONSchema() map[string]any {
	props := make(map[string]any, len(d.Parameters))
	required := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		props[p.Name] = map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Required returns the names of the required parameters, in declaration order.
func (d Definition) Required() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Definitions returns the definitions of tools, in no particular order.
func Definitions[Resp any](tools map[string]Tool[Resp]) []Definition {
	defs := make([]Definition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, t.Def)
	}
	return defs
}

// Failed reports whether a handler result carries an error, and its message.
func Failed(result map[string]any) (string, bool) {
	v, ok := result["error"]
	if !ok {
		return "", false
	}
	return fmt.Sprint(v), true
}

// Param extracts a required parameter from the tool call args.
// On error, records a bad tool call on the trace and returns an error response.
func Param[T any](ctx context.Context, call ToolCall, trace interface {
	BadToolCall(context.Context, string, string, map[string]any, error)
}, name string) (T, map[string]any) {
	v, err := Extract[T](call.Args, name)
	if err != nil {
		trace.BadToolCall(ctx, call.ID, call.Name, call.Args, err)
		return v, Error("%s", err)
	}
	return v, nil
}

// OptionalParam extracts an optional parameter from the tool call args.
func OptionalParam[T any](call ToolCall, name string, defaultValue T) (T, map[string]any) {
	v, err := ExtractOptional[T](call.Args, name, defaultValue)
	if err != nil {
		return v, Error("%s", err)
	}
	return v, nil
}

// Error creates an error response map.
func Error(format string, args ...any) map[string]any {
	return map[string]any{
		"error": fmt.Sprintf(format, args...),
	}
}

// ErrorWithContext creates an error response with additional context fields.
func ErrorWithContext(err error, fields map[string]any) map[string]any {
	response := map[string]any{
		"error": err.Error(),
	}
	maps.Copy(response, fields)
	return response
}
