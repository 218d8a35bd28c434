/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package interceptor silences the agent runtime's own tracing.
//
// The runtime resolves its tracer provider through a well-known hooks binding
// (agenttrace.TracerProviderKey). Install swaps an Inert provider into that
// binding, so every span the runtime starts afterwards is a non-recording
// no-op; Uninstall puts the previous provider back. When the binding is
// missing, has an unexpected shape, or was registered by an unsupported
// runtime version, Install logs and leaves the runtime untouched.
package interceptor
