/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package execctx tracks the open span stack of every logical execution context.
//
// An execution context is one independently running agent invocation. Its
// identity travels in the Go context.Context as a Scope, together with the
// span that was active when that context.Context was derived. Goroutines that
// share a context.Context share a Scope; Registry.Enter notices when the
// stack has moved on under a caller and forks it into a fresh execution
// context whose base is the shared span, so concurrent work nests under the
// right parent without interleaving on one stack.
//
// All Registry operations are short, constant-size critical sections.
package execctx
