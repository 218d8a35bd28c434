/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package lifecycle opens and closes spans with stack discipline per execution
// context.
//
// Begin and End are the explicit primitives; Start and Finish are the
// context.Context driven forms the method wrappers use. A span's parent is the
// span active in its execution context when it begins. Ending a span that is
// not the innermost open one closes everything above it as orphan-closed, so
// the tree stays well nested; ending an unknown span logs a warning and does
// nothing. No call here ever returns an error or panics into the caller.
//
// Processors observe every span start and end, outside of any lock.
package lifecycle
