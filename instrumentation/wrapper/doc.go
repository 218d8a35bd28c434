/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package wrapper decorates agents, models and tools so that every call opens
// a span before it runs and closes it after.
//
// Decorated calls are transparent: results and errors are returned exactly as
// the wrapped implementation produced them, and panics propagate with their
// original value after the span is closed with status error.
package wrapper
