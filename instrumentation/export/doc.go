/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package export provides lifecycle.Processor implementations that consume
// closed span records: an in-memory Recorder, a clog Logger, a JSON lines
// writer, a batching Remote exporter and Prometheus Metrics. Report renders
// an assembled trace as a table.
package export
