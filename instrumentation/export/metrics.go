/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package export

import (
	"context"

	"chainguard.dev/agentscope/instrumentation/spans"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsProcessor counts spans into Prometheus collectors.
type MetricsProcessor struct {
	started *prometheus.CounterVec
	ended   *prometheus.CounterVec
	open    *prometheus.GaugeVec
	orphans prometheus.Counter
}

// Metrics registers the span collectors with reg.
func Metrics(reg prometheus.Registerer) *MetricsProcessor {
	factory := promauto.With(reg)
	return &MetricsProcessor{
		started: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentscope_spans_started_total",
				Help: "Total number of spans opened",
			},
			[]string{"kind"},
		),
		ended: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentscope_spans_ended_total",
				Help: "Total number of spans closed, by final status",
			},
			[]string{"kind", "status"},
		),
		open: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "agentscope_spans_open",
				Help: "Number of spans currently open",
			},
			[]string{"kind"},
		),
		orphans: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agentscope_spans_orphan_closed_total",
				Help: "Total number of spans force-closed without their own end",
			},
		),
	}
}

// OnStart implements lifecycle.Processor.
func (m *MetricsProcessor) OnStart(_ context.Context, r spans.Record) {
	kind := string(r.Kind)
	m.started.WithLabelValues(kind).Inc()
	m.open.WithLabelValues(kind).Inc()
}

// OnEnd implements lifecycle.Processor.
func (m *MetricsProcessor) OnEnd(_ context.Context, r spans.Record) {
	kind := string(r.Kind)
	m.ended.WithLabelValues(kind, string(r.Status)).Inc()
	m.open.WithLabelValues(kind).Dec()
	if r.Status == spans.StatusOrphanClosed {
		m.orphans.Inc()
	}
}
