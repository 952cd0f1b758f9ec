// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package poa

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects batch statistics. A nil *Metrics records nothing.
type Metrics struct {
	WindowsProcessed  prometheus.Counter
	ExecutionFailures prometheus.Counter
	ExecuteDuration   prometheus.Histogram
	GraphNodes        prometheus.Histogram
	ReservedBytes     prometheus.Gauge
}

// NewMetrics registers batch metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		WindowsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: "poa",
			Name:      "windows_processed_total",
			Help:      "Windows folded and reduced to a consensus.",
		}),
		ExecutionFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "poa",
			Name:      "execution_failures_total",
			Help:      "GeneratePoa calls that failed.",
		}),
		ExecuteDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "poa",
			Name:      "execute_duration_seconds",
			Help:      "Wall time of GeneratePoa.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
		GraphNodes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "poa",
			Name:      "graph_nodes",
			Help:      "Nodes per window graph after folding.",
			Buckets:   prometheus.ExponentialBuckets(8, 2, 14),
		}),
		ReservedBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "poa",
			Name:      "reserved_bytes",
			Help:      "Device memory reserved by open batches.",
		}),
	}
}

func (m *Metrics) observeExecute(windows int, elapsed time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.ExecuteDuration.Observe(elapsed.Seconds())
	if failed {
		m.ExecutionFailures.Inc()
		return
	}
	m.WindowsProcessed.Add(float64(windows))
}

func (m *Metrics) observeGraph(nodes int) {
	if m == nil {
		return
	}
	m.GraphNodes.Observe(float64(nodes))
}

func (m *Metrics) addReserved(n int64) {
	if m == nil {
		return
	}
	m.ReservedBytes.Add(float64(n))
}
