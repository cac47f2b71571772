// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package frame

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records frame handling.
type Metrics struct {
	FramesTotal *prometheus.CounterVec
}

// NewMetrics creates and registers frame metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vlclr_filter_frames_total",
				Help: "Total number of video frames seen by bridge filters by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.FramesTotal)
	return m
}

func (m *Metrics) record(result string) {
	if m == nil {
		return
	}
	m.FramesTotal.WithLabelValues(result).Inc()
}
