// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package loader

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records loader activity.
type Metrics struct {
	LoadsTotal *prometheus.CounterVec
	Loaded     prometheus.Gauge
}

// NewMetrics creates and registers loader metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vlclr_module_loads_total",
				Help: "Total number of managed module load attempts by variant and result",
			},
			[]string{"variant", "result"},
		),
		Loaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vlclr_modules_loaded",
			Help: "Number of managed modules currently loaded",
		}),
	}

	reg.MustRegister(m.LoadsTotal)
	reg.MustRegister(m.Loaded)

	return m
}

func (m *Metrics) recordLoad(v Variant, result string) {
	if m == nil {
		return
	}
	m.LoadsTotal.WithLabelValues(v.String(), result).Inc()
	if result == "success" {
		m.Loaded.Inc()
	}
}

func (m *Metrics) recordUnload() {
	if m == nil {
		return
	}
	m.Loaded.Dec()
}
