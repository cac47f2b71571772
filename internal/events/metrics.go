// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package events

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records subscription activity.
type Metrics struct {
	ActiveListeners prometheus.Gauge
	ForwardedTotal  *prometheus.CounterVec
	RejectedTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers event bridge metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveListeners: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vlclr_player_listeners_active",
			Help: "Number of live player listener contexts",
		}),
		ForwardedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vlclr_player_events_forwarded_total",
				Help: "Total number of player events forwarded to managed callbacks by signal",
			},
			[]string{"signal"},
		),
		RejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vlclr_player_listeners_rejected_total",
				Help: "Total number of rejected player subscriptions by reason",
			},
			[]string{"reason"},
		),
	}

	reg.MustRegister(m.ActiveListeners)
	reg.MustRegister(m.ForwardedTotal)
	reg.MustRegister(m.RejectedTotal)

	return m
}

func (m *Metrics) setActive(n int) {
	if m == nil {
		return
	}
	m.ActiveListeners.Set(float64(n))
}

func (m *Metrics) recordForwarded(signal string) {
	if m == nil {
		return
	}
	m.ForwardedTotal.WithLabelValues(signal).Inc()
}

func (m *Metrics) recordRejected(reason string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(reason).Inc()
}
