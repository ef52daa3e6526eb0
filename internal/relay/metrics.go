// SPDX-FileCopyrightText: 2025 Comcast Cable Communications Management, LLC
// SPDX-License-Identifier: Apache-2.0

package relay

import "github.com/prometheus/client_golang/prometheus"

// Label and outcome names, grounded on basculechecks/metrics.go's
// convention of naming label/outcome strings as exported constants
// rather than inlining them at each call site.
const (
	DirectionLabel = "direction"
	OutcomeLabel   = "outcome"

	OutcomeDeliveredLive = "delivered_live"
	OutcomeQueued        = "queued"
	OutcomeForwarded     = "forwarded"
	OutcomeDropped       = "dropped"
)

// Metrics holds the relay engine's prometheus collectors. Grounded on
// basculechecks/metrics.go's NewCounterVec-per-outcome pattern, ported
// directly onto client_golang rather than go-kit's metrics facade.
type Metrics struct {
	Envelopes       *prometheus.CounterVec
	LiveConnections prometheus.Gauge
}

// NewMetrics constructs and registers a Metrics against reg. Passing a
// fresh prometheus.Registry in tests avoids colliding with the default
// registerer across test runs.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Envelopes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wakelink_relay_envelopes_total",
			Help: "Count of envelopes handled by the relay engine, by direction and outcome.",
		}, []string{DirectionLabel, OutcomeLabel}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "wakelink_relay_live_connections",
			Help: "Number of currently registered device and client stream connections.",
		}),
	}

	reg.MustRegister(m.Envelopes, m.LiveConnections)
	return m
}
