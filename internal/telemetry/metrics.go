// Package telemetry holds the Prometheus metrics exposed on /metrics.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncsTotal counts finished syncs by terminal status.
	SyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "janitarr_syncs_total",
			Help: "Total number of finished syncs by status",
		},
		[]string{"status"},
	)

	// SyncDuration tracks end-to-end sync duration.
	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "janitarr_sync_duration_seconds",
			Help:    "Duration of sync runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// UpstreamRequestsTotal counts calls to the external services.
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "janitarr_upstream_requests_total",
			Help: "Total number of upstream API calls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// SyncsRejectedTotal counts syncs rejected before starting.
	SyncsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "janitarr_syncs_rejected_total",
			Help: "Total number of sync calls rejected by the rate limiter or in-flight guard",
		},
		[]string{"reason"},
	)
)

// RecordUpstreamRequest records one upstream call outcome.
func RecordUpstreamRequest(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(service, outcome).Inc()
}
