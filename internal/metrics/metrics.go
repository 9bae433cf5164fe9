package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citywx_provider_calls_total",
			Help: "Total weather provider API calls",
		},
		[]string{"status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "citywx_provider_latency_seconds",
			Help:    "Weather provider API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citywx_records_ingested_total",
			Help: "Total records normalized and stored",
		},
		[]string{"source"},
	)

	RecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citywx_records_rejected_total",
			Help: "Total source rows rejected during normalization",
		},
		[]string{"source", "reason"},
	)

	AlertsEvaluated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citywx_alerts_evaluated_total",
			Help: "Alert evaluations by resulting status",
		},
		[]string{"status"},
	)
)
