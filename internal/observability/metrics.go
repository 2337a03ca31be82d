package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	UploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "toonface",
		Name:      "uploads_total",
		Help:      "Total number of successful image uploads",
	})

	RegenerationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "toonface",
		Name:      "regenerations_total",
		Help:      "Total number of successful cartoon regenerations",
	})

	FinalizationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "toonface",
		Name:      "finalizations_total",
		Help:      "Total number of cartoons finalized into downloaded faces",
	})

	TempPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "toonface",
		Name:      "temp_purged_total",
		Help:      "Total number of temporary cartoon blobs purged on finalization",
	})

	TransformDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "toonface",
		Name:      "transform_duration_seconds",
		Help:      "Duration of outbound image transform calls",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"operation"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "toonface",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "toonface",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
