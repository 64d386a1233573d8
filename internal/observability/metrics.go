package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhotosProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deertracker",
		Name:      "photos_processed_total",
		Help:      "Total number of photo files processed, by outcome",
	}, []string{"status"})

	DuplicatePhotos = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deertracker",
		Name:      "duplicate_photos_total",
		Help:      "Total number of files skipped because their content was already ingested",
	})

	ObjectsDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deertracker",
		Name:      "objects_detected_total",
		Help:      "Total number of detections persisted, by label",
	}, []string{"label"})

	DuplicateObjects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "deertracker",
		Name:      "duplicate_objects_total",
		Help:      "Total number of detections rejected as duplicates of an existing crop",
	})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "deertracker",
		Name:      "stage_duration_seconds",
		Help:      "Duration of pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"stage"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "deertracker",
		Name:      "ws_connections",
		Help:      "Number of connected websocket review clients",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "deertracker",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
