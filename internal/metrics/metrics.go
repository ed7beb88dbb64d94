// Package metrics declares the Prometheus collectors shared across the
// prediction pipeline. They register with the default registry and are
// served by the REST server on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcomes.
const (
	OutcomePredicted   = "predicted"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

var (
	FeedRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "halftime_feed_request_duration_seconds",
		Help:    "Duration of live feed requests by endpoint",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	FeedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halftime_feed_errors_total",
		Help: "Total number of failed live feed requests by endpoint",
	}, []string{"endpoint"})

	GamesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "halftime_games_skipped_total",
		Help: "Games dropped because the summary did not carry two team blocks",
	})

	RowsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "halftime_rows_normalized_total",
		Help: "Total number of player box-score rows produced by the normalizer",
	})

	Predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "halftime_predictions_total",
		Help: "Prediction requests by outcome",
	}, []string{"outcome"})

	PredictionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "halftime_prediction_duration_seconds",
		Help:    "End-to-end latency of a prediction including feed round trips",
		Buckets: prometheus.DefBuckets,
	})

	SnapshotPublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "halftime_snapshot_publish_failures_total",
		Help: "Live snapshots that could not be written to the Redis stream",
	})
)
