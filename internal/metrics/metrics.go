// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	predictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streetscan",
		Name:      "predictions_total",
		Help:      "Prediction requests by outcome code.",
	}, []string{"outcome"})

	predictedClasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "streetscan",
		Name:      "predicted_class_total",
		Help:      "Accepted predictions by class id.",
	}, []string{"class_id"})

	inferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "streetscan",
		Name:      "inference_duration_seconds",
		Help:      "Time spent in model forward passes.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	})
)

// ObservePrediction counts one /predict outcome, e.g. "OK", "REUPLOAD" or an error code.
func ObservePrediction(outcome string) {
	predictions.WithLabelValues(outcome).Inc()
}

func ObserveClass(classID string) {
	predictedClasses.WithLabelValues(classID).Inc()
}

func ObserveInference(d time.Duration) {
	inferenceDuration.Observe(d.Seconds())
}
