package metrics

import (
	"BudgetCast/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	trainings        *prometheus.CounterVec
	trainingDuration *prometheus.HistogramVec
	predictions      *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	latency          *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		trainings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetcast_model_trainings_total",
				Help: "Model training attempts by outcome",
			},
			[]string{"result"},
		),
		trainingDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetcast_model_training_duration_seconds",
				Help:    "Duration of model training attempts",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"result"},
		),
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetcast_predictions_total",
				Help: "Predictions served by method and confidence",
			},
			[]string{"method", "confidence"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetcast_cache_lookups_total",
				Help: "Cache lookups by cache and result",
			},
			[]string{"cache", "result"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "budgetcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "budgetcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordTraining(result string, seconds float64) {
	r.trainings.WithLabelValues(result).Inc()
	r.trainingDuration.WithLabelValues(result).Observe(seconds)
}

func (r *Recorder) RecordPrediction(method models.Method, confidence models.Confidence) {
	r.predictions.WithLabelValues(string(method), string(confidence)).Inc()
}

func (r *Recorder) RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
