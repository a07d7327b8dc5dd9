package metrics

import (
	"testing"

	"BudgetCast/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.RecordTraining("trained", 0.2)
	r.RecordTraining("trained", 0.3)
	r.RecordPrediction(models.MethodRecentAverage, models.ConfidenceLow)
	r.RecordCacheLookup("model", true)
	r.RecordCacheLookup("model", false)
	r.RecordCacheLookup("model", false)
	r.RecordError("store")
	r.RecordLatency("forecast_all", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.trainings.WithLabelValues("trained")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.predictions.WithLabelValues("recent_average", "low")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("model", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("model", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("store")))

	n, err := testutil.GatherAndCount(reg, "budgetcast_model_training_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
}
