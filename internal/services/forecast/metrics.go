package forecast

import "BudgetCast/internal/domain/models"

type nopMetrics struct{}

func (nopMetrics) RecordTraining(string, float64) {}
func (nopMetrics) RecordPrediction(models.Method, models.Confidence) {}
func (nopMetrics) RecordCacheLookup(string, bool) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordLatency(string, float64) {}
