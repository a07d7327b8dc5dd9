package service

import "context"

// Regressor fits a model mapping feature vectors onto a scalar target.
type Regressor interface {
	Fit(ctx context.Context, x [][]float64, y []float64) (Model, error)
}

// Model is a fitted regressor.
type Model interface {
	Predict(x []float64) float64
	// FeatureImportances returns one non-negative weight per input column, summing to 1
	// when the model learned anything.
	FeatureImportances() []float64
}
