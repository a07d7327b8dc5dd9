package forecast

import (
	"time"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/domain/service"
	"BudgetCast/internal/services/features"
)

// CategoryProfile is the per-category snapshot taken at training time.
type CategoryProfile struct {
	ID     int
	Mean   float64
	Std    float64
	Median float64
	// State is the lag context for the month following the last trained month.
	State features.State
}

// Bundle is a trained model together with everything needed to predict from it.
// A bundle is immutable once built; retraining replaces it.
type Bundle struct {
	PersonID   int64
	Model      service.Model
	Encoder    *features.CategoryEncoder
	Columns    []features.Column
	Categories map[string]CategoryProfile
	TrainedAt  time.Time
	Metrics    models.ModelMetrics
	Importance []models.FeatureWeight
}

// Profile returns the snapshot of a category the encoder knows.
func (b *Bundle) Profile(category string) (CategoryProfile, error) {
	if b == nil || !b.Encoder.Known(category) {
		return CategoryProfile{}, ErrUnknownCategory
	}
	p, ok := b.Categories[category]
	if !ok {
		return CategoryProfile{}, ErrUnknownCategory
	}
	return p, nil
}
