package forecast

import (
	"fmt"

	"BudgetCast/internal/domain/models"
)

// Estimate is the outcome of one prediction step: exactly one of
// MLEstimate, StatEstimate or NoDataEstimate.
type Estimate interface {
	isEstimate()
}

// MLEstimate comes from the trained model or its constant-series shortcut.
type MLEstimate struct {
	Amount     float64
	Method     models.Method
	Confidence models.Confidence
}

// StatEstimate comes from the statistical fallback.
type StatEstimate struct {
	Amount     float64
	Method     models.Method
	Confidence models.Confidence
}

// NoDataEstimate means the category has no history at all.
type NoDataEstimate struct{}

func (MLEstimate) isEstimate()     {}
func (StatEstimate) isEstimate()   {}
func (NoDataEstimate) isEstimate() {}

// Resolve converts an estimate into its public prediction.
func Resolve(e Estimate) models.Prediction {
	switch v := e.(type) {
	case MLEstimate:
		return models.Prediction{EstimatedAmount: v.Amount, Method: v.Method, Confidence: v.Confidence, HasData: true, IsML: true}
	case StatEstimate:
		return models.Prediction{EstimatedAmount: v.Amount, Method: v.Method, Confidence: v.Confidence, HasData: true}
	case NoDataEstimate:
		return models.Prediction{Method: models.MethodNoData, Confidence: models.ConfidenceNone}
	default:
		panic(fmt.Sprintf("forecast: unhandled estimate %T", e))
	}
}

// GradeConfidence maps a coefficient of variation onto a confidence tier.
// Lower cv never yields a lower tier.
func GradeConfidence(cv, high, medium float64) models.Confidence {
	switch {
	case cv < high:
		return models.ConfidenceHigh
	case cv < medium:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}
