package forecast

import (
	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/services/features"
)

// fallbackEstimate predicts from observed monthly totals alone. The first
// satisfied rule wins: same calendar month seen twice, three or more months
// seen, any month seen, nothing.
func fallbackEstimate(h History, category string, month int) Estimate {
	totals := h.Totals(category)
	if len(totals) == 0 {
		return NoDataEstimate{}
	}

	var same []float64
	for _, r := range totals {
		if r.Month == month {
			same = append(same, r.Amount)
		}
	}
	if len(same) >= 2 {
		return StatEstimate{
			Amount:     features.Round2(features.Mean(same)),
			Method:     models.MethodMonthlyAverage,
			Confidence: models.ConfidenceMedium,
		}
	}

	if len(totals) >= 3 {
		recent := totals[len(totals)-3:]
		return StatEstimate{
			Amount:     features.Round2((recent[0].Amount + recent[1].Amount + recent[2].Amount) / 3),
			Method:     models.MethodRecentAverage,
			Confidence: models.ConfidenceLow,
		}
	}

	amounts := make([]float64, len(totals))
	for i, r := range totals {
		amounts[i] = r.Amount
	}
	return StatEstimate{
		Amount:     features.Round2(features.Mean(amounts)),
		Method:     models.MethodCategoryAverage,
		Confidence: models.ConfidenceLow,
	}
}

// PredictMonthStats is the statistical estimate for one category and month.
// It needs no model and never fails.
func PredictMonthStats(h History, category string, month int) models.Prediction {
	return Resolve(fallbackEstimate(h, category, month))
}
