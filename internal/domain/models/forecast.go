package models

import "time"

// Method names the estimator that produced a prediction.
type Method string

const (
	MethodGradientBoosting          Method = "gradient_boosting"
	MethodGradientBoostingRecursive Method = "gradient_boosting_recursive"
	MethodConstantLastValue         Method = "constant_last_value"
	MethodMonthlyAverage            Method = "monthly_average"
	MethodRecentAverage             Method = "recent_average"
	MethodCategoryAverage           Method = "category_average"
	MethodNoData                    Method = "no_data"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Rank orders confidence tiers, higher is more confident.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

type Prediction struct {
	EstimatedAmount float64    `json:"estimated_amount"`
	Method          Method     `json:"method"`
	Confidence      Confidence `json:"confidence"`
	HasData         bool       `json:"has_data"`
	IsML            bool       `json:"is_ml"`
}

type ForecastPoint struct {
	Month int `json:"month"`
	Year  int `json:"year"`
	Prediction
}

type CategoryForecast struct {
	Category string `json:"category"`
	ForecastPoint
}

// CategoryForecastDetail enriches a forecast with history for the month overview.
type CategoryForecastDetail struct {
	CategoryForecast
	TrendDirection TrendLabel `json:"trend_direction"`
	TrendPercent   float64    `json:"trend_percent"`
	MonthlyAverage float64    `json:"monthly_average"`
	ActualAmount   *float64   `json:"actual_amount,omitempty"`
}

type ForecastAllResponse struct {
	PersonID           int64                    `json:"person_id"`
	Month              int                      `json:"month"`
	Year               int                      `json:"year"`
	IsCurrentMonth     bool                     `json:"is_current_month"`
	IsPastMonth        bool                     `json:"is_past_month"`
	UsesML             bool                     `json:"uses_ml"`
	Categories         []CategoryForecastDetail `json:"categories"`
	TotalEstimated     float64                  `json:"total_estimated"`
	TotalActual        *float64                 `json:"total_actual,omitempty"`
	CategoriesWithData int                      `json:"categories_with_data"`
	CategoriesWithML   int                      `json:"categories_with_ml"`
	TotalCategories    int                      `json:"total_categories"`
	GeneratedAt        time.Time                `json:"generated_at"`
}

type CategoryForecastResponse struct {
	PersonID int64           `json:"person_id"`
	Category string          `json:"category"`
	Months   []ForecastPoint `json:"months"`
	Total    float64         `json:"total"`
}
