package models

import "time"

// TrendLabel describes the direction of recent spending.
type TrendLabel string

const (
	TrendStronglyUp       TrendLabel = "strongly_up"
	TrendUp               TrendLabel = "up"
	TrendStable           TrendLabel = "stable"
	TrendDown             TrendLabel = "down"
	TrendStronglyDown     TrendLabel = "strongly_down"
	TrendInsufficientData TrendLabel = "insufficient_data"
	TrendNone             TrendLabel = "none"
)

type CategoryStats struct {
	Category       string     `json:"category"`
	Count          int        `json:"count"`
	Total          float64    `json:"total"`
	Average        float64    `json:"average"`
	MonthlyAverage float64    `json:"monthly_average"`
	Min            float64    `json:"min"`
	Max            float64    `json:"max"`
	MonthsObserved int        `json:"months_observed"`
	Trend          TrendLabel `json:"trend"`
	TrendPercent   float64    `json:"trend_percent"`
	TrendSlope     float64    `json:"trend_slope"`
	TrendRSquared  float64    `json:"trend_r_squared"`
}

type ModelMetrics struct {
	MAE             float64 `json:"mae"`
	CVMAE           float64 `json:"cv_mae"`
	CVFolds         int     `json:"cv_folds"`
	RMSE            float64 `json:"rmse"`
	R2              float64 `json:"r2"`
	TrainingMonths  int     `json:"training_months"`
	TrainingSamples int     `json:"training_samples"`
	Categories      int     `json:"categories"`
}

type FeatureWeight struct {
	Feature    string  `json:"feature"`
	Label      string  `json:"label"`
	Importance float64 `json:"importance"`
}

type UserSummary struct {
	PersonID           int64           `json:"person_id"`
	HasData            bool            `json:"has_data"`
	TotalTransactions  int             `json:"total_transactions"`
	TotalSpent         float64         `json:"total_spent"`
	MonthlyAverage     float64         `json:"monthly_average"`
	MonthsOfData       int             `json:"months_of_data"`
	FirstDate          string          `json:"first_date,omitempty"`
	LastDate           string          `json:"last_date,omitempty"`
	UsesML             bool            `json:"uses_ml"`
	MLReady            bool            `json:"ml_ready"`
	TransactionsNeeded int             `json:"transactions_needed"`
	MonthsNeeded       int             `json:"months_needed"`
	Categories         []CategoryStats `json:"categories"`
	ModelMetrics       *ModelMetrics   `json:"model_metrics,omitempty"`
	FeatureImportance  []FeatureWeight `json:"feature_importance,omitempty"`
	TrainedAt          *time.Time      `json:"trained_at,omitempty"`
}

type FeatureImportanceReport struct {
	PersonID  int64           `json:"person_id"`
	Trained   bool            `json:"trained"`
	Features  []FeatureWeight `json:"features"`
	TrainedAt *time.Time      `json:"trained_at,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type RetrainResult struct {
	PersonID          int64           `json:"person_id"`
	Success           bool            `json:"success"`
	Queued            bool            `json:"queued,omitempty"`
	Message           string          `json:"message"`
	Metrics           *ModelMetrics   `json:"metrics,omitempty"`
	FeatureImportance []FeatureWeight `json:"feature_importance,omitempty"`
	TrainedAt         *time.Time      `json:"trained_at,omitempty"`
	CurrentCount      int             `json:"current_count,omitempty"`
	Required          int             `json:"required,omitempty"`
	CurrentMonths     int             `json:"current_months,omitempty"`
	RequiredMonths    int             `json:"required_months,omitempty"`
}
