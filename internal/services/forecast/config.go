package forecast

import (
	"time"

	"BudgetCast/internal/services/regression"
	"BudgetCast/pkg/config"
)

// Config holds the thresholds and tunables of the forecasting core.
type Config struct {
	MinTransactions         int
	MinMonths               int
	MinFeatureRows          int
	Lags                    []int
	RollingWindow           int
	CVHigh                  float64
	CVMedium                float64
	TrendThresholdPct       float64
	StrongTrendThresholdPct float64
	TrainingTimeout         time.Duration
	CVSplits                int
	Model                   regression.Config
}

func DefaultConfig() Config {
	return Config{
		MinTransactions:         20,
		MinMonths:               3,
		MinFeatureRows:          6,
		Lags:                    []int{1, 2, 3},
		RollingWindow:           3,
		CVHigh:                  0.3,
		CVMedium:                0.6,
		TrendThresholdPct:       5,
		StrongTrendThresholdPct: 25,
		TrainingTimeout:         30 * time.Second,
		CVSplits:                3,
		Model:                   regression.DefaultConfig(),
	}
}

// NewConfig maps the file configuration onto the core's settings.
func NewConfig(fc config.ForecastConfig) Config {
	return Config{
		MinTransactions:         fc.MinTransactions,
		MinMonths:               fc.MinMonths,
		MinFeatureRows:          fc.MinFeatureRows,
		Lags:                    append([]int(nil), fc.Lags...),
		RollingWindow:           fc.RollingWindow,
		CVHigh:                  fc.CVHigh,
		CVMedium:                fc.CVMedium,
		TrendThresholdPct:       fc.TrendThresholdPct,
		StrongTrendThresholdPct: fc.StrongTrendThresholdPct,
		TrainingTimeout:         fc.TrainingTimeout,
		CVSplits:                fc.CVSplits,
		Model: regression.Config{
			Estimators:      fc.Model.Estimators,
			MaxDepth:        fc.Model.MaxDepth,
			LearningRate:    fc.Model.LearningRate,
			MinSamplesSplit: fc.Model.MinSamplesSplit,
			MinSamplesLeaf:  fc.Model.MinSamplesLeaf,
			Subsample:       fc.Model.Subsample,
			Seed:            fc.Model.Seed,
		},
	}
}
