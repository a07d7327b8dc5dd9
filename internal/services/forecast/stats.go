package forecast

import (
	"context"
	"errors"
	"math"
	"sort"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/services/features"
	"BudgetCast/pkg/util"

	"github.com/shopspring/decimal"
)

const (
	trendWindow    = 12
	trendMinMonths = 6
)

// StatsReporter describes a person's spending and model state.
type StatsReporter struct {
	forecaster *Forecaster
	cache      *ModelCache
	trainer    *Trainer
	cfg        Config
}

func NewStatsReporter(f *Forecaster, cache *ModelCache, trainer *Trainer, cfg Config) *StatsReporter {
	return &StatsReporter{forecaster: f, cache: cache, trainer: trainer, cfg: cfg}
}

// CategoryStats summarizes one category of a history.
func (r *StatsReporter) CategoryStats(h History, category string) models.CategoryStats {
	return CategoryStatsOf(h, category, r.cfg.TrendThresholdPct, r.cfg.StrongTrendThresholdPct)
}

// CategoryStatsFor loads the person's history and summarizes one category.
func (r *StatsReporter) CategoryStatsFor(ctx context.Context, personID int64, category string) (models.CategoryStats, error) {
	h, err := r.forecaster.LoadHistory(ctx, personID)
	if err != nil {
		return models.CategoryStats{}, err
	}
	return r.CategoryStats(h, category), nil
}

// CategoryStatsOf computes counts, totals and the spending trend over the
// last twelve observed monthly totals of a category.
func CategoryStatsOf(h History, category string, threshold, strong float64) models.CategoryStats {
	st := models.CategoryStats{Category: category, Trend: models.TrendNone}
	txs := h.CategoryTransactions(category)
	if len(txs) == 0 {
		return st
	}

	total := decimal.Zero
	minV, maxV := math.Inf(1), math.Inf(-1)
	for _, tx := range txs {
		total = total.Add(tx.Amount)
		v := tx.Amount.InexactFloat64()
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	st.Count = len(txs)
	st.Total = total.Round(2).InexactFloat64()
	st.Average = total.Div(decimal.NewFromInt(int64(len(txs)))).Round(2).InexactFloat64()
	st.Min = features.Round2(minV)
	st.Max = features.Round2(maxV)

	totals := h.Totals(category)
	amounts := make([]float64, len(totals))
	for i, t := range totals {
		amounts[i] = t.Amount
	}
	st.MonthsObserved = len(amounts)
	st.MonthlyAverage = features.Round2(features.Mean(amounts))

	window := amounts
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}
	if len(window) < trendMinMonths {
		st.Trend = models.TrendInsufficientData
		return st
	}

	slope, r2 := features.LinearRegression(window)
	st.TrendSlope = features.Round2(slope)
	st.TrendRSquared = round4(r2)

	pct := halvesChange(window)
	st.TrendPercent = math.Round(pct*10) / 10
	st.Trend = TrendLabelFor(pct, threshold, strong)
	return st
}

// halvesChange is the percent change of the second half's mean over the first's.
func halvesChange(xs []float64) float64 {
	mid := len(xs) / 2
	older, recent := features.Mean(xs[:mid]), features.Mean(xs[mid:])
	if older == 0 {
		if recent == 0 {
			return 0
		}
		return 100
	}
	return (recent - older) / older * 100
}

// TrendLabelFor buckets a percent change.
func TrendLabelFor(pct, threshold, strong float64) models.TrendLabel {
	switch {
	case pct >= strong:
		return models.TrendStronglyUp
	case pct > threshold:
		return models.TrendUp
	case pct <= -strong:
		return models.TrendStronglyDown
	case pct < -threshold:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

// UserSummary aggregates every category of a person with the model state.
func (r *StatsReporter) UserSummary(ctx context.Context, personID int64) (models.UserSummary, error) {
	h, err := r.forecaster.LoadHistory(ctx, personID)
	if err != nil {
		return models.UserSummary{}, err
	}

	sum := models.UserSummary{
		PersonID:           personID,
		Categories:         []models.CategoryStats{},
		TransactionsNeeded: r.cfg.MinTransactions,
		MonthsNeeded:       r.cfg.MinMonths,
	}
	if h.Empty() {
		return sum, nil
	}

	txs := h.Transactions()
	total := decimal.Zero
	perMonth := make(map[int]decimal.Decimal)
	for _, tx := range txs {
		total = total.Add(tx.Amount)
		idx := util.MonthIndex(tx.Date.Year(), int(tx.Date.Month()))
		perMonth[idx] = perMonth[idx].Add(tx.Amount)
	}
	monthly := make([]float64, 0, len(perMonth))
	for _, v := range perMonth {
		monthly = append(monthly, v.InexactFloat64())
	}

	sum.HasData = true
	sum.TotalTransactions = h.Count()
	sum.TotalSpent = total.Round(2).InexactFloat64()
	sum.MonthlyAverage = features.Round2(features.Mean(monthly))
	sum.MonthsOfData = len(perMonth)
	sum.FirstDate = txs[0].Date.Format(util.DateLayout)
	sum.LastDate = txs[len(txs)-1].Date.Format(util.DateLayout)
	sum.TransactionsNeeded = max(0, r.cfg.MinTransactions-sum.TotalTransactions)
	sum.MonthsNeeded = max(0, r.cfg.MinMonths-sum.MonthsOfData)
	sum.MLReady = r.trainer.Readiness(h) == nil

	for _, c := range h.Categories() {
		sum.Categories = append(sum.Categories, r.CategoryStats(h, c))
	}
	sort.SliceStable(sum.Categories, func(i, j int) bool {
		if sum.Categories[i].Total != sum.Categories[j].Total {
			return sum.Categories[i].Total > sum.Categories[j].Total
		}
		return sum.Categories[i].Category < sum.Categories[j].Category
	})

	b, err := r.cache.GetOrTrain(ctx, personID)
	switch {
	case err == nil:
		sum.UsesML = true
		m := b.Metrics
		sum.ModelMetrics = &m
		sum.FeatureImportance = b.Importance
		t := b.TrainedAt
		sum.TrainedAt = &t
	case isInsufficient(err), errors.Is(err, ErrTrainingTimeout):
	default:
		return models.UserSummary{}, err
	}
	return sum, nil
}

// FeatureImportance reports the labelled importances of the person's model.
func (r *StatsReporter) FeatureImportance(ctx context.Context, personID int64) (models.FeatureImportanceReport, error) {
	rep := models.FeatureImportanceReport{PersonID: personID, Features: []models.FeatureWeight{}}

	b, err := r.cache.GetOrTrain(ctx, personID)
	if err != nil {
		if ide, ok := IsInsufficientData(err); ok {
			rep.Message = ide.Error()
			return rep, nil
		}
		if errors.Is(err, ErrTrainingTimeout) {
			rep.Message = err.Error()
			return rep, nil
		}
		return rep, err
	}

	rep.Trained = true
	if b.Importance != nil {
		rep.Features = b.Importance
	}
	t := b.TrainedAt
	rep.TrainedAt = &t
	return rep, nil
}
