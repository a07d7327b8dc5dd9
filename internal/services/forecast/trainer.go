package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/domain/repository"
	"BudgetCast/internal/domain/service"
	"BudgetCast/internal/services/features"
	"BudgetCast/internal/services/regression"
	"BudgetCast/pkg/util"
)

// Trainer turns a person's transactions into a Bundle.
type Trainer struct {
	store     repository.TransactionStore
	regressor service.Regressor
	cfg       Config
	builder   *features.Builder
	now       func() time.Time
}

type TrainerOption func(*Trainer)

// WithTrainerClock overrides the clock stamped into TrainedAt.
func WithTrainerClock(now func() time.Time) TrainerOption {
	return func(t *Trainer) { t.now = now }
}

func NewTrainer(store repository.TransactionStore, regressor service.Regressor, cfg Config, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		store:     store,
		regressor: regressor,
		cfg:       cfg,
		builder:   features.NewBuilder(features.WithLags(cfg.Lags), features.WithRollingWindow(cfg.RollingWindow)),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Readiness checks the raw thresholds. It returns nil when training may proceed.
func (t *Trainer) Readiness(h History) *InsufficientDataError {
	count, months := h.Count(), h.Months()
	if count >= t.cfg.MinTransactions && months >= t.cfg.MinMonths {
		return nil
	}
	reason := "not enough transactions"
	if count >= t.cfg.MinTransactions {
		reason = "not enough months of history"
	}
	return &InsufficientDataError{
		CurrentTransactions:  count,
		RequiredTransactions: t.cfg.MinTransactions,
		CurrentMonths:        months,
		RequiredMonths:       t.cfg.MinMonths,
		Reason:               reason,
	}
}

// Train loads the person's history and fits a fresh bundle.
func (t *Trainer) Train(ctx context.Context, personID int64) (*Bundle, error) {
	txs, err := t.store.ExpenseTransactions(ctx, personID)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return t.TrainOn(ctx, personID, txs)
}

// TrainOn fits a bundle from the given transactions.
func (t *Trainer) TrainOn(ctx context.Context, personID int64, txs []models.Transaction) (*Bundle, error) {
	h, err := NewHistory(txs)
	if err != nil {
		return nil, err
	}
	if ide := t.Readiness(h); ide != nil {
		return nil, ide
	}

	records, err := features.Aggregate(h.Transactions())
	if err != nil {
		return nil, err
	}
	enc := features.FitEncoder(h.Categories())
	rows := t.builder.Build(records, enc)
	usable := features.Usable(rows)
	if len(usable) < t.cfg.MinFeatureRows {
		return nil, &InsufficientDataError{
			CurrentTransactions:  h.Count(),
			RequiredTransactions: t.cfg.MinTransactions,
			CurrentMonths:        h.Months(),
			RequiredMonths:       t.cfg.MinMonths,
			UsableRows:           len(usable),
			Reason:               fmt.Sprintf("only %d usable feature rows, need %d", len(usable), t.cfg.MinFeatureRows),
		}
	}

	cols := features.ModelColumns(t.builder.Lags())
	x := make([][]float64, len(usable))
	y := make([]float64, len(usable))
	periods := make([]int, len(usable))
	for i, r := range usable {
		vec, err := r.Inputs().Vector(cols)
		if err != nil {
			return nil, fmt.Errorf("assemble features: %w", err)
		}
		x[i], y[i] = vec, r.Amount
		periods[i] = util.MonthIndex(r.Year, r.Month)
	}

	model, err := t.regressor.Fit(ctx, x, y)
	if err != nil {
		return nil, fmt.Errorf("fit model: %w", err)
	}

	pred := make([]float64, len(x))
	for i := range x {
		pred[i] = model.Predict(x[i])
	}
	cvMAE, folds, err := t.crossValidate(ctx, x, y, periods)
	if err != nil {
		return nil, err
	}

	profiles := profilesFrom(rows)
	months := len(records) / enc.Len()

	return &Bundle{
		PersonID:   personID,
		Model:      model,
		Encoder:    enc,
		Columns:    cols,
		Categories: profiles,
		TrainedAt:  t.now(),
		Metrics: models.ModelMetrics{
			MAE:             features.Round2(regression.MAE(y, pred)),
			CVMAE:           features.Round2(cvMAE),
			CVFolds:         folds,
			RMSE:            features.Round2(regression.RMSE(y, pred)),
			R2:              round4(regression.R2(y, pred)),
			TrainingMonths:  months,
			TrainingSamples: len(usable),
			Categories:      enc.Len(),
		},
		Importance: importanceOf(model, cols),
	}, nil
}

// crossValidate runs forward-chaining folds; each fold trains only on months
// strictly before the months it is scored on.
func (t *Trainer) crossValidate(ctx context.Context, x [][]float64, y []float64, periods []int) (float64, int, error) {
	var total float64
	n := 0
	for _, fold := range regression.TimeSeriesFolds(periods, t.cfg.CVSplits) {
		if len(fold.Train) < 2 {
			continue
		}
		trainX, trainY := pick(x, y, fold.Train)
		testX, testY := pick(x, y, fold.Test)

		m, err := t.regressor.Fit(ctx, trainX, trainY)
		if err != nil {
			if ctx.Err() != nil {
				return 0, 0, ctx.Err()
			}
			continue
		}
		pred := make([]float64, len(testX))
		for i := range testX {
			pred[i] = m.Predict(testX[i])
		}
		total += regression.MAE(testY, pred)
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return total / float64(n), n, nil
}

func pick(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	px := make([][]float64, len(idx))
	py := make([]float64, len(idx))
	for i, j := range idx {
		px[i], py[i] = x[j], y[j]
	}
	return px, py
}

// profilesFrom snapshots category statistics and the lag state after each
// category's last row. Rows arrive grouped by category.
func profilesFrom(rows []features.FeatureRow) map[string]CategoryProfile {
	out := make(map[string]CategoryProfile)
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i < len(rows) && rows[i].Category == rows[start].Category {
			continue
		}
		series := rows[start:i]
		first := series[0]
		out[first.Category] = CategoryProfile{
			ID:     first.CategoryID,
			Mean:   first.CatMean,
			Std:    first.CatStd,
			Median: first.CatMedian,
			State:  features.StateFromRows(series),
		}
		start = i
	}
	return out
}

func importanceOf(model service.Model, cols []features.Column) []models.FeatureWeight {
	imp := model.FeatureImportances()
	if len(imp) != len(cols) {
		return nil
	}
	out := make([]models.FeatureWeight, len(cols))
	for i, c := range cols {
		out[i] = models.FeatureWeight{Feature: c.String(), Label: c.Label(), Importance: round4(imp[i])}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
