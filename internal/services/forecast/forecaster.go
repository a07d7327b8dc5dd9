package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/domain/repository"
	"BudgetCast/internal/services/features"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/util"
)

const (
	constantStdEpsilon = 1e-3
	constantLagEpsilon = 1e-6
)

// Forecaster serves single-month, multi-month and all-category predictions.
type Forecaster struct {
	cache   *ModelCache
	store   repository.TransactionStore
	cfg     Config
	log     *logger.Logger
	metrics repository.Metrics
	now     func() time.Time
}

type Option func(*Forecaster)

func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

func WithLogger(l *logger.Logger) Option {
	return func(f *Forecaster) { f.log = l }
}

func WithMetrics(m repository.Metrics) Option {
	return func(f *Forecaster) { f.metrics = m }
}

func NewForecaster(cache *ModelCache, store repository.TransactionStore, cfg Config, opts ...Option) *Forecaster {
	f := &Forecaster{
		cache:   cache,
		store:   store,
		cfg:     cfg,
		log:     logger.Nop(),
		metrics: nopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now returns the forecaster's clock reading.
func (f *Forecaster) Now() time.Time { return f.now() }

// session is the per-call view of a person: their history and, when
// available, their trained bundle.
type session struct {
	personID int64
	history  History
	bundle   *Bundle
}

// LoadHistory reads and indexes a person's expense history.
func (f *Forecaster) LoadHistory(ctx context.Context, personID int64) (History, error) {
	txs, err := f.store.ExpenseTransactions(ctx, personID)
	if err != nil {
		return History{}, fmt.Errorf("load transactions: %w", err)
	}
	return NewHistory(txs)
}

func (f *Forecaster) open(ctx context.Context, personID int64) (*session, error) {
	h, err := f.LoadHistory(ctx, personID)
	if err != nil {
		return nil, err
	}
	s := &session{personID: personID, history: h}
	if h.Empty() {
		return s, nil
	}

	b, err := f.cache.GetOrTrain(ctx, personID)
	switch {
	case err == nil:
		s.bundle = b
	case isInsufficient(err), errors.Is(err, ErrTrainingTimeout):
	default:
		return nil, err
	}
	return s, nil
}

// PredictMonth predicts one category for a calendar month from the latest
// known state.
func (f *Forecaster) PredictMonth(ctx context.Context, personID int64, category string, month int) (models.Prediction, error) {
	if !util.ValidMonth(month) {
		return models.Prediction{}, ErrInvalidMonth
	}
	s, err := f.open(ctx, personID)
	if err != nil {
		return models.Prediction{}, err
	}
	return f.direct(s, category, month), nil
}

// PredictMonthStats predicts one category from statistics only.
func (f *Forecaster) PredictMonthStats(ctx context.Context, personID int64, category string, month int) (models.Prediction, error) {
	if !util.ValidMonth(month) {
		return models.Prediction{}, ErrInvalidMonth
	}
	h, err := f.LoadHistory(ctx, personID)
	if err != nil {
		return models.Prediction{}, err
	}
	return PredictMonthStats(h, category, month), nil
}

// PredictMonthsAhead walks forward n months starting after the current month.
// Each step feeds its estimate back in as the next step's lag_1.
func (f *Forecaster) PredictMonthsAhead(ctx context.Context, personID int64, category string, n int) ([]models.ForecastPoint, error) {
	if n < 1 {
		return nil, ErrInvalidHorizon
	}
	s, err := f.open(ctx, personID)
	if err != nil {
		return nil, err
	}
	now := f.now()
	return f.walk(s, category, now.Year(), int(now.Month()), n, nil), nil
}

// PredictAllCategories predicts every category for one calendar month.
// Past and current months are predicted directly; future months are reached
// by walking forward. With no categories given, the store's expense
// categories plus any category in the person's history are used.
func (f *Forecaster) PredictAllCategories(ctx context.Context, personID int64, month, year int, categories []string) ([]models.CategoryForecast, error) {
	if !util.ValidMonth(month) {
		return nil, ErrInvalidMonth
	}
	s, err := f.open(ctx, personID)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		if categories, err = f.store.ExpenseCategories(ctx); err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
	}
	categories = mergeCategories(categories, s.history.Categories())

	now := f.now()
	diff := util.MonthsBetween(now.Year(), int(now.Month()), year, month)

	out := make([]models.CategoryForecast, 0, len(categories))
	for _, c := range categories {
		point := models.ForecastPoint{Month: month, Year: year}
		if diff <= 0 {
			point.Prediction = f.direct(s, c, month)
		} else {
			points := f.walk(s, c, now.Year(), int(now.Month()), diff, nil)
			point = points[len(points)-1]
			for _, p := range points {
				if p.Year == year && p.Month == month {
					point = p
					break
				}
			}
		}
		out = append(out, models.CategoryForecast{Category: c, ForecastPoint: point})
	}
	SortForecasts(out)
	return out, nil
}

// SortForecasts orders ML-backed forecasts first, then those with data, then
// by descending amount, then by category name.
func SortForecasts(fs []models.CategoryForecast) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if a.IsML != b.IsML {
			return a.IsML
		}
		if a.HasData != b.HasData {
			return a.HasData
		}
		if a.EstimatedAmount != b.EstimatedAmount {
			return a.EstimatedAmount > b.EstimatedAmount
		}
		return a.Category < b.Category
	})
}

func (f *Forecaster) direct(s *session, category string, month int) models.Prediction {
	var est Estimate
	if p, err := s.bundle.Profile(category); err == nil {
		est = f.modelEstimate(s, p, p.State, month, models.MethodGradientBoosting)
	}
	if est == nil {
		est = fallbackEstimate(s.history, category, month)
	}
	return f.record(Resolve(est))
}

// walk runs the walk-forward simulation for n months after (year, month).
// observe, when set, sees the state each step predicts from.
func (f *Forecaster) walk(s *session, category string, year, month, n int, observe func(step int, st features.State)) []models.ForecastPoint {
	profile, err := s.bundle.Profile(category)
	useModel := err == nil

	var st features.State
	if useModel {
		st = profile.State
		if len(st.Recent) == 0 {
			st = features.SeedState(profile.Mean)
		}
	}

	points := make([]models.ForecastPoint, 0, n)
	for i := 1; i <= n; i++ {
		y, m := util.AddMonths(year, month, i)
		if observe != nil {
			observe(i, st)
		}

		var est Estimate
		if useModel {
			est = f.modelEstimate(s, profile, st, m, models.MethodGradientBoostingRecursive)
		}
		if est == nil {
			est = fallbackEstimate(s.history, category, m)
		}

		p := f.record(Resolve(est))
		points = append(points, models.ForecastPoint{Month: m, Year: y, Prediction: p})
		st = st.Advance(p.EstimatedAmount)
	}
	return points
}

// modelEstimate predicts from the bundle with an explicit lag state. A nil
// result means the step must fall back to statistics.
func (f *Forecaster) modelEstimate(s *session, p CategoryProfile, st features.State, month int, method models.Method) Estimate {
	if IsConstantSeries(p, st) {
		return MLEstimate{
			Amount:     features.Round2(math.Max(0, st.Lag(1))),
			Method:     models.MethodConstantLastValue,
			Confidence: models.ConfidenceHigh,
		}
	}

	vec, err := st.Inputs(p.ID, month, p.Mean).Vector(s.bundle.Columns)
	if err != nil {
		f.metrics.RecordError("feature_assembly")
		f.log.Warn("Feature assembly failed, using statistics",
			logger.PersonID(s.personID), logger.Int("month", month), logger.Error(err))
		return nil
	}
	amount := s.bundle.Model.Predict(vec)
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil
	}
	return MLEstimate{
		Amount:     features.Round2(math.Max(0, amount)),
		Method:     method,
		Confidence: GradeConfidence(st.CV, f.cfg.CVHigh, f.cfg.CVMedium),
	}
}

// IsConstantSeries reports whether a category is flat enough that its last
// value is the forecast.
func IsConstantSeries(p CategoryProfile, st features.State) bool {
	if p.Std < constantStdEpsilon {
		return true
	}
	l1, l2, l3 := st.Lag(1), st.Lag(2), st.Lag(3)
	return math.Abs(l1-l2) < constantLagEpsilon && math.Abs(l2-l3) < constantLagEpsilon
}

func (f *Forecaster) record(p models.Prediction) models.Prediction {
	f.metrics.RecordPrediction(p.Method, p.Confidence)
	return p
}

func mergeCategories(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, c := range l {
			if _, ok := seen[c]; ok || c == "" {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
