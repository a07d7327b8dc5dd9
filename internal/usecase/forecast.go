package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
	"BudgetCast/internal/service/ratelimit"
	"BudgetCast/internal/services/features"
	"BudgetCast/internal/services/forecast"
	"BudgetCast/pkg/cache"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/util"

	"golang.org/x/sync/singleflight"
)

const (
	// RetrainJobType is the queue message type of an asynchronous retrain.
	RetrainJobType = "retrain_model"

	responsePrefix = "resp"
)

// RateLimitedError is returned when a person retrains too often.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("retrain rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// ForecastUseCase serves predictions and statistics on top of the forecasting
// core, caching responses per person until their model changes.
type ForecastUseCase struct {
	forecaster *forecast.Forecaster
	stats      *forecast.StatsReporter
	models     *forecast.ModelCache
	cfg        forecast.Config

	cache   cache.Service
	ttl     time.Duration
	group   singleflight.Group
	genMu   sync.Mutex
	gens    map[int64]uint64
	queue   domrepo.JobQueue
	limiter *ratelimit.Limiter
	metrics domrepo.Metrics
	log     *logger.Logger
}

type ForecastOption func(*ForecastUseCase)

// WithResponseCache enables response caching with the given TTL.
func WithResponseCache(c cache.Service, ttl time.Duration) ForecastOption {
	return func(uc *ForecastUseCase) {
		uc.cache = c
		uc.ttl = ttl
	}
}

// WithJobQueue lets Retrain schedule asynchronous work.
func WithJobQueue(q domrepo.JobQueue) ForecastOption {
	return func(uc *ForecastUseCase) { uc.queue = q }
}

// WithRetrainLimiter rate limits Retrain per person.
func WithRetrainLimiter(l *ratelimit.Limiter) ForecastOption {
	return func(uc *ForecastUseCase) { uc.limiter = l }
}

func WithUseCaseMetrics(m domrepo.Metrics) ForecastOption {
	return func(uc *ForecastUseCase) { uc.metrics = m }
}

func WithUseCaseLogger(l *logger.Logger) ForecastOption {
	return func(uc *ForecastUseCase) { uc.log = l }
}

func NewForecastUseCase(f *forecast.Forecaster, stats *forecast.StatsReporter, mc *forecast.ModelCache, cfg forecast.Config, opts ...ForecastOption) *ForecastUseCase {
	uc := &ForecastUseCase{
		forecaster: f,
		stats:      stats,
		models:     mc,
		cfg:        cfg,
		gens:       make(map[int64]uint64),
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// ForecastAll predicts every expense category for one month and adds the
// history needed by the month overview.
func (uc *ForecastUseCase) ForecastAll(ctx context.Context, req models.ForecastAllRequest) (*models.ForecastAllResponse, error) {
	now := uc.forecaster.Now()
	if req.Month == 0 {
		req.Month = int(now.Month())
	}
	if req.Year == 0 {
		req.Year = now.Year()
	}

	key := cache.Key(responsePrefix, req.PersonID, "forecast_all", req.Year, req.Month)
	return cached(ctx, uc, req.PersonID, key, func(ctx context.Context) (*models.ForecastAllResponse, error) {
		return uc.forecastAll(ctx, req, now)
	})
}

func (uc *ForecastUseCase) forecastAll(ctx context.Context, req models.ForecastAllRequest, now time.Time) (*models.ForecastAllResponse, error) {
	forecasts, err := uc.forecaster.PredictAllCategories(ctx, req.PersonID, req.Month, req.Year, nil)
	if err != nil {
		return nil, err
	}
	h, err := uc.forecaster.LoadHistory(ctx, req.PersonID)
	if err != nil {
		return nil, err
	}

	offset := util.MonthsBetween(now.Year(), int(now.Month()), req.Year, req.Month)
	res := &models.ForecastAllResponse{
		PersonID:        req.PersonID,
		Month:           req.Month,
		Year:            req.Year,
		IsCurrentMonth:  offset == 0,
		IsPastMonth:     offset < 0,
		Categories:      make([]models.CategoryForecastDetail, 0, len(forecasts)),
		TotalCategories: len(forecasts),
		GeneratedAt:     now.UTC(),
	}
	withActuals := offset <= 0
	var total, totalActual float64

	for _, fc := range forecasts {
		st := uc.stats.CategoryStats(h, fc.Category)
		d := models.CategoryForecastDetail{
			CategoryForecast: fc,
			TrendDirection:   st.Trend,
			TrendPercent:     st.TrendPercent,
			MonthlyAverage:   st.MonthlyAverage,
		}
		if withActuals {
			actual, _ := h.Actual(fc.Category, req.Year, req.Month)
			actual = features.Round2(actual)
			d.ActualAmount = &actual
			totalActual += actual
		}
		if fc.HasData {
			res.CategoriesWithData++
		}
		if fc.IsML {
			res.CategoriesWithML++
		}
		total += fc.EstimatedAmount
		res.Categories = append(res.Categories, d)
	}

	res.UsesML = res.CategoriesWithML > 0
	res.TotalEstimated = features.Round2(total)
	if withActuals {
		ta := features.Round2(totalActual)
		res.TotalActual = &ta
	}
	return res, nil
}

// Forecast predicts the next n months of one category.
func (uc *ForecastUseCase) Forecast(ctx context.Context, req models.ForecastRequest) (*models.CategoryForecastResponse, error) {
	key := cache.Key(responsePrefix, req.PersonID, "forecast", req.Category, req.Months)
	return cached(ctx, uc, req.PersonID, key, func(ctx context.Context) (*models.CategoryForecastResponse, error) {
		points, err := uc.forecaster.PredictMonthsAhead(ctx, req.PersonID, req.Category, req.Months)
		if err != nil {
			return nil, err
		}
		var total float64
		for _, p := range points {
			total += p.EstimatedAmount
		}
		return &models.CategoryForecastResponse{
			PersonID: req.PersonID,
			Category: req.Category,
			Months:   points,
			Total:    features.Round2(total),
		}, nil
	})
}

// PredictMonth predicts one category for a calendar month of the current year.
func (uc *ForecastUseCase) PredictMonth(ctx context.Context, req models.PredictMonthRequest) (*models.Prediction, error) {
	key := cache.Key(responsePrefix, req.PersonID, "month", req.Category, req.Month)
	return cached(ctx, uc, req.PersonID, key, func(ctx context.Context) (*models.Prediction, error) {
		p, err := uc.forecaster.PredictMonth(ctx, req.PersonID, req.Category, req.Month)
		if err != nil {
			return nil, err
		}
		return &p, nil
	})
}

func (uc *ForecastUseCase) Summary(ctx context.Context, personID int64) (*models.UserSummary, error) {
	key := cache.Key(responsePrefix, personID, "summary")
	return cached(ctx, uc, personID, key, func(ctx context.Context) (*models.UserSummary, error) {
		s, err := uc.stats.UserSummary(ctx, personID)
		if err != nil {
			return nil, err
		}
		return &s, nil
	})
}

func (uc *ForecastUseCase) CategoryStats(ctx context.Context, req models.CategoryStatsRequest) (*models.CategoryStats, error) {
	st, err := uc.stats.CategoryStatsFor(ctx, req.PersonID, req.Category)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (uc *ForecastUseCase) FeatureImportance(ctx context.Context, personID int64) (*models.FeatureImportanceReport, error) {
	r, err := uc.stats.FeatureImportance(ctx, personID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Retrain drops the person's model and trains a new one, either inline or
// through the job queue when async is requested and a queue is configured.
func (uc *ForecastUseCase) Retrain(ctx context.Context, req models.RetrainRequest) (*models.RetrainResult, error) {
	if uc.limiter != nil {
		if ok, wait := uc.limiter.Allow(req.PersonID); !ok {
			uc.recordError("retrain_rate_limited")
			return nil, &RateLimitedError{RetryAfter: wait}
		}
	}

	if req.Async && uc.queue != nil {
		payload := models.RetrainPayload{PersonID: req.PersonID, RequestedAt: uc.forecaster.Now().UTC()}
		if err := uc.queue.PublishMessage(ctx, RetrainJobType, payload); err != nil {
			return nil, fmt.Errorf("queue retrain: %w", err)
		}
		return &models.RetrainResult{
			PersonID: req.PersonID,
			Success:  true,
			Queued:   true,
			Message:  "Retraining scheduled",
		}, nil
	}
	return uc.RetrainNow(ctx, req.PersonID)
}

// RetrainNow retrains synchronously. Insufficient data is reported in the
// result, not as an error.
func (uc *ForecastUseCase) RetrainNow(ctx context.Context, personID int64) (*models.RetrainResult, error) {
	b, err := uc.models.InvalidateAndRetrain(ctx, personID)
	uc.invalidateResponses(ctx, personID)

	if insufficient, ok := forecast.IsInsufficientData(err); ok {
		return &models.RetrainResult{
			PersonID:       personID,
			Success:        false,
			Message:        insufficient.Error(),
			CurrentCount:   insufficient.CurrentTransactions,
			Required:       insufficient.RequiredTransactions,
			CurrentMonths:  insufficient.CurrentMonths,
			RequiredMonths: insufficient.RequiredMonths,
		}, nil
	}
	if errors.Is(err, forecast.ErrTrainingTimeout) {
		return &models.RetrainResult{
			PersonID: personID,
			Success:  false,
			Message:  "Training timed out",
		}, nil
	}
	if err != nil {
		return nil, err
	}

	metrics := b.Metrics
	trainedAt := b.TrainedAt
	return &models.RetrainResult{
		PersonID:          personID,
		Success:           true,
		Message:           "Model retrained",
		Metrics:           &metrics,
		FeatureImportance: b.Importance,
		TrainedAt:         &trainedAt,
	}, nil
}

// Invalidate drops the model and cached responses of a person. The next
// request retrains lazily.
func (uc *ForecastUseCase) Invalidate(ctx context.Context, personID int64) bool {
	dropped := uc.models.Invalidate(personID)
	uc.invalidateResponses(ctx, personID)
	return dropped
}

func (uc *ForecastUseCase) invalidateResponses(ctx context.Context, personID int64) {
	if uc.cache == nil {
		return
	}
	uc.genMu.Lock()
	uc.gens[personID]++
	uc.genMu.Unlock()

	if err := uc.cache.DeleteByPattern(ctx, cache.Pattern(responsePrefix, personID)); err != nil {
		uc.log.Warn("Response cache invalidation failed", logger.PersonID(personID), logger.Error(err))
	}
}

// generation counts response invalidations of a person.
func (uc *ForecastUseCase) generation(personID int64) uint64 {
	uc.genMu.Lock()
	defer uc.genMu.Unlock()
	return uc.gens[personID]
}

// cached serves key from the response cache, computing it at most once
// concurrently per key and generation on a miss. A value computed across an
// invalidation of the person is returned but not kept.
func cached[T any](ctx context.Context, uc *ForecastUseCase, personID int64, key string, load func(context.Context) (*T, error)) (*T, error) {
	start := time.Now()
	defer func() {
		if uc.metrics != nil {
			uc.metrics.RecordLatency("usecase", time.Since(start).Seconds())
		}
	}()

	if uc.cache != nil {
		var hit T
		err := uc.cache.Get(ctx, key, &hit)
		if err == nil {
			uc.recordLookup(true)
			return &hit, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			uc.log.Warn("Response cache read failed", logger.String("key", key), logger.Error(err))
		}
		uc.recordLookup(false)
	}

	gen := uc.generation(personID)
	v, err, _ := uc.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if uc.cache != nil {
			uc.storeResponse(ctx, personID, gen, key, val)
		}
		return val, nil
	})
	if err != nil {
		uc.recordError("usecase")
		return nil, err
	}
	return v.(*T), nil
}

// storeResponse writes a computed response unless the person was invalidated since
// gen was read. The recheck after Set covers an invalidation racing the write.
func (uc *ForecastUseCase) storeResponse(ctx context.Context, personID int64, gen uint64, key string, val interface{}) {
	if uc.generation(personID) != gen {
		return
	}
	if err := uc.cache.Set(ctx, key, val, uc.ttl); err != nil {
		uc.log.Warn("Response cache write failed", logger.String("key", key), logger.Error(err))
		return
	}
	if uc.generation(personID) != gen {
		_ = uc.cache.Delete(ctx, key)
	}
}

func (uc *ForecastUseCase) recordLookup(hit bool) {
	if uc.metrics != nil {
		uc.metrics.RecordCacheLookup("response", hit)
	}
}

func (uc *ForecastUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
