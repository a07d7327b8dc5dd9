package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/domain/repository/mocks"
	"BudgetCast/internal/domain/service"
	"BudgetCast/internal/service/ratelimit"
	"BudgetCast/internal/services/forecast"
	"BudgetCast/internal/services/regression"
	"BudgetCast/pkg/cache"
	"BudgetCast/pkg/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var testNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctrl   *gomock.Controller
	store  *mocks.MockTransactionStore
	loads  atomic.Int32
	models *forecast.ModelCache
	cache  *cache.MemoryCache
	uc     *ForecastUseCase
}

func newFixture(t *testing.T, opts ...ForecastOption) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	fx := &fixture{ctrl: ctrl, store: mocks.NewMockTransactionStore(ctrl), cache: cache.NewMemoryCache()}
	t.Cleanup(func() { _ = fx.cache.Close() })

	cfg := forecast.DefaultConfig()
	cfg.Model.Estimators = 30
	trainer := forecast.NewTrainer(fx.store, regression.NewGradientBoosting(cfg.Model), cfg,
		forecast.WithTrainerClock(func() time.Time { return testNow }))
	fx.models = forecast.NewModelCache(trainer, cfg.TrainingTimeout)
	f := forecast.NewForecaster(fx.models, fx.store, cfg, forecast.WithClock(func() time.Time { return testNow }))
	stats := forecast.NewStatsReporter(f, fx.models, trainer, cfg)

	opts = append([]ForecastOption{WithResponseCache(fx.cache, time.Minute)}, opts...)
	fx.uc = NewForecastUseCase(f, stats, fx.models, cfg, opts...)

	fx.store.EXPECT().ExpenseCategories(gomock.Any()).Return([]string{"food", "rent"}, nil).AnyTimes()
	return fx
}

func (fx *fixture) serve(personID int64, txs []models.Transaction) {
	fx.store.EXPECT().ExpenseTransactions(gomock.Any(), personID).
		DoAndReturn(func(context.Context, int64) ([]models.Transaction, error) {
			fx.loads.Add(1)
			return txs, nil
		}).AnyTimes()
}

func history(personID int64) []models.Transaction {
	var out []models.Transaction
	for i := 0; i < 12; i++ {
		y, m := util.AddMonths(2024, 1, i)
		date := time.Date(y, time.Month(m), 5, 0, 0, 0, 0, time.UTC)
		food := 100 + 15*float64(i%4) + 3*float64(i)
		rent := 800 + 25*float64(i)
		out = append(out,
			models.Transaction{PersonID: personID, Date: date, Amount: decimal.NewFromFloat(food), Category: "food", Kind: models.KindExpense},
			models.Transaction{PersonID: personID, Date: date, Amount: decimal.NewFromFloat(rent), Category: "rent", Kind: models.KindExpense},
		)
	}
	return out
}

func TestForecastAllPastMonthAddsActuals(t *testing.T) {
	fx := newFixture(t)
	fx.serve(1, history(1))

	res, err := fx.uc.ForecastAll(context.Background(), models.ForecastAllRequest{PersonID: 1, Month: 12, Year: 2024})
	require.NoError(t, err)

	assert.True(t, res.IsPastMonth)
	assert.False(t, res.IsCurrentMonth)
	assert.Equal(t, 2, res.TotalCategories)
	assert.Equal(t, 2, res.CategoriesWithData)
	assert.True(t, res.UsesML)
	require.NotNil(t, res.TotalActual)
	assert.InDelta(t, 178+1075, *res.TotalActual, 1e-9)

	var sum float64
	for _, c := range res.Categories {
		require.NotNil(t, c.ActualAmount)
		assert.Equal(t, models.MethodGradientBoosting, c.Method)
		assert.NotEqual(t, models.TrendNone, c.TrendDirection)
		assert.Greater(t, c.MonthlyAverage, 0.0)
		sum += c.EstimatedAmount
	}
	assert.InDelta(t, sum, res.TotalEstimated, 0.011)
}

func TestForecastAllDefaultsToCurrentMonthAndCaches(t *testing.T) {
	fx := newFixture(t)
	fx.serve(1, history(1))
	ctx := context.Background()

	first, err := fx.uc.ForecastAll(ctx, models.ForecastAllRequest{PersonID: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Month)
	assert.Equal(t, 2025, first.Year)
	assert.True(t, first.IsCurrentMonth)
	require.NotNil(t, first.TotalActual)
	assert.Zero(t, *first.TotalActual)

	loads := fx.loads.Load()
	second, err := fx.uc.ForecastAll(ctx, models.ForecastAllRequest{PersonID: 1, Month: 1, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, loads, fx.loads.Load(), "second call served from cache")
	assert.Equal(t, first.TotalEstimated, second.TotalEstimated)

	assert.True(t, fx.uc.Invalidate(ctx, 1))
	_, err = fx.uc.ForecastAll(ctx, models.ForecastAllRequest{PersonID: 1})
	require.NoError(t, err)
	assert.Greater(t, fx.loads.Load(), loads)
}

func TestForecastSumsPoints(t *testing.T) {
	fx := newFixture(t)
	fx.serve(1, history(1))

	res, err := fx.uc.Forecast(context.Background(), models.ForecastRequest{PersonID: 1, Category: "food", Months: 3})
	require.NoError(t, err)
	require.Len(t, res.Months, 3)

	var sum float64
	for _, p := range res.Months {
		sum += p.EstimatedAmount
	}
	assert.InDelta(t, sum, res.Total, 0.011)
	assert.Equal(t, 2, res.Months[0].Month)
}

func TestInvalidateDropsResponsesForSlashCategories(t *testing.T) {
	fx := newFixture(t)
	txs := history(7)
	for i := range txs {
		if txs[i].Category == "food" {
			txs[i].Category = "food/drinks"
		}
	}
	fx.serve(7, txs)
	ctx := context.Background()

	for _, category := range []string{"food/drinks", "rent"} {
		_, err := fx.uc.PredictMonth(ctx, models.PredictMonthRequest{PersonID: 7, Category: category, Month: 3})
		require.NoError(t, err)
	}
	slash := cache.Key(responsePrefix, int64(7), "month", "food/drinks", 3)
	plain := cache.Key(responsePrefix, int64(7), "month", "rent", 3)
	ok, _ := fx.cache.Exists(ctx, slash, plain)
	require.True(t, ok)

	fx.uc.Invalidate(ctx, 7)

	ok, _ = fx.cache.Exists(ctx, slash)
	assert.False(t, ok, "slash category response")
	ok, _ = fx.cache.Exists(ctx, plain)
	assert.False(t, ok, "plain category response")
}

func TestCachedSkipsWriteAfterConcurrentInvalidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	key := cache.Key(responsePrefix, int64(3), "summary")

	stale := &models.UserSummary{PersonID: 3, TotalTransactions: 1}
	got, err := cached(ctx, fx.uc, 3, key, func(ctx context.Context) (*models.UserSummary, error) {
		fx.uc.Invalidate(ctx, 3)
		return stale, nil
	})
	require.NoError(t, err)
	assert.Same(t, stale, got, "caller still gets its value")

	ok, _ := fx.cache.Exists(ctx, key)
	assert.False(t, ok, "value computed before invalidation is not cached")

	fresh := &models.UserSummary{PersonID: 3, TotalTransactions: 2}
	_, err = cached(ctx, fx.uc, 3, key, func(context.Context) (*models.UserSummary, error) {
		return fresh, nil
	})
	require.NoError(t, err)

	var hit models.UserSummary
	require.NoError(t, fx.cache.Get(ctx, key, &hit))
	assert.Equal(t, 2, hit.TotalTransactions)
}

func TestRetrainReportsInsufficientData(t *testing.T) {
	fx := newFixture(t)
	fx.serve(2, history(2)[:4])

	res, err := fx.uc.Retrain(context.Background(), models.RetrainRequest{PersonID: 2})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 4, res.CurrentCount)
	assert.Equal(t, 20, res.Required)
	assert.Equal(t, 2, res.CurrentMonths)
	assert.Equal(t, 3, res.RequiredMonths)
}

type stalledRegressor struct{}

func (stalledRegressor) Fit(ctx context.Context, _ [][]float64, _ []float64) (service.Model, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRetrainNowReportsTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockTransactionStore(ctrl)
	store.EXPECT().ExpenseTransactions(gomock.Any(), int64(1)).Return(history(1), nil).AnyTimes()

	cfg := forecast.DefaultConfig()
	trainer := forecast.NewTrainer(store, stalledRegressor{}, cfg,
		forecast.WithTrainerClock(func() time.Time { return testNow }))
	mc := forecast.NewModelCache(trainer, 20*time.Millisecond)
	f := forecast.NewForecaster(mc, store, cfg, forecast.WithClock(func() time.Time { return testNow }))
	uc := NewForecastUseCase(f, forecast.NewStatsReporter(f, mc, trainer, cfg), mc, cfg)

	res, err := uc.RetrainNow(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Training timed out", res.Message)
	assert.Nil(t, res.Metrics)
	assert.Nil(t, mc.Peek(1))
}

func TestRetrainIsRateLimited(t *testing.T) {
	fx := newFixture(t, WithRetrainLimiter(ratelimit.New(1, 1)))
	fx.serve(1, history(1))
	ctx := context.Background()

	res, err := fx.uc.Retrain(ctx, models.RetrainRequest{PersonID: 1})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NotNil(t, res.Metrics)
	assert.Equal(t, 12, res.Metrics.TrainingMonths)

	_, err = fx.uc.Retrain(ctx, models.RetrainRequest{PersonID: 1})
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	assert.Greater(t, limited.RetryAfter, time.Duration(0))
}

func TestRetrainAsyncQueuesJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := mocks.NewMockJobQueue(ctrl)
	fx := newFixture(t, WithJobQueue(q))

	q.EXPECT().PublishMessage(gomock.Any(), RetrainJobType, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, payload interface{}) error {
			p, ok := payload.(models.RetrainPayload)
			require.True(t, ok)
			assert.Equal(t, int64(5), p.PersonID)
			assert.Equal(t, testNow, p.RequestedAt)
			return nil
		})

	res, err := fx.uc.Retrain(context.Background(), models.RetrainRequest{PersonID: 5, Async: true})
	require.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Zero(t, fx.loads.Load())
}

func TestRetrainJobSkipsWhenLocked(t *testing.T) {
	fx := newFixture(t)
	fx.serve(1, history(1))
	ctx := context.Background()
	job := NewRetrainJob(fx.uc, fx.cache, nil)

	payload, err := json.Marshal(models.RetrainPayload{PersonID: 1, RequestedAt: testNow})
	require.NoError(t, err)

	key := cache.Key("lock", "retrain", int64(1))
	ok, err := fx.cache.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, job.Handle(ctx, payload))
	assert.Zero(t, fx.loads.Load())

	require.NoError(t, fx.cache.Unlock(ctx, key))
	require.NoError(t, job.Handle(ctx, payload))
	assert.NotNil(t, fx.models.Peek(1))

	ok, err = fx.cache.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "lock released after the job")

	assert.Error(t, job.Handle(ctx, json.RawMessage(`{"person_id":0}`)))
	assert.Error(t, job.Handle(ctx, json.RawMessage(`not json`)))
}

func TestTransactionEventsHandlerInvalidates(t *testing.T) {
	fx := newFixture(t)
	fx.serve(1, history(1))
	ctx := context.Background()
	pub := mocks.NewMockEventPublisher(fx.ctrl)
	h := NewTransactionEventsHandler("budget.transactions", fx.uc, pub, nil, nil)
	assert.Equal(t, "budget.transactions", h.Topic())

	_, err := fx.uc.RetrainNow(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, fx.models.Peek(1))

	pub.EXPECT().PublishModelEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev models.ModelEvent) error {
			assert.Equal(t, models.ModelInvalidated, ev.Type)
			assert.Equal(t, int64(1), ev.PersonID)
			assert.NotEmpty(t, ev.EventID)
			return nil
		}).Times(1)

	msg := []byte(`{"person_id":1,"transaction_id":99,"op":"created"}`)
	require.NoError(t, h.Handle(ctx, msg))
	assert.Nil(t, fx.models.Peek(1))

	// Nothing cached any more, so no second event.
	require.NoError(t, h.Handle(ctx, msg))

	assert.Error(t, h.Handle(ctx, []byte(`{`)))
	assert.Error(t, h.Handle(ctx, []byte(`{"person_id":1,"op":"renamed"}`)))
	assert.Error(t, h.Handle(ctx, []byte(`{"op":"created"}`)))
}

func TestModelEventHook(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockEventPublisher(ctrl)
	hook := ModelEventHook(pub, nil, nil)
	ctx := context.Background()

	var got []models.ModelEvent
	pub.EXPECT().PublishModelEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev models.ModelEvent) error {
			got = append(got, ev)
			return nil
		}).Times(2)

	hook(ctx, 1, &forecast.Bundle{PersonID: 1, TrainedAt: testNow}, nil)
	hook(ctx, 2, nil, &forecast.InsufficientDataError{CurrentTransactions: 3, RequiredTransactions: 20, CurrentMonths: 1, RequiredMonths: 3})
	hook(ctx, 3, nil, errors.New("store down"))

	require.Len(t, got, 2)
	assert.Equal(t, models.ModelTrained, got[0].Type)
	require.NotNil(t, got[0].TrainedAt)
	assert.Equal(t, testNow, *got[0].TrainedAt)
	assert.Equal(t, models.ModelTrainingSkipped, got[1].Type)
	assert.NotEmpty(t, got[1].Reason)
}

func TestModelEventHookAnnouncesSkipOncePerReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockEventPublisher(ctrl)
	hook := ModelEventHook(pub, nil, nil)
	ctx := context.Background()

	var got []models.ModelEvent
	pub.EXPECT().PublishModelEvent(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, ev models.ModelEvent) error {
			got = append(got, ev)
			return nil
		}).Times(4)

	short := &forecast.InsufficientDataError{CurrentTransactions: 3, RequiredTransactions: 20, CurrentMonths: 1, RequiredMonths: 3}
	for i := 0; i < 5; i++ {
		hook(ctx, 2, nil, short)
	}
	require.Len(t, got, 1)

	more := &forecast.InsufficientDataError{CurrentTransactions: 4, RequiredTransactions: 20, CurrentMonths: 1, RequiredMonths: 3}
	hook(ctx, 2, nil, more)
	hook(ctx, 2, nil, more)
	require.Len(t, got, 2)

	hook(ctx, 2, &forecast.Bundle{PersonID: 2, TrainedAt: testNow}, nil)
	hook(ctx, 2, nil, more)
	require.Len(t, got, 4)
	assert.Equal(t, models.ModelTrained, got[2].Type)
	assert.Equal(t, models.ModelTrainingSkipped, got[3].Type)
}
