package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/repository"
	"BudgetCast/internal/service/ratelimit"
	"BudgetCast/internal/services/forecast"
	"BudgetCast/internal/services/regression"
	"BudgetCast/internal/usecase"
	xlogger "BudgetCast/pkg/logger"
	"BudgetCast/pkg/util"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, opts ...usecase.ForecastOption) *echo.Echo {
	t.Helper()
	store := repository.NewMemoryTransactionStore()
	for i := 0; i < 12; i++ {
		y, m := util.AddMonths(2024, 1, i)
		date := time.Date(y, time.Month(m), 5, 0, 0, 0, 0, time.UTC)
		store.Add(
			models.Transaction{PersonID: 1, Date: date, Amount: decimal.NewFromFloat(120 + 4*float64(i)), Category: "food"},
			models.Transaction{PersonID: 1, Date: date, Amount: decimal.NewFromFloat(800 + 20*float64(i)), Category: "rent"},
		)
	}

	cfg := forecast.DefaultConfig()
	cfg.Model.Estimators = 20
	clock := func() time.Time { return testNow }
	trainer := forecast.NewTrainer(store, regression.NewGradientBoosting(cfg.Model), cfg, forecast.WithTrainerClock(clock))
	mc := forecast.NewModelCache(trainer, cfg.TrainingTimeout)
	f := forecast.NewForecaster(mc, store, cfg, forecast.WithClock(clock))
	stats := forecast.NewStatsReporter(f, mc, trainer, cfg)
	uc := usecase.NewForecastUseCase(f, stats, mc, cfg, opts...)

	e := echo.New()
	NewPredictionsHandler(xlogger.Nop(), uc).RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestForecastAllEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/api/predictions/forecast-all?person_id=1&month=12&year=2024")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.ForecastAllResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 12, res.Month)
	assert.Equal(t, 2024, res.Year)
	assert.True(t, res.IsPastMonth)
	assert.Equal(t, 2, res.TotalCategories)
	assert.Len(t, res.Categories, 2)
}

func TestValidationErrors(t *testing.T) {
	e := newTestServer(t)

	for _, target := range []string{
		"/api/predictions/forecast-all",
		"/api/predictions/forecast-all?person_id=1&month=13",
		"/api/predictions/month?person_id=1&category=food&month=0",
		"/api/predictions/forecast?person_id=1&category=food&months=30",
		"/api/predictions/summary?person_id=-4",
	} {
		rec, env := do(t, e, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Equal(t, http.StatusBadRequest, env.Status, target)
	}
}

func TestForecastEndpointDefaultsHorizon(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/api/predictions/forecast?person_id=1&category=food")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.CategoryForecastResponse
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Len(t, res.Months, 3)
}

func TestCategoryStatsEndpoint(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodGet, "/api/predictions/categories/rent/stats?person_id=1")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.CategoryStats
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "rent", res.Category)
	assert.Equal(t, 12, res.MonthsObserved)
	assert.Equal(t, 12, res.Count)
}

func TestRetrainEndpointRateLimited(t *testing.T) {
	e := newTestServer(t, usecase.WithRetrainLimiter(ratelimit.New(1, 1)))

	rec, env := do(t, e, http.MethodPost, "/api/predictions/retrain?person_id=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.RetrainResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.True(t, res.Success)
	assert.NotNil(t, res.Metrics)

	rec, env = do(t, e, http.MethodPost, "/api/predictions/retrain?person_id=1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, http.StatusTooManyRequests, env.Status)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRetrainEndpointInsufficientData(t *testing.T) {
	e := newTestServer(t)

	rec, env := do(t, e, http.MethodPost, "/api/predictions/retrain?person_id=9")
	require.Equal(t, http.StatusOK, rec.Code)

	var res models.RetrainResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Success)
	assert.Equal(t, 20, res.Required)
}
