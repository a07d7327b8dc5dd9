package api

import (
	"errors"
	"math"
	"strconv"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/services/features"
	"BudgetCast/internal/services/forecast"
	"BudgetCast/internal/usecase"
	xhttp "BudgetCast/pkg/http"
	xlogger "BudgetCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

var _ xhttp.Routes = (*PredictionsHandler)(nil)

// PredictionsHandler exposes the forecasting use case under /api/predictions.
type PredictionsHandler struct {
	logger *xlogger.Logger
	uc     *usecase.ForecastUseCase
}

func NewPredictionsHandler(logger *xlogger.Logger, uc *usecase.ForecastUseCase) *PredictionsHandler {
	return &PredictionsHandler{logger: logger, uc: uc}
}

func (h *PredictionsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/predictions")
	g.GET("/forecast-all", h.ForecastAll)
	g.GET("/forecast", h.Forecast)
	g.GET("/month", h.PredictMonth)
	g.GET("/summary", h.Summary)
	g.GET("/categories/:category/stats", h.CategoryStats)
	g.GET("/feature-importance", h.FeatureImportance)
	g.POST("/retrain", h.Retrain)
}

func (h *PredictionsHandler) ForecastAll(c echo.Context) error {
	req := &models.ForecastAllRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.ForecastAll(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "forecast-all", req.PersonID, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=60")
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Forecast(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "forecast", req.PersonID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) PredictMonth(c echo.Context) error {
	req := &models.PredictMonthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.PredictMonth(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "month", req.PersonID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) Summary(c echo.Context) error {
	req := &models.PersonRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Summary(c.Request().Context(), req.PersonID)
	if err != nil {
		return h.fail(c, "summary", req.PersonID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) CategoryStats(c echo.Context) error {
	req := &models.CategoryStatsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.CategoryStats(c.Request().Context(), *req)
	if err != nil {
		return h.fail(c, "category-stats", req.PersonID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) FeatureImportance(c echo.Context) error {
	req := &models.PersonRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.FeatureImportance(c.Request().Context(), req.PersonID)
	if err != nil {
		return h.fail(c, "feature-importance", req.PersonID, err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *PredictionsHandler) Retrain(c echo.Context) error {
	req := &models.RetrainRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.uc.Retrain(c.Request().Context(), *req)
	if err != nil {
		var limited *usecase.RateLimitedError
		if errors.As(err, &limited) {
			secs := int(math.Ceil(limited.RetryAfter.Seconds()))
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}
		return h.fail(c, "retrain", req.PersonID, err)
	}
	if res.Queued {
		return xhttp.AcceptedResponse(c, res)
	}
	return xhttp.SuccessResponse(c, res)
}

// fail maps use case errors onto the response envelope.
func (h *PredictionsHandler) fail(c echo.Context, op string, personID int64, err error) error {
	var limited *usecase.RateLimitedError
	switch {
	case errors.As(err, &limited):
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(err.Error()))
	case errors.Is(err, forecast.ErrInvalidMonth), errors.Is(err, forecast.ErrInvalidHorizon):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, features.ErrMalformedTransaction):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	}

	h.logger.Error("Predictions request failed",
		xlogger.String("op", op),
		xlogger.PersonID(personID),
		xlogger.Error(err))
	return xhttp.InternalServerErrorResponse(c)
}
