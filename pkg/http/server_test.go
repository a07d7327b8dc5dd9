package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pingRoutes = RoutesFunc(func(e *echo.Echo) {
	e.GET("/ping/:id", func(c echo.Context) error {
		return SuccessResponse(c, c.Param("id"))
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
})

func newTestServer(opts ...ServerOption) *Server {
	reg := prometheus.NewRegistry()
	opts = append([]ServerOption{WithMetrics(true, "/metrics", reg, reg)}, opts...)
	return NewServer([]Routes{pingRoutes}, opts...)
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func TestServerRoutesAndMetrics(t *testing.T) {
	s := newTestServer()

	rec := serve(s, http.MethodGet, "/ping/7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":"7"`)

	rec = serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/ping/:id",status="200"} 1`)
}

func TestServerRecoversPanics(t *testing.T) {
	s := newTestServer()

	rec := serve(s, http.MethodGet, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(WithHealthCheck("store", func(context.Context) error { return nil }))
	rec := serve(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"ok"`)

	s = newTestServer(WithHealthCheck("store", func(context.Context) error { return errors.New("down") }))
	rec = serve(s, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "down"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/ping/1", nil)
	req.Header.Set(echo.HeaderOrigin, "http://example.com")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.com", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodGet)
}
