package di

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"BudgetCast/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memoryConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Type = "memory"
	cfg.Log.Level = "error"
	cfg.Log.Output = "stderr"
	require.NoError(t, cfg.Validate())
	return cfg
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestInitializeAppWithLocalBackends(t *testing.T) {
	app, err := InitializeApp(memoryConfig(t))
	require.NoError(t, err)
	e := app.HTTP().Echo()

	rec := get(t, e, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store":"ok"`)

	rec = get(t, e, "/api/predictions/summary?person_id=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"has_data":false`)

	rec = get(t, e, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "go_goroutines"))
	assert.True(t, strings.Contains(body, "http_requests_total"))

	require.NoError(t, app.Shutdown(context.Background()))
}

func TestInitializeAppMigratesSQLiteStore(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.Store.Type = "sqlite"
	cfg.Store.SQLitePath = t.TempDir() + "/budget.db"

	app, err := InitializeApp(cfg)
	require.NoError(t, err)
	require.NoError(t, app.Shutdown(context.Background()))
}
