package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := Default()

	assert.Equal(t, "development", c.Environment)
	assert.Equal(t, "sqlite", c.Store.Type)
	assert.Equal(t, 20, c.Forecast.MinTransactions)
	assert.Equal(t, 3, c.Forecast.MinMonths)
	assert.Equal(t, 6, c.Forecast.MinFeatureRows)
	assert.Equal(t, []int{1, 2, 3}, c.Forecast.Lags)
	assert.Equal(t, 0.3, c.Forecast.CVHigh)
	assert.Equal(t, 0.6, c.Forecast.CVMedium)
	assert.Equal(t, 30*time.Second, c.Forecast.TrainingTimeout)
	assert.Equal(t, 100, c.Forecast.Model.Estimators)
	assert.Equal(t, int64(10), c.Forecast.Model.Seed)
	assert.Equal(t, 10, c.Redis.PoolSize)
	assert.Equal(t, 2, c.Redis.MinIdle)
	assert.Equal(t, 30*time.Second, c.Redis.PoolTimeout)
	assert.Equal(t, time.Minute, c.Cache.CleanupInterval)
	require.NoError(t, c.Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(`
environment: test
store:
  type: memory
forecast:
  min_transactions: 30
  lags: [1, 2, 3, 6, 12]
`))
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, "memory", c.Store.Type)
	assert.Equal(t, 30, c.Forecast.MinTransactions)
	assert.Equal(t, []int{1, 2, 3, 6, 12}, c.Forecast.Lags)
	assert.Equal(t, 3, c.Forecast.MinMonths)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown store",
			yaml:    "store: {type: postgres}",
			wantErr: "store.type",
		},
		{
			name:    "clickhouse without host",
			yaml:    "store: {type: clickhouse}",
			wantErr: "clickhouse.host",
		},
		{
			name:    "kafka without brokers",
			yaml:    "kafka: {enabled: true}",
			wantErr: "kafka.brokers",
		},
		{
			name:    "unsupported lag",
			yaml:    "forecast: {lags: [1, 2, 3, 4]}",
			wantErr: "unsupported lag 4",
		},
		{
			name:    "missing base lag",
			yaml:    "forecast: {lags: [1, 2]}",
			wantErr: "must include lag 3",
		},
		{
			name:    "inverted cv thresholds",
			yaml:    "forecast: {cv_high: 0.7, cv_medium: 0.6}",
			wantErr: "cv_high",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: {type: clickhouse}\n"), 0o600))

	t.Setenv("CLICKHOUSE_HOST", "ch.internal")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "ch.internal", c.ClickHouse.Host)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}
