package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Store struct {
		Type       string `yaml:"type" default:"sqlite"`
		SQLitePath string `yaml:"sqlite_path" default:"data/budget.db"`
		Migrate    bool   `yaml:"migrate" default:"true"`
	} `yaml:"store"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"budget"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled           bool     `yaml:"enabled"`
		Brokers           []string `yaml:"brokers"`
		TransactionsTopic string   `yaml:"transactions_topic" default:"budget.transactions"`
		EventsTopic       string   `yaml:"events_topic" default:"budget.model-events"`
		RequiredAcks      int      `yaml:"required_acks" default:"-1"`
		Compression       string   `yaml:"compression" default:"snappy"`
		Producer          struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id" default:"budgetcast"`
			Workers    int           `yaml:"workers" default:"2"`
			BufferSize int           `yaml:"buffer_size" default:"64"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	Redis struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"6379"`
		Password    string        `yaml:"password"`
		DB          int           `yaml:"db"`
		Prefix      string        `yaml:"prefix" default:"budgetcast"`
		PoolSize    int           `yaml:"pool_size" default:"10"`
		MinIdle     int           `yaml:"min_idle_conns" default:"2"`
		PoolTimeout time.Duration `yaml:"pool_timeout" default:"30s"`
		Queue       struct {
			Workers    int           `yaml:"workers" default:"2"`
			RetryLimit int           `yaml:"retry_limit" default:"3"`
			RetryDelay time.Duration `yaml:"retry_delay" default:"10s"`
		} `yaml:"queue"`
	} `yaml:"redis"`
	Cache struct {
		MemoryMaxSize   int           `yaml:"memory_max_size" default:"2000"`
		CleanupInterval time.Duration `yaml:"cleanup_interval" default:"1m"`
		ResponseTTL     time.Duration `yaml:"response_ttl" default:"5m"`
	} `yaml:"cache"`
	RateLimit struct {
		RetrainCapacity  float64 `yaml:"retrain_capacity" default:"3"`
		RetrainPerMinute float64 `yaml:"retrain_per_minute" default:"1"`
	} `yaml:"rate_limit"`
	Forecast ForecastConfig `yaml:"forecast"`
}

// ForecastConfig holds the tunables of the forecasting pipeline.
type ForecastConfig struct {
	MinTransactions         int           `yaml:"min_transactions" default:"20"`
	MinMonths               int           `yaml:"min_months" default:"3"`
	MinFeatureRows          int           `yaml:"min_feature_rows" default:"6"`
	Lags                    []int         `yaml:"lags" default:"[1,2,3]"`
	RollingWindow           int           `yaml:"rolling_window" default:"3"`
	CVHigh                  float64       `yaml:"cv_high" default:"0.3"`
	CVMedium                float64       `yaml:"cv_medium" default:"0.6"`
	TrendThresholdPct       float64       `yaml:"trend_threshold_pct" default:"5"`
	StrongTrendThresholdPct float64       `yaml:"strong_trend_threshold_pct" default:"25"`
	TrainingTimeout         time.Duration `yaml:"training_timeout" default:"30s"`
	CVSplits                int           `yaml:"cv_splits" default:"3"`
	Model                   struct {
		Estimators      int     `yaml:"estimators" default:"100"`
		MaxDepth        int     `yaml:"max_depth" default:"4"`
		LearningRate    float64 `yaml:"learning_rate" default:"0.1"`
		MinSamplesSplit int     `yaml:"min_samples_split" default:"4"`
		MinSamplesLeaf  int     `yaml:"min_samples_leaf" default:"3"`
		Subsample       float64 `yaml:"subsample" default:"0.8"`
		Seed            int64   `yaml:"seed" default:"10"`
	} `yaml:"model"`
}

// Default returns a configuration populated only from struct defaults.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Parse decodes YAML bytes on top of the struct defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is read first when present.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := read(path)
	if err != nil {
		return nil, err
	}

	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func read(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return decode(b)
}

func decode(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("STORE_TYPE"); v != "" {
		c.Store.Type = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Store.SQLitePath = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("FORECAST_MIN_TRANSACTIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Forecast.MinTransactions = n
		}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	switch c.Store.Type {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for sqlite store")
		}
	case "clickhouse":
		if c.ClickHouse.Host == "" {
			return fmt.Errorf("clickhouse.host is required for clickhouse store")
		}
	default:
		return fmt.Errorf("store.type must be 'memory', 'sqlite' or 'clickhouse', got '%s'", c.Store.Type)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	return c.Forecast.Validate()
}

// SupportedLags lists the lag depths the feature pipeline can build.
var SupportedLags = []int{1, 2, 3, 6, 12}

// Validate checks the forecasting tunables.
func (f *ForecastConfig) Validate() error {
	if f.MinTransactions < 1 {
		return fmt.Errorf("forecast.min_transactions must be positive")
	}
	if f.MinMonths < 1 {
		return fmt.Errorf("forecast.min_months must be positive")
	}
	if f.MinFeatureRows < 1 {
		return fmt.Errorf("forecast.min_feature_rows must be positive")
	}
	if f.RollingWindow < 2 {
		return fmt.Errorf("forecast.rolling_window must be at least 2")
	}
	if f.CVHigh <= 0 || f.CVMedium <= f.CVHigh {
		return fmt.Errorf("forecast.cv_high must be positive and below forecast.cv_medium")
	}
	if f.TrendThresholdPct <= 0 || f.StrongTrendThresholdPct < f.TrendThresholdPct {
		return fmt.Errorf("forecast.strong_trend_threshold_pct must be at least forecast.trend_threshold_pct")
	}
	seen := map[int]bool{}
	for _, l := range f.Lags {
		ok := false
		for _, s := range SupportedLags {
			if l == s {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("forecast.lags: unsupported lag %d", l)
		}
		seen[l] = true
	}
	for _, required := range []int{1, 2, 3} {
		if !seen[required] {
			return fmt.Errorf("forecast.lags must include lag %d", required)
		}
	}
	if f.Model.Estimators < 1 || f.Model.MaxDepth < 1 {
		return fmt.Errorf("forecast.model.estimators and max_depth must be positive")
	}
	if f.Model.LearningRate <= 0 || f.Model.LearningRate > 1 {
		return fmt.Errorf("forecast.model.learning_rate must be in (0, 1]")
	}
	if f.Model.Subsample <= 0 || f.Model.Subsample > 1 {
		return fmt.Errorf("forecast.model.subsample must be in (0, 1]")
	}
	return nil
}
