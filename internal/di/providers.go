package di

import (
	"context"
	"fmt"
	"time"

	"BudgetCast/internal/domain/repository"
	"BudgetCast/internal/handler/api"
	internalrepo "BudgetCast/internal/repository"
	"BudgetCast/internal/service/ratelimit"
	"BudgetCast/internal/services/forecast"
	"BudgetCast/internal/services/regression"
	"BudgetCast/internal/usecase"
	"BudgetCast/pkg/cache"
	pkgch "BudgetCast/pkg/clickhouse"
	"BudgetCast/pkg/config"
	pkgkafka "BudgetCast/pkg/kafka"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/metrics"
	"BudgetCast/pkg/queue"
	"BudgetCast/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ProvideLogger creates the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	l, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates a private Prometheus registry with runtime collectors.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideTransactionStore opens the configured transaction backend.
func ProvideTransactionStore(cfg *config.Config, l *logger.Logger) (repository.TransactionStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.Store.Type {
	case "memory":
		return internalrepo.NewMemoryTransactionStore(), nil
	case "clickhouse":
		client, err := pkgch.NewClient(ctx,
			pkgch.WithHost(cfg.ClickHouse.Host),
			pkgch.WithPort(cfg.ClickHouse.Port),
			pkgch.WithDatabase(cfg.ClickHouse.Database),
			pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
			pkgch.WithMaxConnections(10, 5),
			pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
			pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
			pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		)
		if err != nil {
			return nil, fmt.Errorf("clickhouse client: %w", err)
		}
		store := internalrepo.NewClickHouseTransactionStore(client, l)
		if err := store.Init(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return store, nil
	default:
		store, err := internalrepo.NewSQLiteTransactionStore(ctx, cfg.Store.SQLitePath, cfg.Store.Migrate, l)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return store, nil
	}
}

// ProvideRedisCache connects to Redis when enabled; nil otherwise.
func ProvideRedisCache(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdle, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, nil
}

// ProvideResponseCache layers process memory over Redis, or uses memory alone.
func ProvideResponseCache(cfg *config.Config, rc *cache.RedisCache) cache.Service {
	memory := []cache.MemoryOption{
		cache.WithMemoryMaxSize(cfg.Cache.MemoryMaxSize),
		cache.WithMemoryCleanup(cfg.Cache.CleanupInterval),
	}
	if rc == nil {
		return cache.NewMemoryCache(memory...)
	}
	return cache.NewLayeredCache(rc,
		cache.WithLayeredMemory(memory...),
		cache.WithLayeredMemoryTTL(cfg.Cache.ResponseTTL),
	)
}

// ProvideJobQueue picks the Redis queue when Redis is enabled.
func ProvideJobQueue(cfg *config.Config, rc *cache.RedisCache, l *logger.Logger) queue.Runner {
	qc := &queue.QueueConfig{
		Workers:    cfg.Redis.Queue.Workers,
		QueueSize:  64,
		RetryLimit: cfg.Redis.Queue.RetryLimit,
		RetryDelay: cfg.Redis.Queue.RetryDelay,
	}
	if rc == nil {
		return queue.NewLocalQueue(l, qc)
	}
	return queue.NewRedisQueue(l, qc, rc.Client(), queue.ModeProducerConsumer,
		queue.WithKeyPrefix(cfg.Redis.Prefix+":queue"),
	)
}

// ProvideKafkaProducer creates a Kafka producer when Kafka is enabled.
func ProvideKafkaProducer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
		pkgkafka.WithProducerLogger(l),
		pkgkafka.WithProducerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideEventPublisher publishes model events to Kafka, or to the log when Kafka is off.
func ProvideEventPublisher(cfg *config.Config, producer *pkgkafka.Producer, l *logger.Logger) repository.EventPublisher {
	if producer == nil {
		return internalrepo.NewLogEventPublisher(l)
	}
	return internalrepo.NewKafkaEventPublisher(producer, cfg.Kafka.EventsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger, reg *prometheus.Registry) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
		pkgkafka.WithConsumerRegisterer(reg),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LoggingHook(l)))
	return consumer, nil
}

func ProvideForecastConfig(cfg *config.Config) forecast.Config {
	return forecast.NewConfig(cfg.Forecast)
}

func ProvideTrainer(store repository.TransactionStore, fc forecast.Config) *forecast.Trainer {
	return forecast.NewTrainer(store, regression.NewGradientBoosting(fc.Model), fc)
}

// ProvideModelCache creates the per-person model cache and hooks model events onto it.
func ProvideModelCache(
	trainer *forecast.Trainer,
	fc forecast.Config,
	pub repository.EventPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *forecast.ModelCache {
	return forecast.NewModelCache(trainer, fc.TrainingTimeout,
		forecast.WithCacheLogger(l),
		forecast.WithCacheMetrics(m),
		forecast.WithTrainHook(usecase.ModelEventHook(pub, m, l)),
	)
}

func ProvideForecaster(
	mc *forecast.ModelCache,
	store repository.TransactionStore,
	fc forecast.Config,
	m repository.Metrics,
	l *logger.Logger,
) *forecast.Forecaster {
	return forecast.NewForecaster(mc, store, fc,
		forecast.WithLogger(l),
		forecast.WithMetrics(m),
	)
}

func ProvideStatsReporter(f *forecast.Forecaster, mc *forecast.ModelCache, trainer *forecast.Trainer, fc forecast.Config) *forecast.StatsReporter {
	return forecast.NewStatsReporter(f, mc, trainer, fc)
}

// ProvideRetrainLimiter bounds manual retrains per person.
func ProvideRetrainLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.RetrainCapacity, cfg.RateLimit.RetrainPerMinute)
}

// ProvideForecastUseCase assembles the prediction use case.
func ProvideForecastUseCase(
	cfg *config.Config,
	f *forecast.Forecaster,
	stats *forecast.StatsReporter,
	mc *forecast.ModelCache,
	fc forecast.Config,
	responses cache.Service,
	jobs queue.Runner,
	limiter *ratelimit.Limiter,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.ForecastUseCase {
	return usecase.NewForecastUseCase(f, stats, mc, fc,
		usecase.WithResponseCache(responses, cfg.Cache.ResponseTTL),
		usecase.WithJobQueue(jobs),
		usecase.WithRetrainLimiter(limiter),
		usecase.WithUseCaseMetrics(m),
		usecase.WithUseCaseLogger(l),
	)
}

func ProvideRetrainJob(uc *usecase.ForecastUseCase, responses cache.Service, l *logger.Logger) *usecase.RetrainJob {
	return usecase.NewRetrainJob(uc, responses, l)
}

// ProvideTransactionEventsHandler handles change notifications from the transaction service.
func ProvideTransactionEventsHandler(
	cfg *config.Config,
	uc *usecase.ForecastUseCase,
	pub repository.EventPublisher,
	m repository.Metrics,
	l *logger.Logger,
) *usecase.TransactionEventsHandler {
	return usecase.NewTransactionEventsHandler(cfg.Kafka.TransactionsTopic, uc, pub, m, l)
}

func ProvidePredictionsHandler(l *logger.Logger, uc *usecase.ForecastUseCase) *api.PredictionsHandler {
	return api.NewPredictionsHandler(l, uc)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	reg *prometheus.Registry,
	handler *api.PredictionsHandler,
	store repository.TransactionStore,
	rc *cache.RedisCache,
	responses cache.Service,
	jobs queue.Runner,
	job *usecase.RetrainJob,
	consumer *pkgkafka.Consumer,
	events *usecase.TransactionEventsHandler,
	pub repository.EventPublisher,
	limiter *ratelimit.Limiter,
) *server.App {
	jobs.RegisterJob(job)

	opts := []server.Option{
		server.WithLogger(l),
		server.WithRegistry(reg),
		server.WithHandlers(handler),
		server.WithStore(store),
		server.WithResponseCache(responses),
		server.WithJobs(jobs),
		server.WithPublisher(pub),
		server.WithLimiter(limiter),
	}
	if consumer != nil {
		opts = append(opts, server.WithConsumer(consumer, events))
	}
	if rc != nil {
		opts = append(opts, server.WithHealthCheck("redis", func(ctx context.Context) error {
			return rc.Client().Ping(ctx).Err()
		}))
	}
	return server.New(cfg, opts...)
}
