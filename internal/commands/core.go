package commands

import (
	"context"

	"BudgetCast/internal/di"
	"BudgetCast/internal/domain/repository"
	internalrepo "BudgetCast/internal/repository"
	"BudgetCast/internal/usecase"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// core is the forecasting stack without HTTP, Kafka or Redis.
type core struct {
	log   *logger.Logger
	store repository.TransactionStore
	uc    *usecase.ForecastUseCase
}

func (o *globalOptions) open(ctx context.Context) (*core, error) {
	cfg, err := o.load()
	if err != nil {
		return nil, err
	}
	l, err := di.ProvideLogger(cfg)
	if err != nil {
		return nil, err
	}
	store, err := di.ProvideTransactionStore(cfg, l)
	if err != nil {
		return nil, err
	}

	m := metrics.New(prometheus.NewRegistry())
	fc := di.ProvideForecastConfig(cfg)
	trainer := di.ProvideTrainer(store, fc)
	mc := di.ProvideModelCache(trainer, fc, internalrepo.NewLogEventPublisher(l), m, l)
	f := di.ProvideForecaster(mc, store, fc, m, l)
	stats := di.ProvideStatsReporter(f, mc, trainer, fc)

	uc := usecase.NewForecastUseCase(f, stats, mc, fc,
		usecase.WithUseCaseMetrics(m),
		usecase.WithUseCaseLogger(l),
	)
	return &core{log: l, store: store, uc: uc}, nil
}

func (c *core) Close() error {
	return c.store.Close()
}
