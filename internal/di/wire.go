//go:build wireinject
// +build wireinject

package di

import (
	"BudgetCast/pkg/config"
	"BudgetCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure
		ProvideTransactionStore,
		ProvideRedisCache,
		ProvideResponseCache,
		ProvideJobQueue,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideEventPublisher,

		// Forecasting core
		ProvideForecastConfig,
		ProvideTrainer,
		ProvideModelCache,
		ProvideForecaster,
		ProvideStatsReporter,

		// Use cases
		ProvideRetrainLimiter,
		ProvideForecastUseCase,
		ProvideRetrainJob,
		ProvideTransactionEventsHandler,

		// Delivery
		ProvidePredictionsHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
