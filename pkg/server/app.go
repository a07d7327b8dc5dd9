package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"BudgetCast/internal/domain/repository"
	"BudgetCast/internal/service/ratelimit"
	"BudgetCast/pkg/config"
	xhttp "BudgetCast/pkg/http"
	pkgkafka "BudgetCast/pkg/kafka"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/queue"

	"github.com/prometheus/client_golang/prometheus"
)

const limiterPruneInterval = 10 * time.Minute

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *logger.Logger
	reg       *prometheus.Registry
	handlers  []xhttp.Routes
	health    map[string]xhttp.HealthCheck
	store     repository.TransactionStore
	responses io.Closer
	jobs      queue.Runner
	consumer  *pkgkafka.Consumer
	events    pkgkafka.MessageHandler
	publisher repository.EventPublisher
	limiter   *ratelimit.Limiter

	httpServer *xhttp.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type Option func(*App)

func WithLogger(l *logger.Logger) Option {
	return func(a *App) { a.log = l }
}

// WithRegistry serves metrics from reg instead of the default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) { a.reg = reg }
}

func WithHandlers(hs ...xhttp.Routes) Option {
	return func(a *App) { a.handlers = append(a.handlers, hs...) }
}

// WithStore closes the store on shutdown and reports it on /healthz.
func WithStore(s repository.TransactionStore) Option {
	return func(a *App) {
		a.store = s
		a.health["store"] = s.Health
	}
}

func WithResponseCache(c io.Closer) Option {
	return func(a *App) { a.responses = c }
}

func WithJobs(q queue.Runner) Option {
	return func(a *App) { a.jobs = q }
}

// WithConsumer subscribes h to its topic when the app starts.
func WithConsumer(c *pkgkafka.Consumer, h pkgkafka.MessageHandler) Option {
	return func(a *App) {
		a.consumer = c
		a.events = h
	}
}

func WithPublisher(p repository.EventPublisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithLimiter prunes idle limiter buckets in the background.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(a *App) { a.limiter = l }
}

func WithHealthCheck(name string, check xhttp.HealthCheck) Option {
	return func(a *App) { a.health[name] = check }
}

// New creates a new App. The HTTP server is built but not started.
func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		cfg:    cfg,
		log:    logger.Nop(),
		health: map[string]xhttp.HealthCheck{},
	}
	for _, opt := range opts {
		opt(a)
	}

	serverOpts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(a.log),
	}
	if a.reg != nil {
		serverOpts = append(serverOpts, xhttp.WithMetrics(cfg.Metrics.Enabled, cfg.Metrics.Path, a.reg, a.reg))
	}
	for name, check := range a.health {
		serverOpts = append(serverOpts, xhttp.WithHealthCheck(name, check))
	}
	a.httpServer = xhttp.NewServer(a.handlers, serverOpts...)
	return a
}

// HTTP exposes the HTTP server, mainly for tests.
func (a *App) HTTP() *xhttp.Server { return a.httpServer }

// Start launches background workers, the Kafka consumer and the HTTP server.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	if a.jobs != nil {
		if err := a.jobs.Start(); err != nil {
			return fmt.Errorf("start job queue: %w", err)
		}
	}

	if a.consumer != nil && a.events != nil {
		a.consumer.RegisterHandler(a.events)
		if err := a.consumer.Start(); err != nil {
			return fmt.Errorf("start kafka consumer: %w", err)
		}
		a.log.Info("Listening for transaction events", logger.String("topic", a.events.Topic()))
	}

	if a.limiter != nil {
		a.wg.Add(1)
		go a.pruneLimiter(ctx)
	}

	if err := a.httpServer.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}
	a.log.Info("BudgetCast started",
		logger.String("env", a.cfg.Environment),
		logger.String("store", a.cfg.Store.Type),
		logger.Bool("kafka", a.consumer != nil),
		logger.Bool("redis", a.cfg.Redis.Enabled),
	)
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	<-ctx.Done()
	a.log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops intake first, then drains workers and releases infrastructure.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.httpServer.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("kafka consumer: %w", err))
		}
	}
	if a.jobs != nil {
		if err := a.jobs.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("job queue: %w", err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event publisher: %w", err))
		}
	}
	if a.responses != nil {
		if err := a.responses.Close(); err != nil {
			errs = append(errs, fmt.Errorf("response cache: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("store: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		a.log.Warn("Shutdown finished with errors", logger.Error(err))
		return err
	}
	a.log.Info("Shutdown complete")
	return nil
}

func (a *App) pruneLimiter(ctx context.Context) {
	defer a.wg.Done()
	ticker := time.NewTicker(limiterPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.limiter.Prune(); n > 0 {
				a.log.Debug("Pruned idle rate limit buckets", logger.Int("count", n))
			}
		}
	}
}
