package forecast

import (
	"context"
	"errors"
	"sync"
	"time"

	"BudgetCast/internal/domain/repository"
	"BudgetCast/pkg/logger"
)

// TrainHook observes every training attempt. err is nil on success.
type TrainHook func(ctx context.Context, personID int64, b *Bundle, err error)

// ModelCache holds one bundle per person for the life of the process.
// Training for a person is serialized behind that person's lock; different
// persons train independently.
type ModelCache struct {
	trainer *Trainer
	timeout time.Duration
	log     *logger.Logger
	metrics repository.Metrics
	hooks   []TrainHook

	mu      sync.Mutex
	bundles map[int64]*Bundle
	locks   map[int64]*sync.Mutex
}

type CacheOption func(*ModelCache)

func WithCacheLogger(l *logger.Logger) CacheOption {
	return func(c *ModelCache) { c.log = l }
}

func WithCacheMetrics(m repository.Metrics) CacheOption {
	return func(c *ModelCache) { c.metrics = m }
}

// WithTrainHook registers a hook run after each training attempt.
func WithTrainHook(h TrainHook) CacheOption {
	return func(c *ModelCache) { c.hooks = append(c.hooks, h) }
}

func NewModelCache(trainer *Trainer, timeout time.Duration, opts ...CacheOption) *ModelCache {
	c := &ModelCache{
		trainer: trainer,
		timeout: timeout,
		log:     logger.Nop(),
		metrics: nopMetrics{},
		bundles: make(map[int64]*Bundle),
		locks:   make(map[int64]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Peek returns the cached bundle without training.
func (c *ModelCache) Peek(personID int64) *Bundle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bundles[personID]
}

// GetOrTrain returns the cached bundle, training it on first use. Insufficient
// data yields an *InsufficientDataError and leaves the cache untouched.
func (c *ModelCache) GetOrTrain(ctx context.Context, personID int64) (*Bundle, error) {
	if b := c.Peek(personID); b != nil {
		c.metrics.RecordCacheLookup("model", true)
		return b, nil
	}

	l := c.lockFor(personID)
	l.Lock()
	defer l.Unlock()

	if b := c.Peek(personID); b != nil {
		c.metrics.RecordCacheLookup("model", true)
		return b, nil
	}
	c.metrics.RecordCacheLookup("model", false)
	return c.trainLocked(ctx, personID)
}

// InvalidateAndRetrain drops any cached bundle and trains from scratch.
func (c *ModelCache) InvalidateAndRetrain(ctx context.Context, personID int64) (*Bundle, error) {
	l := c.lockFor(personID)
	l.Lock()
	defer l.Unlock()

	c.drop(personID)
	return c.trainLocked(ctx, personID)
}

// Invalidate drops the cached bundle. It waits for an in-flight training of
// the same person so a stale bundle cannot be stored afterwards.
func (c *ModelCache) Invalidate(personID int64) bool {
	l := c.lockFor(personID)
	l.Lock()
	defer l.Unlock()
	return c.drop(personID)
}

// Len returns the number of cached bundles.
func (c *ModelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bundles)
}

func (c *ModelCache) trainLocked(ctx context.Context, personID int64) (*Bundle, error) {
	tctx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	b, err := c.trainer.Train(tctx, personID)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		c.mu.Lock()
		c.bundles[personID] = b
		c.mu.Unlock()
		c.metrics.RecordTraining("trained", elapsed.Seconds())
		c.log.Info("Model trained",
			logger.PersonID(personID),
			logger.Int("samples", b.Metrics.TrainingSamples),
			logger.Float64("mae", b.Metrics.MAE),
			logger.Float64("cv_mae", b.Metrics.CVMAE),
			logger.Duration("took", elapsed),
		)
	case isInsufficient(err):
		c.metrics.RecordTraining("skipped", elapsed.Seconds())
		c.log.Debug("Model training skipped", logger.PersonID(personID), logger.Error(err))
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		err = ErrTrainingTimeout
		c.metrics.RecordTraining("timeout", elapsed.Seconds())
		c.log.Warn("Model training timed out", logger.PersonID(personID), logger.Duration("timeout", c.timeout))
	default:
		c.metrics.RecordTraining("failed", elapsed.Seconds())
		c.log.Error("Model training failed", logger.PersonID(personID), logger.Error(err))
	}

	for _, h := range c.hooks {
		h(ctx, personID, b, err)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *ModelCache) lockFor(personID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[personID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[personID] = l
	}
	return l
}

func (c *ModelCache) drop(personID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.bundles[personID]
	delete(c.bundles, personID)
	return ok
}

func isInsufficient(err error) bool {
	_, ok := IsInsufficientData(err)
	return ok
}
