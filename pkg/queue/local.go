package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"BudgetCast/pkg/logger"
)

// LocalQueue runs jobs on an in-process worker pool. It is used when Redis
// is not configured; messages do not survive a restart.
type LocalQueue struct {
	logger *logger.Logger
	config *QueueConfig
	jobs   *registry
	msgs   chan Message

	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewLocalQueue creates an in-process queue.
func NewLocalQueue(lgr *logger.Logger, config *QueueConfig) *LocalQueue {
	if config == nil {
		config = &QueueConfig{}
	}
	if config.Workers <= 0 {
		config.Workers = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 64
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{
		logger: lgr,
		config: config,
		jobs:   newRegistry(lgr),
		msgs:   make(chan Message, config.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}
}

// RegisterJob registers a single job.
func (q *LocalQueue) RegisterJob(job Job) {
	q.jobs.add(job)
}

// Start launches the workers.
func (q *LocalQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.logger.Info("Local queue started", logger.Int("workers", q.config.Workers))
	return nil
}

// Stop cancels pending retries and waits for running jobs.
func (q *LocalQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	case <-done:
		return nil
	}
}

// PublishMessage enqueues a message, blocking while the buffer is full.
func (q *LocalQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if !q.running {
		return ErrNotRunning
	}
	if !q.jobs.has(msgType) {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	select {
	case q.msgs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-q.ctx.Done():
		return ErrNotRunning
	}
}

func (q *LocalQueue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case msg := <-q.msgs:
			q.process(msg)
		}
	}
}

func (q *LocalQueue) process(msg Message) {
	for {
		err := q.jobs.run(q.ctx, msg)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		if msg.Attempts >= q.config.RetryLimit {
			q.logger.Error("Queue message exhausted retries",
				logger.String("id", msg.ID),
				logger.String("type", msg.Type),
				logger.Error(err))
			return
		}
		msg.Attempts++
		sleepCtx(q.ctx, q.config.RetryDelay)
		if q.ctx.Err() != nil {
			return
		}
	}
}

var _ Runner = (*LocalQueue)(nil)
var _ Runner = (*RedisQueue)(nil)

