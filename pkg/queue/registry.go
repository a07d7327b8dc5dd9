package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BudgetCast/pkg/logger"
)

type registry struct {
	mu   sync.RWMutex
	jobs map[string]Job
	log  *logger.Logger
}

func newRegistry(l *logger.Logger) *registry {
	return &registry{jobs: make(map[string]Job), log: l}
}

func (r *registry) add(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		r.log.Warn("Job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.log.Info("Job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

func (r *registry) has(msgType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.jobs[msgType]
	return ok
}

// run dispatches msg to its job, converting panics to errors.
func (r *registry) run(ctx context.Context, msg Message) (err error) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.log.Error("No job for message", logger.String("type", msg.Type), logger.String("id", msg.ID))
		return nil
	}

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panic: %v", job.Name(), p)
		}
		if err != nil {
			r.log.Warn("Job failed",
				logger.String("job", job.Name()),
				logger.String("id", msg.ID),
				logger.Int("attempt", msg.Attempts+1),
				logger.Duration("elapsed_ms", time.Since(start)),
				logger.Error(err))
		}
	}()
	return job.Handle(ctx, msg.Payload)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
