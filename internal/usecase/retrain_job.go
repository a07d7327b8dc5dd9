package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"BudgetCast/internal/domain/models"
	"BudgetCast/pkg/cache"
	"BudgetCast/pkg/logger"
	"BudgetCast/pkg/queue"
)

const retrainLockTTL = 2 * time.Minute

// RetrainJob runs queued retrains. A cache lock keeps one retrain per person
// in flight across instances.
type RetrainJob struct {
	uc    *ForecastUseCase
	locks cache.Service
	log   *logger.Logger
}

var _ queue.Job = (*RetrainJob)(nil)

func NewRetrainJob(uc *ForecastUseCase, locks cache.Service, l *logger.Logger) *RetrainJob {
	if l == nil {
		l = logger.Nop()
	}
	return &RetrainJob{uc: uc, locks: locks, log: l}
}

func (j *RetrainJob) Name() string { return "retrain-model" }

func (j *RetrainJob) Type() string { return RetrainJobType }

func (j *RetrainJob) Handle(ctx context.Context, raw json.RawMessage) error {
	p, err := queue.ParsePayload[models.RetrainPayload](raw)
	if err != nil {
		return err
	}
	if p.PersonID <= 0 {
		return fmt.Errorf("retrain payload: invalid person_id %d", p.PersonID)
	}

	if j.locks != nil {
		key := cache.Key("lock", "retrain", p.PersonID)
		ok, err := j.locks.TryLock(ctx, key, retrainLockTTL)
		if err != nil {
			return fmt.Errorf("retrain lock: %w", err)
		}
		if !ok {
			j.log.Info("Retrain already running", logger.PersonID(p.PersonID))
			return nil
		}
		defer func() {
			if err := j.locks.Unlock(context.WithoutCancel(ctx), key); err != nil {
				j.log.Warn("Retrain unlock failed", logger.PersonID(p.PersonID), logger.Error(err))
			}
		}()
	}

	res, err := j.uc.RetrainNow(ctx, p.PersonID)
	if err != nil {
		return err
	}
	j.log.Info("Retrain finished",
		logger.PersonID(p.PersonID),
		logger.Bool("success", res.Success),
		logger.String("message", res.Message),
		logger.Duration("queued_for_ms", time.Since(p.RequestedAt)))
	return nil
}
