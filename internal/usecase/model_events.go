package usecase

import (
	"context"
	"sync"
	"time"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
	"BudgetCast/internal/services/forecast"
	"BudgetCast/pkg/logger"

	"github.com/google/uuid"
)

const publishTimeout = 5 * time.Second

// ModelEventHook publishes a model event after every training attempt.
// A skipped training is announced once per distinct reason until the person
// gets a model.
// Publish failures are logged and never fail the training.
func ModelEventHook(pub domrepo.EventPublisher, metrics domrepo.Metrics, l *logger.Logger) forecast.TrainHook {
	if l == nil {
		l = logger.Nop()
	}
	var (
		mu      sync.Mutex
		skipped = make(map[int64]string)
	)
	return func(ctx context.Context, personID int64, b *forecast.Bundle, err error) {
		ev, ok := modelEvent(personID, b, err)
		if !ok {
			return
		}

		mu.Lock()
		if ev.Type == models.ModelTrainingSkipped {
			if skipped[personID] == ev.Reason {
				mu.Unlock()
				return
			}
			skipped[personID] = ev.Reason
		} else {
			delete(skipped, personID)
		}
		mu.Unlock()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if perr := pub.PublishModelEvent(pctx, ev); perr != nil {
			if metrics != nil {
				metrics.RecordError("publish_model_event")
			}
			l.Warn("Model event publish failed",
				logger.PersonID(personID),
				logger.String("type", string(ev.Type)),
				logger.Error(perr))
		}
	}
}

func modelEvent(personID int64, b *forecast.Bundle, err error) (models.ModelEvent, bool) {
	ev := models.ModelEvent{
		EventID:    uuid.NewString(),
		PersonID:   personID,
		OccurredAt: time.Now().UTC(),
	}
	switch {
	case err == nil && b != nil:
		trainedAt := b.TrainedAt
		metrics := b.Metrics
		ev.Type = models.ModelTrained
		ev.TrainedAt = &trainedAt
		ev.Metrics = &metrics
	case err != nil:
		insufficient, ok := forecast.IsInsufficientData(err)
		if !ok {
			return ev, false
		}
		ev.Type = models.ModelTrainingSkipped
		ev.Reason = insufficient.Error()
	default:
		return ev, false
	}
	return ev, true
}

// invalidatedEvent announces that a person's model was dropped.
func invalidatedEvent(personID int64, reason string) models.ModelEvent {
	return models.ModelEvent{
		EventID:    uuid.NewString(),
		Type:       models.ModelInvalidated,
		PersonID:   personID,
		OccurredAt: time.Now().UTC(),
		Reason:     reason,
	}
}
