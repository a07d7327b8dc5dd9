package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
	pkgkafka "BudgetCast/pkg/kafka"
	"BudgetCast/pkg/logger"

	"github.com/go-playground/validator/v10"
)

// TransactionEventsHandler invalidates a person's model whenever the
// transaction service reports a change. Retraining happens on next use.
type TransactionEventsHandler struct {
	topic     string
	uc        *ForecastUseCase
	publisher domrepo.EventPublisher
	metrics   domrepo.Metrics
	validate  *validator.Validate
	log       *logger.Logger
}

var _ pkgkafka.MessageHandler = (*TransactionEventsHandler)(nil)

func NewTransactionEventsHandler(topic string, uc *ForecastUseCase, publisher domrepo.EventPublisher, metrics domrepo.Metrics, l *logger.Logger) *TransactionEventsHandler {
	if l == nil {
		l = logger.Nop()
	}
	return &TransactionEventsHandler{
		topic:     topic,
		uc:        uc,
		publisher: publisher,
		metrics:   metrics,
		validate:  validator.New(),
		log:       l,
	}
}

func (h *TransactionEventsHandler) Topic() string { return h.topic }

func (h *TransactionEventsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.TransactionEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.recordError("consumer_unmarshal")
		return fmt.Errorf("decode transaction event: %w", err)
	}
	if err := h.validate.Struct(ev); err != nil {
		h.recordError("consumer_invalid")
		return fmt.Errorf("invalid transaction event: %w", err)
	}

	dropped := h.uc.Invalidate(ctx, ev.PersonID)
	h.log.Debug("Transaction event handled",
		logger.PersonID(ev.PersonID),
		logger.Int64("transaction_id", ev.TransactionID),
		logger.String("op", string(ev.Op)),
		logger.String("trace_id", pkgkafka.TraceIDFrom(ctx)),
		logger.Bool("model_dropped", dropped))

	if dropped && h.publisher != nil {
		reason := fmt.Sprintf("transaction %d %s", ev.TransactionID, ev.Op)
		if err := h.publisher.PublishModelEvent(ctx, invalidatedEvent(ev.PersonID, reason)); err != nil {
			h.recordError("publish_model_event")
			h.log.Warn("Model event publish failed", logger.PersonID(ev.PersonID), logger.Error(err))
		}
	}
	return nil
}

func (h *TransactionEventsHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}
