package repository

import (
	"context"
	"strconv"

	"BudgetCast/internal/domain/models"
	domrepo "BudgetCast/internal/domain/repository"
	pkgkafka "BudgetCast/pkg/kafka"
	"BudgetCast/pkg/logger"
)

// Producer is the part of pkg/kafka.Producer the publisher needs.
type Producer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
	Close() error
}

// KafkaEventPublisher publishes model events keyed by person id so that
// all events of one person stay ordered on one partition.
type KafkaEventPublisher struct {
	producer Producer
	topic    string
}

var _ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)

func NewKafkaEventPublisher(producer Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishModelEvent(ctx context.Context, ev models.ModelEvent) error {
	return p.producer.PublishBatch(ctx, p.topic, []pkgkafka.Message{{
		Key:   []byte(strconv.FormatInt(ev.PersonID, 10)),
		Value: ev,
		Headers: map[string]string{
			"event_type":           string(ev.Type),
			pkgkafka.TraceIDHeader: ev.EventID,
		},
	}})
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// LogEventPublisher writes model events to the log when Kafka is disabled.
type LogEventPublisher struct {
	l *logger.Logger
}

var _ domrepo.EventPublisher = (*LogEventPublisher)(nil)

func NewLogEventPublisher(l *logger.Logger) *LogEventPublisher {
	if l == nil {
		l = logger.Nop()
	}
	return &LogEventPublisher{l: l}
}

func (p *LogEventPublisher) PublishModelEvent(_ context.Context, ev models.ModelEvent) error {
	p.l.Info("Model event",
		logger.String("event_id", ev.EventID),
		logger.String("type", string(ev.Type)),
		logger.PersonID(ev.PersonID),
		logger.String("reason", ev.Reason),
	)
	return nil
}

func (p *LogEventPublisher) Close() error { return nil }
