package models

import "time"

// TransactionOp is the change reported by the transaction service.
type TransactionOp string

const (
	TransactionCreated TransactionOp = "created"
	TransactionUpdated TransactionOp = "updated"
	TransactionDeleted TransactionOp = "deleted"
)

// TransactionEvent is consumed from the transactions topic.
type TransactionEvent struct {
	EventID       string        `json:"event_id"`
	PersonID      int64         `json:"person_id" validate:"required,gt=0"`
	TransactionID int64         `json:"transaction_id"`
	Op            TransactionOp `json:"op" validate:"required,oneof=created updated deleted"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

type ModelEventType string

const (
	ModelTrained         ModelEventType = "model_trained"
	ModelTrainingSkipped ModelEventType = "model_training_skipped"
	ModelInvalidated     ModelEventType = "model_invalidated"
)

// ModelEvent is published whenever a person's model changes state.
type ModelEvent struct {
	EventID    string         `json:"event_id"`
	Type       ModelEventType `json:"type"`
	PersonID   int64          `json:"person_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	TrainedAt  *time.Time     `json:"trained_at,omitempty"`
	Metrics    *ModelMetrics  `json:"metrics,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// RetrainPayload is the queue payload of an asynchronous retrain.
type RetrainPayload struct {
	PersonID    int64     `json:"person_id"`
	RequestedAt time.Time `json:"requested_at"`
}
