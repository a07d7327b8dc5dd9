package repository

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

import (
	"context"

	"BudgetCast/internal/domain/models"
)

// TransactionStore is the read-only port onto the transaction service's data.
type TransactionStore interface {
	// ExpenseTransactions returns every expense transaction of a person, oldest first.
	ExpenseTransactions(ctx context.Context, personID int64) ([]models.Transaction, error)
	// ExpenseCategories returns the names of all expense categories.
	ExpenseCategories(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher announces model lifecycle changes to other services.
type EventPublisher interface {
	PublishModelEvent(ctx context.Context, ev models.ModelEvent) error
	Close() error
}

// JobQueue schedules background work.
type JobQueue interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

type Metrics interface {
	RecordTraining(result string, seconds float64)
	RecordPrediction(method models.Method, confidence models.Confidence)
	RecordCacheLookup(cache string, hit bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
