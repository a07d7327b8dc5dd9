package forecast

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownCategory = errors.New("category unknown to the trained model")
	ErrInvalidMonth    = errors.New("month must be between 1 and 12")
	ErrInvalidHorizon  = errors.New("forecast horizon must be positive")
	ErrTrainingTimeout = errors.New("model training timed out")
)

// InsufficientDataError reports why a person's history cannot train a model.
type InsufficientDataError struct {
	CurrentTransactions  int
	RequiredTransactions int
	CurrentMonths        int
	RequiredMonths       int
	UsableRows           int
	Reason               string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: %s (transactions %d/%d, months %d/%d)",
		e.Reason, e.CurrentTransactions, e.RequiredTransactions, e.CurrentMonths, e.RequiredMonths)
}

// TransactionsNeeded is how many more expense transactions are required.
func (e *InsufficientDataError) TransactionsNeeded() int {
	return max(0, e.RequiredTransactions-e.CurrentTransactions)
}

// IsInsufficientData reports whether err carries an InsufficientDataError.
func IsInsufficientData(err error) (*InsufficientDataError, bool) {
	var ide *InsufficientDataError
	if errors.As(err, &ide) {
		return ide, true
	}
	return nil, false
}
