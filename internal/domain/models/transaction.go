package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the category kind a transaction is booked under.
type Kind string

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"
)

// Transaction is a single booked movement read from the transaction store.
type Transaction struct {
	ID       int64           `json:"id"`
	PersonID int64           `json:"person_id"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Kind     Kind            `json:"kind"`
}

// MonthlyRecord is the spending of one category in one calendar month.
type MonthlyRecord struct {
	Category string  `json:"category"`
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Amount   float64 `json:"amount"`
	TxCount  int     `json:"tx_count"`
}
