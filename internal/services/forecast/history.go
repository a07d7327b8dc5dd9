package forecast

import (
	"sort"

	"BudgetCast/internal/domain/models"
	"BudgetCast/internal/services/features"
)

// History is a person's expense history indexed by category. Monthly totals
// cover observed months only; they are not gap-filled.
type History struct {
	transactions []models.Transaction
	byCategory   map[string][]models.Transaction
	totals       map[string][]models.MonthlyRecord
}

// NewHistory validates and indexes transactions. Income rows are dropped.
func NewHistory(txs []models.Transaction) (History, error) {
	totals, err := features.ObservedTotals(txs)
	if err != nil {
		return History{}, err
	}
	h := History{
		byCategory: make(map[string][]models.Transaction),
		totals:     totals,
	}
	for _, tx := range txs {
		if tx.Kind != models.KindExpense {
			continue
		}
		h.transactions = append(h.transactions, tx)
		h.byCategory[tx.Category] = append(h.byCategory[tx.Category], tx)
	}
	sort.SliceStable(h.transactions, func(i, j int) bool { return h.transactions[i].Date.Before(h.transactions[j].Date) })
	return h, nil
}

func (h History) Empty() bool { return len(h.transactions) == 0 }

// Count is the number of expense transactions.
func (h History) Count() int { return len(h.transactions) }

func (h History) Transactions() []models.Transaction { return h.transactions }

func (h History) CategoryTransactions(category string) []models.Transaction {
	return h.byCategory[category]
}

// Totals returns the observed monthly totals of a category, oldest first.
func (h History) Totals(category string) []models.MonthlyRecord {
	return h.totals[category]
}

// Categories lists categories with at least one expense, sorted.
func (h History) Categories() []string {
	out := make([]string, 0, len(h.totals))
	for c := range h.totals {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Months is the number of distinct calendar months with spending.
func (h History) Months() int {
	return features.DistinctMonths(h.transactions)
}

// Actual returns the observed total of a category in a given month.
func (h History) Actual(category string, year, month int) (float64, bool) {
	for _, r := range h.totals[category] {
		if r.Year == year && r.Month == month {
			return r.Amount, true
		}
	}
	return 0, false
}
