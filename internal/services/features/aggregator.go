package features

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"BudgetCast/internal/domain/models"
	"BudgetCast/pkg/util"

	"github.com/shopspring/decimal"
)

// ErrMalformedTransaction rejects input that cannot be placed on the monthly grid.
var ErrMalformedTransaction = errors.New("malformed transaction")

// ValidateTransaction checks the fields the aggregation depends on.
func ValidateTransaction(tx models.Transaction) error {
	switch {
	case tx.Date.IsZero():
		return fmt.Errorf("%w: transaction %d has no date", ErrMalformedTransaction, tx.ID)
	case tx.Amount.IsNegative():
		return fmt.Errorf("%w: transaction %d has negative amount %s", ErrMalformedTransaction, tx.ID, tx.Amount)
	case strings.TrimSpace(tx.Category) == "":
		return fmt.Errorf("%w: transaction %d has no category", ErrMalformedTransaction, tx.ID)
	case tx.Kind != models.KindExpense && tx.Kind != models.KindIncome:
		return fmt.Errorf("%w: transaction %d has unknown kind %q", ErrMalformedTransaction, tx.ID, tx.Kind)
	}
	return nil
}

type monthKey struct {
	category string
	month    int // util.MonthIndex
}

type bucket struct {
	sum   decimal.Decimal
	count int
}

// Aggregate sums expense transactions per (category, month) and gap-fills every
// category across the full month range of the input. Output is sorted by
// category, then chronologically.
func Aggregate(txs []models.Transaction) ([]models.MonthlyRecord, error) {
	buckets, categories, first, last, err := collect(txs)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return []models.MonthlyRecord{}, nil
	}

	out := make([]models.MonthlyRecord, 0, len(categories)*(last-first+1))
	for _, cat := range categories {
		for idx := first; idx <= last; idx++ {
			y, m := util.FromMonthIndex(idx)
			rec := models.MonthlyRecord{Category: cat, Year: y, Month: m}
			if b, ok := buckets[monthKey{cat, idx}]; ok {
				rec.Amount = b.sum.InexactFloat64()
				rec.TxCount = b.count
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

// ObservedTotals returns, per category, only the months with at least one
// expense, in chronological order.
func ObservedTotals(txs []models.Transaction) (map[string][]models.MonthlyRecord, error) {
	buckets, _, _, _, err := collect(txs)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]models.MonthlyRecord)
	for k, b := range buckets {
		y, m := util.FromMonthIndex(k.month)
		out[k.category] = append(out[k.category], models.MonthlyRecord{
			Category: k.category,
			Year:     y,
			Month:    m,
			Amount:   b.sum.InexactFloat64(),
			TxCount:  b.count,
		})
	}
	for cat := range out {
		series := out[cat]
		sort.Slice(series, func(i, j int) bool {
			return util.MonthIndex(series[i].Year, series[i].Month) < util.MonthIndex(series[j].Year, series[j].Month)
		})
	}
	return out, nil
}

// DistinctMonths counts calendar months holding at least one expense.
func DistinctMonths(txs []models.Transaction) int {
	seen := make(map[int]struct{})
	for _, tx := range txs {
		if tx.Kind != models.KindExpense || tx.Date.IsZero() {
			continue
		}
		seen[util.MonthIndex(tx.Date.Year(), int(tx.Date.Month()))] = struct{}{}
	}
	return len(seen)
}

func collect(txs []models.Transaction) (map[monthKey]*bucket, []string, int, int, error) {
	buckets := make(map[monthKey]*bucket)
	seen := make(map[string]struct{})
	first, last := 0, 0

	for _, tx := range txs {
		if err := ValidateTransaction(tx); err != nil {
			return nil, nil, 0, 0, err
		}
		if tx.Kind != models.KindExpense {
			continue
		}

		idx := util.MonthIndex(tx.Date.Year(), int(tx.Date.Month()))
		if len(seen) == 0 || idx < first {
			first = idx
		}
		if len(seen) == 0 || idx > last {
			last = idx
		}
		seen[tx.Category] = struct{}{}

		k := monthKey{tx.Category, idx}
		b, ok := buckets[k]
		if !ok {
			b = &bucket{}
			buckets[k] = b
		}
		b.sum = b.sum.Add(tx.Amount)
		b.count++
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return buckets, categories, first, last, nil
}
