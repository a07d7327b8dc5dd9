package features

import (
	"testing"
	"time"

	"BudgetCast/internal/domain/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func expense(id int64, y, m int, amount float64, category string) models.Transaction {
	return models.Transaction{
		ID:       id,
		PersonID: 1,
		Date:     time.Date(y, time.Month(m), 10, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.NewFromFloat(amount),
		Category: category,
		Kind:     models.KindExpense,
	}
}

func TestAggregateGapFillsEveryCategory(t *testing.T) {
	txs := []models.Transaction{
		expense(1, 2024, 1, 10, "food"),
		expense(2, 2024, 1, 5.5, "food"),
		expense(3, 2024, 3, 20, "food"),
		expense(4, 2024, 2, 40, "rent"),
		{ID: 5, Date: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(900), Category: "salary", Kind: models.KindIncome},
	}

	recs, err := Aggregate(txs)
	require.NoError(t, err)
	require.Len(t, recs, 6)

	assert.Equal(t, models.MonthlyRecord{Category: "food", Year: 2024, Month: 1, Amount: 15.5, TxCount: 2}, recs[0])
	assert.Equal(t, models.MonthlyRecord{Category: "food", Year: 2024, Month: 2}, recs[1])
	assert.Equal(t, 20.0, recs[2].Amount)
	assert.Equal(t, "rent", recs[3].Category)
	assert.Equal(t, 0.0, recs[3].Amount)
	assert.Equal(t, 40.0, recs[4].Amount)
	assert.Equal(t, 3, recs[5].Month)
}

func TestAggregateEmptyInput(t *testing.T) {
	recs, err := Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestAggregateRejectsMalformed(t *testing.T) {
	cases := map[string]models.Transaction{
		"negative amount": expense(1, 2024, 1, -3, "food"),
		"no category":     expense(2, 2024, 1, 3, " "),
		"no date":         {ID: 3, Amount: decimal.NewFromInt(1), Category: "food", Kind: models.KindExpense},
		"unknown kind":    {ID: 4, Date: time.Now(), Amount: decimal.NewFromInt(1), Category: "food", Kind: "transfer"},
	}
	for name, tx := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Aggregate([]models.Transaction{tx})
			assert.ErrorIs(t, err, ErrMalformedTransaction)
		})
	}
}

func TestObservedTotalsSkipsEmptyMonths(t *testing.T) {
	totals, err := ObservedTotals([]models.Transaction{
		expense(1, 2024, 5, 100, "food"),
		expense(2, 2024, 1, 200, "food"),
	})
	require.NoError(t, err)
	require.Len(t, totals["food"], 2)
	assert.Equal(t, 1, totals["food"][0].Month)
	assert.Equal(t, 5, totals["food"][1].Month)
	assert.Equal(t, 2, DistinctMonths([]models.Transaction{expense(1, 2024, 5, 1, "a"), expense(2, 2024, 5, 1, "b")}))
}

func TestCategoryStatsReflectFilledZeros(t *testing.T) {
	var txs []models.Transaction
	for m := 1; m <= 6; m++ {
		txs = append(txs, expense(int64(m), 2024, m, 10, "rent"))
	}
	txs = append(txs, expense(10, 2024, 1, 100, "food"), expense(11, 2024, 4, 100, "food"))

	recs, err := Aggregate(txs)
	require.NoError(t, err)

	enc := FitEncoder([]string{"food", "rent"})
	rows := NewBuilder().Build(recs, enc)
	require.Len(t, rows, 12)

	food := rows[0]
	assert.Equal(t, "food", food.Category)
	assert.InDelta(t, 33.333, food.CatMean, 0.001)
	assert.InDelta(t, 51.6398, food.CatStd, 0.001)
	assert.Equal(t, 0.0, food.CatMedian)
}

func TestBuilderLagsAndPreviousMonthInputs(t *testing.T) {
	var recs []models.MonthlyRecord
	for i, v := range []float64{10, 20, 30, 40, 50} {
		recs = append(recs, models.MonthlyRecord{Category: "food", Year: 2024, Month: i + 1, Amount: v})
	}
	enc := FitEncoder([]string{"food"})
	rows := NewBuilder().Build(recs, enc)
	require.Len(t, rows, 5)

	r := rows[3]
	lag1, ok := r.Lag(1)
	require.True(t, ok)
	assert.Equal(t, 30.0, lag1)
	lag3, _ := r.Lag(3)
	assert.Equal(t, 10.0, lag3)
	_, ok = r.Lag(6)
	assert.False(t, ok)

	assert.InDelta(t, 1.0/3, r.PctChange, 1e-9)
	assert.InDelta(t, 0.5, r.PrevPctChange, 1e-9)
	assert.Equal(t, 1, r.TrendDirection)
	assert.Len(t, Usable(rows), 2)

	vec, err := r.Inputs().Vector(ModelColumns([]int{1, 2, 3}))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 4, float64(SeasonSpring), 2, 0, 0, 30, 20, 10}, vec[:9])
	assert.InDelta(t, 0.5, vec[9], 1e-9)
}

func TestStateAdvance(t *testing.T) {
	var recs []models.MonthlyRecord
	for i, v := range []float64{10, 20, 30, 40, 50} {
		recs = append(recs, models.MonthlyRecord{Category: "food", Year: 2024, Month: i + 1, Amount: v})
	}
	rows := NewBuilder().Build(recs, FitEncoder([]string{"food"}))

	st := StateFromRows(rows)
	assert.Equal(t, 50.0, st.Lag(1))
	assert.InDelta(t, 0.25, st.PctChange, 1e-9)

	next := st.Advance(60)
	assert.Equal(t, 60.0, next.Lag(1))
	assert.Equal(t, 50.0, next.Lag(2))
	assert.InDelta(t, 0.2, next.PctChange, 1e-9)
	assert.Equal(t, st.CV, next.CV)
	assert.Equal(t, 50.0, st.Lag(1), "advance must not mutate the receiver")

	seed := SeedState(12)
	assert.Equal(t, 12.0, seed.Lag(3))
	assert.Equal(t, 0.0, seed.Lag(6))
}

func TestBoundedDerivedFeatures(t *testing.T) {
	assert.Equal(t, 2.0, PctChange(1000, 10))
	assert.Equal(t, -1.0, PctChange(0, 10))
	assert.Equal(t, 0.0, PctChange(5, 0))
	assert.Equal(t, 3.0, CoefficientOfVariation(10, 1))
	assert.Equal(t, 0.0, CoefficientOfVariation(10, 0))
	assert.Equal(t, 1.0, RelativeToAvg(50, 0))
	assert.Equal(t, 5.0, RelativeToAvg(500, 10))
}

func TestEncoderUnknownCategory(t *testing.T) {
	enc := FitEncoder([]string{"rent", "food", "food"})
	assert.Equal(t, 2, enc.Len())
	id, ok := enc.Encode("food")
	assert.True(t, ok)
	assert.Equal(t, 0, id)
	_, ok = enc.Encode("travel")
	assert.False(t, ok)

	rows := NewBuilder().Build([]models.MonthlyRecord{{Category: "travel", Year: 2024, Month: 1, Amount: 3}}, enc)
	require.Len(t, rows, 1)
	assert.Equal(t, -1, rows[0].CategoryID)
	assert.Equal(t, 2, enc.Len())
}

func TestLinearRegression(t *testing.T) {
	slope, r2 := LinearRegression([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2, slope, 1e-9)
	assert.InDelta(t, 1, r2, 1e-9)
}

func TestLinearRegressionFlatSeries(t *testing.T) {
	slope, r2 := LinearRegression([]float64{4, 4, 4})
	assert.InDelta(t, 0, slope, 1e-9)
	assert.Zero(t, r2)

	slope, r2 = LinearRegression([]float64{4})
	assert.Zero(t, slope)
	assert.Zero(t, r2)
}

func TestSummaryStatistics(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)

	assert.Zero(t, SampleStd([]float64{3}))
	assert.InDelta(t, 1.2909944, SampleStd([]float64{1, 2, 3, 4}), 1e-6)

	assert.Zero(t, Median(nil))
	assert.InDelta(t, 3, Median([]float64{5, 1, 3}), 1e-9)
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 3, 2}), 1e-9)
}
