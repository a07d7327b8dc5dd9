package features

import (
	"fmt"
	"sort"

	"BudgetCast/internal/domain/models"
	"BudgetCast/pkg/util"
)

// Seasons, winter first.
const (
	SeasonWinter = iota
	SeasonSpring
	SeasonSummer
	SeasonAutumn
)

var holidayMonths = map[int]bool{12: true, 1: true, 7: true, 8: true}

func Season(month int) int {
	switch month {
	case 12, 1, 2:
		return SeasonWinter
	case 3, 4, 5:
		return SeasonSpring
	case 6, 7, 8:
		return SeasonSummer
	default:
		return SeasonAutumn
	}
}

func Quarter(month int) int { return (month-1)/3 + 1 }

func IsHolidayMonth(month int) bool { return holidayMonths[month] }

func IsYearEnd(month int) bool { return month >= 11 }

// FeatureRow is one monthly record with its derived features. Trend and
// volatility fields describe the row's own month; the Prev* fields carry the
// values of the month before, which is what the model sees as input.
type FeatureRow struct {
	Category   string
	CategoryID int // -1 when the encoder does not know the category
	Year       int
	Month      int
	Amount     float64

	Season       int
	Quarter      int
	HolidayMonth bool
	YearEnd      bool

	Lags     [numLagSlots]float64
	LagValid [numLagSlots]bool

	PctChange      float64
	TrendDirection int
	RollingMean    float64
	RollingStd     float64
	CV             float64

	CatMean       float64
	CatStd        float64
	CatMedian     float64
	RelativeToAvg float64

	PrevPctChange float64
	PrevCV        float64
}

// Lag returns lag k and whether it is defined.
func (r FeatureRow) Lag(k int) (float64, bool) {
	slot, ok := lagSlot(k)
	if !ok {
		return 0, false
	}
	return r.Lags[slot], r.LagValid[slot]
}

// Usable reports whether lag_1..lag_3 are all defined.
func (r FeatureRow) Usable() bool {
	return r.LagValid[0] && r.LagValid[1] && r.LagValid[2]
}

// Inputs returns the model inputs for predicting this row's amount.
func (r FeatureRow) Inputs() Inputs {
	return Inputs{
		CategoryID: r.CategoryID,
		Month:      r.Month,
		Lags:       r.Lags,
		PctChange:  r.PrevPctChange,
		CV:         r.PrevCV,
		CatMean:    r.CatMean,
	}
}

// Inputs is everything needed to assemble a model vector for one target month.
type Inputs struct {
	CategoryID int
	Month      int
	Lags       [numLagSlots]float64
	PctChange  float64
	CV         float64
	CatMean    float64
}

// Value resolves a single column.
func (in Inputs) Value(col Column) (float64, error) {
	switch col {
	case ColCategory:
		return float64(in.CategoryID), nil
	case ColMonth:
		return float64(in.Month), nil
	case ColSeason:
		return float64(Season(in.Month)), nil
	case ColQuarter:
		return float64(Quarter(in.Month)), nil
	case ColHolidayMonth:
		return boolFloat(IsHolidayMonth(in.Month)), nil
	case ColYearEnd:
		return boolFloat(IsYearEnd(in.Month)), nil
	case ColLag1, ColLag2, ColLag3, ColLag6, ColLag12:
		return in.Lags[col-ColLag1], nil
	case ColPctChange:
		return in.PctChange, nil
	case ColTrendDirection:
		return float64(Sign(in.Lags[0] - in.Lags[1])), nil
	case ColCV:
		return in.CV, nil
	case ColRelativeToAvg:
		return RelativeToAvg(in.Lags[0], in.CatMean), nil
	default:
		return 0, fmt.Errorf("unknown feature column %s", col)
	}
}

// Vector assembles the values of cols in order.
func (in Inputs) Vector(cols []Column) ([]float64, error) {
	if in.Month < 1 || in.Month > 12 {
		return nil, fmt.Errorf("invalid target month %d", in.Month)
	}
	out := make([]float64, len(cols))
	for i, c := range cols {
		v, err := in.Value(c)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Option configures a Builder.
type Option func(*Builder)

// WithLags sets the lag depths to build. Unsupported depths are ignored.
func WithLags(lags []int) Option {
	return func(b *Builder) {
		if len(lags) > 0 {
			b.lags = append([]int(nil), lags...)
		}
	}
}

// WithRollingWindow sets the volatility window in months.
func WithRollingWindow(n int) Option {
	return func(b *Builder) {
		if n >= 2 {
			b.window = n
		}
	}
}

// Builder derives FeatureRows from a gap-filled monthly panel.
type Builder struct {
	lags   []int
	window int
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{lags: []int{1, 2, 3}, window: 3}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) Lags() []int { return append([]int(nil), b.lags...) }

// Build derives features per category. Rows come back grouped by category in
// sorted order, chronological within a category.
func (b *Builder) Build(records []models.MonthlyRecord, enc *CategoryEncoder) []FeatureRow {
	series := groupByCategory(records)
	cats := make([]string, 0, len(series))
	for c := range series {
		cats = append(cats, c)
	}
	sort.Strings(cats)

	rows := make([]FeatureRow, 0, len(records))
	for _, c := range cats {
		rows = append(rows, b.buildSeries(c, series[c], enc)...)
	}
	return rows
}

func (b *Builder) buildSeries(category string, recs []models.MonthlyRecord, enc *CategoryEncoder) []FeatureRow {
	amounts := make([]float64, len(recs))
	for i, r := range recs {
		amounts[i] = r.Amount
	}

	catID := -1
	if enc != nil {
		if id, ok := enc.Encode(category); ok {
			catID = id
		}
	}
	catMean, catStd, catMedian := Mean(amounts), SampleStd(amounts), Median(amounts)

	rows := make([]FeatureRow, len(recs))
	for i, rec := range recs {
		row := FeatureRow{
			Category:     category,
			CategoryID:   catID,
			Year:         rec.Year,
			Month:        rec.Month,
			Amount:       rec.Amount,
			Season:       Season(rec.Month),
			Quarter:      Quarter(rec.Month),
			HolidayMonth: IsHolidayMonth(rec.Month),
			YearEnd:      IsYearEnd(rec.Month),
			CatMean:      catMean,
			CatStd:       catStd,
			CatMedian:    catMedian,
		}

		for _, k := range b.lags {
			slot, ok := lagSlot(k)
			if !ok || i-k < 0 {
				continue
			}
			row.Lags[slot] = amounts[i-k]
			row.LagValid[slot] = true
		}

		if row.LagValid[0] {
			row.PctChange = PctChange(rec.Amount, row.Lags[0])
			row.RelativeToAvg = RelativeToAvg(row.Lags[0], catMean)
		} else {
			row.RelativeToAvg = 1
		}
		if row.LagValid[0] && row.LagValid[1] {
			row.TrendDirection = Sign(row.Lags[0] - row.Lags[1])
		}

		row.RollingMean, row.RollingStd = RollingMeanStd(amounts, i, b.window)
		row.CV = CoefficientOfVariation(row.RollingStd, row.RollingMean)

		if i > 0 {
			row.PrevPctChange = rows[i-1].PctChange
			row.PrevCV = rows[i-1].CV
		}
		rows[i] = row
	}
	return rows
}

func groupByCategory(records []models.MonthlyRecord) map[string][]models.MonthlyRecord {
	out := make(map[string][]models.MonthlyRecord)
	for _, r := range records {
		out[r.Category] = append(out[r.Category], r)
	}
	for c := range out {
		s := out[c]
		sort.SliceStable(s, func(i, j int) bool {
			return util.MonthIndex(s[i].Year, s[i].Month) < util.MonthIndex(s[j].Year, s[j].Month)
		})
	}
	return out
}

// Usable filters rows whose base lags are all defined.
func Usable(rows []FeatureRow) []FeatureRow {
	out := make([]FeatureRow, 0, len(rows))
	for _, r := range rows {
		if r.Usable() {
			out = append(out, r)
		}
	}
	return out
}
