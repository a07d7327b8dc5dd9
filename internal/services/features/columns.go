package features

import "fmt"

// Column identifies one model input.
type Column int

const (
	ColCategory Column = iota
	ColMonth
	ColSeason
	ColQuarter
	ColHolidayMonth
	ColYearEnd
	ColLag1
	ColLag2
	ColLag3
	ColLag6
	ColLag12
	ColPctChange
	ColTrendDirection
	ColCV
	ColRelativeToAvg
	numColumns
)

var columnNames = [numColumns]string{
	ColCategory:       "category_encoded",
	ColMonth:          "month_num",
	ColSeason:         "season",
	ColQuarter:        "quarter",
	ColHolidayMonth:   "is_holiday_month",
	ColYearEnd:        "is_year_end",
	ColLag1:           "lag_1",
	ColLag2:           "lag_2",
	ColLag3:           "lag_3",
	ColLag6:           "lag_6",
	ColLag12:          "lag_12",
	ColPctChange:      "pct_change",
	ColTrendDirection: "trend_direction",
	ColCV:             "cv",
	ColRelativeToAvg:  "relative_to_avg",
}

var columnLabels = [numColumns]string{
	ColCategory:       "Category",
	ColMonth:          "Month of year",
	ColSeason:         "Season",
	ColQuarter:        "Quarter",
	ColHolidayMonth:   "Holiday month",
	ColYearEnd:        "Year end",
	ColLag1:           "Last month's spending",
	ColLag2:           "Spending 2 months ago",
	ColLag3:           "Spending 3 months ago",
	ColLag6:           "Spending 6 months ago",
	ColLag12:          "Spending a year ago",
	ColPctChange:      "Month-over-month change",
	ColTrendDirection: "Trend direction",
	ColCV:             "Spending volatility",
	ColRelativeToAvg:  "Relative to category average",
}

func (c Column) Valid() bool { return c >= 0 && c < numColumns }

func (c Column) String() string {
	if !c.Valid() {
		return fmt.Sprintf("column(%d)", int(c))
	}
	return columnNames[c]
}

// Label is the human-readable name used in reports.
func (c Column) Label() string {
	if !c.Valid() {
		return c.String()
	}
	return columnLabels[c]
}

// LagSlots are the lag depths a row can carry, in slot order.
var LagSlots = [...]int{1, 2, 3, 6, 12}

const numLagSlots = len(LagSlots)

var lagColumns = [numLagSlots]Column{ColLag1, ColLag2, ColLag3, ColLag6, ColLag12}

func lagSlot(k int) (int, bool) {
	for i, l := range LagSlots {
		if l == k {
			return i, true
		}
	}
	return 0, false
}

// ModelColumns returns the model input layout for the configured lag depths.
func ModelColumns(lags []int) []Column {
	cols := []Column{ColCategory, ColMonth, ColSeason, ColQuarter, ColHolidayMonth, ColYearEnd}
	for i, k := range LagSlots {
		for _, l := range lags {
			if l == k {
				cols = append(cols, lagColumns[i])
				break
			}
		}
	}
	return append(cols, ColPctChange, ColTrendDirection, ColCV, ColRelativeToAvg)
}
