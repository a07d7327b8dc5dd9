package features

// maxHistory is the deepest lag a State can serve.
const maxHistory = 12

// State is the lag and volatility context for predicting the month that
// follows the last one folded into it.
type State struct {
	Recent    []float64 // most recent first
	PctChange float64
	CV        float64
}

// StateFromRows snapshots the state after the last row of one category's
// chronological series.
func StateFromRows(rows []FeatureRow) State {
	if len(rows) == 0 {
		return State{}
	}
	n := len(rows)
	depth := n
	if depth > maxHistory {
		depth = maxHistory
	}
	recent := make([]float64, depth)
	for i := 0; i < depth; i++ {
		recent[i] = rows[n-1-i].Amount
	}
	last := rows[n-1]
	return State{Recent: recent, PctChange: last.PctChange, CV: last.CV}
}

// SeedState stands in for a category without cached history.
func SeedState(mean float64) State {
	return State{Recent: []float64{mean, mean, mean}}
}

// Lag returns the amount k months before the target, 0 when unknown.
func (s State) Lag(k int) float64 {
	if k < 1 || k > len(s.Recent) {
		return 0
	}
	return s.Recent[k-1]
}

// Advance folds a new month into the state. Volatility is carried unchanged.
func (s State) Advance(amount float64) State {
	depth := len(s.Recent) + 1
	if depth > maxHistory {
		depth = maxHistory
	}
	recent := make([]float64, depth)
	recent[0] = amount
	copy(recent[1:], s.Recent)
	return State{
		Recent:    recent,
		PctChange: PctChange(amount, s.Lag(1)),
		CV:        s.CV,
	}
}

// Inputs assembles the model inputs for a target month from this state.
func (s State) Inputs(categoryID, month int, catMean float64) Inputs {
	in := Inputs{
		CategoryID: categoryID,
		Month:      month,
		PctChange:  s.PctChange,
		CV:         s.CV,
		CatMean:    catMean,
	}
	for i, k := range LagSlots {
		in.Lags[i] = s.Lag(k)
	}
	return in
}
