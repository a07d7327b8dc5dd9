package regression

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	s := 0.0
	for i := range actual {
		s += math.Abs(actual[i] - predicted[i])
	}
	return s / float64(len(actual))
}

// RMSE is the root mean squared error.
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	s := 0.0
	for i := range actual {
		d := actual[i] - predicted[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(actual)))
}

// R2 is the coefficient of determination; 0 when the target has no variance.
func R2(actual, predicted []float64) float64 {
	if len(actual) < 2 || stat.Variance(actual, nil) == 0 {
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

// Fold holds row indices of one walk-forward split.
type Fold struct {
	Train []int
	Test  []int
}

// TimeSeriesFolds splits rows by their period so that every training row
// precedes every test row of the same fold. Periods are grouped, never split.
func TimeSeriesFolds(periods []int, splits int) []Fold {
	if splits < 1 {
		return nil
	}
	uniq := make(map[int]struct{})
	for _, p := range periods {
		uniq[p] = struct{}{}
	}
	distinct := make([]int, 0, len(uniq))
	for p := range uniq {
		distinct = append(distinct, p)
	}
	sort.Ints(distinct)

	testSize := len(distinct) / (splits + 1)
	if testSize < 1 {
		return nil
	}

	var folds []Fold
	for k := 0; k < splits; k++ {
		start := len(distinct) - (splits-k)*testSize
		lo, hi := distinct[start], distinct[start+testSize-1]

		var f Fold
		for i, p := range periods {
			switch {
			case p < lo:
				f.Train = append(f.Train, i)
			case p <= hi:
				f.Test = append(f.Test, i)
			}
		}
		if len(f.Train) > 0 && len(f.Test) > 0 {
			folds = append(folds, f)
		}
	}
	return folds
}
