package features

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	pctChangeBound = 2.0
	cvBound        = 3.0
	relativeBound  = 5.0
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// SampleStd is the n-1 standard deviation; undefined below two samples and reported as 0.
func SampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// Median returns the middle value, averaging the two central values for even lengths.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	if len(s)%2 == 1 {
		return stat.Quantile(0.5, stat.Empirical, s, nil)
	}
	mid := len(s) / 2
	return stat.Mean(s[mid-1:mid+1], nil)
}

// Clip bounds v to [lo, hi]; NaN maps to lo.
func Clip(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// Round2 rounds to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// PctChange is (cur-prev)/prev with zero or non-finite ratios mapped to 0, clipped to [-2, 2].
func PctChange(cur, prev float64) float64 {
	if prev == 0 {
		return 0
	}
	r := (cur - prev) / prev
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0
	}
	return Clip(r, -pctChangeBound, pctChangeBound)
}

// CoefficientOfVariation is std/mean clipped to [0, 3], 0 when the mean is 0.
func CoefficientOfVariation(std, mean float64) float64 {
	if mean == 0 {
		return 0
	}
	r := std / mean
	if math.IsInf(r, 0) || math.IsNaN(r) {
		return 0
	}
	return Clip(r, 0, cvBound)
}

// RelativeToAvg is value/mean clipped to [0, 5], 1 when the mean is 0.
func RelativeToAvg(value, mean float64) float64 {
	if mean == 0 {
		return 1
	}
	return Clip(value/mean, 0, relativeBound)
}

// RollingMeanStd computes mean and sample std over the window ending at index end (inclusive).
func RollingMeanStd(xs []float64, end, window int) (mean, std float64) {
	start := end - window + 1
	if start < 0 {
		start = 0
	}
	w := xs[start : end+1]
	return Mean(w), SampleStd(w)
}

// Sign returns -1, 0 or 1.
func Sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// LinearRegression fits y over x = 0, 1, 2, ... and returns slope and R-squared.
// R-squared is 0 for a flat series.
func LinearRegression(points []float64) (slope, rSquared float64) {
	if len(points) < 2 {
		return 0, 0
	}
	x := make([]float64, len(points))
	for i := range x {
		x[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(x, points, nil, false)
	if stat.Variance(points, nil) == 0 {
		return beta, 0
	}
	return beta, stat.RSquared(x, points, nil, alpha, beta)
}
