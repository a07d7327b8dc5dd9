package regression

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearData(n int) ([][]float64, []float64) {
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = []float64{float64(i), 7}
		y[i] = 3*float64(i) + 5
	}
	return x, y
}

func TestGradientBoostingLearnsSignal(t *testing.T) {
	x, y := linearData(40)
	cfg := DefaultConfig()
	cfg.Estimators = 200

	model, err := NewGradientBoosting(cfg).Fit(context.Background(), x, y)
	require.NoError(t, err)

	pred := make([]float64, len(y))
	for i := range x {
		pred[i] = model.Predict(x[i])
	}
	assert.Less(t, MAE(y, pred), 5.0)
	assert.Greater(t, R2(y, pred), 0.95)

	imp := model.FeatureImportances()
	require.Len(t, imp, 2)
	assert.InDelta(t, 1.0, imp[0], 1e-9)
	assert.Equal(t, 0.0, imp[1])
}

func TestGradientBoostingConstantTarget(t *testing.T) {
	x, _ := linearData(12)
	y := make([]float64, 12)
	for i := range y {
		y[i] = 42
	}
	model, err := NewGradientBoosting(DefaultConfig()).Fit(context.Background(), x, y)
	require.NoError(t, err)
	assert.InDelta(t, 42, model.Predict([]float64{100, 7}), 1e-9)
	assert.Equal(t, []float64{0, 0}, model.FeatureImportances())
}

func TestGradientBoostingDeterministic(t *testing.T) {
	x, y := linearData(30)
	a, err := NewGradientBoosting(DefaultConfig()).Fit(context.Background(), x, y)
	require.NoError(t, err)
	b, err := NewGradientBoosting(DefaultConfig()).Fit(context.Background(), x, y)
	require.NoError(t, err)
	for _, row := range x {
		assert.Equal(t, a.Predict(row), b.Predict(row))
	}
}

func TestGradientBoostingValidatesInput(t *testing.T) {
	g := NewGradientBoosting(DefaultConfig())
	_, err := g.Fit(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = g.Fit(context.Background(), [][]float64{{1}, {2}}, []float64{1})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = g.Fit(context.Background(), [][]float64{{1}, {2, 3}}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestGradientBoostingHonorsContext(t *testing.T) {
	x, y := linearData(20)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGradientBoosting(DefaultConfig()).Fit(ctx, x, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTreeRespectsDepthAndLeafSize(t *testing.T) {
	x, y := linearData(32)
	idx := make([]int, len(y))
	for i := range idx {
		idx[i] = i
	}
	gains := make([]float64, 2)
	tree := fitTree(x, y, idx, TreeParams{MaxDepth: 2, MinSamplesSplit: 2, MinSamplesLeaf: 8}, gains)
	assert.Equal(t, 2, tree.Depth())
	assert.Greater(t, gains[0], 0.0)

	tree = fitTree(x, y, idx, TreeParams{MaxDepth: 5, MinSamplesSplit: 2, MinSamplesLeaf: 20}, gains)
	assert.Equal(t, 0, tree.Depth())
}

func TestMetrics(t *testing.T) {
	actual := []float64{1, 2, 3}
	assert.InDelta(t, 1.0, MAE(actual, []float64{2, 3, 4}), 1e-9)
	assert.InDelta(t, 1.0, RMSE(actual, []float64{2, 3, 4}), 1e-9)
	assert.InDelta(t, 1.0, R2(actual, actual), 1e-9)
	assert.Equal(t, 0.0, R2([]float64{5, 5}, []float64{4, 6}))
}

func TestTimeSeriesFoldsKeepOrder(t *testing.T) {
	// two rows per period, eight periods
	var periods []int
	for p := 0; p < 8; p++ {
		periods = append(periods, 100+p, 100+p)
	}
	folds := TimeSeriesFolds(periods, 3)
	require.Len(t, folds, 3)

	for _, f := range folds {
		maxTrain := 0
		for _, i := range f.Train {
			maxTrain = max(maxTrain, periods[i])
		}
		for _, i := range f.Test {
			assert.Greater(t, periods[i], maxTrain)
		}
	}
	assert.Len(t, folds[0].Test, 4)
	assert.Len(t, folds[2].Train, 12)

	assert.Nil(t, TimeSeriesFolds([]int{1, 2}, 3))
}
