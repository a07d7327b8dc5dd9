package regression

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"BudgetCast/internal/domain/service"
)

var (
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrShapeMismatch    = errors.New("feature matrix and target length differ")
)

// Config holds gradient boosting hyperparameters.
type Config struct {
	Estimators      int
	MaxDepth        int
	LearningRate    float64
	MinSamplesSplit int
	MinSamplesLeaf  int
	Subsample       float64
	Seed            int64
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		Estimators:      100,
		MaxDepth:        4,
		LearningRate:    0.1,
		MinSamplesSplit: 4,
		MinSamplesLeaf:  3,
		Subsample:       0.8,
		Seed:            10,
	}
}

// GradientBoosting fits additive ensembles of regression trees on squared loss.
type GradientBoosting struct {
	cfg Config
}

var _ service.Regressor = (*GradientBoosting)(nil)

func NewGradientBoosting(cfg Config) *GradientBoosting {
	if cfg.Estimators < 1 {
		cfg.Estimators = 1
	}
	if cfg.Subsample <= 0 || cfg.Subsample > 1 {
		cfg.Subsample = 1
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.1
	}
	return &GradientBoosting{cfg: cfg}
}

// Fit trains a fresh ensemble. Training stops with ctx.Err() between stages.
func (g *GradientBoosting) Fit(ctx context.Context, x [][]float64, y []float64) (service.Model, error) {
	if len(x) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrShapeMismatch, len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrShapeMismatch, i, len(row), width)
		}
	}

	n := len(y)
	init := 0.0
	for _, v := range y {
		init += v
	}
	init /= float64(n)

	pred := make([]float64, n)
	for i := range pred {
		pred[i] = init
	}
	residuals := make([]float64, n)
	gains := make([]float64, width)
	params := TreeParams{MaxDepth: g.cfg.MaxDepth, MinSamplesSplit: g.cfg.MinSamplesSplit, MinSamplesLeaf: g.cfg.MinSamplesLeaf}

	rng := rand.New(rand.NewSource(g.cfg.Seed))
	sampleSize := max(1, int(g.cfg.Subsample*float64(n)))

	ens := &Ensemble{init: init, rate: g.cfg.LearningRate, width: width}
	for stage := 0; stage < g.cfg.Estimators; stage++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range residuals {
			residuals[i] = y[i] - pred[i]
		}

		idx := rng.Perm(n)[:sampleSize]
		tree := fitTree(x, residuals, idx, params, gains)
		ens.trees = append(ens.trees, tree)

		for i := range pred {
			pred[i] += g.cfg.LearningRate * tree.Predict(x[i])
		}
	}

	ens.importances = normalize(gains)
	return ens, nil
}

// Ensemble is a fitted gradient boosting model.
type Ensemble struct {
	init        float64
	rate        float64
	width       int
	trees       []*Tree
	importances []float64
}

func (e *Ensemble) Predict(x []float64) float64 {
	out := e.init
	for _, t := range e.trees {
		out += e.rate * t.Predict(x)
	}
	return out
}

func (e *Ensemble) FeatureImportances() []float64 {
	return append([]float64(nil), e.importances...)
}

// Stages returns the number of fitted trees.
func (e *Ensemble) Stages() int { return len(e.trees) }

func normalize(w []float64) []float64 {
	out := make([]float64, len(w))
	total := 0.0
	for _, v := range w {
		total += v
	}
	if total <= 0 {
		return out
	}
	for i, v := range w {
		out[i] = v / total
	}
	return out
}
