package analysis

import (
	stderrors "errors"
	"fmt"
	"log"
	"math"
	"sort"

	"vizninja/domain/core"
	"vizninja/domain/dataset"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RegressionOptions control the train/test split.
type RegressionOptions struct {
	TestSize float64
	Seed     int64
}

// DefaultRegressionOptions holds an 80/20 split with a fixed seed.
func DefaultRegressionOptions() RegressionOptions {
	return RegressionOptions{TestSize: 0.2, Seed: 42}
}

// Fit is a fitted ordinary least squares model and its test-set evaluation.
type Fit struct {
	Target       string
	Features     []string
	Intercept    float64
	Coefficients []float64
	Metrics      dataset.ModelMetrics
	Importance   []dataset.FeatureImportance
	Actual       []float64
	Predicted    []float64
}

// Regress fits target against every other numeric column of f. Rows with a
// missing value in any used column are ignored.
func Regress(f *Frame, target string, opts RegressionOptions) (*Fit, error) {
	ti := f.Index(target)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrColumnNotFound, target)
	}
	if !f.IsNumeric(ti) {
		return nil, fmt.Errorf("%w: %s", core.ErrNonNumericTarget, target)
	}

	var featIdx []int
	var features []string
	for i, n := range f.names {
		if i != ti && f.IsNumeric(i) {
			featIdx = append(featIdx, i)
			features = append(features, n)
		}
	}
	if len(featIdx) == 0 {
		return nil, fmt.Errorf("%w: no numeric predictors besides %s", core.ErrInsufficientData, target)
	}

	var rows []int
	for r := 0; r < f.Len(); r++ {
		if f.cols[ti][r].Null {
			continue
		}
		complete := true
		for _, i := range featIdx {
			if f.cols[i][r].Null {
				complete = false
				break
			}
		}
		if complete {
			rows = append(rows, r)
		}
	}

	n, p := len(rows), len(featIdx)
	testN := TestCount(n, opts.TestSize)
	trainN := n - testN
	if testN < 1 || trainN < p+1 {
		return nil, fmt.Errorf("%w: %d complete rows for %d predictors", core.ErrInsufficientData, n, p)
	}

	split := SplitSamples(n, opts.TestSize, opts.Seed)
	test, train := split.Test, split.Train

	design := func(set []int) (*mat.Dense, []float64) {
		x := mat.NewDense(len(set), p+1, nil)
		y := make([]float64, len(set))
		for k, pi := range set {
			r := rows[pi]
			x.Set(k, 0, 1)
			for j, i := range featIdx {
				x.Set(k, j+1, f.cols[i][r].Num)
			}
			y[k] = f.cols[ti][r].Num
		}
		return x, y
	}

	xTrain, yTrain := design(train)
	var beta mat.VecDense
	if err := beta.SolveVec(xTrain, mat.NewVecDense(len(yTrain), yTrain)); err != nil {
		var cond mat.Condition
		if !stderrors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", core.ErrInsufficientData, err)
		}
		log.Printf("[Regress] ill-conditioned design matrix for %s (condition %.3g)", target, float64(cond))
	}

	fit := &Fit{
		Target:       target,
		Features:     features,
		Intercept:    beta.AtVec(0),
		Coefficients: make([]float64, p),
	}
	for j := range features {
		fit.Coefficients[j] = beta.AtVec(j + 1)
	}

	xTest, yTest := design(test)
	var pred mat.VecDense
	pred.MulVec(xTest, &beta)
	fit.Actual = yTest
	fit.Predicted = make([]float64, testN)
	for k := range yTest {
		fit.Predicted[k] = pred.AtVec(k)
	}

	fit.Metrics = dataset.ModelMetrics{
		MSE:         meanSquaredError(yTest, fit.Predicted),
		R2:          rSquared(yTest, fit.Predicted),
		NumFeatures: p,
		NumSamples:  n,
		TestSize:    testN,
	}
	if math.IsNaN(fit.Metrics.MSE) || math.IsInf(fit.Metrics.MSE, 0) {
		return nil, fmt.Errorf("%w: predictors of %s are collinear", core.ErrInsufficientData, target)
	}
	fit.Importance = importance(xTrain, yTrain, features, fit.Coefficients)
	return fit, nil
}

// Result converts the fit into the wire contract; images are attached by the caller.
func (fit *Fit) Result() *dataset.RegressionResult {
	return &dataset.RegressionResult{
		TargetVariable:    fit.Target,
		ModelResults:      fit.Metrics,
		FeatureImportance: dataset.FeatureImportanceBlock{Data: fit.Importance},
	}
}

func meanSquaredError(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return sum / float64(len(actual))
}

// rSquared is the coefficient of determination on the test set. A constant
// target has no variance to explain and scores zero.
func rSquared(actual, predicted []float64) float64 {
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i := range actual {
		ssRes += (actual[i] - predicted[i]) * (actual[i] - predicted[i])
		ssTot += (actual[i] - mean) * (actual[i] - mean)
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

// importance ranks features by the absolute standardised coefficient.
func importance(x *mat.Dense, y []float64, features []string, coef []float64) []dataset.FeatureImportance {
	sy := stat.StdDev(y, nil)
	out := make([]dataset.FeatureImportance, len(features))
	for j, name := range features {
		col := mat.Col(nil, j+1, x)
		w := 0.0
		if sy > 0 && !math.IsNaN(sy) {
			w = math.Abs(coef[j] * stat.StdDev(col, nil) / sy)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		out[j] = dataset.FeatureImportance{Feature: name, Importance: w}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Importance > out[b].Importance
	})
	return out
}
