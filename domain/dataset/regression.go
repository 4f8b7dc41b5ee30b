package dataset

import (
	"math"

	"vizninja/domain/core"
)

// RegressionRequest is the body of POST /api/run_regression.
type RegressionRequest struct {
	SessionID      core.SessionID `json:"session_id"`
	TargetVariable string         `json:"target_variable"`
}

// ModelMetrics are the evaluation metrics of a fitted model.
type ModelMetrics struct {
	MSE         float64 `json:"mse"`
	R2          float64 `json:"r2"`
	NumFeatures int     `json:"num_features"`
	NumSamples  int     `json:"num_samples"`
	TestSize    int     `json:"test_size"`
}

// TrainingSize is the number of samples used to fit the model.
func (m ModelMetrics) TrainingSize() int {
	return m.NumSamples - m.TestSize
}

// FeatureImportance is one ranked predictor weight.
type FeatureImportance struct {
	Feature    string  `json:"Feature"`
	Importance float64 `json:"Importance"`
}

// FeatureImportanceBlock groups the ranked weights with their chart.
type FeatureImportanceBlock struct {
	Data  []FeatureImportance `json:"data"`
	Image string              `json:"image,omitempty"`
}

// RegressionResult is the response of POST /api/run_regression.
type RegressionResult struct {
	TargetVariable    string                 `json:"target_variable,omitempty"`
	ModelResults      ModelMetrics           `json:"model_results"`
	RegressionPlot    string                 `json:"regression_plot"`
	FeatureImportance FeatureImportanceBlock `json:"feature_importance"`
}

// Validate checks the metrics are numeric and the ranking is present.
func (r *RegressionResult) Validate() error {
	if r == nil {
		return core.NewValidationError("regression", "empty response")
	}
	m := r.ModelResults
	if math.IsNaN(m.MSE) || math.IsInf(m.MSE, 0) || m.MSE < 0 {
		return core.NewValidationError("model_results.mse", "must be a finite non-negative number")
	}
	if math.IsNaN(m.R2) || math.IsInf(m.R2, 0) {
		return core.NewValidationError("model_results.r2", "must be a finite number")
	}
	if m.NumSamples < 0 || m.TestSize < 0 || m.TestSize > m.NumSamples {
		return core.NewValidationError("model_results", "inconsistent sample counts")
	}
	if len(r.FeatureImportance.Data) == 0 {
		return core.NewValidationError("feature_importance.data", "empty ranking")
	}
	for _, fi := range r.FeatureImportance.Data {
		if fi.Feature == "" || math.IsNaN(fi.Importance) || math.IsInf(fi.Importance, 0) {
			return core.NewValidationError("feature_importance.data", "invalid entry")
		}
	}
	if r.RegressionPlot != "" && !IsImagePayload(r.RegressionPlot) {
		return core.NewValidationError("regression_plot", "not an image payload")
	}
	return nil
}
