package dataset

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strings"

	"vizninja/domain/core"
)

// Chart names used as keys of a Visualizations map.
const (
	ChartCorrelationHeatmap = "correlation_heatmap"
	ChartHistograms         = "histograms"
	ChartBoxplots           = "boxplots"
	ChartPairplot           = "pairplot"
	ChartRegressionPlot     = "regression_plot"
	ChartFeatureImportance  = "feature_importance"
)

const dataURIPrefix = "data:image/png;base64,"

// Visualizations maps a chart name to an opaque image payload: either a URL or
// a base64 data URI. The dashboard never interprets pixel content.
type Visualizations map[string]string

// Names returns the chart names in a stable order.
func (v Visualizations) Names() []string {
	names := make([]string, 0, len(v))
	for name := range v {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate rejects empty chart names or payloads that are neither URLs nor data URIs.
func (v Visualizations) Validate() error {
	for name, payload := range v {
		if strings.TrimSpace(name) == "" {
			return core.NewValidationError("visualizations", "empty chart name")
		}
		if !IsImagePayload(payload) {
			return core.NewValidationError("visualizations."+name, "not an image URL or data URI")
		}
	}
	return nil
}

// IsImagePayload reports whether s looks like an image reference.
func IsImagePayload(s string) bool {
	return strings.HasPrefix(s, "data:image/") ||
		strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "/")
}

// PNGDataURI embeds PNG bytes into a data URI payload.
func PNGDataURI(png []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// DecodeDataURI extracts the bytes from a base64 data URI payload.
func DecodeDataURI(payload string) ([]byte, error) {
	if !strings.HasPrefix(payload, "data:") {
		return nil, fmt.Errorf("payload is not a data URI")
	}
	comma := strings.IndexByte(payload, ',')
	if comma < 0 || !strings.Contains(payload[:comma], ";base64") {
		return nil, fmt.Errorf("payload is not base64 encoded")
	}
	return base64.StdEncoding.DecodeString(payload[comma+1:])
}

// PreprocessRequest is the body of POST /api/preprocess.
type PreprocessRequest struct {
	SessionID            core.SessionID `json:"session_id"`
	MissingValueStrategy Strategy       `json:"missing_value_strategy"`
}

// PreprocessResult is the response of POST /api/preprocess.
type PreprocessResult struct {
	Message                string         `json:"message"`
	RowsAfterPreprocessing int            `json:"rows_after_preprocessing"`
	Visualizations         Visualizations `json:"visualizations"`
}

// Validate requires at least one chart payload.
func (p *PreprocessResult) Validate() error {
	if p == nil {
		return core.NewValidationError("preprocess", "empty response")
	}
	if len(p.Visualizations) == 0 {
		return core.NewValidationError("visualizations", "no charts returned")
	}
	if p.RowsAfterPreprocessing < 0 {
		return core.NewValidationError("rows_after_preprocessing", "negative row count")
	}
	return p.Visualizations.Validate()
}
