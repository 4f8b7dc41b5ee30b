package dataset

import (
	"math"

	"vizninja/domain/core"

	"github.com/montanaflynn/stats"
)

// Shape is the row and column count of a dataset.
type Shape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// NumericStats are the descriptive statistics shown for a numeric column.
type NumericStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Std    float64 `json:"std"`
}

// Summary is the response of GET /api/summary.
type Summary struct {
	Shape         Shape                   `json:"shape"`
	MissingValues map[string]int          `json:"missingValues"`
	UniqueValues  map[string]int          `json:"uniqueValues"`
	DataTypes     map[string]string       `json:"dataTypes"`
	Statistics    map[string]NumericStats `json:"statistics"`
}

// Validate checks the summary counts are coherent.
func (s *Summary) Validate() error {
	if s == nil {
		return core.NewValidationError("summary", "empty response")
	}
	if s.Shape.Rows < 0 || s.Shape.Columns < 0 {
		return core.NewValidationError("shape", "negative dimensions")
	}
	for col, st := range s.Statistics {
		for _, v := range []float64{st.Mean, st.Median, st.Min, st.Max} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return core.NewValidationError("statistics."+col, "non-finite value")
			}
		}
	}
	return nil
}

// SummaryFromStats derives a summary from the stats stored with a session.
// Unique counts and numeric statistics can only be computed over the sample
// rows, so they describe the sample, not the full dataset.
func SummaryFromStats(stats UploadStats, numeric []string) *Summary {
	summary := &Summary{
		Shape:         Shape{Rows: stats.Rows, Columns: stats.Columns},
		MissingValues: make(map[string]int, len(stats.ColumnNames)),
		UniqueValues:  make(map[string]int, len(stats.ColumnNames)),
		DataTypes:     make(map[string]string, len(stats.ColumnNames)),
		Statistics:    make(map[string]NumericStats, len(numeric)),
	}
	for _, col := range stats.ColumnNames {
		summary.MissingValues[col] = stats.MissingValues[col]
		summary.DataTypes[col] = stats.DataTypes[col]

		seen := make(map[interface{}]bool)
		for _, row := range stats.SampleData {
			if v, ok := row[col]; ok && v != nil {
				seen[v] = true
			}
		}
		summary.UniqueValues[col] = len(seen)
	}

	for _, col := range numeric {
		var values []float64
		for _, row := range stats.SampleData {
			if f, ok := row[col].(float64); ok {
				values = append(values, f)
			}
		}
		if len(values) == 0 {
			continue
		}
		summary.Statistics[col] = Describe(values)
	}
	return summary
}

// Describe computes the descriptive statistics of values. Std is the sample
// standard deviation and is zero for a single value.
func Describe(values []float64) NumericStats {
	data := stats.Float64Data(values)
	mean, _ := data.Mean()
	median, _ := data.Median()
	min, _ := data.Min()
	max, _ := data.Max()

	var std float64
	if len(values) > 1 {
		std, _ = data.StandardDeviationSample()
	}

	return NumericStats{
		Mean:   mean,
		Median: median,
		Min:    min,
		Max:    max,
		Std:    std,
	}
}
