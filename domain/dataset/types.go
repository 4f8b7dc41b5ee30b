// Package dataset holds the typed request/response contracts exchanged between
// the dashboard and the analysis backend. Every contract decoded from the wire
// is checked with Validate before the rest of the system sees it.
package dataset

import (
	"fmt"
	"math"

	"vizninja/domain/core"
)

// Data type labels reported per column. They mirror the pandas dtype names the
// dashboard has always displayed.
const (
	TypeInt64   = "int64"
	TypeFloat64 = "float64"
	TypeObject  = "object"
)

// Row maps a column name to a cell value. Values are strings, float64 numbers
// or nil for a missing cell; they are not further typed.
type Row map[string]interface{}

// ColumnStats is the per-column raw statistic kept with a session.
type ColumnStats struct {
	MissingCount int    `json:"missing_count"`
	DataType     string `json:"data_type"`
}

// UploadStats describes a freshly uploaded dataset.
type UploadStats struct {
	Rows          int               `json:"rows"`
	Columns       int               `json:"columns"`
	ColumnNames   []string          `json:"column_names"`
	MissingValues map[string]int    `json:"missing_values"`
	DataTypes     map[string]string `json:"data_types"`
	SampleData    []Row             `json:"sample_data"`
}

// UploadResult is the response of POST /api/upload.
type UploadResult struct {
	SessionID           core.SessionID `json:"session_id"`
	Stats               UploadStats    `json:"stats"`
	NumericFeatures     []string       `json:"numeric_features"`
	CategoricalFeatures []string       `json:"categorical_features"`
}

// Validate checks the upload contract for internal consistency.
func (u *UploadResult) Validate() error {
	if u == nil {
		return core.NewValidationError("upload", "empty response")
	}
	if u.SessionID.IsEmpty() {
		return core.NewValidationError("session_id", "missing")
	}
	if len(u.Stats.ColumnNames) == 0 {
		return core.NewValidationError("stats.column_names", "no columns")
	}
	if u.Stats.Columns != len(u.Stats.ColumnNames) {
		return core.NewValidationError("stats.columns",
			fmt.Sprintf("reported %d columns but named %d", u.Stats.Columns, len(u.Stats.ColumnNames)))
	}
	if u.Stats.Rows < 0 {
		return core.NewValidationError("stats.rows", "negative row count")
	}

	known := make(map[string]bool, len(u.Stats.ColumnNames))
	for _, name := range u.Stats.ColumnNames {
		if known[name] {
			return core.NewValidationError("stats.column_names", "duplicate column "+name)
		}
		known[name] = true
	}
	for _, f := range u.NumericFeatures {
		if !known[f] {
			return core.NewValidationError("numeric_features", "unknown column "+f)
		}
	}
	for _, f := range u.CategoricalFeatures {
		if !known[f] {
			return core.NewValidationError("categorical_features", "unknown column "+f)
		}
	}
	for i, row := range u.Stats.SampleData {
		if err := validateRow(row, known); err != nil {
			return core.NewValidationError(fmt.Sprintf("stats.sample_data[%d]", i), err.Error())
		}
	}
	return nil
}

// RawStats flattens the per-column maps into ColumnStats keyed by column.
func (s UploadStats) RawStats() map[string]ColumnStats {
	out := make(map[string]ColumnStats, len(s.ColumnNames))
	for _, name := range s.ColumnNames {
		out[name] = ColumnStats{
			MissingCount: s.MissingValues[name],
			DataType:     s.DataTypes[name],
		}
	}
	return out
}

func validateRow(row Row, known map[string]bool) error {
	for col, v := range row {
		if !known[col] {
			return fmt.Errorf("unknown column %q", col)
		}
		switch n := v.(type) {
		case nil, string:
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return fmt.Errorf("non-finite value in column %q", col)
			}
		default:
			return fmt.Errorf("unsupported value type %T in column %q", v, col)
		}
	}
	return nil
}

// Preview is the response of GET /api/preview: the first rows as arrays.
type Preview struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// Validate checks every preview row has one value per column.
func (p *Preview) Validate() error {
	if p == nil || len(p.Columns) == 0 {
		return core.NewValidationError("preview.columns", "no columns")
	}
	for i, row := range p.Data {
		if len(row) != len(p.Columns) {
			return core.NewValidationError(fmt.Sprintf("preview.data[%d]", i),
				fmt.Sprintf("expected %d values, got %d", len(p.Columns), len(row)))
		}
	}
	return nil
}

// Rows converts the array form into column-keyed rows.
func (p *Preview) Rows() []Row {
	rows := make([]Row, 0, len(p.Data))
	for _, values := range p.Data {
		row := make(Row, len(p.Columns))
		for i, col := range p.Columns {
			if i < len(values) {
				row[col] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// ErrorResponse is the JSON body of every non-2xx backend response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthStatus is the body of GET /api/health.
type HealthStatus struct {
	Status string `json:"status"`
}
