// Package session defines the client-side session: the identifiers and cached
// data describing one uploaded dataset and its derived artifacts.
package session

import (
	"vizninja/domain/core"
	"vizninja/domain/dataset"
)

// Session is created by a successful upload, mutated by preprocessing and
// regression, and replaced wholesale by the next upload.
type Session struct {
	ID                  core.SessionID            `json:"session_id" yaml:"session_id"`
	ColumnNames         []string                  `json:"column_names" yaml:"column_names"`
	SampleRows          []dataset.Row             `json:"sample_rows" yaml:"sample_rows"`
	NumericFeatures     []string                  `json:"numeric_features" yaml:"numeric_features"`
	CategoricalFeatures []string                  `json:"categorical_features" yaml:"categorical_features"`
	Stats               dataset.UploadStats       `json:"stats" yaml:"stats"`
	Visualizations      dataset.Visualizations    `json:"visualizations,omitempty" yaml:"visualizations,omitempty"`
	Regression          *dataset.RegressionResult `json:"regression,omitempty" yaml:"regression,omitempty"`
}

// FromUpload builds a new session from a validated upload response.
func FromUpload(u *dataset.UploadResult) *Session {
	return &Session{
		ID:                  u.SessionID,
		ColumnNames:         append([]string(nil), u.Stats.ColumnNames...),
		SampleRows:          append([]dataset.Row(nil), u.Stats.SampleData...),
		NumericFeatures:     append([]string(nil), u.NumericFeatures...),
		CategoricalFeatures: append([]string(nil), u.CategoricalFeatures...),
		Stats:               u.Stats,
	}
}

// Exists reports whether s is a usable session. A nil session never exists.
func (s *Session) Exists() bool {
	return s != nil && !s.ID.IsEmpty()
}

// RawStats returns the missing count and data type of every column.
func (s *Session) RawStats() map[string]dataset.ColumnStats {
	if s == nil {
		return nil
	}
	return s.Stats.RawStats()
}

// HasNumericFeature reports whether name is one of the numeric features.
func (s *Session) HasNumericFeature(name string) bool {
	if s == nil {
		return false
	}
	for _, f := range s.NumericFeatures {
		if f == name {
			return true
		}
	}
	return false
}

// HasVisualizations reports whether preprocessing has produced charts.
func (s *Session) HasVisualizations() bool {
	return s != nil && len(s.Visualizations) > 0
}
