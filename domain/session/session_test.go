package session

import (
	"testing"

	"vizninja/domain/dataset"

	"github.com/stretchr/testify/assert"
)

func TestFromUpload(t *testing.T) {
	u := &dataset.UploadResult{
		SessionID: "s1",
		Stats: dataset.UploadStats{
			Rows:        3,
			Columns:     2,
			ColumnNames: []string{"age", "city"},
			DataTypes:   map[string]string{"age": dataset.TypeFloat64, "city": dataset.TypeObject},
			SampleData:  []dataset.Row{{"age": 1.0, "city": "Nice"}},
		},
		NumericFeatures:     []string{"age"},
		CategoricalFeatures: []string{"city"},
	}
	s := FromUpload(u)

	assert.True(t, s.Exists())
	assert.Equal(t, u.Stats.ColumnNames, s.ColumnNames)
	assert.True(t, s.HasNumericFeature("age"))
	assert.False(t, s.HasNumericFeature("city"))
	assert.False(t, s.HasVisualizations())
	assert.Equal(t, dataset.TypeObject, s.RawStats()["city"].DataType)

	// the session owns its slices
	u.Stats.ColumnNames[0] = "changed"
	assert.Equal(t, "age", s.ColumnNames[0])
}

func TestNilSession(t *testing.T) {
	var s *Session
	assert.False(t, s.Exists())
	assert.False(t, s.HasNumericFeature("age"))
	assert.False(t, s.HasVisualizations())
	assert.Nil(t, s.RawStats())
	assert.False(t, (&Session{ID: " "}).Exists())
}
