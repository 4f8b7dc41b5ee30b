package analysis

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"vizninja/domain/core"
	"vizninja/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadCustomers(t *testing.T) *Frame {
	t.Helper()
	file, err := os.Open("testdata/customers.csv")
	require.NoError(t, err)
	defer file.Close()

	f, err := ParseCSV(file)
	require.NoError(t, err)
	return f
}

func TestParseCSVInfersTypes(t *testing.T) {
	f := loadCustomers(t)

	assert.Equal(t, 41, f.Len())
	assert.Equal(t, []string{"Age", "Income", "Spending", "Savings", "Credit Score", "City"}, f.Names())

	types := f.DataTypes()
	assert.Equal(t, dataset.TypeInt64, types["Age"])
	assert.Equal(t, dataset.TypeFloat64, types["Spending"])
	assert.Equal(t, dataset.TypeFloat64, types["Savings"])
	assert.Equal(t, dataset.TypeObject, types["City"])

	missing := f.MissingCounts()
	assert.Equal(t, 0, missing["Age"])
	assert.Equal(t, 1, missing["Spending"])
	assert.Equal(t, 1, missing["Savings"])
	assert.Equal(t, 1, missing["City"])

	assert.Equal(t, []string{"Age", "Income", "Spending", "Savings", "Credit Score"}, f.NumericColumns())
	assert.Equal(t, []string{"City"}, f.CategoricalColumns())
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"empty document", "", core.ErrEmptyFile},
		{"too many fields", "a,b\n1,2,3\n", core.ErrMalformedCSV},
		{"duplicate header", "a,a\n1,2\n", core.ErrMalformedCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestIntegerColumnWithGapsIsFloat(t *testing.T) {
	f, err := ParseCSV(strings.NewReader("n,label\n1,a\n,b\n3,c\n"))
	require.NoError(t, err)

	assert.Equal(t, dataset.TypeFloat64, f.Kind(0))
	assert.Nil(t, f.Cell(0, 1))
	assert.Equal(t, 3.0, f.Cell(0, 2))
	assert.Equal(t, "c", f.Cell(1, 2))
}

func TestHeadAndPreview(t *testing.T) {
	f := loadCustomers(t)

	head := f.Head(5)
	require.Len(t, head, 5)
	assert.Equal(t, 22.0, head[0]["Age"])
	assert.Equal(t, "Lyon", head[0]["City"])
	assert.Nil(t, head[3]["Spending"])

	preview := f.Preview(5)
	require.NoError(t, preview.Validate())
	assert.Len(t, preview.Data, 5)

	stats := f.UploadStats(5)
	assert.Equal(t, 41, stats.Rows)
	assert.Equal(t, 6, stats.Columns)
	assert.Len(t, stats.SampleData, 5)
}

func TestCleanStrategies(t *testing.T) {
	f := loadCustomers(t)

	tests := []struct {
		name     string
		strategy dataset.Strategy
		rows     int
	}{
		{"mean fills and dedupes", dataset.StrategyMeanMode, 40},
		{"median fills and dedupes", dataset.StrategyMedianMode, 40},
		{"drop removes incomplete rows", dataset.StrategyDropRows, 37},
		{"unknown strategy uses mean", dataset.Strategy(9), 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned := Clean(f, tt.strategy)
			assert.Equal(t, tt.rows, cleaned.Len())
			for col, n := range cleaned.MissingCounts() {
				assert.Zero(t, n, "column %s", col)
			}
			assert.Equal(t, []string{"age", "income", "spending", "savings", "credit_score", "city"}, cleaned.Names())
		})
	}

	// the raw frame is untouched
	assert.Equal(t, 41, f.Len())
	assert.Equal(t, "Credit Score", f.Names()[4])
}

func TestCleanFillsModeForCategories(t *testing.T) {
	f := loadCustomers(t)
	cleaned := Clean(f, dataset.StrategyMeanMode)
	assert.Equal(t, "Lyon", cleaned.Cell(cleaned.Index("city"), 11))
}

func TestMedianImputation(t *testing.T) {
	f, err := ParseCSV(strings.NewReader("x,y\n1,a\n2,b\n,c\n10,d\n"))
	require.NoError(t, err)
	require.Equal(t, 4, f.Len())

	cleaned := Clean(f, dataset.StrategyMedianMode)
	assert.Equal(t, 2.0, cleaned.Cell(0, 2))

	cleaned = Clean(f, dataset.StrategyMeanMode)
	assert.InDelta(t, 13.0/3.0, cleaned.Cell(0, 2), 1e-9)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "credit_score", NormalizeName("  Credit Score "))
	assert.Equal(t, "a__b", NormalizeName("A  B"))
}

func TestSummary(t *testing.T) {
	f := loadCustomers(t)
	summary := f.Summary()
	require.NoError(t, summary.Validate())

	assert.Equal(t, dataset.Shape{Rows: 41, Columns: 6}, summary.Shape)
	assert.Equal(t, 3, summary.UniqueValues["City"])
	require.Contains(t, summary.Statistics, "Age")
	assert.Equal(t, 22.0, summary.Statistics["Age"].Min)
	assert.Equal(t, 61.0, summary.Statistics["Age"].Max)
	assert.NotContains(t, summary.Statistics, "City")
}

func TestCorrelationMatrix(t *testing.T) {
	f := loadCustomers(t)
	c := CorrelationMatrix(f)

	require.Len(t, c.Columns, 5)
	for i := range c.Columns {
		assert.InDelta(t, 1.0, c.Values[i][i], 1e-9)
	}
	assert.Greater(t, c.Values[0][1], 0.95, "age and income move together")
	assert.Equal(t, c.Values[0][2], c.Values[2][0])
}

func TestRegress(t *testing.T) {
	f := Clean(loadCustomers(t), dataset.StrategyDropRows)

	fit, err := Regress(f, "income", DefaultRegressionOptions())
	require.NoError(t, err)

	assert.Equal(t, 4, fit.Metrics.NumFeatures)
	assert.Equal(t, 37, fit.Metrics.NumSamples)
	assert.Equal(t, 8, fit.Metrics.TestSize)
	assert.Greater(t, fit.Metrics.R2, 0.9)
	assert.Len(t, fit.Importance, 4)
	for i := 1; i < len(fit.Importance); i++ {
		assert.GreaterOrEqual(t, fit.Importance[i-1].Importance, fit.Importance[i].Importance)
	}

	result := fit.Result()
	require.NoError(t, result.Validate())
	assert.Equal(t, "income", result.TargetVariable)
}

func TestRegressIsDeterministic(t *testing.T) {
	f := Clean(loadCustomers(t), dataset.StrategyMeanMode)

	a, err := Regress(f, "spending", DefaultRegressionOptions())
	require.NoError(t, err)
	b, err := Regress(f, "spending", DefaultRegressionOptions())
	require.NoError(t, err)

	assert.Equal(t, a.Metrics, b.Metrics)
}

func TestRegressErrors(t *testing.T) {
	f := loadCustomers(t)

	_, err := Regress(f, "Nope", DefaultRegressionOptions())
	assert.True(t, errors.Is(err, core.ErrColumnNotFound))

	_, err = Regress(f, "City", DefaultRegressionOptions())
	assert.True(t, errors.Is(err, core.ErrNonNumericTarget))

	tiny, err := ParseCSV(strings.NewReader("x,y\n1,2\n2,4\n"))
	require.NoError(t, err)
	_, err = Regress(tiny, "y", DefaultRegressionOptions())
	assert.True(t, errors.Is(err, core.ErrInsufficientData))
}

func TestWriteCSV(t *testing.T) {
	f, err := ParseCSV(strings.NewReader("a,b\n1,x\n,y\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.WriteCSV(&buf))
	assert.Equal(t, "a,b\n1,x\n,y\n", buf.String())
}

func TestSplitSamples(t *testing.T) {
	split := SplitSamples(41, 0.2, 7)
	assert.Len(t, split.Test, 9)
	assert.Len(t, split.Train, 32)

	seen := make(map[int]bool)
	for _, i := range append(append([]int(nil), split.Train...), split.Test...) {
		assert.False(t, seen[i], "position %d used twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 41)

	assert.Equal(t, split, SplitSamples(41, 0.2, 7))
	assert.NotEqual(t, split.Test, SplitSamples(41, 0.2, 8).Test)

	assert.Equal(t, 0, TestCount(0, 0.2))
	assert.Equal(t, 1, TestCount(3, 0.1))
	assert.Equal(t, 3, TestCount(3, 2))
}
