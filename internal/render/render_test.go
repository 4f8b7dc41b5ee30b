package render

import (
	"archive/zip"
	"bytes"
	"context"
	"image/png"
	"os"
	"strings"
	"testing"
	"time"

	"vizninja/domain/dataset"
	"vizninja/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func cleanedCustomers(t *testing.T) *analysis.Frame {
	t.Helper()
	file, err := os.Open("../analysis/testdata/customers.csv")
	require.NoError(t, err)
	defer file.Close()

	raw, err := analysis.ParseCSV(file)
	require.NoError(t, err)
	return analysis.Clean(raw, dataset.StrategyMeanMode)
}

func TestPreprocessCharts(t *testing.T) {
	f := cleanedCustomers(t)

	charts, err := PreprocessCharts(context.Background(), f, DefaultOptions())
	require.NoError(t, err)

	for _, name := range []string{
		dataset.ChartCorrelationHeatmap,
		dataset.ChartHistograms,
		dataset.ChartBoxplots,
		dataset.ChartPairplot,
	} {
		data, ok := charts[name]
		require.True(t, ok, "missing chart %s", name)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err, name)
		assert.Greater(t, img.Bounds().Dx(), 100, name)
	}

	viz := charts.Visualizations()
	require.NoError(t, viz.Validate())
	assert.True(t, strings.HasPrefix(viz[dataset.ChartHistograms], "data:image/png;base64,"))
}

func TestPairplotNeedsTwoNumericColumns(t *testing.T) {
	f, err := analysis.ParseCSV(strings.NewReader("x,label\n1,a\n2,b\n3,c\n"))
	require.NoError(t, err)

	charts, err := PreprocessCharts(context.Background(), f, DefaultOptions())
	require.NoError(t, err)
	assert.NotContains(t, charts, dataset.ChartPairplot)
	assert.Contains(t, charts, dataset.ChartHistograms)
}

func TestPreprocessChartsWithoutNumericColumns(t *testing.T) {
	f, err := analysis.ParseCSV(strings.NewReader("city\nLyon\nOslo\n"))
	require.NoError(t, err)

	charts, err := PreprocessCharts(context.Background(), f, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, charts, 3)
}

func TestRegressionCharts(t *testing.T) {
	fit, err := analysis.Regress(cleanedCustomers(t), "income", analysis.DefaultRegressionOptions())
	require.NoError(t, err)

	charts, err := RegressionCharts(context.Background(), fit, DefaultOptions())
	require.NoError(t, err)
	assert.Contains(t, charts, dataset.ChartRegressionPlot)
	assert.Contains(t, charts, dataset.ChartFeatureImportance)
}

func TestRenderHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PreprocessCharts(ctx, cleanedCustomers(t), DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarizeBox(t *testing.T) {
	b, err := summarizeBox([]float64{1, 2, 3, 4, 5, 6, 7, 8, 100})
	require.NoError(t, err)
	assert.Equal(t, []float64{100}, b.Outliers)
	assert.Equal(t, 8.0, b.High)
	assert.Equal(t, 1.0, b.Low)
}

func TestBinCounts(t *testing.T) {
	counts, lo, width := binCounts([]float64{0, 1, 2, 3, 4}, 4)
	assert.Equal(t, []int{1, 1, 1, 2}, counts)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, width)

	counts, _, _ = binCounts([]float64{5, 5, 5}, 4)
	assert.Equal(t, []int{3}, counts)
}

func TestReport(t *testing.T) {
	f := cleanedCustomers(t)
	html := string(Report(ReportInput{
		SessionID:      "s-1",
		Filename:       "customers.csv",
		GeneratedAt:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Raw:            f.Summary(),
		Cleaned:        f.Summary(),
		Strategy:       dataset.StrategyMedianMode,
		Visualizations: dataset.Visualizations{dataset.ChartHistograms: "data:image/png;base64,AAAA"},
		Regression: &dataset.RegressionResult{
			TargetVariable: "income",
			ModelResults:   dataset.ModelMetrics{MSE: 1.5, R2: 0.9, NumFeatures: 1, NumSamples: 10, TestSize: 2},
			FeatureImportance: dataset.FeatureImportanceBlock{
				Data: []dataset.FeatureImportance{{Feature: "age", Importance: 0.7}},
			},
		},
	}))

	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "Data Analysis Report")
	assert.Contains(t, html, "Regression Analysis")
	assert.Contains(t, html, "credit_score")
	assert.Contains(t, html, "data:image/png;base64,AAAA")
}

func TestWorkbook(t *testing.T) {
	f := cleanedCustomers(t)

	var buf bytes.Buffer
	require.NoError(t, Workbook(&buf, f, f.Summary(), nil))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	header, err := book.GetCellValue(sheetData, "A1")
	require.NoError(t, err)
	assert.Equal(t, "age", header)

	rows, err := book.GetRows(sheetData)
	require.NoError(t, err)
	assert.Len(t, rows, f.Len()+1)

	assert.Contains(t, book.GetSheetList(), sheetSummary)
	assert.NotContains(t, book.GetSheetList(), sheetRegression)
}

func TestArchive(t *testing.T) {
	f := cleanedCustomers(t)
	charts := Charts{dataset.ChartHistograms: []byte("png")}

	var buf bytes.Buffer
	require.NoError(t, Archive(&buf, f, []byte("<html></html>"), charts, &dataset.RegressionResult{TargetVariable: "age"}))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	var names []string
	for _, file := range zr.File {
		names = append(names, file.Name)
	}
	assert.ElementsMatch(t, []string{"cleaned_data.csv", "report.html", "charts/histograms.png", "regression.json"}, names)
}
