package fake

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	"vizninja/internal/errors"
	"vizninja/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixtureFlow(t *testing.T) {
	ctx := context.Background()
	b := New()

	require.NoError(t, b.Health(ctx))

	up, err := b.Upload(ctx, "customers.CSV", strings.NewReader("a,b\n1,2\n"))
	require.NoError(t, err)
	assert.Equal(t, SessionID, up.SessionID)
	assert.Equal(t, 150, up.Stats.Rows)
	assert.Equal(t, []string{"Age", "Income", "Spending", "Savings", "Credit Score"}, up.Stats.ColumnNames)
	assert.Equal(t, 8, up.Stats.MissingValues["Savings"])
	assert.Len(t, up.Stats.SampleData, 5)
	assert.Empty(t, up.CategoricalFeatures)

	preview, err := b.Preview(ctx, up.SessionID)
	require.NoError(t, err)
	assert.Len(t, preview.Data, 5)
	assert.Equal(t, 720.0, preview.Rows()[0]["Credit Score"])

	_, err = b.Visualizations(ctx, up.SessionID)
	assert.True(t, errors.HasCode(err, errors.CodeBackendRejected))

	pre, err := b.Preprocess(ctx, up.SessionID, dataset.StrategyMeanMode)
	require.NoError(t, err)
	assert.Equal(t, "Data preprocessing completed", pre.Message)
	assert.Equal(t, 148, pre.RowsAfterPreprocessing)
	assert.ElementsMatch(t,
		[]string{dataset.ChartCorrelationHeatmap, dataset.ChartHistograms, dataset.ChartBoxplots},
		pre.Visualizations.Names())
	png, err := dataset.DecodeDataURI(pre.Visualizations[dataset.ChartHistograms])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	viz, err := b.Visualizations(ctx, up.SessionID)
	require.NoError(t, err)
	assert.Len(t, viz, 3)

	summary, err := b.Summarize(ctx, up.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 112, summary.UniqueValues["Income"])
	assert.InDelta(t, 732, summary.Statistics["Credit Score"].Mean, 1e-9)

	reg, err := b.Regress(ctx, up.SessionID, "Spending")
	require.NoError(t, err)
	assert.Equal(t, "Spending", reg.TargetVariable)
	assert.InDelta(t, 4235.67, reg.ModelResults.MSE, 1e-9)
	assert.InDelta(t, 0.87, reg.ModelResults.R2, 1e-9)
	assert.Equal(t, 30, reg.ModelResults.TestSize)
	assert.Equal(t, "Income", reg.FeatureImportance.Data[0].Feature)
	assert.True(t, strings.HasPrefix(reg.RegressionPlot, "data:image/png;base64,"))
}

func TestDropStrategyRowCount(t *testing.T) {
	pre, err := New().Preprocess(context.Background(), SessionID, dataset.StrategyDropRows)
	require.NoError(t, err)
	assert.Equal(t, 135, pre.RowsAfterPreprocessing)
}

func TestRejections(t *testing.T) {
	ctx := context.Background()
	b := New()

	_, err := b.Upload(ctx, "data.xlsx", strings.NewReader("x"))
	assert.True(t, errors.HasCode(err, errors.CodeBackendRejected))

	_, err = b.Preview(ctx, "")
	assert.True(t, errors.HasCode(err, errors.CodeBackendRejected))

	_, err = b.Summarize(ctx, core.SessionID("other"))
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))

	_, err = b.Regress(ctx, SessionID, "Height")
	assert.True(t, errors.HasCode(err, errors.CodeBackendRejected))

	_, err = b.Download(ctx, SessionID, ports.DownloadKind("pdf"))
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

func TestDown(t *testing.T) {
	ctx := context.Background()
	b := New()
	b.SetDown(true)

	assert.True(t, errors.HasCode(b.Health(ctx), errors.CodeNetworkError))
	_, err := b.Upload(ctx, "a.csv", strings.NewReader(""))
	assert.True(t, errors.HasCode(err, errors.CodeNetworkError))

	b.SetDown(false)
	assert.NoError(t, b.Health(ctx))
}

func TestLatencyHonoursContext(t *testing.T) {
	b := New()
	b.Latency = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := b.Health(ctx)
	assert.True(t, errors.HasCode(err, errors.CodeNetworkError))
}

func TestDownloads(t *testing.T) {
	ctx := context.Background()
	b := New()
	_, err := b.Preprocess(ctx, SessionID, dataset.StrategyMedianMode)
	require.NoError(t, err)
	_, err = b.Regress(ctx, SessionID, "Income")
	require.NoError(t, err)

	read := func(kind ports.DownloadKind) (*ports.Download, []byte) {
		d, err := b.Download(ctx, SessionID, kind)
		require.NoError(t, err)
		defer d.Body.Close()
		body, err := io.ReadAll(d.Body)
		require.NoError(t, err)
		return d, body
	}

	d, body := read(ports.DownloadCleanedData)
	assert.Equal(t, "cleaned_data.csv", d.Filename)
	assert.Equal(t, "Age,Income,Spending,Savings,Credit Score\n34,65000,48000,17000,720\n29,48000,40000,8000,680", strings.TrimSpace(string(body)))

	d, body = read(ports.DownloadReport)
	assert.Equal(t, "report.html", d.Filename)
	assert.Contains(t, string(body), "Data Analysis Report")

	d, body = read(ports.DownloadWorkbook)
	assert.Equal(t, "analysis.xlsx", d.Filename)
	assert.True(t, bytes.HasPrefix(body, []byte("PK")))

	d, body = read(ports.DownloadResults)
	assert.Equal(t, "application/zip", d.ContentType)
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "cleaned_data.csv")
	assert.Contains(t, names, "regression.json")
}
