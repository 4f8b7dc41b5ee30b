// Package fake implements the dashboard backend in memory with fixed fixture
// data. It needs no network and is selected with BACKEND_MODE=fake.
package fake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	"vizninja/internal/analysis"
	"vizninja/internal/errors"
	"vizninja/internal/render"
	"vizninja/ports"
)

// Backend serves the fixture session. Zero value is not usable; call New.
type Backend struct {
	// Latency is waited before every call returns.
	Latency time.Duration

	mu           sync.Mutex
	down         bool
	preprocessed bool
	regression   *dataset.RegressionResult
	charts       render.Charts
}

// New returns a healthy fake backend.
func New() *Backend {
	return &Backend{}
}

var _ ports.Backend = (*Backend)(nil)

// SetDown makes every call fail with a network error until reset.
func (b *Backend) SetDown(down bool) {
	b.mu.Lock()
	b.down = down
	b.mu.Unlock()
}

func (b *Backend) Health(ctx context.Context) error {
	return b.enter(ctx, "health check")
}

func (b *Backend) Upload(ctx context.Context, filename string, file io.Reader) (*dataset.UploadResult, error) {
	if err := b.enter(ctx, "upload"); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, rejected(core.ErrInvalidFileType.Error())
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		return nil, errors.Wrap(err, "failed to read upload")
	}

	b.mu.Lock()
	b.preprocessed = false
	b.regression = nil
	b.mu.Unlock()

	return checked("upload", uploadFixture())
}

func (b *Backend) Preview(ctx context.Context, sessionID core.SessionID) (*dataset.Preview, error) {
	if err := b.session(ctx, "preview", sessionID); err != nil {
		return nil, err
	}
	return checked("preview", previewFixture())
}

func (b *Backend) Preprocess(ctx context.Context, sessionID core.SessionID, strategy dataset.Strategy) (*dataset.PreprocessResult, error) {
	if err := b.session(ctx, "preprocess", sessionID); err != nil {
		return nil, err
	}
	viz, err := b.visualizations()
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.preprocessed = true
	b.regression = nil
	b.mu.Unlock()

	rows := 148
	if strategy.Normalize() == dataset.StrategyDropRows {
		rows = 135
	}
	return checked("preprocess", &dataset.PreprocessResult{
		Message:                "Data preprocessing completed",
		RowsAfterPreprocessing: rows,
		Visualizations:         viz,
	})
}

func (b *Backend) Summarize(ctx context.Context, sessionID core.SessionID) (*dataset.Summary, error) {
	if err := b.session(ctx, "summary", sessionID); err != nil {
		return nil, err
	}
	return checked("summary", summaryFixture())
}

func (b *Backend) Visualizations(ctx context.Context, sessionID core.SessionID) (dataset.Visualizations, error) {
	if err := b.session(ctx, "visualizations", sessionID); err != nil {
		return nil, err
	}
	b.mu.Lock()
	done := b.preprocessed
	b.mu.Unlock()
	if !done {
		return nil, rejected("No visualizations available yet")
	}
	viz, err := b.visualizations()
	if err != nil {
		return nil, err
	}
	if err := viz.Validate(); err != nil {
		return nil, errors.WithCode(errors.CodeValidationError, err)
	}
	return viz, nil
}

func (b *Backend) Regress(ctx context.Context, sessionID core.SessionID, target string) (*dataset.RegressionResult, error) {
	if err := b.session(ctx, "regression", sessionID); err != nil {
		return nil, err
	}
	if !contains(columns, target) {
		return nil, rejected(fmt.Sprintf("%v: %s", core.ErrColumnNotFound, target))
	}

	plot, err := render.Placeholder(480, 360, "Actual vs Predicted: "+target, "fixture data")
	if err != nil {
		return nil, errors.Wrap(err, "failed to render regression plot")
	}
	importance, err := render.Placeholder(480, 360, "Feature Importance", "fixture data")
	if err != nil {
		return nil, errors.Wrap(err, "failed to render feature importance")
	}

	result := regressionFixture(target)
	result.RegressionPlot = dataset.PNGDataURI(plot)
	result.FeatureImportance.Image = dataset.PNGDataURI(importance)
	if _, err := checked("regression", result); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.regression = result
	b.mu.Unlock()
	return result, nil
}

func (b *Backend) Download(ctx context.Context, sessionID core.SessionID, kind ports.DownloadKind) (*ports.Download, error) {
	if !kind.Valid() {
		return nil, errors.WithCode(errors.CodeValidationError,
			fmt.Errorf("%w: %q", core.ErrUnknownDownloadKind, kind))
	}
	if err := b.session(ctx, "download", sessionID); err != nil {
		return nil, err
	}

	var (
		buf         bytes.Buffer
		filename    string
		contentType string
	)
	switch kind {
	case ports.DownloadCleanedData:
		buf.WriteString(cleanedCSV)
		filename, contentType = "cleaned_data.csv", "text/csv"
	case ports.DownloadReport:
		buf.Write(render.Report(b.reportInput(sessionID)))
		filename, contentType = "report.html", "text/html; charset=utf-8"
	case ports.DownloadWorkbook:
		frame, err := analysis.ParseCSV(strings.NewReader(cleanedCSV))
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse fixture data")
		}
		if err := render.Workbook(&buf, frame, summaryFixture(), b.lastRegression()); err != nil {
			return nil, errors.Wrap(err, "failed to build workbook")
		}
		filename = "analysis.xlsx"
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ports.DownloadResults:
		frame, err := analysis.ParseCSV(strings.NewReader(cleanedCSV))
		if err != nil {
			return nil, errors.Wrap(err, "failed to parse fixture data")
		}
		if _, err := b.visualizations(); err != nil {
			return nil, err
		}
		b.mu.Lock()
		charts := b.charts
		b.mu.Unlock()
		report := render.Report(b.reportInput(sessionID))
		if err := render.Archive(&buf, frame, report, charts, b.lastRegression()); err != nil {
			return nil, errors.Wrap(err, "failed to build archive")
		}
		filename, contentType = "analysis_results.zip", "application/zip"
	}

	return &ports.Download{
		Filename:    filename,
		ContentType: contentType,
		Body:        io.NopCloser(&buf),
	}, nil
}

// enter applies the configured latency and the down switch.
func (b *Backend) enter(ctx context.Context, op string) error {
	if b.Latency > 0 {
		timer := time.NewTimer(b.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return errors.NetworkError(op, ctx.Err())
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return errors.NetworkError(op, err)
	}

	b.mu.Lock()
	down := b.down
	b.mu.Unlock()
	if down {
		return errors.NetworkError(op, fmt.Errorf("fake backend is down"))
	}
	return nil
}

func (b *Backend) session(ctx context.Context, op string, id core.SessionID) error {
	if err := b.enter(ctx, op); err != nil {
		return err
	}
	if id.IsEmpty() {
		return rejected("session_id is required")
	}
	if id != SessionID {
		return errors.NotFound("session")
	}
	return nil
}

// visualizations renders the placeholder charts once.
func (b *Backend) visualizations() (dataset.Visualizations, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.charts == nil {
		charts := make(render.Charts, 3)
		for _, name := range []string{dataset.ChartCorrelationHeatmap, dataset.ChartHistograms, dataset.ChartBoxplots} {
			png, err := render.Placeholder(640, 480, name, "fixture data")
			if err != nil {
				return nil, errors.Wrapf(err, "failed to render %s", name)
			}
			charts[name] = png
		}
		b.charts = charts
	}
	return b.charts.Visualizations(), nil
}

func (b *Backend) lastRegression() *dataset.RegressionResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regression
}

func (b *Backend) reportInput(id core.SessionID) render.ReportInput {
	b.mu.Lock()
	var viz dataset.Visualizations
	if b.preprocessed && b.charts != nil {
		viz = b.charts.Visualizations()
	}
	b.mu.Unlock()
	return render.ReportInput{
		SessionID:      id.String(),
		Filename:       "fixture.csv",
		GeneratedAt:    time.Now(),
		Raw:            summaryFixture(),
		Strategy:       dataset.DefaultStrategy,
		Visualizations: viz,
		Regression:     b.lastRegression(),
	}
}

func rejected(message string) error {
	return errors.New(errors.CodeBackendRejected, message)
}

type validator interface {
	Validate() error
}

func checked[T validator](op string, v T) (T, error) {
	if err := v.Validate(); err != nil {
		var zero T
		return zero, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%s: %w", op, err))
	}
	return v, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
