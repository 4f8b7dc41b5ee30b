// Package dataset runs the server side of the dashboard: it keeps uploaded
// datasets in a session registry and answers every analysis request against
// them.
package dataset

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	"vizninja/internal/analysis"
	"vizninja/internal/render"

	"github.com/patrickmn/go-cache"
)

// ProcessorConfig holds the analysis settings of a Processor
type ProcessorConfig struct {
	SessionTTL  time.Duration
	SampleRows  int
	PreviewRows int
	Regression  analysis.RegressionOptions
	Render      render.Options
}

// DefaultProcessorConfig returns sensible defaults
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SessionTTL:  2 * time.Hour,
		SampleRows:  5,
		PreviewRows: 5,
		Regression:  analysis.DefaultRegressionOptions(),
		Render:      render.DefaultOptions(),
	}
}

// entry is the server state of one uploaded dataset. mu serialises the
// requests of a session.
type entry struct {
	mu sync.Mutex

	id         core.SessionID
	filename   string
	path       string
	uploadedAt time.Time

	raw      *analysis.Frame
	cleaned  *analysis.Frame
	strategy dataset.Strategy
	charts   render.Charts

	regression       *dataset.RegressionResult
	regressionCharts render.Charts
}

// Processor handles uploads and analysis requests
type Processor struct {
	fileStorage FileStorage
	sessions    *cache.Cache
	config      ProcessorConfig
}

// NewProcessor creates a new dataset processor
func NewProcessor(fileStorage FileStorage, config ProcessorConfig) *Processor {
	p := &Processor{
		fileStorage: fileStorage,
		sessions:    cache.New(config.SessionTTL, config.SessionTTL/2+time.Minute),
		config:      config,
	}
	p.sessions.OnEvicted(func(key string, v interface{}) {
		e := v.(*entry)
		if err := fileStorage.Delete(context.Background(), e.path); err != nil {
			log.Printf("[Processor] Failed to delete file of expired session %s: %v", key, err)
			return
		}
		log.Printf("[Processor] Session %s expired, removed %s", key, e.path)
	})
	return p
}

// discard removes a stored upload that could not be opened as a session.
func (p *Processor) discard(ctx context.Context, path string) {
	if err := p.fileStorage.Delete(ctx, path); err != nil {
		log.Printf("[Processor] Failed to delete rejected upload %s: %v", path, err)
	}
}

// IsCSV reports whether filename has a .csv extension.
func IsCSV(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".csv")
}

// Upload stores and parses a CSV file and opens a new session for it.
func (p *Processor) Upload(ctx context.Context, filename string, file io.Reader) (*dataset.UploadResult, error) {
	if !IsCSV(filename) {
		return nil, core.ErrInvalidFileType
	}

	path, size, err := p.fileStorage.Store(ctx, file, filename)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		p.discard(ctx, path)
		return nil, core.ErrEmptyFile
	}

	reader, err := p.fileStorage.GetReader(ctx, path)
	if err != nil {
		p.discard(ctx, path)
		return nil, err
	}
	frame, err := analysis.ParseCSV(reader)
	reader.Close()
	if err != nil {
		p.discard(ctx, path)
		return nil, err
	}

	e := &entry{
		id:         core.NewSessionID(),
		filename:   filepath.Base(filename),
		path:       path,
		uploadedAt: time.Now(),
		raw:        frame,
	}
	p.sessions.SetDefault(e.id.String(), e)
	log.Printf("[Processor] Session %s: %s (%d bytes, %d rows, %d columns)",
		e.id, e.filename, size, frame.Len(), len(frame.Names()))

	return &dataset.UploadResult{
		SessionID:           e.id,
		Stats:               frame.UploadStats(p.config.SampleRows),
		NumericFeatures:     nonNil(frame.NumericColumns()),
		CategoricalFeatures: nonNil(frame.CategoricalColumns()),
	}, nil
}

func (p *Processor) session(id core.SessionID) (*entry, error) {
	if id.IsEmpty() {
		return nil, core.ErrNoSession
	}
	v, ok := p.sessions.Get(id.String())
	if !ok {
		return nil, fmt.Errorf("%w %s", core.ErrSessionNotFound, id)
	}
	return v.(*entry), nil
}

// Preview returns the first rows of the raw dataset.
func (p *Processor) Preview(ctx context.Context, id core.SessionID) (*dataset.Preview, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raw.Preview(p.config.PreviewRows), nil
}

// Preprocess cleans the raw dataset with strategy and renders its charts.
// Each call starts again from the raw upload.
func (p *Processor) Preprocess(ctx context.Context, id core.SessionID, strategy dataset.Strategy) (*dataset.PreprocessResult, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	strategy = strategy.Normalize()
	start := time.Now()
	cleaned := analysis.Clean(e.raw, strategy)

	charts, err := render.PreprocessCharts(ctx, cleaned, p.config.Render)
	if err != nil {
		return nil, fmt.Errorf("failed to render charts: %w", err)
	}

	e.cleaned = cleaned
	e.strategy = strategy
	e.charts = charts
	e.regression = nil
	e.regressionCharts = nil
	p.touch(e)

	log.Printf("[Processor] Session %s preprocessed with %s: %d -> %d rows, %d charts in %v",
		id, strategy, e.raw.Len(), cleaned.Len(), len(charts), time.Since(start))

	return &dataset.PreprocessResult{
		Message:                "Data processed successfully",
		RowsAfterPreprocessing: cleaned.Len(),
		Visualizations:         charts.Visualizations(),
	}, nil
}

// Summary describes the raw dataset.
func (p *Processor) Summary(ctx context.Context, id core.SessionID) (*dataset.Summary, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raw.Summary(), nil
}

// Visualizations returns the charts of the last preprocessing run and of the
// last regression.
func (p *Processor) Visualizations(ctx context.Context, id core.SessionID) (dataset.Visualizations, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.charts) == 0 {
		return nil, core.ErrNoVisualizations
	}
	viz := e.charts.Visualizations()
	for name, payload := range e.regressionCharts.Visualizations() {
		viz[name] = payload
	}
	return viz, nil
}

// Chart returns the PNG bytes of one chart.
func (p *Processor) Chart(ctx context.Context, id core.SessionID, name string) ([]byte, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if data, ok := e.charts[name]; ok {
		return data, nil
	}
	if data, ok := e.regressionCharts[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("%w %s", core.ErrVisualizationNotFound, name)
}

// Regress fits a linear model for target on the cleaned dataset, or on the
// complete rows of the raw dataset when it has not been preprocessed.
func (p *Processor) Regress(ctx context.Context, id core.SessionID, target string) (*dataset.RegressionResult, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, core.ErrEmptyTarget
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	frame := e.cleaned
	if frame == nil {
		frame = e.raw.Clone()
		frame.DropIncomplete()
	}
	column := target
	if frame.Index(column) < 0 {
		column = analysis.NormalizeName(target)
	}

	fit, err := analysis.Regress(frame, column, p.config.Regression)
	if err != nil {
		return nil, err
	}
	charts, err := render.RegressionCharts(ctx, fit, p.config.Render)
	if err != nil {
		return nil, fmt.Errorf("failed to render regression charts: %w", err)
	}

	result := fit.Result()
	viz := charts.Visualizations()
	result.RegressionPlot = viz[dataset.ChartRegressionPlot]
	result.FeatureImportance.Image = viz[dataset.ChartFeatureImportance]

	e.regression = result
	e.regressionCharts = charts
	p.touch(e)

	log.Printf("[Processor] Session %s regression on %s: r2=%.4f mse=%.4f (%d samples)",
		id, column, result.ModelResults.R2, result.ModelResults.MSE, result.ModelResults.NumSamples)
	return result, nil
}

// WriteCleanedCSV writes the cleaned dataset as CSV.
func (p *Processor) WriteCleanedCSV(ctx context.Context, id core.SessionID, w io.Writer) error {
	e, err := p.session(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cleaned == nil {
		return core.ErrNoCleanedData
	}
	return e.cleaned.WriteCSV(w)
}

// WriteWorkbook writes the cleaned dataset, or the raw one before
// preprocessing, as an XLSX workbook.
func (p *Processor) WriteWorkbook(ctx context.Context, id core.SessionID, w io.Writer) error {
	e, err := p.session(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	frame := e.cleaned
	if frame == nil {
		frame = e.raw
	}
	return render.Workbook(w, frame, frame.Summary(), e.regression)
}

// Report renders the HTML analysis report.
func (p *Processor) Report(ctx context.Context, id core.SessionID) ([]byte, error) {
	e, err := p.session(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return p.report(e), nil
}

func (p *Processor) report(e *entry) []byte {
	in := render.ReportInput{
		SessionID:   e.id.String(),
		Filename:    e.filename,
		GeneratedAt: time.Now(),
		Raw:         e.raw.Summary(),
		Strategy:    e.strategy,
		Regression:  e.regression,
	}
	if e.cleaned != nil {
		in.Cleaned = e.cleaned.Summary()
		in.Visualizations = e.charts.Visualizations()
	}
	return render.Report(in)
}

// WriteResults writes the zip bundle of every artifact of the session.
func (p *Processor) WriteResults(ctx context.Context, id core.SessionID, w io.Writer) error {
	e, err := p.session(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	charts := make(render.Charts, len(e.charts)+len(e.regressionCharts))
	for name, data := range e.charts {
		charts[name] = data
	}
	for name, data := range e.regressionCharts {
		charts[name] = data
	}
	return render.Archive(w, e.cleaned, p.report(e), charts, e.regression)
}

// Close drops every session and deletes the stored uploads.
func (p *Processor) Close() {
	for key, item := range p.sessions.Items() {
		e := item.Object.(*entry)
		if err := p.fileStorage.Delete(context.Background(), e.path); err != nil {
			log.Printf("[Processor] Failed to delete file of session %s: %v", key, err)
		}
	}
	p.sessions.Flush()
}

// touch extends the session lifetime after a write.
func (p *Processor) touch(e *entry) {
	p.sessions.SetDefault(e.id.String(), e)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
