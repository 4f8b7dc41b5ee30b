// Package dashboard implements the user-facing operations of the dashboard:
// upload, preprocessing, exploration, regression and downloads. It owns the
// persisted session and reports every outcome through a notifier.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"strings"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	"vizninja/domain/session"
	"vizninja/internal"
	"vizninja/internal/errors"
	"vizninja/internal/store"
	"vizninja/ports"
)

// DefaultAdvisoryMaxBytes is the size above which uploads only warn.
const DefaultAdvisoryMaxBytes = 10 << 20

// Options tunes a Dashboard.
type Options struct {
	AdvisoryMaxBytes int64
	Logger           *internal.Logger
}

// Dashboard coordinates the backend, the session store and notifications.
// Concurrent calls against one store are last-write-wins.
type Dashboard struct {
	backend  ports.Backend
	sessions *store.SessionStore
	notifier ports.Notifier
	maxBytes int64
	log      *internal.Logger
}

// New creates a dashboard.
func New(backend ports.Backend, sessions *store.SessionStore, notifier ports.Notifier, opts Options) *Dashboard {
	if opts.AdvisoryMaxBytes <= 0 {
		opts.AdvisoryMaxBytes = DefaultAdvisoryMaxBytes
	}
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}
	return &Dashboard{
		backend:  backend,
		sessions: sessions,
		notifier: notifier,
		maxBytes: opts.AdvisoryMaxBytes,
		log:      opts.Logger.With("Dashboard"),
	}
}

// Backend returns the backend the dashboard talks to.
func (d *Dashboard) Backend() ports.Backend {
	return d.backend
}

// Session returns the persisted session, or nil when nothing was uploaded.
func (d *Dashboard) Session(ctx context.Context) (*session.Session, error) {
	return d.sessions.Load(ctx)
}

// Clear forgets the persisted session.
func (d *Dashboard) Clear(ctx context.Context) error {
	if err := d.sessions.Clear(ctx); err != nil {
		return err
	}
	d.notify(ports.NotifyInfo, "Session cleared")
	return nil
}

// Upload sends a CSV file to the backend and replaces the persisted session
// with the result. size is advisory; pass -1 when unknown. On any failure the
// previous session is left untouched.
func (d *Dashboard) Upload(ctx context.Context, filename string, size int64, file io.Reader) (*session.Session, error) {
	if !strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".csv") {
		d.notify(ports.NotifyError, "Please upload a CSV file")
		return nil, errors.WithCode(errors.CodeValidationError, core.ErrInvalidFileType)
	}
	if size > d.maxBytes {
		d.notify(ports.NotifyWarning, fmt.Sprintf("%s is %s, above the recommended %s limit; the upload may be slow or rejected",
			filename, megabytes(size), megabytes(d.maxBytes)))
	}

	d.log.Info("Uploading %s", filename)
	result, err := d.backend.Upload(ctx, filename, file)
	if err != nil {
		return nil, d.fail("Error uploading file.", err)
	}

	sess := session.FromUpload(result)
	if err := d.sessions.Save(ctx, sess); err != nil {
		return nil, d.fail("Error saving the session.", err)
	}
	d.log.Info("Session %s created: %d rows, %d columns", sess.ID, result.Stats.Rows, result.Stats.Columns)
	d.notify(ports.NotifySuccess, "File uploaded successfully")
	return sess, nil
}

// Preview returns the first rows of the dataset. When the backend cannot be
// reached the sample rows kept with the session are returned instead.
func (d *Dashboard) Preview(ctx context.Context) (*dataset.Preview, error) {
	sess, err := d.require(ctx, "preview")
	if err != nil {
		return nil, err
	}
	preview, err := d.backend.Preview(ctx, sess.ID)
	if err == nil {
		return preview, nil
	}
	if !errors.HasCode(err, errors.CodeNetworkError) {
		return nil, d.fail("Error loading data preview.", err)
	}
	d.log.Warn("Preview unavailable, using stored sample rows: %v", err)
	d.notify(ports.NotifyWarning, "Backend unreachable; showing the stored sample rows")
	return samplePreview(sess), nil
}

// Preprocess cleans the dataset with strategy and stores the returned charts.
func (d *Dashboard) Preprocess(ctx context.Context, strategy dataset.Strategy) (*dataset.PreprocessResult, error) {
	sess, err := d.require(ctx, "preprocessing")
	if err != nil {
		return nil, err
	}
	strategy = strategy.Normalize()

	d.log.Info("Preprocessing session %s with %s", sess.ID, strategy)
	result, err := d.backend.Preprocess(ctx, sess.ID, strategy)
	if err != nil {
		return nil, d.fail("Error processing data.", err)
	}
	if err := d.sessions.UpdateVisualizations(ctx, sess.ID, result.Visualizations); err != nil {
		return nil, d.discard("Error saving visualizations.", err)
	}
	d.notify(ports.NotifySuccess, "Data processed successfully")
	return result, nil
}

// Summary returns the dataset summary. sampled is true when the backend was
// unreachable and the summary was derived from the stored sample rows.
func (d *Dashboard) Summary(ctx context.Context) (summary *dataset.Summary, sampled bool, err error) {
	sess, err := d.require(ctx, "summary")
	if err != nil {
		return nil, false, err
	}
	summary, err = d.backend.Summarize(ctx, sess.ID)
	if err == nil {
		return summary, false, nil
	}
	if !errors.HasCode(err, errors.CodeNetworkError) {
		return nil, false, d.fail("Error loading data summary.", err)
	}
	d.log.Warn("Summary unavailable, deriving from sample rows: %v", err)
	d.notify(ports.NotifyWarning, "Error loading data summary. Please check if the server is running.")
	return dataset.SummaryFromStats(sess.Stats, sess.NumericFeatures), true, nil
}

// Visualizations returns the charts stored by the last preprocessing run.
// The map is empty until preprocessing has succeeded.
func (d *Dashboard) Visualizations(ctx context.Context) (dataset.Visualizations, error) {
	sess, err := d.require(ctx, "visualizations")
	if err != nil {
		return nil, err
	}
	if sess.Visualizations == nil {
		return dataset.Visualizations{}, nil
	}
	return sess.Visualizations, nil
}

// Regress fits a model predicting target and stores the result. The target
// must be one of the session's numeric features.
func (d *Dashboard) Regress(ctx context.Context, target string) (*dataset.RegressionResult, error) {
	sess, err := d.require(ctx, "regression")
	if err != nil {
		return nil, err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		d.notify(ports.NotifyError, "Please select a target variable")
		return nil, errors.WithCode(errors.CodeValidationError, core.ErrEmptyTarget)
	}
	if !sess.HasNumericFeature(target) {
		d.notify(ports.NotifyError, fmt.Sprintf("%s is not a numeric feature", target))
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %s", core.ErrNonNumericTarget, target))
	}

	d.log.Info("Running regression on %s for session %s", target, sess.ID)
	result, err := d.backend.Regress(ctx, sess.ID, target)
	if err != nil {
		return nil, d.fail("Error running regression analysis.", err)
	}
	if result.TargetVariable == "" {
		result.TargetVariable = target
	}
	if err := d.sessions.SaveRegression(ctx, sess.ID, result); err != nil {
		return nil, d.discard("Error saving the regression result.", err)
	}
	d.notify(ports.NotifySuccess, "Regression analysis completed successfully")
	return result, nil
}

// Download fetches an artifact of the current session. The caller closes the body.
func (d *Dashboard) Download(ctx context.Context, kind ports.DownloadKind) (*ports.Download, error) {
	if !kind.Valid() {
		d.notify(ports.NotifyError, fmt.Sprintf("Unknown download type %q", kind))
		return nil, errors.WithCode(errors.CodeValidationError, fmt.Errorf("%w: %q", core.ErrUnknownDownloadKind, kind))
	}
	sess, err := d.require(ctx, "download")
	if err != nil {
		return nil, err
	}
	dl, err := d.backend.Download(ctx, sess.ID, kind)
	if err != nil {
		return nil, d.fail(downloadLabels[kind].failure, err)
	}
	d.notify(ports.NotifySuccess, downloadLabels[kind].success)
	return dl, nil
}

var downloadLabels = map[ports.DownloadKind]struct{ success, failure string }{
	ports.DownloadCleanedData: {"Cleaned data downloaded successfully", "Failed to download the cleaned data."},
	ports.DownloadWorkbook:    {"Workbook downloaded successfully", "Error downloading workbook."},
	ports.DownloadResults:     {"Results downloaded successfully", "Error downloading results."},
	ports.DownloadReport:      {"Report downloaded successfully", "Error downloading report."},
}

// require loads the session and fails with NO_SESSION when there is none.
func (d *Dashboard) require(ctx context.Context, op string) (*session.Session, error) {
	sess, err := d.sessions.Load(ctx)
	if err != nil {
		d.notify(ports.NotifyError, "Stored session could not be read; please upload the dataset again")
		return nil, err
	}
	if !sess.Exists() {
		d.notify(ports.NotifyError, "Please upload a dataset first")
		return nil, errors.NoSession(op)
	}
	return sess, nil
}

func (d *Dashboard) fail(prefix string, err error) error {
	d.log.Error("%s %v", prefix, err)
	switch errors.GetCode(err) {
	case errors.CodeNetworkError:
		d.notify(ports.NotifyError, prefix+" Please check if the server is running.")
	default:
		d.notify(ports.NotifyError, prefix+" "+message(err))
	}
	return err
}

// discard reports a store failure. Results computed for a session that a
// newer upload replaced are dropped with a warning rather than an error.
func (d *Dashboard) discard(prefix string, err error) error {
	if errors.Is(err, core.ErrSessionReplaced) {
		d.log.Warn("Discarding result: %v", err)
		d.notify(ports.NotifyWarning, "A new dataset was uploaded while this was running; the result was discarded")
		return err
	}
	return d.fail(prefix, err)
}

func (d *Dashboard) notify(level ports.NotificationLevel, msg string) {
	if d.notifier != nil {
		d.notifier.Notify(ports.Notification{Level: level, Message: msg})
	}
}

func message(err error) string {
	var appErr *errors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

func megabytes(n int64) string {
	return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
}

func samplePreview(sess *session.Session) *dataset.Preview {
	p := &dataset.Preview{Columns: append([]string(nil), sess.ColumnNames...)}
	for _, row := range sess.SampleRows {
		values := make([]interface{}, len(p.Columns))
		for i, col := range p.Columns {
			values[i] = row[col]
		}
		p.Data = append(p.Data, values)
	}
	return p
}
