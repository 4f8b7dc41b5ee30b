package ports

import (
	"context"
	"io"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
)

// DownloadKind selects which artifact Backend.Download streams.
type DownloadKind string

const (
	DownloadCleanedData DownloadKind = "data"
	DownloadWorkbook    DownloadKind = "workbook"
	DownloadResults     DownloadKind = "results"
	DownloadReport      DownloadKind = "report"
)

// Valid reports whether k is a known download kind.
func (k DownloadKind) Valid() bool {
	switch k {
	case DownloadCleanedData, DownloadWorkbook, DownloadResults, DownloadReport:
		return true
	}
	return false
}

// Download is a streamed artifact. Callers must close Body.
type Download struct {
	Filename    string
	ContentType string
	Body        io.ReadCloser
}

// Backend is the capability set the dashboard needs from its data backend.
// Implementations return contracts that already passed Validate.
type Backend interface {
	// Health returns nil when the backend is reachable.
	Health(ctx context.Context) error

	Upload(ctx context.Context, filename string, file io.Reader) (*dataset.UploadResult, error)
	Preview(ctx context.Context, sessionID core.SessionID) (*dataset.Preview, error)
	Preprocess(ctx context.Context, sessionID core.SessionID, strategy dataset.Strategy) (*dataset.PreprocessResult, error)
	Summarize(ctx context.Context, sessionID core.SessionID) (*dataset.Summary, error)
	Visualizations(ctx context.Context, sessionID core.SessionID) (dataset.Visualizations, error)
	Regress(ctx context.Context, sessionID core.SessionID, target string) (*dataset.RegressionResult, error)
	Download(ctx context.Context, sessionID core.SessionID, kind DownloadKind) (*Download, error)
}
