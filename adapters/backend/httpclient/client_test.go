package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"vizninja/domain/dataset"
	"vizninja/internal/api"
	processor "vizninja/internal/dataset"
	"vizninja/internal/errors"
	"vizninja/ports"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAPIServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	storage := processor.NewLocalFileStorage(&processor.StorageConfig{BasePath: t.TempDir(), MaxFileSize: 1 << 20})
	p := processor.NewProcessor(storage, processor.DefaultProcessorConfig())
	srv := httptest.NewServer(api.NewServer(p, 1<<20).Handler())
	t.Cleanup(func() {
		srv.Close()
		p.Close()
	})
	return srv
}

func TestClientAgainstAPIServer(t *testing.T) {
	srv := newAPIServer(t)
	client := New(srv.URL, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, client.Health(ctx))

	file, err := os.Open("../../../internal/analysis/testdata/customers.csv")
	require.NoError(t, err)
	defer file.Close()

	up, err := client.Upload(ctx, "customers.csv", file)
	require.NoError(t, err)
	assert.Equal(t, 41, up.Stats.Rows)

	preview, err := client.Preview(ctx, up.SessionID)
	require.NoError(t, err)
	assert.Len(t, preview.Rows(), 5)

	summary, err := client.Summarize(ctx, up.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 6, summary.Shape.Columns)

	_, err = client.Visualizations(ctx, up.SessionID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeBackendRejected, errors.GetCode(err))

	pre, err := client.Preprocess(ctx, up.SessionID, dataset.StrategyMedianMode)
	require.NoError(t, err)
	assert.Equal(t, 40, pre.RowsAfterPreprocessing)

	viz, err := client.Visualizations(ctx, up.SessionID)
	require.NoError(t, err)
	assert.Equal(t, pre.Visualizations.Names(), viz.Names())

	reg, err := client.Regress(ctx, up.SessionID, "Savings")
	require.NoError(t, err)
	assert.Equal(t, "savings", reg.TargetVariable)

	dl, err := client.Download(ctx, up.SessionID, ports.DownloadCleanedData)
	require.NoError(t, err)
	defer dl.Body.Close()
	assert.Equal(t, "cleaned_data.csv", dl.Filename)
	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "age,income"))

	report, err := client.Download(ctx, up.SessionID, ports.DownloadReport)
	require.NoError(t, err)
	defer report.Body.Close()
	assert.Contains(t, report.ContentType, "text/html")
}

func TestUnknownSessionIsNotFound(t *testing.T) {
	srv := newAPIServer(t)
	client := New(srv.URL, 5*time.Second)

	_, err := client.Summarize(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.GetCode(err))
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := New(url, time.Second)
	err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, errors.CodeNetworkError, errors.GetCode(err))

	_, err = client.Upload(context.Background(), "a.csv", strings.NewReader("a\n1\n"))
	assert.Equal(t, errors.CodeNetworkError, errors.GetCode(err))
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
		msg    string
	}{
		{"server failure", http.StatusInternalServerError, `{"error":"boom"}`, errors.CodeNetworkError, ""},
		{"rejected", http.StatusBadRequest, `{"error":"File must be a CSV"}`, errors.CodeBackendRejected, "File must be a CSV"},
		{"not found", http.StatusNotFound, `{"error":"session not found"}`, errors.CodeNotFound, "session not found"},
		{"insufficient", http.StatusUnprocessableEntity, `{"error":"too few rows"}`, errors.CodeInsufficientData, "too few rows"},
		{"plain text body", http.StatusBadRequest, `bad things`, errors.CodeBackendRejected, "bad things"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, time.Second).Summarize(context.Background(), "s-1")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			if tt.msg != "" {
				var appErr *errors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.msg, appErr.Message)
			}
		})
	}
}

func TestInvalidContractsAreRejected(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		call func(*Client) error
	}{
		{
			name: "upload with mismatched column count",
			path: "/api/upload",
			body: `{"session_id":"s-1","stats":{"rows":1,"columns":3,"column_names":["a"]}}`,
			call: func(c *Client) error {
				_, err := c.Upload(context.Background(), "a.csv", strings.NewReader("a\n1\n"))
				return err
			},
		},
		{
			name: "preprocess without charts",
			path: "/api/preprocess",
			body: `{"message":"ok","rows_after_preprocessing":3,"visualizations":{}}`,
			call: func(c *Client) error {
				_, err := c.Preprocess(context.Background(), "s-1", dataset.StrategyMeanMode)
				return err
			},
		},
		{
			name: "regression with non-numeric payload",
			path: "/api/run_regression",
			body: `{"model_results":{"mse":"high"}}`,
			call: func(c *Client) error {
				_, err := c.Regress(context.Background(), "s-1", "age")
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			err := tt.call(New(srv.URL, time.Second))
			require.Error(t, err)
			assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
		})
	}
}

func TestDownloadRejectsUnknownKind(t *testing.T) {
	_, err := New("http://127.0.0.1:1", time.Second).Download(context.Background(), "s-1", "pdf")
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
}
