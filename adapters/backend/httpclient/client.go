// Package httpclient implements the dashboard backend over the analysis
// server's HTTP API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	"vizninja/internal/errors"
	"vizninja/ports"
)

// Client talks to the analysis API
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the API at baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

var _ ports.Backend = (*Client)(nil)

type validator interface {
	Validate() error
}

func (c *Client) Health(ctx context.Context) error {
	var status dataset.HealthStatus
	if err := c.getJSON(ctx, "health check", "/api/health", nil, &status); err != nil {
		return err
	}
	if status.Status != "healthy" {
		return errors.New(errors.CodeNetworkError, fmt.Sprintf("backend reports status %q", status.Status))
	}
	return nil
}

func (c *Client) Upload(ctx context.Context, filename string, file io.Reader) (*dataset.UploadResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upload request")
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, errors.Wrap(err, "failed to read upload file")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to build upload request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/upload", &body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build upload request")
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var result dataset.UploadResult
	if err := c.doJSON(req, "upload", &result); err != nil {
		return nil, err
	}
	if err := check("upload", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Preview(ctx context.Context, sessionID core.SessionID) (*dataset.Preview, error) {
	var preview dataset.Preview
	if err := c.getJSON(ctx, "preview", "/api/preview", sessionQuery(sessionID), &preview); err != nil {
		return nil, err
	}
	if err := check("preview", &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

func (c *Client) Preprocess(ctx context.Context, sessionID core.SessionID, strategy dataset.Strategy) (*dataset.PreprocessResult, error) {
	var result dataset.PreprocessResult
	req := dataset.PreprocessRequest{SessionID: sessionID, MissingValueStrategy: strategy.Normalize()}
	if err := c.postJSON(ctx, "preprocess", "/api/preprocess", req, &result); err != nil {
		return nil, err
	}
	if err := check("preprocess", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Summarize(ctx context.Context, sessionID core.SessionID) (*dataset.Summary, error) {
	var summary dataset.Summary
	if err := c.getJSON(ctx, "summary", "/api/summary", sessionQuery(sessionID), &summary); err != nil {
		return nil, err
	}
	if err := check("summary", &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (c *Client) Visualizations(ctx context.Context, sessionID core.SessionID) (dataset.Visualizations, error) {
	var viz dataset.Visualizations
	if err := c.getJSON(ctx, "visualizations", "/api/visualizations", sessionQuery(sessionID), &viz); err != nil {
		return nil, err
	}
	if err := check("visualizations", viz); err != nil {
		return nil, err
	}
	return viz, nil
}

func (c *Client) Regress(ctx context.Context, sessionID core.SessionID, target string) (*dataset.RegressionResult, error) {
	var result dataset.RegressionResult
	req := dataset.RegressionRequest{SessionID: sessionID, TargetVariable: target}
	if err := c.postJSON(ctx, "regression", "/api/run_regression", req, &result); err != nil {
		return nil, err
	}
	if err := check("regression", &result); err != nil {
		return nil, err
	}
	if result.TargetVariable == "" {
		result.TargetVariable = target
	}
	return &result, nil
}

// Download streams an artifact. The caller closes the returned body.
func (c *Client) Download(ctx context.Context, sessionID core.SessionID, kind ports.DownloadKind) (*ports.Download, error) {
	if !kind.Valid() {
		return nil, errors.WithCode(errors.CodeValidationError, core.ErrUnknownDownloadKind)
	}
	path := "/download/" + url.PathEscape(sessionID.String())
	if kind == ports.DownloadReport {
		path = "/generate_report/" + url.PathEscape(sessionID.String())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path+"?type="+url.QueryEscape(string(kind)), nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build download request")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.NetworkError("download", err)
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, statusError("download", resp)
	}

	return &ports.Download{
		Filename:    downloadName(resp, kind),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return errors.Wrapf(err, "failed to build %s request", op)
	}
	return c.doJSON(req, op, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s request", op)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return errors.Wrapf(err, "failed to build %s request", op)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, op, out)
}

func (c *Client) doJSON(req *http.Request, op string, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return errors.NetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return statusError(op, resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &errors.AppError{
			Code:    errors.CodeValidationError,
			Message: fmt.Sprintf("%s returned an unreadable response", op),
			Cause:   fmt.Errorf("%w: %v", core.ErrInvalidContract, err),
		}
	}
	return nil
}

// statusError turns a non-2xx response into a typed error. 5xx responses are
// backend failures; 4xx responses carry the backend's own message.
func statusError(op string, resp *http.Response) error {
	var body dataset.ErrorResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = resp.Status
		}
	}

	cause := fmt.Errorf("HTTP %d: %s", resp.StatusCode, body.Error)
	switch {
	case resp.StatusCode >= 500:
		return errors.NetworkError(op, cause)
	case resp.StatusCode == http.StatusNotFound:
		return &errors.AppError{Code: errors.CodeNotFound, Message: body.Error, Cause: cause}
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return &errors.AppError{Code: errors.CodeInsufficientData, Message: body.Error, Cause: cause}
	default:
		return &errors.AppError{Code: errors.CodeBackendRejected, Message: body.Error, Cause: cause}
	}
}

func check(op string, v validator) error {
	if err := v.Validate(); err != nil {
		return &errors.AppError{
			Code:    errors.CodeValidationError,
			Message: fmt.Sprintf("%s returned an invalid response", op),
			Cause:   err,
		}
	}
	return nil
}

func sessionQuery(id core.SessionID) url.Values {
	return url.Values{"session_id": []string{id.String()}}
}

func downloadName(resp *http.Response, kind ports.DownloadKind) string {
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	switch kind {
	case ports.DownloadWorkbook:
		return "analysis.xlsx"
	case ports.DownloadResults:
		return "analysis_results.zip"
	case ports.DownloadReport:
		return "report.html"
	}
	return "cleaned_data.csv"
}
