// Package api exposes the dataset processor over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"vizninja/domain/core"
	"vizninja/domain/dataset"
	processor "vizninja/internal/dataset"
	"vizninja/ports"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const (
	contentTypeCSV  = "text/csv"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeZIP  = "application/zip"
	contentTypeHTML = "text/html; charset=utf-8"
	contentTypePNG  = "image/png"
)

// Server holds the HTTP handlers of the analysis API
type Server struct {
	processor     *processor.Processor
	maxUploadSize int64
	engine        *gin.Engine
}

// NewServer creates the API server and registers its routes
func NewServer(p *processor.Processor, maxUploadSize int64) *Server {
	s := &Server{
		processor:     p,
		maxUploadSize: maxUploadSize,
		engine:        gin.New(),
	}
	s.engine.Use(gin.Logger(), gin.Recovery())
	s.engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))
	s.registerRoutes()
	return s
}

// Handler returns the http.Handler serving every route
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) registerRoutes() {
	r := s.engine
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, dataset.HealthStatus{Status: "API is running"})
	})

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/upload", s.handleUpload)
	api.GET("/preview", s.handlePreview)
	api.POST("/preprocess", s.handlePreprocess)
	api.GET("/summary", s.handleSummary)
	api.GET("/visualizations", s.handleVisualizations)
	api.GET("/visualizations/:session_id/:name", s.handleChart)
	api.POST("/run_regression", s.handleRegression)

	r.GET("/download/:session_id", s.handleDownload)
	r.GET("/generate_report/:session_id", s.handleReport)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, dataset.HealthStatus{Status: "healthy"})
}

func (s *Server) handleUpload(c *gin.Context) {
	// multipart framing needs some room on top of the file itself
	limit := s.maxUploadSize + 1<<20
	if c.Request.ContentLength > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": core.ErrFileTooLarge.Error()})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": core.ErrFileTooLarge.Error()})
			return
		}
		log.Printf("[handleUpload] ERROR: no file in request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file part"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No selected file"})
		return
	}
	if !processor.IsCSV(header.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File must be a CSV"})
		return
	}
	if header.Size > s.maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("File size (%.1f MB) exceeds the %d MB limit",
				float64(header.Size)/(1024*1024), s.maxUploadSize/(1024*1024)),
		})
		return
	}

	result, err := s.processor.Upload(c.Request.Context(), header.Filename, file)
	if err != nil {
		log.Printf("[handleUpload] ERROR: %s: %v", header.Filename, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handlePreview(c *gin.Context) {
	id, ok := sessionFromQuery(c)
	if !ok {
		return
	}
	preview, err := s.processor.Preview(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

func (s *Server) handlePreprocess(c *gin.Context) {
	var req dataset.PreprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.SessionID.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if req.MissingValueStrategy == 0 {
		req.MissingValueStrategy = dataset.DefaultStrategy
	}

	result, err := s.processor.Preprocess(c.Request.Context(), req.SessionID, req.MissingValueStrategy)
	if err != nil {
		log.Printf("[handlePreprocess] ERROR: session %s: %v", req.SessionID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSummary(c *gin.Context) {
	id, ok := sessionFromQuery(c)
	if !ok {
		return
	}
	summary, err := s.processor.Summary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleVisualizations(c *gin.Context) {
	id, ok := sessionFromQuery(c)
	if !ok {
		return
	}
	viz, err := s.processor.Visualizations(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, viz)
}

func (s *Server) handleChart(c *gin.Context) {
	name := c.Param("name")
	data, err := s.processor.Chart(c.Request.Context(), core.SessionID(c.Param("session_id")), name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.png", name))
	c.Data(http.StatusOK, contentTypePNG, data)
}

func (s *Server) handleRegression(c *gin.Context) {
	var req dataset.RegressionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if req.SessionID.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	result, err := s.processor.Regress(c.Request.Context(), req.SessionID, req.TargetVariable)
	if err != nil {
		log.Printf("[handleRegression] ERROR: session %s target %q: %v", req.SessionID, req.TargetVariable, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleDownload(c *gin.Context) {
	id := core.SessionID(c.Param("session_id"))
	kind := ports.DownloadKind(c.DefaultQuery("type", string(ports.DownloadCleanedData)))
	ctx := c.Request.Context()

	var (
		buf         bytes.Buffer
		err         error
		filename    string
		contentType string
	)
	switch kind {
	case ports.DownloadCleanedData:
		filename, contentType = "cleaned_data.csv", contentTypeCSV
		err = s.processor.WriteCleanedCSV(ctx, id, &buf)
	case ports.DownloadWorkbook:
		filename, contentType = "analysis.xlsx", contentTypeXLSX
		err = s.processor.WriteWorkbook(ctx, id, &buf)
	case ports.DownloadResults:
		filename, contentType = "analysis_results.zip", contentTypeZIP
		err = s.processor.WriteResults(ctx, id, &buf)
	case ports.DownloadReport:
		filename, contentType = "report.html", contentTypeHTML
		var report []byte
		report, err = s.processor.Report(ctx, id)
		buf.Write(report)
	default:
		err = core.ErrUnknownDownloadKind
	}
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (s *Server) handleReport(c *gin.Context) {
	report, err := s.processor.Report(c.Request.Context(), core.SessionID(c.Param("session_id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, report)
}

func sessionFromQuery(c *gin.Context) (core.SessionID, bool) {
	id, err := core.ParseSessionID(c.Query("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return "", false
	}
	return id, true
}

// writeError maps domain errors onto HTTP status codes.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, core.ErrNoSession):
		status, message = http.StatusBadRequest, "session_id is required"
	case errors.Is(err, core.ErrSessionNotFound):
		status, message = http.StatusNotFound, "session not found"
	case errors.Is(err, core.ErrVisualizationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrColumnNotFound):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoVisualizations):
		status, message = http.StatusBadRequest, "No visualizations available yet"
	case errors.Is(err, core.ErrNoCleanedData):
		status, message = http.StatusBadRequest, "No cleaned data available"
	case errors.Is(err, core.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case core.IsValidationError(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		log.Printf("[api] ERROR: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		message = "internal server error"
	}
	c.JSON(status, dataset.ErrorResponse{Error: message})
}
