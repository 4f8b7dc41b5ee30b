package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vizninja/internal/connectivity"
	"vizninja/internal/dashboard"
	"vizninja/internal/notify"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// App is the server-rendered dashboard
type App struct {
	router    *chi.Mux
	dash      *dashboard.Dashboard
	monitor   *connectivity.Monitor
	hub       *notify.Hub
	templates map[string]*template.Template
	config    Config
}

// Config holds UI application configuration
type Config struct {
	Port string
	// MaxUploadBytes bounds the multipart form kept in memory
	MaxUploadBytes int64
}

// NewApp creates the dashboard UI. monitor and hub may be nil.
func NewApp(config Config, dash *dashboard.Dashboard, monitor *connectivity.Monitor, hub *notify.Hub) (*App, error) {
	if config.Port == "" {
		config.Port = "3000"
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = 32 << 20
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	app := &App{
		router:    chi.NewRouter(),
		dash:      dash,
		monitor:   monitor,
		hub:       hub,
		templates: templates,
		config:    config,
	}

	app.setupMiddleware()
	app.setupRoutes()

	return app, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5, "text/html", "text/css", "application/json"))

	static, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[UI] Static files unavailable: %v", err)
		return
	}
	a.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	// Pages
	a.router.Get("/", a.handleHome)
	a.router.Get("/explore", a.handleExplore)
	a.router.Get("/visualizations", a.handleVisualizations)
	a.router.Get("/regression", a.handleRegression)

	// Actions
	a.router.Post("/upload", a.handleUpload)
	a.router.Post("/preprocess", a.handlePreprocess)
	a.router.Post("/regression", a.handleRunRegression)
	a.router.Post("/session/clear", a.handleClearSession)
	a.router.Post("/connectivity/refresh", a.handleRefresh)
	a.router.Get("/download/{kind}", a.handleDownload)

	// JSON and streaming endpoints
	a.router.Get("/api/status", a.handleStatus)
	a.router.Get("/api/notifications", a.handleNotifications)
	a.router.Get("/events", a.handleEvents)
}

// Handler returns the router for embedding or tests
func (a *App) Handler() http.Handler {
	return a.router
}

// Start serves the dashboard until ctx is cancelled
func (a *App) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.config.Port,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("📊 Dashboard listening on http://localhost:%s", a.config.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Printf("[UI] Shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	}
}
