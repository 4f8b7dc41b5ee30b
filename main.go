package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vizninja/internal/analysis"
	"vizninja/internal/api"
	"vizninja/internal/config"
	"vizninja/internal/dataset"
	"vizninja/internal/render"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	gin.SetMode(appConfig.Server.GinMode)

	storage := dataset.NewLocalFileStorage(&dataset.StorageConfig{
		BasePath:    appConfig.Upload.Dir,
		MaxFileSize: appConfig.Upload.ServerMaxBytes,
	})

	renderOpts := render.DefaultOptions()
	renderOpts.MaxPairplot = appConfig.Analysis.MaxPairplot
	renderOpts.Workers = appConfig.Analysis.ChartWorkers

	processor := dataset.NewProcessor(storage, dataset.ProcessorConfig{
		SessionTTL:  appConfig.Analysis.SessionTTL,
		SampleRows:  appConfig.Analysis.SampleRows,
		PreviewRows: appConfig.Analysis.PreviewRows,
		Regression: analysis.RegressionOptions{
			TestSize: appConfig.Analysis.TestSize,
			Seed:     appConfig.Analysis.Seed,
		},
		Render: renderOpts,
	})
	defer processor.Close()

	server := api.NewServer(processor, appConfig.Upload.ServerMaxBytes)
	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("🚀 Starting VizNinja API on port %s", appConfig.Server.Port)
		log.Printf("📁 Uploads stored in %s (limit %d MB)", appConfig.Upload.Dir, appConfig.Upload.ServerMaxBytes>>20)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
