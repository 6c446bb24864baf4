package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gordonklaus/portaudio"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VE7LTX/echoframe/cmd/server/internal/api"
	"github.com/VE7LTX/echoframe/cmd/server/internal/middleware"
	"github.com/VE7LTX/echoframe/internal/audio"
	"github.com/VE7LTX/echoframe/internal/config"
	"github.com/VE7LTX/echoframe/internal/pipeline"
	"github.com/VE7LTX/echoframe/internal/record"
	"github.com/VE7LTX/echoframe/internal/store"
	"github.com/VE7LTX/echoframe/pkg/logger"
)

func main() {
	configPath := flag.String("config", "echoframe.yml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	logInstance, err := logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		WithSource:  !strings.EqualFold(cfg.Server.Env, "prod"),
		FilePath:    cfg.Log.FilePath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	appLogger := logInstance.With("component", "server")

	if err := config.Validate(cfg); err != nil {
		appLogger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	appLogger.Info("configuration loaded", "env", cfg.Server.Env, "port", cfg.Server.Port)

	if err := os.MkdirAll(cfg.Data.RecordingsPath(), 0o755); err != nil {
		appLogger.Error("cannot create recordings directory", "error", err)
		os.Exit(1)
	}

	if err := portaudio.Initialize(); err != nil {
		appLogger.Error("portaudio init failed", "error", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	segmentStore, err := store.Open(cfg.Data.StoreFile())
	if err != nil {
		appLogger.Error("segment store init failed", "error", err)
		os.Exit(1)
	}
	defer segmentStore.Close()

	processor, err := pipeline.New(pipeline.Options{
		Transcriber: pipeline.BuildTranscriber(cfg, appLogger),
		Diarizer:    pipeline.BuildDiarizer(cfg),
		Enricher:    pipeline.BuildEnricher(cfg),
		Store:       segmentStore,
		Logger:      logInstance.With("component", "pipeline"),
	})
	if err != nil {
		appLogger.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}

	mgr := api.NewCaptureManager(cfg, logInstance.With("component", "capture"))

	if cfg.Server.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())

	startTime := time.Now()
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"uptime_seconds": int(time.Since(startTime).Seconds()),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/api/v1/devices", api.HandleListDevices(audio.NewCatalog))
	r.GET("/api/v1/captures", api.HandleListCaptures(mgr))
	r.POST("/api/v1/captures", api.HandleStartCapture(mgr))
	r.GET("/api/v1/captures/:id", api.HandleGetCapture(mgr))
	r.POST("/api/v1/captures/:id/stop", api.HandleStopCapture(mgr))
	r.POST("/api/v1/sessions/:id/process", api.HandleProcessSession(mgr, processor))
	r.POST("/api/v1/sessions/:id/enrich", api.HandleEnrichSession(mgr, processor))
	r.GET("/api/v1/sessions/:id", api.HandleGetSessionRecord(mgr))

	sweepDone := make(chan struct{})
	go retentionSweeper(cfg, appLogger, sweepDone)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}
	go func() {
		appLogger.Info("server starting", "addr", srv.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	<-quit
	appLogger.Info("shutdown signal received, shutting down server...")
	close(sweepDone)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server shutdown complete")
}

// retentionSweeper deletes expired recordings hourly until done is closed.
func retentionSweeper(cfg *config.Config, log *slog.Logger, done <-chan struct{}) {
	if cfg.Data.RetentionHours <= 0 {
		return
	}
	maxAge := time.Duration(cfg.Data.RetentionHours) * time.Hour

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		removed, err := record.Sweep(cfg.Data.RecordingsPath(), maxAge, time.Now())
		if err != nil {
			log.Warn("retention sweep failed", "error", err)
		} else if removed > 0 {
			log.Info("retention sweep removed expired sessions", "files", removed)
		}
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}
