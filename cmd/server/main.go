package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/catalogsite/backend/internal/application/sitedata"
	"github.com/catalogsite/backend/internal/infrastructure/config"
	"github.com/catalogsite/backend/internal/infrastructure/logger"
	"github.com/catalogsite/backend/internal/infrastructure/storage"
	"github.com/catalogsite/backend/internal/infrastructure/telemetry"
	"github.com/catalogsite/backend/internal/interfaces/http/handler"
	"github.com/catalogsite/backend/internal/interfaces/http/router"
)

func main() {
	// A missing .env is fine; real deployments use the environment
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting site data server",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("storage", cfg.Storage.Driver),
	)

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		Environment:       cfg.App.Env,
		StorageDriver:     cfg.Storage.Driver,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	log = lp.Bridge(log, logger.ParseLevel(cfg.Log.Level))
	meter := mp.Meter("catalog-site/server")

	siteMetrics, err := telemetry.NewSiteMetrics(meter)
	if err != nil {
		log.Fatal("Failed to register site metrics", zap.Error(err))
	}

	backend, err := storage.Open(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to open shard storage", zap.Error(err))
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error("Error closing shard storage", zap.Error(err))
		}
	}()

	store := sitedata.NewStore(backend,
		sitedata.WithLogger(log.Named("sitedata")),
		sitedata.WithMetrics(siteMetrics),
	)
	if report, err := store.Report(ctx); err != nil {
		log.Warn("Startup consistency check failed", zap.Error(err))
	} else if !report.IsClean() {
		log.Warn("Stored shards need repair",
			zap.Strings("dangling", report.DanglingIDs),
			zap.Strings("orphans", report.OrphanIDs),
			zap.Strings("legacy_scalars", report.LegacyScalars),
			zap.Strings("unreadable", report.UnreadableShards),
		)
	}

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		Logger:         log,
		Meter:          meter,
		TracingEnabled: cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		Release:        cfg.App.Env == "production",
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	r := router.NewRouter(engine)
	for _, registrar := range router.SiteRoutes(router.SiteHandlers{
		SiteData: handler.NewSiteDataHandler(store),
		Inquiry:  handler.NewInquiryHandler(store),
		Health:   handler.NewHealthHandler(cfg.Storage.Driver),
	}, router.BodyLimits{
		JSON:   cfg.HTTP.MaxBodySize,
		Upload: cfg.HTTP.MaxUploadSize,
	}) {
		r.Register(registrar)
	}
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := mp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
