package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/nft-hold-analyzer/internal/application/report"
	"github.com/bimakw/nft-hold-analyzer/internal/application/services"
	"github.com/bimakw/nft-hold-analyzer/internal/config"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/cache"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/database"
	"github.com/bimakw/nft-hold-analyzer/internal/presentation/handlers"
	"github.com/bimakw/nft-hold-analyzer/internal/presentation/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := setupLogger(cfg.Log.Level)
	defer logger.Sync()

	logger.Info("Starting nft-hold-analyzer API",
		zap.Int("port", cfg.API.Port),
	)

	// Connect to database
	db, err := database.NewPostgresDB(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	schemaCtx, cancelSchema := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	err = db.EnsureSchema(schemaCtx)
	cancelSchema()
	if err != nil {
		logger.Fatal("Failed to prepare database schema", zap.Error(err))
	}

	// Connect to Redis cache (optional)
	var summaryCache services.SummaryCache
	var cacheChecker handlers.HealthChecker
	redisCache, err := cache.NewRedisCache(cfg.Redis, logger)
	if err != nil {
		logger.Warn("Failed to connect to Redis, running without cache", zap.Error(err))
	} else {
		defer redisCache.Close()
		summaryCache = redisCache
		cacheChecker = redisCache
	}

	// Create repositories
	walletRepo := database.NewWalletRepo(db.DB())

	// Create services
	analyzer := services.NewAnalyzerService(cfg.Report.WorkerCount, logger)
	formatter := report.NewFormatter(nil, logger)
	summaryService := services.NewSummaryService(walletRepo, analyzer, formatter, summaryCache, cfg.API.CacheTTL, logger)

	// Create handlers
	summaryHandler := handlers.NewSummaryHandler(summaryService, logger)
	healthHandler := handlers.NewHealthHandler(db, cacheChecker)

	// Setup router
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Metrics())
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RateLimiter(cfg.API.RateLimitRPS))

	// Health endpoints (no rate limiting)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)
	r.Get("/live", healthHandler.Live)
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		summaryHandler.RegisterRoutes(r)
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
	}

	// Run server in goroutine
	go func() {
		logger.Info("API server starting", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Received shutdown signal, shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func setupLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, _ := config.Build()
	return logger
}
