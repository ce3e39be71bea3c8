package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bimakw/nft-hold-analyzer/internal/application/report"
	"github.com/bimakw/nft-hold-analyzer/internal/application/services"
	"github.com/bimakw/nft-hold-analyzer/internal/config"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/entities"
	"github.com/bimakw/nft-hold-analyzer/internal/domain/repositories"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/cache"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/checkpoint"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/database"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/ethereum"
	"github.com/bimakw/nft-hold-analyzer/internal/infrastructure/nftapi"
	"github.com/bimakw/nft-hold-analyzer/internal/presentation/handlers"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("NFT hold analysis failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	addresses, err := loadAddresses(cfg.Collector)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return errors.New("no wallet addresses configured, set COLLECTOR_ADDRESSES or COLLECTOR_ADDRESSES_FILE")
	}

	logger.Info("Starting nft-hold-analyzer",
		zap.Int("wallets", len(addresses)),
		zap.String("source", cfg.Collector.Source),
		zap.String("checkpoint_backend", cfg.Collector.CheckpointBackend),
	)

	// Connect to Ethereum node
	ethClient, err := ethereum.NewClient(cfg.Ethereum, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to Ethereum node: %w", err)
	}
	defer ethClient.Close()

	// Start metrics server
	health := handlers.NewHealthHandler(nil, nil).WithCheck("ethereum", ethClient, true)
	go startMetricsServer(cfg.Collector.MetricsPort, health, logger)

	// Checkpoint storage
	var checkpoints repositories.CheckpointRepository
	usePostgres := cfg.Collector.CheckpointBackend == "postgres"
	if usePostgres {
		db, err := database.NewPostgresDB(cfg.Database, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			return err
		}
		checkpoints = database.NewCheckpointRepo(db.DB())
	} else {
		checkpoints = checkpoint.NewFileStore(cfg.Collector.CheckpointPath, logger)
	}

	// Transfer source
	var source repositories.TransferSource
	switch cfg.Collector.Source {
	case "rpc":
		source = ethereum.NewLogSource(ethClient, cfg.Collector, logger)
	default:
		source = nftapi.NewClient(cfg.NFTAPI, cfg.Ethereum.ChainID, logger)
	}

	wallets, err := collectWallets(ctx, cfg.Collector, addresses, source, ethClient, checkpoints, logger)
	if err != nil {
		return err
	}

	if usePostgres {
		invalidateSummaryCache(ctx, cfg.Redis, logger)
	}

	// Summarize as of a single instant so every wallet shares the same reference
	now := time.Now()
	analyzer := services.NewAnalyzerService(cfg.Report.WorkerCount, logger)
	summaries, err := analyzer.SummarizeAll(ctx, wallets, now)
	if err != nil {
		return fmt.Errorf("failed to summarize wallets: %w", err)
	}

	var namer repositories.CollectionNamer
	if cfg.Report.ResolveCollections {
		namer = ethereum.NewCollectionNameFetcher(ethClient, logger)
	}
	formatter := report.NewFormatter(namer, logger)

	if err := writeReport(ctx, cfg.Report.OutputPath, formatter, summaries); err != nil {
		return err
	}

	logger.Info("Report written",
		zap.String("path", cfg.Report.OutputPath),
		zap.Int("wallets", len(summaries)),
	)

	return nil
}

// collectWallets fetches wallet data, or reuses the saved dataset when collection is skipped
func collectWallets(
	ctx context.Context,
	cfg config.CollectorConfig,
	addresses []string,
	source repositories.TransferSource,
	balances repositories.BalanceSource,
	checkpoints repositories.CheckpointRepository,
	logger *zap.Logger,
) ([]entities.WalletInput, error) {
	if cfg.SkipCollect {
		cp, err := checkpoints.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load saved wallets: %w", err)
		}
		if cp == nil {
			return nil, errors.New("collection skipped but no saved wallets found")
		}
		logger.Info("Using saved wallet data", zap.Int("wallets", len(cp.Wallets)))
		return cp.Wallets, nil
	}

	collector := services.NewCollectorService(source, balances, checkpoints, cfg, logger)
	wallets, err := collector.Collect(ctx, addresses)
	if err != nil {
		return nil, fmt.Errorf("failed to collect wallets: %w", err)
	}
	return wallets, nil
}

// invalidateSummaryCache drops cached API summaries after new wallet data was stored
func invalidateSummaryCache(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) {
	redisCache, err := cache.NewRedisCache(cfg, logger)
	if err != nil {
		logger.Debug("Redis unavailable, skipping cache invalidation", zap.Error(err))
		return
	}
	defer redisCache.Close()

	if err := redisCache.DeletePattern(ctx, services.SummaryCacheKey("*")); err != nil {
		logger.Warn("Failed to invalidate cached summaries", zap.Error(err))
	}
}

func writeReport(ctx context.Context, path string, formatter *report.Formatter, summaries []entities.WalletSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := formatter.Write(ctx, w, summaries); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}

// loadAddresses reads wallet addresses from the configured file, or the address list.
// Blank lines and lines starting with # are ignored; duplicates keep their first position.
func loadAddresses(cfg config.CollectorConfig) ([]string, error) {
	raw := cfg.Addresses
	if cfg.AddressesFile != "" {
		f, err := os.Open(cfg.AddressesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open address file: %w", err)
		}
		defer f.Close()

		raw = nil
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			raw = append(raw, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read address file: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	addresses := make([]string, 0, len(raw))
	for _, line := range raw {
		addr := strings.TrimSpace(line)
		if addr == "" || strings.HasPrefix(addr, "#") {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		addresses = append(addresses, addr)
	}

	return addresses, nil
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

func startMetricsServer(port int, health *handlers.HealthHandler, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", health.Health)
	mux.HandleFunc("/live", health.Live)

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", zap.String("addr", addr))

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Metrics server error", zap.Error(err))
	}
}
