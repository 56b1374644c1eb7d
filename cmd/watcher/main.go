// Package main runs the swap watcher daemon: the poll loop plus the HTTP
// surface (health, status, metrics, outcome history, live stream).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"garden-volume-watch/internal/api"
	"garden-volume-watch/internal/comparison"
	"garden-volume-watch/internal/config"
	"garden-volume-watch/internal/conversion"
	"garden-volume-watch/internal/feed"
	"garden-volume-watch/internal/logging"
	"garden-volume-watch/internal/providers"
	"garden-volume-watch/internal/publish"
	"garden-volume-watch/internal/storage"
	bstore "garden-volume-watch/internal/storage/badger"
	chstore "garden-volume-watch/internal/storage/clickhouse"
	"garden-volume-watch/internal/storage/memory"
	"garden-volume-watch/internal/storage/migrations"
	pgstore "garden-volume-watch/internal/storage/postgres"
	"garden-volume-watch/internal/stream"
	"garden-volume-watch/internal/watcher"
)

// stores holds the storage implementations selected by config.
type stores struct {
	processed storage.ProcessedOrderStore
	outcomes  storage.OutcomeStore
	analytics storage.OutcomeAnalyticsStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	configFile := flag.String("config", os.Getenv("WATCHER_CONFIG"), "Path to YAML config file")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage regardless of config")
	once := flag.Bool("once", false, "Run a single cycle and exit")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *useMemory {
		cfg.Storage.Backend = config.BackendMemory
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to create stores", zap.Error(err))
	}
	defer cleanup()

	feeModel, err := conversion.ParseFeeModel(cfg.Watcher.FeeModel)
	if err != nil {
		logger.Fatal("invalid fee model", zap.Error(err))
	}

	hub := stream.NewHub(logger.Named("stream"))
	defer hub.Close()

	w := watcher.New(watcher.Options{
		Feed: feed.NewClient(cfg.Feed.CatalogURL, cfg.Feed.OrdersURL,
			feed.WithTimeout(cfg.Feed.Timeout),
			feed.WithLogger(logger),
		),
		Comparer: comparison.New(comparison.Options{
			Providers: providers.FromConfig(cfg, logger),
			Timeout:   cfg.Providers.Timeout,
			Logger:    logger,
		}),
		Processed:       st.processed,
		Outcomes:        st.outcomes,
		Analytics:       st.analytics,
		Renderer:        publish.NewCardRenderer(cfg.Publish.CardDir),
		Publisher:       publish.NewMultiPublisher(logger, publish.NewLogPublisher(logger.Named("publish")), hub),
		PollInterval:    cfg.Watcher.PollInterval,
		Page:            cfg.Feed.Page,
		PageSize:        cfg.Feed.PageSize,
		OrdersPerPoll:   cfg.Watcher.OrdersPerPoll,
		VolumeThreshold: cfg.Watcher.VolumeThreshold,
		Concurrency:     cfg.Watcher.Concurrency,
		FeeModel:        feeModel,
		GardenTime:      conversion.GardenTimeTable(cfg.GardenTime),
		RequireSavings:  cfg.Publish.RequireSave,
		Logger:          logger,
	})

	if *once {
		res, err := w.RunCycle(ctx)
		if err != nil {
			logger.Fatal("cycle failed", zap.Error(err))
		}
		logger.Info("single cycle done", zap.Int("published", res.Published))
		return
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("received signal, initiating graceful shutdown", zap.String("signal", sig.String()))
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing immediate shutdown", zap.String("signal", sig.String()))
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	srv := &http.Server{
		Addr: cfg.API.ListenAddr,
		Handler: api.NewRouter(api.Config{
			Status:      w,
			Outcomes:    st.outcomes,
			Analytics:   st.analytics,
			Stream:      hub,
			RecentLimit: cfg.Watcher.RecentLimit,
			Logger:      logger,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	err = w.Run(ctx)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	_ = srv.Shutdown(shutdownCtx)
	stop()
	done <- err

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("watcher error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// createStores builds the stores for the configured backend.
// memory keeps everything in process; badger persists only the dedup set;
// postgres persists both and adds the ClickHouse analytics copy when a DSN is set.
func createStores(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*stores, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		outcomes := memory.NewOutcomeStore()
		return &stores{
			processed: memory.NewProcessedOrderStore(),
			outcomes:  outcomes,
			analytics: outcomes,
		}, func() {}, nil

	case config.BackendBadger:
		processed, err := bstore.Open(cfg.BadgerPath, logger.Named("badger"))
		if err != nil {
			return nil, nil, err
		}
		outcomes := memory.NewOutcomeStore()
		return &stores{processed: processed, outcomes: outcomes, analytics: outcomes},
			func() { _ = processed.Close() }, nil

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
		st := &stores{
			processed: pgstore.NewProcessedOrderStore(pool),
			outcomes:  pgstore.NewOutcomeStore(pool),
		}
		cleanup := func() { pool.Close() }

		if cfg.ClickHouseDSN != "" {
			chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
			if err != nil {
				pool.Close()
				return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
			}
			st.analytics = chstore.NewOutcomeStore(chConn)
			cleanup = func() {
				chConn.Close()
				pool.Close()
			}
		}
		return st, cleanup, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}

// loadEnvFile sets variables from ./.env without overriding the environment.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if os.Getenv(key) == "" {
			os.Setenv(key, strings.Trim(strings.TrimSpace(value), `"`))
		}
	}
}
