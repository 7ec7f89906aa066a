// Package main runs the dashboard API server: Saros proxy endpoints,
// position analysis, backtests, and the optional live price feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dlmm-position-lab/internal/analysis"
	"dlmm-position-lab/internal/domain"
	"dlmm-position-lab/internal/feed"
	"dlmm-position-lab/internal/observability"
	"dlmm-position-lab/internal/saros"
	"dlmm-position-lab/internal/server"
	"dlmm-position-lab/internal/simulation"
	"dlmm-position-lab/internal/storage"
	chstore "dlmm-position-lab/internal/storage/clickhouse"
	"dlmm-position-lab/internal/storage/memory"
	"dlmm-position-lab/internal/storage/migrations"
	pgstore "dlmm-position-lab/internal/storage/postgres"
)

// stores holds the selected storage backend.
type stores struct {
	positions storage.PositionStore
	runs      storage.BacktestRunStore
	perf      storage.PerformancePointStore
}

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	sarosURL := flag.String("saros-url", envOr("SAROS_API_URL", saros.DefaultBaseURL), "Saros API base URL")
	feedURL := flag.String("feed-url", os.Getenv("PRICE_FEED_URL"), "Pool price feed WebSocket URL (optional)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	analysisDelay := flag.Duration("analysis-delay", simulation.DefaultAnalysisDelay, "Simulated analysis latency")
	backtestDelay := flag.Duration("backtest-delay", simulation.DefaultBacktestDelay, "Simulated backtest latency")

	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	go trackUptime(ctx, metrics)

	gateway := saros.NewClient(
		saros.WithBaseURL(*sarosURL),
		saros.WithLogger(log.New(os.Stdout, "[saros] ", log.LstdFlags|log.Lshortfile)),
	)
	engine := simulation.NewEngine(
		simulation.WithAnalysisDelay(*analysisDelay),
		simulation.WithBacktestDelay(*backtestDelay),
	)
	presenter := analysis.NewPresenter(engine,
		func(positionID string, rec domain.Recommendation) {
			logger.Printf("Rebalance %s: %s -> [%.4f, %.4f] (confidence %.0f)",
				positionID, rec.Strategy, rec.NewRange.Min, rec.NewRange.Max, rec.Confidence)
			metrics.RebalancesFired.WithLabelValues("auto").Inc()
		},
		analysis.WithLogger(log.New(os.Stdout, "[analysis] ", log.LstdFlags|log.Lshortfile)),
	)

	srv := server.NewServer(
		gateway, presenter, engine,
		st.positions, st.runs, st.perf,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
	)

	// Optional live price feed: ticks update held positions and refresh
	// their analyses. The feed subscription follows the tracked pairs.
	if *feedURL != "" {
		feedClient, err := startFeed(ctx, *feedURL, presenter, metrics)
		if err != nil {
			logger.Fatalf("Failed to start price feed: %v", err)
		}
		defer feedClient.Close()
		presenter.SetPositionsListener(func(pairs []string) {
			if err := feedClient.Subscribe(pairs...); err != nil {
				logger.Printf("Feed subscribe %v: %v", pairs, err)
			}
		})
		logger.Printf("Price feed connected to %s", *feedURL)
	}

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: srv.Router(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("Shutdown error: %v", err)
		}
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores creates the storage backend and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			positions: memory.NewPositionStore(),
			runs:      memory.NewBacktestRunStore(),
			perf:      memory.NewPerformancePointStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	st := &stores{
		positions: pgstore.NewPositionStore(pool),
		runs:      pgstore.NewBacktestRunStore(pool),
		perf:      chstore.NewPerformancePointStore(chConn),
	}
	cleanup := func() {
		pool.Close()
		chConn.Close()
	}
	return st, cleanup, nil
}

// startFeed connects the price feed. Each tick is applied to the matching
// held positions before their analyses are re-run; ticks for untracked
// pairs are dropped.
func startFeed(ctx context.Context, endpoint string, presenter *analysis.Presenter, metrics *observability.Metrics) (*feed.Client, error) {
	handler := func(u feed.PriceUpdate) {
		metrics.FeedMessagesReceived.Inc()
		if !presenter.ApplyPriceTick(u.Pool, u.Price) {
			return
		}
		reanalyzeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		presenter.Reanalyze(reanalyzeCtx)
	}

	cfg := feed.DefaultConfig()
	cfg.OnReconnect = metrics.FeedReconnects.Inc

	client, err := feed.NewClient(ctx, endpoint, handler, &cfg,
		log.New(os.Stdout, "[feed] ", log.LstdFlags|log.Lshortfile))
	if err != nil {
		return nil, err
	}
	metrics.FeedConnected.Set(1)
	return client, nil
}

// trackUptime advances the uptime counter until shutdown.
func trackUptime(ctx context.Context, metrics *observability.Metrics) {
	const step = 15 * time.Second
	ticker := time.NewTicker(step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UptimeSeconds.Add(step.Seconds())
		}
	}
}

// envOr returns the env var value or a default when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
