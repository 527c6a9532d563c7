package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/VritantaNextgen/moolyamitra-scraper/internal/adapter/chromedp_engine"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/adapter/postgres"
	redis_adapter "github.com/VritantaNextgen/moolyamitra-scraper/internal/adapter/redis"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/browser"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/delivery/http/handler"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/delivery/http/router"
	"github.com/VritantaNextgen/moolyamitra-scraper/internal/usecase"
	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/config"
	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/logger"
	"github.com/VritantaNextgen/moolyamitra-scraper/pkg/metrics"
)

const scrapeRetryBatch = 10

func main() {
	// --- Configuration ---
	if err := godotenv.Load(); err != nil {
		// A missing .env file is fine; the environment is authoritative.
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := config.Load()

	// --- Logger ---
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Metrics ---
	metrics.Init()
	slog.Info("Metrics initialized")

	// --- Database Connections ---
	ctx := context.Background()

	// PostgreSQL
	pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
	dbpool, err := pgxpool.New(ctx, pgConnString)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	slog.Info("PostgreSQL connection pool established")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("Redis connection established")

	// --- Browser Session Pool ---
	pool := browser.NewPool(browser.PoolConfig{
		Size: cfg.BrowserPoolSize,
		Launch: chromedp_engine.NewLauncher(chromedp_engine.Options{
			ExecPath:  cfg.BrowserExecPath,
			UserAgent: cfg.BrowserUserAgent,
		}),
		IdleTTL:    cfg.SessionIdleTTL,
		MaxCrashes: cfg.SessionMaxCrashes,
	})
	defer pool.Close()
	metrics.RegisterPoolGauges(func() (int, int) {
		s := pool.Stats()
		return s.Busy, s.Idle
	})
	slog.Info("Browser session pool created", "size", cfg.BrowserPoolSize)

	// --- Repositories ---
	productRepo := postgres.NewProductRepo(dbpool)
	failedScrapeRepo := postgres.NewFailedScrapeRepo(dbpool)
	visitedRepo := redis_adapter.NewVisitedRepo(rdb)
	resultCacheRepo := redis_adapter.NewResultCacheRepo(rdb)

	// --- Use Cases ---
	executor := usecase.NewTaskExecutor(pool, resultCacheRepo, usecase.ExecutorConfig{
		AcquireTimeout: cfg.AcquireTimeout,
		ActionTimeout:  cfg.ActionTimeout,
		TaskTimeout:    cfg.TaskTimeout,
		CacheTTL:       cfg.ResultCacheTTL,
	})
	scraper := usecase.NewScraper(executor, productRepo, visitedRepo, failedScrapeRepo, usecase.ScraperConfig{
		StorefrontBaseURL: cfg.StorefrontBaseURL,
		DedupTTL:          cfg.ScrapeDedupTTL,
	})

	// --- Background scrape retries ---
	retryCtx, stopRetries := context.WithCancel(ctx)
	defer stopRetries()
	go retryLoop(retryCtx, scraper, cfg.ScrapeRetryInterval)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(executor, scraper, productRepo, pool)
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 2 * cfg.TaskTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			os.Exit(1)
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("Shutting down")

	stopRetries()
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}

// retryLoop periodically re-submits failed scrapes whose backoff elapsed.
func retryLoop(ctx context.Context, scraper usecase.Scraper, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := scraper.RetryDue(ctx, scrapeRetryBatch); n > 0 {
				slog.Info("Retried failed scrapes", "count", n)
			}
		}
	}
}
