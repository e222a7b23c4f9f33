package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/jobdesk/internal/config"
	"github.com/JonMunkholm/jobdesk/internal/core"
	"github.com/JonMunkholm/jobdesk/internal/generator"
	"github.com/JonMunkholm/jobdesk/internal/logging"
	"github.com/JonMunkholm/jobdesk/internal/source"
	"github.com/JonMunkholm/jobdesk/internal/store"
	"github.com/JonMunkholm/jobdesk/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	src, err := source.New(ctx, cfg.Sheet)
	if err != nil {
		slog.Error("failed to create sheet source", "error", err)
		os.Exit(1)
	}
	slog.Info("sheet source ready", "source", src.Name())

	gen := generator.New(generator.NewOpenAI(generator.OpenAIOptions{
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		BaseURL:   cfg.LLM.BaseURL,
		Timeout:   cfg.LLM.Timeout,
	}))

	service := core.NewService(src, st, gen, core.Options{
		Concurrency: cfg.LLM.Concurrency,
		Limiter:     core.NewBatchLimiter(cfg.LLM.MaxBatches, cfg.LLM.BatchWait),
	})

	server, err := web.NewServer(service, cfg)
	if err != nil {
		slog.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for running generation batches (with timeout)
		if active := service.ActiveBatches(); active > 0 {
			slog.Info("waiting for generation batches to complete", "active", active)
			if err := service.WaitForBatches(shutdownCtx); err != nil {
				slog.Warn("batches did not complete in time", "error", err)
			} else {
				slog.Info("all batches completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openStore picks Postgres when a URL is configured, then SQLite, then the
// in-memory store.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	switch {
	case cfg.URL != "":
		return openPostgres(ctx, cfg)
	case cfg.SQLitePath != "":
		s, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using sqlite store", "path", cfg.SQLitePath)
		return s, func() { _ = s.Close() }, nil
	default:
		slog.Warn("DATABASE_URL and SQLITE_PATH not set, fiches are kept in memory only")
		return store.NewMemory(), func() {}, nil
	}
}

func openPostgres(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}
