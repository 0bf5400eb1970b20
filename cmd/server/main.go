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

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"examsync/internal/config"
	"examsync/internal/logging"
	"examsync/internal/registrar"
	"examsync/internal/sheets"
	"examsync/internal/store/postgres"
	"examsync/internal/totem"
	"examsync/internal/web"
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

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"sheets", len(cfg.Sync.SheetNames),
		"sheet_concurrency", cfg.Sync.SheetConcurrency,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	st := postgres.New(pool)
	if err := st.InitSchema(ctx); err != nil {
		slog.Error("failed to initialize schema", "error", err)
		os.Exit(1)
	}

	source := sheets.New(cfg.Sheets.SpreadsheetID, sheets.Options{
		BaseURL:         cfg.Sheets.BaseURL,
		Timeout:         cfg.Sheets.Timeout,
		CandidateSheets: cfg.Sync.SheetNames,
	})
	records := registrar.New(cfg.Registrar.BaseURL, registrar.Options{
		Timeout: cfg.Registrar.Timeout,
	})

	service := totem.NewService(st, source, records, totem.ServiceOptions{
		SheetNames:       cfg.Sync.SheetNames,
		SheetConcurrency: cfg.Sync.SheetConcurrency,
		BatchSize:        cfg.Registrar.BatchSize,
		BatchPause:       cfg.Registrar.BatchPause,
	})

	server := web.NewServer(service, web.Options{
		TrustedProxies: cfg.Server.TrustedProxies,
		RequestTimeout: cfg.Sync.RunTimeout,
	})

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let an in-flight sync run finish before closing the listener.
		if service.SyncRunning() {
			slog.Info("waiting for active sync run to complete")
			if err := service.WaitForSync(shutdownCtx); err != nil {
				slog.Warn("sync run did not complete in time", "error", err)
			} else {
				slog.Info("sync run completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	err = server.Start(cfg.Server.Addr(),
		cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
