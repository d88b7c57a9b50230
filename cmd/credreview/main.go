package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/credreview/internal/adapter/driven/liveness"
	"github.com/ericfisherdev/credreview/internal/adapter/driven/oauth"
	"github.com/ericfisherdev/credreview/internal/adapter/driven/rangeapi"
	sqliteadapter "github.com/ericfisherdev/credreview/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/credreview/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/credreview/internal/adapter/driving/web"
	"github.com/ericfisherdev/credreview/internal/application"
	"github.com/ericfisherdev/credreview/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration; a local .env fills in unset variables.
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"range_api", cfg.RangeAPIURL,
		"lookup_concurrency", cfg.LookupConcurrency,
		"max_batch", cfg.MaxBatch,
		"probe_timeout", cfg.ProbeTimeout,
		"google_oauth", cfg.HasGoogleClient(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the probe history database and migrate it.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	if version, dirty, err := db.SchemaVersion(ctx); err == nil {
		slog.Info("database ready", "path", db.Path(), "schema_version", version, "dirty", dirty)
	}

	// 4. Wire adapters and services.
	logger := slog.Default()
	rangeClient := rangeapi.NewClient(cfg.RangeAPIURL, logger)
	checker := application.NewBreachChecker(rangeClient, cfg.LookupConcurrency, cfg.MaxBatch, logger)

	historyStore := sqliteadapter.NewProbeRepo(db)
	prober := liveness.NewProber(cfg.ProbeTimeout, logger)
	probeSvc := application.NewProbeService(prober, nil, historyStore, application.DefaultProbeConcurrency, logger)

	identity := oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI)

	health := application.NewHealthService(logger,
		application.HealthCheck{Name: "database", Check: db.Check},
		application.HealthCheck{Name: "schema", Check: schemaCheck(db)},
	)

	// 5. Register API and web routes.
	apiHandler := httphandler.NewHandler(checker, probeSvc, historyStore, identity, health, logger)
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	webHandler := webhandler.NewHandler(cfg.ExportPartBytes, logger)
	webhandler.RegisterRoutes(mux, webHandler)

	handler := httphandler.ApplyMiddleware(mux, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Batches of 500 secrets can fan out to hundreds of range lookups.
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 7. Graceful shutdown with 10s drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// schemaCheck fails while the migration table is dirty or unreadable.
func schemaCheck(db *sqliteadapter.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		_, dirty, err := db.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		if dirty {
			return errors.New("schema migration left dirty")
		}
		return nil
	}
}
