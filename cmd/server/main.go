package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garnizeh/rentops/api"
	dbfs "github.com/garnizeh/rentops/db"
	"github.com/garnizeh/rentops/internal/booking"
	"github.com/garnizeh/rentops/internal/config"
	"github.com/garnizeh/rentops/internal/dashboard"
	"github.com/garnizeh/rentops/internal/db"
	"github.com/garnizeh/rentops/internal/metrics"
	"github.com/garnizeh/rentops/internal/repository/sqldb"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	logger.Info("starting rentops server", slog.String("version", version), slog.String("build_time", buildTime))

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
	logger.Info("server exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database connection
	conn, err := db.New(ctx, db.Driver(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			logger.Error("error closing db", slog.Any("err", err))
		}
	}()

	if cfg.Database.MigrateOnStart {
		if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
			return err
		}
	}

	var (
		sink           metrics.Sink = metrics.NewNoopSink()
		metricsHandler http.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		sink = metrics.NewPrometheusSink(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	repo := sqldb.New(conn, logger)

	// nil client keeps the cache as a pass-through
	rdb := dashboard.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, logger)
	if rdb != nil {
		defer rdb.Close()
	}
	cache := dashboard.NewCache(rdb, cfg.Redis.TTL, logger)

	jobs := booking.New(repo, repo,
		booking.WithLogger(logger),
		booking.WithMetrics(sink),
		booking.WithNotifier(cache),
	)
	dash := dashboard.New(repo,
		dashboard.WithCache(cache),
		dashboard.WithMetrics(sink),
		dashboard.WithLogger(logger),
	)

	handler := api.SetupRoutes(cfg, version, buildTime, api.Services{
		Jobs:           jobs,
		Dashboard:      dash,
		DB:             conn,
		Metrics:        sink,
		MetricsHandler: metricsHandler,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
