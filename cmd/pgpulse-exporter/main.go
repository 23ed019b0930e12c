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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pgpulse/pgpulse/internal/api"
	"github.com/pgpulse/pgpulse/internal/archive"
	"github.com/pgpulse/pgpulse/internal/config"
	"github.com/pgpulse/pgpulse/internal/exporter"
	"github.com/pgpulse/pgpulse/internal/monotone"
	"github.com/pgpulse/pgpulse/internal/observability"
	"github.com/pgpulse/pgpulse/internal/stats"
	statspostgres "github.com/pgpulse/pgpulse/internal/stats/postgres"
	s3store "github.com/pgpulse/pgpulse/internal/storage/s3"
)

func main() {
	cfg, err := config.LoadFromEnv("pgpulse-exporter")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	db, err := statspostgres.Open(context.Background(), statspostgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open stats db", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	reconciler := monotone.NewReconciler()
	reconciler.OnReset = func(key string) {
		logger.Info("stat reset detected", slog.String("stat", key))
		observability.IncrementResetDetected(key)
	}

	fetcher := statspostgres.NewFetcher(db, logger)
	collector, err := exporter.New(exporter.Config{
		Namespace:    cfg.Exporter.Namespace,
		Database:     cfg.Database.Name,
		FetchTimeout: cfg.Exporter.FetchTimeout,
	}, stats.Catalog(cfg.Database.Name), fetcher, reconciler)
	if err != nil {
		logger.Error("failed to build collector", slog.Any("error", err))
		os.Exit(1)
	}
	prometheus.MustRegister(collector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Archive.Enabled {
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:         cfg.Archive.Store.Endpoint,
			Region:           cfg.Archive.Store.Region,
			Bucket:           cfg.Archive.Store.Bucket,
			AccessKeyID:      cfg.Archive.Store.AccessKeyID,
			SecretAccessKey:  cfg.Archive.Store.SecretAccessKey,
			UseSSL:           cfg.Archive.Store.UseSSL,
			Prefix:           cfg.Archive.Store.Prefix,
			AutoCreateBucket: cfg.Archive.Store.AutoCreateBucket,
		})
		if err != nil {
			logger.Error("failed to initialize archive store", slog.Any("error", err))
			os.Exit(1)
		}
		archiver := &archive.Service{
			Source: reconciler,
			Store:  store,
			Config: archive.Config{
				Database:      cfg.Database.Name,
				Interval:      cfg.Archive.Interval,
				KeepSnapshots: cfg.Archive.KeepSnapshots,
			},
			Logger: logger,
		}
		go func() {
			logger.Info("snapshot archiver started", slog.String("interval", cfg.Archive.Interval.String()))
			if err := archiver.Run(ctx); err != nil {
				logger.Error("snapshot archiver failed", slog.Any("error", err))
			}
		}()
	}

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:           logger,
		Readiness:        db.PingContext,
		DependencyTimout: time.Second,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("starting exporter server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("database", cfg.Database.Name),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("exporter server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down exporter server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
