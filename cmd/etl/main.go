package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/grid-geo-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/grid-geo-etl/internal/adapter/kafka"
	"github.com/couchcryptid/grid-geo-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/grid-geo-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/grid-geo-etl/internal/cache"
	"github.com/couchcryptid/grid-geo-etl/internal/config"
	"github.com/couchcryptid/grid-geo-etl/internal/domain"
	"github.com/couchcryptid/grid-geo-etl/internal/observability"
	"github.com/couchcryptid/grid-geo-etl/internal/osgb"
	"github.com/couchcryptid/grid-geo-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

// sink is a pipeline.BatchLoader that must be closed on shutdown.
type sink interface {
	pipeline.BatchLoader
	Close() error
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	params, err := config.LoadProjection(cfg.ProjectionFile)
	if err != nil {
		logger.Error("failed to load projection", "error", err)
		os.Exit(1)
	}
	grid, err := osgb.NewConverter(params)
	if err != nil {
		logger.Error("invalid projection", "error", err)
		os.Exit(1)
	}
	converter := cache.NewConverter(grid, cfg.ConvertCacheSize, metrics.ConvertCache)
	logger.Info("grid converter ready", "projection", params.Name, "cache_size", cfg.ConvertCacheSize)

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, logger, metrics)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var loader sink
	switch cfg.Sink {
	case config.SinkSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Error("failed to open sqlite sink", "error", err)
			os.Exit(1)
		}
		loader = store
		logger.Info("sink: sqlite", "path", cfg.SQLitePath)
	default:
		loader = kafkaadapter.NewWriter(cfg, logger)
		logger.Info("sink: kafka", "topic", cfg.KafkaSinkTopic)
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	transformer := pipeline.NewTransformer(converter, geocoder, logger)

	p := pipeline.New(reader, transformer, loader, logger, metrics, cfg.BatchSize, cfg.ConvertWorkers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, converter, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := loader.Close(); err != nil {
		logger.Error("sink close error", "error", err)
	}

	logger.Info("shutdown complete")
}
