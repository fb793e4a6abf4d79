package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	ecccadapter "github.com/couchcryptid/invasive-risk-service/internal/adapter/eccc"
	gbifadapter "github.com/couchcryptid/invasive-risk-service/internal/adapter/gbif"
	httpadapter "github.com/couchcryptid/invasive-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/invasive-risk-service/internal/adapter/kafka"
	openaiadapter "github.com/couchcryptid/invasive-risk-service/internal/adapter/openai"
	usgsadapter "github.com/couchcryptid/invasive-risk-service/internal/adapter/usgs"
	"github.com/couchcryptid/invasive-risk-service/internal/config"
	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/grid"
	"github.com/couchcryptid/invasive-risk-service/internal/model"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
	"github.com/couchcryptid/invasive-risk-service/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// A missing or corrupt model artifact is not fatal; the service serves
	// fixed fallback scores until the artifact is fixed and redeployed.
	var scorer pipeline.BatchScorer
	if m, err := model.Load(cfg.ModelPath); err != nil {
		metrics.ModelLoaded.Set(0)
		logger.Warn("model artifact unavailable, serving fallback scores", "path", cfg.ModelPath, "error", err)
	} else {
		scorer = m
		metrics.ModelLoaded.Set(1)
		logger.Info("model loaded", "path", cfg.ModelPath, "version", m.Version())
	}

	cells, err := grid.Load(cfg.CellsFile)
	if err != nil {
		logger.Error("failed to load cell grid", "error", err)
		os.Exit(1)
	}

	ecccClient := ecccadapter.NewClient(cfg.UpstreamTimeout, metrics, logger)

	var occurrences domain.OccurrenceSearcher
	occurrences = gbifadapter.NewClient(cfg.UpstreamTimeout, metrics, logger)
	occurrences = gbifadapter.NewRateLimited(occurrences, cfg.GBIFRateRPS)
	occurrences = gbifadapter.NewCached(occurrences, cfg.GBIFCacheSize, metrics)

	sources := pipeline.Sources{
		Stations: map[string]domain.StationReader{
			domain.ProviderUSGS:            usgsadapter.NewClient(cfg.UpstreamTimeout, metrics, logger),
			domain.ProviderECCCHydrometric: ecccadapter.HydrometricSource{Client: ecccClient},
			domain.ProviderECCCClimate:     ecccadapter.ClimateSource{Client: ecccClient},
		},
		Occurrences: occurrences,
	}

	// Narrative generation is feature-flagged via OPENAI_API_KEY.
	var narrator domain.Narrator
	if cfg.NarrativeEnabled() {
		narrator = openaiadapter.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.NarrativeTimeout, metrics, logger)
		logger.Info("narrative generation enabled", "model", cfg.OpenAIModel, "threshold", cfg.NarrativeThreshold)
	} else {
		logger.Info("narrative generation disabled")
	}

	publisher := kafkaadapter.NewPublisher(cfg, logger)

	p := pipeline.New(cells, sources, scorer, narrator, publisher, cfg.NarrativeThreshold, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, cfg.CORSOrigins, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error("kafka publisher close error", "error", err)
	}

	logger.Info("shutdown complete")
}
