package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/emporia-search/emporia/internal/catalog"
	"github.com/emporia-search/emporia/internal/config"
	"github.com/emporia-search/emporia/internal/index"
	logpkg "github.com/emporia-search/emporia/internal/logger"
	"github.com/emporia-search/emporia/internal/metrics"
	openaiEmb "github.com/emporia-search/emporia/internal/transport/openai"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	metrics.RegisterIndexMetrics()
	metrics.RegisterEmbeddingMetrics()

	store := catalog.Load(cfg.Catalog.Path, logger)
	if store.Len() == 0 {
		logger.Fatal("catalog is empty, nothing to ingest", zap.String("path", cfg.Catalog.Path))
	}

	idx := index.NewClient(index.Config{
		BaseURL:    cfg.Index.BaseURL,
		IndexName:  cfg.Index.Name,
		Dimensions: cfg.Index.Dimensions,
		SpaceType:  cfg.Index.SpaceType,
		Timeout:    time.Duration(cfg.Index.TimeoutSec) * time.Second,
		Logger:     logger,
	})

	embedder := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Index.Dimensions,
		Logger:     logger,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Idempotent: "already exists" is a success path.
	if err := idx.CreateIndex(ctx); err != nil {
		logger.Fatal("create index failed", zap.Error(err))
	}
	logger.Info("index ready",
		zap.String("index", cfg.Index.Name),
		zap.Int("dim", cfg.Index.Dimensions),
		zap.String("space_type", cfg.Index.SpaceType),
	)

	ing := &ingester{
		idx:       idx,
		embed:     embedder,
		batchSize: cfg.Ingest.BatchSize,
		workers:   cfg.Ingest.Workers,
		logger:    logger,
	}

	result := ing.Run(ctx, store.Products())
	logger.Info("ingestion finished",
		zap.Int64("processed", result.Processed),
		zap.Int64("failed", result.Failed),
		zap.Duration("duration", result.Duration),
	)

	if info, err := idx.GetInfo(ctx); err != nil {
		logger.Warn("index verification failed", zap.Error(err))
	} else {
		logger.Info("index verified",
			zap.Int("vector_count", info.VectorCount),
			zap.Int("dim", info.Dim),
			zap.String("space_type", info.SpaceType),
		)
	}

	if result.Processed == 0 {
		os.Exit(1)
	}
}
