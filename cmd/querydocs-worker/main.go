package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/querydocs/querydocs/internal/config"
	dbRedis "github.com/querydocs/querydocs/internal/db/redis"
	"github.com/querydocs/querydocs/internal/embed"
	"github.com/querydocs/querydocs/internal/index"
	"github.com/querydocs/querydocs/internal/loader"
	logpkg "github.com/querydocs/querydocs/internal/logger"
	"github.com/querydocs/querydocs/internal/metrics"
	"github.com/querydocs/querydocs/internal/queue"
	ingestuc "github.com/querydocs/querydocs/internal/usecase/ingest"
	"github.com/querydocs/querydocs/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg := config.MustLoad(env)

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting querydocs ingestion worker",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("concurrency", cfg.Ingest.Concurrency),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIngestMetrics()

	embedder := embed.NewClient(&embed.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Logger:     logger,
	})
	cached := embed.NewCached(
		embedder, store, embedder.Model(), cfg.Redis.KeyPrefix,
		metrics.EmbeddingCacheTotal, logger,
	)

	collection := index.New(store, cfg.Index.Collection, cfg.Redis.KeyPrefix, cfg.Embedding.Dimensions).
		WithHNSW(index.HNSWConfig{
			M:           cfg.Index.HNSWM,
			EFConstruct: cfg.Index.HNSWEFConstruct,
		})
	if err := collection.Ensure(ctx); err != nil {
		logger.Fatal("Failed to ensure vector index", zap.Error(err))
	}

	jobQueue := queue.New(
		store, cfg.Redis.KeyPrefix,
		time.Duration(cfg.Ingest.JobStateTTLHours)*time.Hour, logger,
	)

	pipeline := ingestuc.New(loader.New(), cached, collection, ingestuc.Config{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		EmbedBatchSize: cfg.Ingest.EmbedBatchSize,
		CallTimeout:    time.Duration(cfg.Ingest.CallTimeoutSec) * time.Second,
	}, logger)

	worker := queue.NewWorker(jobQueue, pipeline, queue.WorkerConfig{
		Concurrency:  cfg.Ingest.Concurrency,
		MaxAttempts:  cfg.Ingest.MaxAttempts,
		BackoffBase:  time.Duration(cfg.Ingest.RetryBackoffMSec) * time.Millisecond,
		BlockTimeout: time.Duration(cfg.Ingest.BlockTimeoutMSec) * time.Millisecond,
		ClaimIdle:    time.Duration(cfg.Ingest.ClaimIdleSec) * time.Second,
	}, logger)

	if err := worker.Run(ctx); err != nil {
		logger.Fatal("Worker failed", zap.Error(err))
	}

	logger.Info("Worker stopped gracefully")
}
