package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/sercha-site/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-site/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-site/internal/adapters/driven/fetch"
	"github.com/custodia-labs/sercha-site/internal/adapters/driven/manifest/sitemap"
	prommetrics "github.com/custodia-labs/sercha-site/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/sercha-site/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/sercha-site/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-site/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/services"
	"github.com/custodia-labs/sercha-site/internal/logger"
	"github.com/custodia-labs/sercha-site/internal/normalisers/html"
	"github.com/custodia-labs/sercha-site/internal/postprocessors/chunker"
)

// app builds the services from the config file.
type app struct {
	// promptDir overrides the prompt directory; empty uses the default.
	promptDir string
}

// Ensure app implements the interface.
var _ cli.Bootstrapper = (*app)(nil)

// OpenConfig opens path, or ~/.sercha-site/config.toml when path is empty.
func (a *app) OpenConfig(path string) (driven.ConfigStore, error) {
	if path != "" {
		return file.OpenConfigFile(path)
	}
	dir, err := file.DefaultDir()
	if err != nil {
		return nil, err
	}
	return file.NewConfigStore(dir)
}

// Build wires stores, adapters and core services.
func (a *app) Build(ctx context.Context, config driven.ConfigStore) (*cli.Services, error) {
	logger.Section("Startup")
	settingsService := services.NewSettingsService(config)
	if err := settingsService.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", config.Path(), err)
	}
	settings := settingsService.Settings()

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	storage := settingsService.Storage()
	store, err := sqlite.NewStore(storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	closers = append(closers, store.Close)
	logger.Debug("Store: %s", store.Path())

	kv := store.KeyValueStore()
	if storage.KVBackend == domain.KVBackendRedis {
		rc := settingsService.Redis()
		rkv, err := redis.Connect(ctx, redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
			Prefix:   rc.Prefix,
		})
		if err != nil {
			_ = closeAll()
			return nil, err
		}
		closers = append(closers, rkv.Close)
		kv = rkv
		logger.Debug("Crawl state: redis at %s", rc.Addr)
	}

	var prompts driven.PromptStore
	if ps, err := file.NewPromptStore(a.promptDir); err != nil {
		logger.Warn("Prompt store unavailable, using built-in prompts: %v", err)
	} else {
		prompts = ps
	}

	aiServices := ai.Create(settingsService.Embedding(), settingsService.LLM(), prompts)
	for _, w := range aiServices.Warnings {
		logger.Warn("%s", w)
	}
	closers = append(closers, func() error {
		aiServices.Close()
		return nil
	})

	extractor, err := html.New(settings.ContentSelectors...)
	if err != nil {
		_ = closeAll()
		return nil, fmt.Errorf("content selectors: %w", err)
	}
	fetcher := fetch.New(fetch.ConfigFromSettings(settings))
	splitter := chunker.New(chunker.WithChunkSize(settings.ChunkSize))
	metrics := prommetrics.New()

	cache := services.NewAnswerCacheService(settings, store.CacheStore())
	cache.SetMetrics(metrics)

	indexer := services.NewIndexerService(
		settings,
		store.ChunkStore(),
		kv,
		fetcher,
		sitemap.New(fetcher),
		extractor,
		splitter,
		aiServices.Embedding,
	)
	indexer.SetMetrics(metrics)
	indexer.SetAnswerCache(cache)

	retriever := services.NewRetrieverService(settings, store.ChunkStore(), aiServices.Embedding)
	retriever.SetMetrics(metrics)

	answerer := services.NewAnswerService(settings, cache, retriever, aiServices.Generator)

	schedulerConfig := settingsService.SchedulerConfig()
	scheduler := services.NewScheduler(schedulerConfig, store.SchedulerStore(), indexer)
	indexer.SetBatchScheduler(scheduler)

	server := settingsService.Server()
	return &cli.Services{
		Indexer:         indexer,
		Retriever:       retriever,
		Answerer:        answerer,
		Cache:           cache,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		ServerAddr:      server.Addr,
		ServerToken:     server.Token,
		Metrics:         metrics.Handler(),
		Close:           closeAll,
	}, nil
}
