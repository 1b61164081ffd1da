package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Ensure IndexerService implements the interface.
var _ driving.Indexer = (*IndexerService)(nil)

// IndexerService runs the crawl pipeline: manifest → queue → fetch →
// extract → chunk → embed → chunk store.
type IndexerService struct {
	settings  domain.Settings
	chunks    driven.ChunkStore
	kv        driven.KeyValueStore
	fetcher   driven.Fetcher
	manifest  driven.ManifestReader
	extractor driven.PageExtractor
	splitter  driven.TextSplitter
	embedder  driven.EmbeddingService

	queue     *crawlQueue
	scheduler driven.BatchScheduler
	metrics   driven.Metrics
	cache     driving.AnswerCache
	now       func() time.Time
}

// NewIndexerService creates an indexer.
// The embedder may be nil; every operation that needs it then returns
// domain.ErrEmbeddingUnavailable.
func NewIndexerService(
	settings domain.Settings,
	chunks driven.ChunkStore,
	kv driven.KeyValueStore,
	fetcher driven.Fetcher,
	manifest driven.ManifestReader,
	extractor driven.PageExtractor,
	splitter driven.TextSplitter,
	embedder driven.EmbeddingService,
) *IndexerService {
	return &IndexerService{
		settings:  settings,
		chunks:    chunks,
		kv:        kv,
		fetcher:   fetcher,
		manifest:  manifest,
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		queue:     newCrawlQueue(kv, settings.MaxFailures),
		now:       time.Now,
	}
}

// SetBatchScheduler sets the scheduler that arms follow-up worker runs.
// Without one, batches only run when WorkBatch is called directly.
func (s *IndexerService) SetBatchScheduler(scheduler driven.BatchScheduler) {
	s.scheduler = scheduler
}

// SetMetrics sets the metrics recorder.
func (s *IndexerService) SetMetrics(metrics driven.Metrics) {
	s.metrics = metrics
}

// SetAnswerCache sets the cache purged when documents change or are removed.
func (s *IndexerService) SetAnswerCache(cache driving.AnswerCache) {
	s.cache = cache
}

// IndexAll reads the manifest and queues every URL that needs indexing.
func (s *IndexerService) IndexAll(ctx context.Context, opts driving.IndexAllOptions) (*domain.IndexAllResult, error) {
	logger.Section("Index All")
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if s.settings.ManifestURL == "" {
		return nil, fmt.Errorf("%w: no manifest URL configured", domain.ErrInvalidInput)
	}

	entries, err := s.manifest.Read(ctx, s.settings.ManifestURL)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	logger.Debug("Manifest listed %d URLs", len(entries))

	items := s.dedupe(entries)
	if !opts.Force {
		items, err = s.subtractIndexed(ctx, items)
		if err != nil {
			return nil, err
		}
	}

	if len(items) == 0 {
		if err := s.queue.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear crawl queue: %w", err)
		}
		logger.Info("Nothing to index")
		return &domain.IndexAllResult{OK: true, Message: "already indexed"}, nil
	}

	if err := s.kv.Delete(ctx, keyCrawlFailures); err != nil {
		logger.Warn("Failed to reset crawl failures: %v", err)
	}
	if err := s.queue.Save(ctx, domain.NewCrawlState(items)); err != nil {
		return nil, fmt.Errorf("save crawl queue: %w", err)
	}

	msg := fmt.Sprintf("queued %d URLs", len(items))
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleCrawlBatch(ctx, 0); err != nil {
			return nil, fmt.Errorf("schedule crawl batch: %w", err)
		}
	} else {
		msg += "; run the worker to process them"
	}
	logger.Info("Queued %d URLs", len(items))

	return &domain.IndexAllResult{OK: true, Message: msg, Queued: len(items)}, nil
}

// dedupe flattens manifest entries to queue items by canonical URL and
// drops skip-listed URLs. A later entry only contributes a missing lastmod.
func (s *IndexerService) dedupe(entries []domain.ManifestEntry) []domain.QueueItem {
	seen := make(map[string]int, len(entries))
	items := make([]domain.QueueItem, 0, len(entries))
	for _, e := range entries {
		key := domain.CanonicalURL(e.URL)
		if key == "" || s.settings.IsSkipped(key) {
			continue
		}
		if i, ok := seen[key]; ok {
			if items[i].LastModified == nil {
				items[i].LastModified = e.LastModified
			}
			continue
		}
		seen[key] = len(items)
		items = append(items, domain.QueueItem{URL: key, LastModified: e.LastModified})
	}
	return items
}

// subtractIndexed drops items already stored and not modified since.
func (s *IndexerService) subtractIndexed(ctx context.Context, items []domain.QueueItem) ([]domain.QueueItem, error) {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.URL
	}
	states, err := s.chunks.DocumentStates(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load document states: %w", err)
	}

	out := items[:0]
	for _, it := range items {
		st, ok := states[it.URL]
		if ok && (it.LastModified == nil || !it.LastModified.After(st.UpdatedAt)) {
			continue
		}
		out = append(out, it)
	}
	logger.Debug("%d URLs unchanged since last index", len(items)-len(out))
	return out, nil
}

// IndexSingleURL fetches and indexes one URL immediately.
func (s *IndexerService) IndexSingleURL(
	ctx context.Context, rawURL string, opts driving.IndexURLOptions,
) (domain.IndexOutcome, error) {
	if s.embedder == nil {
		return domain.OutcomeFailed, domain.ErrEmbeddingUnavailable
	}

	outcome, err := s.indexURL(ctx, rawURL, opts)
	s.recordOutcome(outcome)
	if err != nil {
		s.recordFailure(ctx, rawURL, err)
		return outcome, err
	}

	if outcome == domain.OutcomeIndexed && s.cache != nil {
		keys, paths := identities(rawURL, opts.KnownVariants)
		if n, err := s.cache.PurgeBySourceURLs(ctx, keys, paths); err != nil {
			logger.Warn("Failed to purge cached answers for %s: %v", rawURL, err)
		} else if n > 0 {
			logger.Debug("Purged %d cached answers citing %s", n, rawURL)
		}
	}
	return outcome, nil
}

// WorkBatch processes up to batchSize queued URLs under the crawl lease.
func (s *IndexerService) WorkBatch(ctx context.Context, batchSize int) (*domain.BatchResult, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if batchSize <= 0 {
		batchSize = s.settings.BatchSize
	}

	holder := uuid.NewString()
	acquired, err := s.kv.AcquireLease(ctx, keyCrawlLock, holder, s.settings.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire crawl lease: %w", err)
	}
	if !acquired {
		logger.Debug("Crawl lease held by another worker")
		return &domain.BatchResult{LeaseHeld: true}, nil
	}
	defer func() {
		if err := s.kv.ReleaseLease(context.WithoutCancel(ctx), keyCrawlLock, holder); err != nil {
			logger.Warn("Failed to release crawl lease: %v", err)
		}
	}()

	start := s.now()
	state, err := s.queue.Load(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidCrawlState) {
			return nil, err
		}
		logger.Error("Discarding crawl queue: %v", err)
		if err := s.queue.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear crawl queue: %w", err)
		}
		state = domain.NewCrawlState(nil)
	}

	result := &domain.BatchResult{Cursor: state.Cursor(), Total: state.Total()}
	if state.Empty() {
		return result, nil
	}

	logger.Section("Crawl Batch")
	logger.Debug("Cursor %d of %d, batch size %d", state.Cursor(), state.Total(), batchSize)

	limiter := s.limiter()
	end := state.BatchEnd(batchSize)
	for state.Cursor() < end {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return s.finish(result, state, start), err
			}
		}

		item, _ := state.Current()
		outcome, err := s.indexURL(ctx, item.URL, driving.IndexURLOptions{LastModified: item.LastModified})
		if err != nil {
			logger.Warn("Indexing %s failed: %v", item.URL, err)
			s.recordFailure(ctx, item.URL, err)
		}
		result.Count(outcome)
		s.recordOutcome(outcome)

		state = state.Advance()
		if err := s.queue.SaveCursor(ctx, state); err != nil {
			return s.finish(result, state, start), fmt.Errorf("save crawl cursor: %w", err)
		}
	}

	if !state.Done() {
		if s.scheduler != nil {
			if err := s.scheduler.ScheduleCrawlBatch(ctx, s.settings.RescheduleDelay); err != nil {
				logger.Warn("Failed to schedule next crawl batch: %v", err)
			} else {
				result.Rescheduled = true
			}
		}
		return s.finish(result, state, start), nil
	}

	if err := s.queue.Clear(ctx); err != nil {
		return s.finish(result, state, start), fmt.Errorf("clear crawl queue: %w", err)
	}
	if err := s.queue.MarkCompleted(ctx, s.now()); err != nil {
		logger.Warn("Failed to record crawl completion: %v", err)
	}
	result.Completed = true
	logger.Info("Crawl completed: %d URLs", state.Total())
	return s.finish(result, state, start), nil
}

func (s *IndexerService) finish(result *domain.BatchResult, state domain.CrawlState, start time.Time) *domain.BatchResult {
	result.Cursor = state.Cursor()
	result.Total = state.Total()
	if s.metrics != nil {
		s.metrics.BatchCompleted(result.Processed, s.now().Sub(start))
	}
	return result
}

// limiter spaces URL fetches by ThrottleDelay. Nil when throttling is off.
func (s *IndexerService) limiter() *rate.Limiter {
	if s.settings.ThrottleDelay <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(s.settings.ThrottleDelay), 1)
}

// indexURL runs the pipeline for one URL. Errors always come with OutcomeFailed.
func (s *IndexerService) indexURL(
	ctx context.Context, rawURL string, opts driving.IndexURLOptions,
) (domain.IndexOutcome, error) {
	if s.settings.IsSkipped(rawURL) {
		logger.Debug("Skipping %s (skip list)", rawURL)
		return domain.OutcomeSkipped, nil
	}
	docKey := domain.CanonicalURL(rawURL)

	res, err := s.fetcher.Fetch(ctx, docKey)
	if err != nil {
		return domain.OutcomeFailed, err
	}

	page, err := s.extractor.Extract(docKey, res.Body, opts.LastModified)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("extract %s: %w", docKey, err)
	}

	hash := page.ContentHash()
	if !opts.Force {
		state, err := s.chunks.DocumentState(ctx, docKey)
		if err != nil {
			return domain.OutcomeFailed, fmt.Errorf("load document state: %w", err)
		}
		if state.Unchanged(hash, page.Category) {
			logger.Debug("Unchanged: %s", docKey)
			return domain.OutcomeUnchanged, nil
		}
	}

	keys, paths := identities(rawURL, opts.KnownVariants)

	if page.Content == "" {
		if _, err := s.chunks.DeleteDocuments(ctx, keys, paths); err != nil {
			return domain.OutcomeFailed, fmt.Errorf("delete chunks: %w", err)
		}
		logger.Debug("No content: %s", docKey)
		return domain.OutcomeSkipped, nil
	}

	texts := s.splitter.Split(page.Content)
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return domain.OutcomeFailed, fmt.Errorf("embed %s: %w", docKey, err)
	}
	if len(vectors) != len(texts) {
		return domain.OutcomeFailed, fmt.Errorf("embed %s: got %d vectors for %d chunks", docKey, len(vectors), len(texts))
	}

	now := s.now().UTC()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:          uuid.NewString(),
			DocKey:      docKey,
			URL:         docKey,
			Path:        domain.NormalizePath(docKey),
			Category:    page.Category,
			Title:       page.Title,
			Index:       i,
			Content:     text,
			Embedding:   domain.Normalize(vectors[i]),
			ContentHash: hash,
			PublishedAt: page.PublishedAt,
			ModifiedAt:  page.ModifiedAt,
			UpdatedAt:   now,
			Metadata:    page.Metadata,
		}
	}

	if err := s.chunks.ReplaceDocument(ctx, keys, paths, chunks); err != nil {
		return domain.OutcomeFailed, fmt.Errorf("store chunks: %w", err)
	}
	logger.Debug("Indexed %s: %d chunks", docKey, len(chunks))
	return domain.OutcomeIndexed, nil
}

// RemoveURL deletes a page's chunks and the cached answers citing it.
func (s *IndexerService) RemoveURL(ctx context.Context, rawURL string, variants []string) (*driving.RemoveResult, error) {
	keys, paths := identities(rawURL, variants)

	n, err := s.chunks.DeleteDocuments(ctx, keys, paths)
	if err != nil {
		return nil, fmt.Errorf("delete chunks: %w", err)
	}
	result := &driving.RemoveResult{Chunks: n}

	if s.cache != nil {
		purged, err := s.cache.PurgeBySourceURLs(ctx, keys, paths)
		if err != nil {
			return result, fmt.Errorf("purge cache: %w", err)
		}
		result.CacheEntries = purged
	}
	logger.Info("Removed %s: %d chunks, %d cached answers", rawURL, result.Chunks, result.CacheEntries)
	return result, nil
}

// Status reports crawl progress and index totals.
func (s *IndexerService) Status(ctx context.Context) (*domain.IndexStatus, error) {
	status := &domain.IndexStatus{}

	state, err := s.queue.Load(ctx)
	switch {
	case err == nil:
		status.Cursor = state.Cursor()
		status.Total = state.Total()
	case errors.Is(err, domain.ErrInvalidCrawlState):
		logger.Warn("Crawl queue unreadable: %v", err)
	default:
		return nil, err
	}

	if status.LeaseHolder, err = s.queue.LeaseHolder(ctx); err != nil {
		return nil, fmt.Errorf("read crawl lease: %w", err)
	}
	if status.LastCompleted, err = s.queue.LastCompleted(ctx); err != nil {
		return nil, fmt.Errorf("read last completion: %w", err)
	}
	if status.Failures, err = s.queue.Failures(ctx); err != nil {
		return nil, fmt.Errorf("read crawl failures: %w", err)
	}

	stats, err := s.chunks.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("index stats: %w", err)
	}
	status.Documents = stats.Documents
	status.Chunks = stats.Chunks
	return status, nil
}

func (s *IndexerService) recordFailure(ctx context.Context, rawURL string, cause error) {
	f := domain.CrawlFailure{URL: rawURL, Reason: cause.Error(), At: s.now().UTC()}
	if err := s.queue.RecordFailure(ctx, f); err != nil {
		logger.Warn("Failed to record crawl failure: %v", err)
	}
}

func (s *IndexerService) recordOutcome(outcome domain.IndexOutcome) {
	if s.metrics != nil {
		s.metrics.URLProcessed(string(outcome))
	}
}

// identities returns the document keys and normalised paths that identify
// rawURL together with its known variants.
func identities(rawURL string, variants []string) (keys, paths []string) {
	seenKey := map[string]bool{}
	seenPath := map[string]bool{}
	for _, u := range append([]string{rawURL}, variants...) {
		if u == "" {
			continue
		}
		for _, v := range domain.URLVariants(u) {
			if !seenKey[v] {
				seenKey[v] = true
				keys = append(keys, v)
			}
		}
		if p := domain.NormalizePath(u); !seenPath[p] {
			seenPath[p] = true
			paths = append(paths, p)
		}
	}
	return keys, paths
}
