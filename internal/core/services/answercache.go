package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Ensure AnswerCacheService implements the interface.
var _ driving.AnswerCache = (*AnswerCacheService)(nil)

// Cache lookup results reported to metrics.
const (
	cacheExact = "exact"
	cacheFuzzy = "fuzzy"
	cacheMiss  = "miss"
)

// AnswerCacheService finds earlier answers for identical or nearly identical questions.
type AnswerCacheService struct {
	store      driven.CacheStore
	similarity float64
	window     int
	limit      int
	metrics    driven.Metrics
	now        func() time.Time
}

// NewAnswerCacheService creates a cache over store using the cache settings.
func NewAnswerCacheService(settings domain.Settings, store driven.CacheStore) *AnswerCacheService {
	return &AnswerCacheService{
		store:      store,
		similarity: settings.CacheSimilarity,
		window:     settings.CacheLengthWindow,
		limit:      settings.CacheCandidateLimit,
		now:        time.Now,
	}
}

// SetMetrics sets the metrics recorder.
func (s *AnswerCacheService) SetMetrics(metrics driven.Metrics) {
	s.metrics = metrics
}

// Find returns the entry for question by exact hash, else the first recent
// entry of similar length that is similar enough. Returns nil if none.
func (s *AnswerCacheService) Find(ctx context.Context, question string) (*domain.CacheEntry, error) {
	normalized := domain.NormalizeQuestion(question)
	if normalized == "" {
		return nil, nil
	}

	entry, err := s.store.GetByHash(ctx, domain.QuestionHash(normalized))
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry != nil {
		s.hit(ctx, entry, cacheExact)
		return entry, nil
	}

	length := len([]rune(normalized))
	candidates, err := s.store.ListByLength(ctx, length-s.window, length+s.window, s.limit)
	if err != nil {
		return nil, fmt.Errorf("cache candidates: %w", err)
	}
	for i := range candidates {
		if similarityPercent(normalized, candidates[i].Normalized) >= s.similarity {
			entry := candidates[i]
			s.hit(ctx, &entry, cacheFuzzy)
			return &entry, nil
		}
	}

	s.recordLookup(cacheMiss)
	return nil, nil
}

func (s *AnswerCacheService) hit(ctx context.Context, entry *domain.CacheEntry, kind string) {
	at := s.now().UTC()
	if err := s.store.RecordHit(ctx, entry.ID, at); err != nil {
		logger.Warn("Failed to record cache hit: %v", err)
	} else {
		entry.HitCount++
		entry.LastHitAt = &at
	}
	logger.Debug("Cache %s hit: %s", kind, entry.ID)
	s.recordLookup(kind)
}

func (s *AnswerCacheService) recordLookup(kind string) {
	if s.metrics != nil {
		s.metrics.CacheLookup(kind)
	}
}

// Store saves answer under the normalised question, replacing any earlier entry.
func (s *AnswerCacheService) Store(ctx context.Context, question, answer string, sources []domain.SourceRef) error {
	normalized := domain.NormalizeQuestion(question)
	if normalized == "" {
		return fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	entry := &domain.CacheEntry{
		ID:         uuid.NewString(),
		Question:   question,
		Normalized: normalized,
		Hash:       domain.QuestionHash(normalized),
		Answer:     answer,
		Sources:    domain.DecodeSources(domain.EncodeSources(sources)),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("cache store: %w", err)
	}
	return nil
}

// PurgeBySourceURLs deletes entries citing any of urls or paths.
func (s *AnswerCacheService) PurgeBySourceURLs(ctx context.Context, urls, paths []string) (int, error) {
	var fragments, canonical []string
	for _, u := range urls {
		if strings.TrimSpace(u) == "" {
			continue
		}
		u = domain.CanonicalURL(u)
		canonical = append(canonical, u)
		fragments = append(fragments, domain.SourceFragments(u)...)
	}
	wantPaths := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		p = domain.NormalizePath(p)
		wantPaths = append(wantPaths, p)
		fragments = append(fragments, domain.SourceFragments(p)...)
	}
	if len(fragments) == 0 {
		return 0, nil
	}

	candidates, err := s.store.ListMentioning(ctx, fragments)
	if err != nil {
		return 0, fmt.Errorf("cache purge lookup: %w", err)
	}

	var ids []string
	for _, e := range candidates {
		if cites(e, canonical, wantPaths) {
			ids = append(ids, e.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.Delete(ctx, ids...)
}

// cites reports whether any source of e matches a URL or path.
func cites(e domain.CacheEntry, urls, paths []string) bool {
	for _, src := range e.Sources {
		if slices.Contains(urls, domain.CanonicalURL(src.URL)) {
			return true
		}
		if slices.Contains(paths, domain.NormalizePath(src.URL)) {
			return true
		}
	}
	return false
}

// Delete removes entries by ID.
func (s *AnswerCacheService) Delete(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.Delete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("cache delete: %w", err)
	}
	return n, nil
}

// Clear removes every entry.
func (s *AnswerCacheService) Clear(ctx context.Context) (int, error) {
	n, err := s.store.Clear(ctx)
	if err != nil {
		return 0, fmt.Errorf("cache clear: %w", err)
	}
	return n, nil
}
