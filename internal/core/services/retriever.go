package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Ensure RetrieverService implements the interface.
var _ driving.Retriever = (*RetrieverService)(nil)

// chunksPerDocument is how many chunks of one document reach the context.
const chunksPerDocument = 2

// RetrieverService ranks stored chunks against a question with a blend of
// lexical, semantic and heuristic signals.
type RetrieverService struct {
	settings domain.Settings
	chunks   driven.ChunkStore
	embedder driven.EmbeddingService
	metrics  driven.Metrics
	now      func() time.Time
}

// NewRetrieverService creates a retriever. A nil embedder makes every
// retrieval fail with domain.ErrEmbeddingUnavailable.
func NewRetrieverService(
	settings domain.Settings,
	chunks driven.ChunkStore,
	embedder driven.EmbeddingService,
) *RetrieverService {
	return &RetrieverService{
		settings: settings,
		chunks:   chunks,
		embedder: embedder,
		now:      time.Now,
	}
}

// SetMetrics sets the metrics recorder.
func (s *RetrieverService) SetMetrics(metrics driven.Metrics) {
	s.metrics = metrics
}

// Retrieve returns grounded context and up to topK document sources.
func (s *RetrieverService) Retrieve(
	ctx context.Context, question string, topK int, hints domain.RetrievalHints,
) (*domain.Retrieval, error) {
	logger.Section("Retrieve")
	start := s.now()
	empty := &domain.Retrieval{Sources: []domain.SourceRef{}}

	question = strings.TrimSpace(question)
	if question == "" {
		return empty, nil
	}
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if topK <= 0 {
		topK = s.settings.TopK
	}

	c := extractConstraints(question)
	hint := categoryHint(question, c, s.settings.CategorySynonyms, s.settings.CategoryPriority)
	logger.Debug("Terms=%v phrases=%v numbers=%v exclusions=%v hint=%q",
		c.terms, c.phrases, c.numbers, c.exclusions, hint)

	candidates, err := s.candidates(ctx, c, hint)
	if err != nil {
		return nil, err
	}
	logger.Debug("Candidates: %d", len(candidates))
	if len(candidates) == 0 {
		s.recordRetrieval(0, start)
		return empty, nil
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	in := scoringInput{
		question:    question,
		constraints: c,
		hint:        hint,
		priority:    s.settings.CategoryPriority,
		queryVector: domain.Normalize(vector),
		hints:       hints,
		now:         s.now(),
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Raw > candidates[j].Raw
	})

	var ranked []scored
	for _, cand := range candidates {
		if !passesFilter(c, hint, cand.Chunk) {
			continue
		}
		sc := scoreCandidate(in, cand)
		if !aboveFloor(sc, s.settings.MinCosine) {
			continue
		}
		ranked = append(ranked, sc)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	logger.Debug("Ranked after filtering: %d", len(ranked))

	docs := groupByDocument(ranked, topK)
	if len(docs) == 0 {
		s.recordRetrieval(0, start)
		return empty, nil
	}

	result := &domain.Retrieval{
		Context: buildContext(docs, c.required(), s.settings.SnippetLength),
		Sources: make([]domain.SourceRef, len(docs)),
	}
	for i, d := range docs {
		best := d[0]
		result.Sources[i] = domain.SourceRef{
			Title: best.chunk.Title,
			URL:   best.chunk.URL,
			Score: math.Round(best.score*10000) / 10000,
		}
	}
	s.recordRetrieval(len(result.Sources), start)
	return result, nil
}

// candidates cascades from the hinted category to the whole index, then to
// the default category.
func (s *RetrieverService) candidates(ctx context.Context, c constraints, hint string) ([]domain.ScoredChunk, error) {
	if hint != "" {
		found, err := s.lookup(ctx, c, hint)
		if err != nil || len(found) > 0 {
			return found, err
		}
	}

	found, err := s.lookup(ctx, c, "")
	if err != nil || len(found) > 0 {
		return found, err
	}

	if def := s.settings.DefaultCategory; def != "" && def != hint {
		return s.lookup(ctx, c, def)
	}
	return nil, nil
}

// lookup tries full-text search, then substring search, then an unranked
// listing when category is set.
func (s *RetrieverService) lookup(ctx context.Context, c constraints, category string) ([]domain.ScoredChunk, error) {
	q := domain.ChunkQuery{
		Category: category,
		Terms:    c.terms,
		Phrases:  c.phrases,
		Limit:    s.settings.CandidateLimit,
	}

	if q.HasText() {
		found, err := s.chunks.FullTextSearch(ctx, q)
		if err != nil {
			logger.Warn("Full-text search failed, using substring search: %v", err)
		} else if len(found) > 0 {
			return found, nil
		}

		found, err = s.chunks.SubstringSearch(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("substring search: %w", err)
		}
		if len(found) > 0 {
			return found, nil
		}
	}

	if category == "" {
		return nil, nil
	}
	found, err := s.chunks.ListByCategory(ctx, category, s.settings.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("list category %s: %w", category, err)
	}
	return found, nil
}

func (s *RetrieverService) recordRetrieval(sources int, start time.Time) {
	if s.metrics != nil {
		s.metrics.RetrievalCompleted(sources, s.now().Sub(start))
	}
}

// groupByDocument keeps the best chunks of each document, in ranked order,
// and returns at most topK documents.
func groupByDocument(ranked []scored, topK int) [][]scored {
	index := map[string]int{}
	var docs [][]scored
	for _, sc := range ranked {
		i, ok := index[sc.chunk.DocKey]
		if !ok {
			if len(docs) == topK {
				continue
			}
			index[sc.chunk.DocKey] = len(docs)
			docs = append(docs, []scored{sc})
			continue
		}
		if len(docs[i]) < chunksPerDocument {
			docs[i] = append(docs[i], sc)
		}
	}
	return docs
}

// buildContext renders one numbered block per document with its snippets.
func buildContext(docs [][]scored, needles []string, snippetLength int) string {
	var b strings.Builder
	for i, d := range docs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "[%d] %s\nURL: %s\n", i+1, d[0].chunk.Title, d[0].chunk.URL)
		for _, sc := range d {
			b.WriteString(snippet(sc.chunk.Content, needles, snippetLength))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
