package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-site/internal/logger"
)

// Ensure AnswerService implements the interface.
var _ driving.Answerer = (*AnswerService)(nil)

// AnswerService answers questions: cache, then retrieval, then generation.
type AnswerService struct {
	cache     driving.AnswerCache
	retriever driving.Retriever
	generator driven.AnswerGenerator
	fallback  string
}

// NewAnswerService creates an answer orchestrator. The generator may be nil:
// cache hits and the fallback still work, anything else returns
// domain.ErrGeneratorUnavailable.
func NewAnswerService(
	settings domain.Settings,
	cache driving.AnswerCache,
	retriever driving.Retriever,
	generator driven.AnswerGenerator,
) *AnswerService {
	return &AnswerService{
		cache:     cache,
		retriever: retriever,
		generator: generator,
		fallback:  settings.FallbackAnswer,
	}
}

// Answer returns a cached answer when one matches, otherwise retrieves
// context and generates a fresh answer, which is then cached.
// Empty retrieval yields the fallback answer, which is never cached.
func (s *AnswerService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}

	if s.cache != nil {
		entry, err := s.cache.Find(ctx, question)
		if err != nil {
			logger.Warn("Answer cache lookup failed: %v", err)
		} else if entry != nil {
			return &domain.Answer{
				Question: question,
				Text:     entry.Answer,
				Sources:  entry.Sources,
				Cached:   true,
			}, nil
		}
	}

	retrieval, err := s.retriever.Retrieve(ctx, question, 0, domain.RetrievalHints{})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	if retrieval.Empty() {
		return &domain.Answer{
			Question: question,
			Text:     s.fallback,
			Sources:  []domain.SourceRef{},
			Fallback: true,
		}, nil
	}

	if s.generator == nil {
		return nil, domain.ErrGeneratorUnavailable
	}
	text, err := s.generator.Generate(ctx, question, retrieval.Context)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	text = strings.TrimSpace(text)

	if s.cache != nil && text != "" {
		if err := s.cache.Store(ctx, question, text, retrieval.Sources); err != nil {
			logger.Warn("Failed to cache answer: %v", err)
		}
	}

	return &domain.Answer{
		Question: question,
		Text:     text,
		Sources:  retrieval.Sources,
	}, nil
}
