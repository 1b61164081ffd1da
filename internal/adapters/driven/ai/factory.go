// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/sercha-site/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-site/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/sercha-site/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-site/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Services holds the model backends the engine was built with.
// Either may be nil when its configuration is unusable; Warnings says why.
type Services struct {
	Embedding driven.EmbeddingService
	Generator driven.AnswerGenerator
	Warnings  []string
}

// Close releases all resources held by Services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.Generator != nil {
		_ = s.Generator.Close()
	}
}

// Create builds both backends. A backend that cannot be built is left nil
// with a warning, so commands that do not need it still run.
func Create(embedding, generator domain.AIConfig, prompts driven.PromptStore) *Services {
	out := &Services{}

	emb, err := CreateEmbeddingService(embedding)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("embedding disabled: %v", err))
	} else {
		out.Embedding = emb
	}

	gen, err := CreateGenerator(generator, prompts)
	if err != nil {
		out.Warnings = append(out.Warnings, fmt.Sprintf("answer generation disabled: %v", err))
	} else {
		out.Generator = gen
	}

	return out
}

// CreateEmbeddingService creates the embedding service for cfg.Provider.
func CreateEmbeddingService(cfg domain.AIConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case domain.ProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case domain.ProviderOpenAI, "":
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", domain.ErrInvalidInput, cfg.Provider)
	}
}

// CreateGenerator creates the answer generator for cfg.Provider.
// prompts may be nil.
func CreateGenerator(cfg domain.AIConfig, prompts driven.PromptStore) (driven.AnswerGenerator, error) {
	var gen interface {
		driven.AnswerGenerator
		driven.PromptStoreAware
	}

	switch cfg.Provider {
	case domain.ProviderOllama:
		gen = ollamallm.NewGenerator(ollamallm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})

	case domain.ProviderOpenAI, "":
		g, err := openaillm.NewGenerator(openaillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
		if err != nil {
			return nil, err
		}
		gen = g

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %s", domain.ErrInvalidInput, cfg.Provider)
	}

	if prompts != nil {
		gen.SetPromptStore(prompts)
	}
	return gen, nil
}

// Validate pings both backends and joins what failed.
func (s *Services) Validate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	var errs []error
	if s.Embedding == nil {
		errs = append(errs, domain.ErrEmbeddingUnavailable)
	} else if err := s.Embedding.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err))
	}
	if s.Generator == nil {
		errs = append(errs, domain.ErrGeneratorUnavailable)
	} else if err := s.Generator.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: service unreachable (%w)", domain.ErrGeneratorUnavailable, err))
	}
	return errors.Join(errs...)
}
