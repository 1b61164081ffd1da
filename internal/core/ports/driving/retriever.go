package driving

import (
	"context"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

// Retriever assembles grounded context for a question.
type Retriever interface {
	// Retrieve returns context and up to topK document sources.
	// topK <= 0 uses the configured default. An empty Context means nothing qualified.
	Retrieve(ctx context.Context, question string, topK int, hints domain.RetrievalHints) (*domain.Retrieval, error)
}

// Answerer answers questions end to end: cache, retrieval, generation.
type Answerer interface {
	Answer(ctx context.Context, question string) (*domain.Answer, error)
}
