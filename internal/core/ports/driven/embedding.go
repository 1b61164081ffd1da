package driven

import "context"

// EmbeddingService turns chunk text and questions into vectors.
// Indexing and retrieval must use the same model: a vector of another
// width cannot be compared with what is stored.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per text, in order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	Dimensions() int
	ModelName() string

	// Ping makes a cheap request so bad credentials fail at startup.
	Ping(ctx context.Context) error
	Close() error
}
