package driven

import "context"

// AnswerGenerator turns retrieved context into a natural-language answer.
// It is called by the answer orchestrator only, never by the retriever.
//
// Implementations may include:
//   - OpenAI-compatible chat completion APIs
//   - Ollama (local models)
type AnswerGenerator interface {
	// Generate answers question using only the retrieved context.
	Generate(ctx context.Context, question, retrieved string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
