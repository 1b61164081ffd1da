// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// Config for NewEmbeddingService. Every field has a default.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions must match the model; Ollama does not report it.
	Dimensions int
}

// EmbeddingService calls POST {base}/api/embed.
type EmbeddingService struct {
	http       *http.Client
	baseURL    string
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	// Truncate lets an over-long chunk through instead of failing the batch.
	Truncate bool `json:"truncate"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	svc := &EmbeddingService{
		http:       &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
	}
	if cfg.BaseURL != "" {
		svc.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Model != "" {
		svc.model = cfg.Model
	}
	if cfg.Timeout > 0 {
		svc.http.Timeout = cfg.Timeout
	}
	if cfg.Dimensions > 0 {
		svc.dimensions = cfg.Dimensions
	}
	return svc
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("ollama: %w: empty response", domain.ErrEmbeddingUnavailable)
	}
	return vecs[0], nil
}

// EmbedBatch sends all texts in one request. Missing vectors stay nil.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(embedRequest{Model: s.model, Input: texts, Truncate: true})
	if err != nil {
		return nil, fmt.Errorf("ollama: encode request: %w", err)
	}
	raw, err := s.call(ctx, http.MethodPost, "/api/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	var resp embedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("ollama: decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("ollama: %w: %s", domain.ErrEmbeddingUnavailable, resp.Error)
	}

	vecs := make([][]float32, len(texts))
	for i := range min(len(vecs), len(resp.Embeddings)) {
		vec := make([]float32, len(resp.Embeddings[i]))
		for j, f := range resp.Embeddings[i] {
			vec[j] = float32(f)
		}
		vecs[i] = vec
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int   { return s.dimensions }
func (s *EmbeddingService) ModelName() string { return s.model }
func (s *EmbeddingService) Close() error      { return nil }

// Ping lists local models, which needs no inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	if _, err := s.call(ctx, http.MethodGet, "/api/tags", http.NoBody); err != nil {
		return fmt.Errorf("ollama ping: %w", err)
	}
	return nil
}

// call returns the body of a 200 response.
func (s *EmbeddingService) call(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
