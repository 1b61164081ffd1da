// Package openai embeds text with the OpenAI embeddings API or any server
// that speaks the same protocol.
package openai

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
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	// maxBatch caps the inputs per request.
	maxBatch = 96

	fallbackDimensions = 1536
)

var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config for NewEmbeddingService. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions shortens text-embedding-3-* vectors. Other models ignore it.
	Dimensions int

	HTTPClient *http.Client
}

// EmbeddingService calls POST {base}/embeddings.
type EmbeddingService struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewEmbeddingService fails with domain.ErrMissingCredentials without a key.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("openai embeddings: %w: API key is required", domain.ErrMissingCredentials)
	}

	svc := &EmbeddingService{
		http:       cfg.HTTPClient,
		baseURL:    strings.TrimRight(orDefault(cfg.BaseURL, DefaultBaseURL), "/"),
		apiKey:     cfg.APIKey,
		model:      orDefault(cfg.Model, DefaultModel),
		dimensions: cfg.Dimensions,
	}
	if svc.http == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		svc.http = &http.Client{Timeout: timeout}
	}
	if svc.dimensions <= 0 {
		if d, ok := knownDimensions[svc.model]; ok {
			svc.dimensions = d
		} else {
			svc.dimensions = fallbackDimensions
		}
	}
	return svc, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("openai embeddings: %w: empty response", domain.ErrEmbeddingUnavailable)
	}
	return vecs[0], nil
}

// EmbedBatch sends at most maxBatch texts per request. The result is in
// input order; a vector the API left out stays nil.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for len(texts) > 0 {
		n := min(maxBatch, len(texts))
		vecs, err := s.request(ctx, texts[:n])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
		texts = texts[n:]
	}
	return out, nil
}

func (s *EmbeddingService) request(ctx context.Context, texts []string) ([][]float32, error) {
	body := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		body.Dimensions = s.dimensions
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: encode request: %w", err)
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := s.do(req)
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	var resp embeddingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("openai embeddings: decode response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("openai embeddings: %w: %s", domain.ErrEmbeddingUnavailable, resp.Error.Message)
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index >= 0 && d.Index < len(vecs) {
			vecs[d.Index] = toFloat32(d.Embedding)
		}
	}
	return vecs, nil
}

func (s *EmbeddingService) Dimensions() int   { return s.dimensions }
func (s *EmbeddingService) ModelName() string { return s.model }
func (s *EmbeddingService) Close() error      { return nil }

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	req, err := s.newRequest(ctx, http.MethodGet, "/models", http.NoBody)
	if err != nil {
		return err
	}
	if _, err := s.do(req); err != nil {
		return fmt.Errorf("openai ping: %w", err)
	}
	return nil
}

func (s *EmbeddingService) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("openai: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return req, nil
}

// do returns the body of a 2xx response. Anything else is an error
// carrying the API's message.
func (s *EmbeddingService) do(req *http.Request) ([]byte, error) {
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, errorMessage(raw))
	}
	return raw, nil
}

func errorMessage(raw []byte) string {
	var wrapped struct {
		Error apiError `json:"error"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(raw))
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
