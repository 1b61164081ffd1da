package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/adapters/driven/llm"
	"github.com/custodia-labs/sercha-site/internal/core/domain"
)

func TestNewGenerator_Defaults(t *testing.T) {
	gen := NewGenerator(Config{})

	assert.Equal(t, DefaultModel, gen.ModelName())
	assert.Equal(t, DefaultBaseURL, gen.baseURL)
}

func TestGenerate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"De borrel is op vrijdag.\n"},"done":true}`))
	}))
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL, Model: "qwen2.5"})
	answer, err := gen.Generate(context.Background(), "Wanneer is de borrel?", "[1] Agenda")

	require.NoError(t, err)
	assert.Equal(t, "De borrel is op vrijdag.", answer)
	assert.Equal(t, "qwen2.5", got.Model)
	assert.False(t, got.Stream)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, llm.DefaultSystemPrompt, got.Messages[0].Content)
	assert.Contains(t, got.Messages[1].Content, "[1] Agenda")
	assert.Contains(t, got.Messages[1].Content, "Wanneer is de borrel?")
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "status", status: http.StatusNotFound, body: `model "x" not found`},
		{name: "error field", status: http.StatusOK, body: `{"error":"out of memory"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewGenerator(Config{BaseURL: server.URL}).Generate(context.Background(), "q", "c")

			assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
		})
	}
}

func TestGenerator_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
	}))
	defer server.Close()

	gen := NewGenerator(Config{BaseURL: server.URL})

	assert.NoError(t, gen.Ping(context.Background()))
	assert.NoError(t, gen.Close())
}
