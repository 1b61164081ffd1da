package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-site/internal/core/domain"
	"github.com/custodia-labs/sercha-site/internal/core/ports/driven"
)

type fixedPrompts map[string]string

func (p fixedPrompts) Load(name string) (string, error) { return p[name], nil }
func (p fixedPrompts) Reload()                          {}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gen, err := NewGenerator(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)
	return gen
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(Config{APIKey: "  "})
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)

	gen, err := NewGenerator(Config{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, gen.ModelName())
	assert.Equal(t, DefaultMaxTokens, gen.maxTokens)
}

func TestGenerate_SendsSystemAndUserMessages(t *testing.T) {
	var got chatCompletionRequest
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Er is één vacature.  "},"finish_reason":"stop"}]}`))
	})
	gen.SetPromptStore(fixedPrompts{
		driven.PromptAnswerSystem: "Kort antwoorden.",
		driven.PromptAnswerUser:   "C=%s Q=%s",
	})

	answer, err := gen.Generate(context.Background(), "Welke vacatures?", "[1] Vacatures")

	require.NoError(t, err)
	assert.Equal(t, "Er is één vacature.", answer)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Kort antwoorden.", got.Messages[0].Content)
	assert.Equal(t, "C=[1] Vacatures Q=Welke vacatures?", got.Messages[1].Content)
	assert.Equal(t, DefaultModel, got.Model)
	assert.InDelta(t, DefaultTemperature, got.Temperature, 1e-9)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "api error", status: http.StatusTooManyRequests, body: `{"error":{"message":"rate limited","type":"rate"}}`},
		{name: "non-json error", status: http.StatusBadGateway, body: `upstream down`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "bare status", status: http.StatusInternalServerError, body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := gen.Generate(context.Background(), "q", "c")

			assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)
		})
	}
}

func TestGenerator_Ping(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, gen.Ping(context.Background()))
	assert.NoError(t, gen.Close())
}
