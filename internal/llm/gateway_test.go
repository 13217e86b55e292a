package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/corpusd/internal/config"
)

type stubProvider struct {
	name  string
	fail  bool
	calls int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Generate(ctx context.Context, prompt string) (string, error) {
	s.calls++
	if s.fail {
		return "", &Error{Provider: s.name, Err: errors.New("provider down")}
	}
	return "answer from " + s.name, nil
}

func TestGatewayFirstProviderWins(t *testing.T) {
	primary := &stubProvider{name: "primary"}
	secondary := &stubProvider{name: "secondary"}
	g := NewGatewayWithProviders([]Provider{primary, secondary}, 0)

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer from primary", out)
	assert.Equal(t, 0, secondary.calls)
}

func TestGatewayFallsBack(t *testing.T) {
	primary := &stubProvider{name: "primary", fail: true}
	secondary := &stubProvider{name: "secondary"}
	g := NewGatewayWithProviders([]Provider{primary, secondary}, 0)

	out, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "answer from secondary", out)
	assert.Equal(t, 1, primary.calls)
}

func TestGatewayAllProvidersFail(t *testing.T) {
	g := NewGatewayWithProviders([]Provider{
		&stubProvider{name: "primary", fail: true},
		&stubProvider{name: "secondary", fail: true},
	}, 0)

	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)

	var genErr *Error
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "secondary", genErr.Provider)
}

func TestGatewayNoProvidersConfigured(t *testing.T) {
	g := NewGateway(config.GenerationConfig{Providers: []string{"openai"}})

	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)

	var genErr *Error
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "none", genErr.Provider)
}

func TestGatewaySkipsProvidersWithoutKeys(t *testing.T) {
	g := NewGateway(config.GenerationConfig{
		Providers:    []string{"openai", "anthropic"},
		AnthropicKey: "sk-test",
	})
	assert.Equal(t, []string{"anthropic"}, g.Providers())
}

func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
			Stream bool   `json:"stream"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)
		assert.Equal(t, "the prompt", req.Prompt)

		json.NewEncoder(w).Encode(map[string]any{"response": "local answer"})
	}))
	defer srv.Close()

	g := NewGateway(config.GenerationConfig{
		Providers: []string{"ollama"},
		OllamaURL: srv.URL,
		Timeout:   5 * time.Second,
	})

	out, err := g.Generate(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "local answer", out)
}

func TestGatewayTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"response": "too late"})
	}))
	defer srv.Close()

	g := NewGateway(config.GenerationConfig{
		Providers: []string{"ollama"},
		OllamaURL: srv.URL,
		Timeout:   20 * time.Millisecond,
	})

	_, err := g.Generate(context.Background(), "prompt")
	require.Error(t, err)
}
