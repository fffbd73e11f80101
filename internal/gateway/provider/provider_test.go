package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"apex/internal/pkg/circuit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"google.golang.org/genai"
)

var cardsSchema = map[string]any{
	"type":     "array",
	"minItems": 3,
	"maxItems": 3,
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string"},
		},
		"required": []any{"title"},
	},
}

func staticKey(key string) func() (string, error) {
	return func() (string, error) { return key, nil }
}

func TestOpenAIComplete(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"items\":[]}"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIModelProvider("openai:test", &OpenAIChatClient{
		BaseURL:      srv.URL + "/v1/chat/completions/",
		Model:        "gpt-test",
		ExtraHeaders: map[string]string{"X-Extra": "yes"},
		Credential:   staticKey("sk-test"),
	})
	out, err := p.Generate(context.Background(), Request{
		Purpose: "report", Prompt: "hello", SchemaName: "cards", Schema: cardsSchema, Temperature: 0.3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"items":[]}`, out)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "json_schema", got.ResponseFormat["type"])
	js := got.ResponseFormat["json_schema"].(map[string]any)
	assert.Equal(t, "cards", js["name"])
	assert.Equal(t, "object", js["schema"].(map[string]any)["type"])
}

func TestOpenAIStrictSchemaSubset(t *testing.T) {
	var raw []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		raw, err = io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{}"}}]}`))
	}))
	defer srv.Close()

	schema := map[string]any{
		"type":     "array",
		"minItems": 3,
		"maxItems": 3,
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"title": map[string]any{"type": "string", "minLength": 1},
				"icon":  map[string]any{"type": "string", "description": "a single emoji"},
			},
			"required":             []any{"title", "icon"},
			"additionalProperties": false,
		},
	}
	c := &OpenAIChatClient{BaseURL: srv.URL, Model: "gpt-test", Credential: staticKey("sk-test")}
	_, err := c.Complete(context.Background(), Request{Prompt: "hi", SchemaName: "cards", Schema: schema})
	require.NoError(t, err)

	assert.True(t, gjson.GetBytes(raw, "response_format.json_schema.strict").Bool())
	sent := gjson.GetBytes(raw, "response_format.json_schema.schema")
	assert.NotContains(t, sent.Raw, "minLength")
	assert.NotContains(t, sent.Raw, "minItems")
	assert.NotContains(t, sent.Raw, "maxItems")
	card := sent.Get("properties.items.items")
	assert.Equal(t, "string", card.Get("properties.title.type").String())
	assert.Equal(t, "a single emoji", card.Get("properties.icon.description").String())
	assert.False(t, card.Get("additionalProperties").Bool())
	assert.Len(t, card.Get("required").Array(), 2)

	// the caller's schema is left untouched for local validation
	props := schema["items"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, 1, props["title"].(map[string]any)["minLength"])
}

func TestOpenAIErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
	}))
	defer srv.Close()

	calls := 0
	client := &OpenAIChatClient{BaseURL: srv.URL, Credential: func() (string, error) { calls++; return "k", nil }}
	_, err := client.Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=429: slow down")
	assert.Equal(t, 1, calls)
}

func TestMissingCredential(t *testing.T) {
	t.Setenv("APEX_TEST_KEY", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent without a key")
	}))
	defer srv.Close()

	openai := &OpenAIChatClient{BaseURL: srv.URL, Credential: EnvCredential("APEX_TEST_KEY")}
	_, err := openai.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingCredential)

	gemini := &GeminiClient{BaseURL: srv.URL, Model: "m", Credential: EnvCredential("APEX_TEST_KEY")}
	_, err = gemini.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, ErrMissingCredential)

	assert.False(t, HasCredential("APEX_TEST_KEY"))
	t.Setenv("APEX_TEST_KEY", "abc")
	assert.True(t, HasCredential("APEX_TEST_KEY"))
}

func TestGeminiComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-test:generateContent"), r.URL.Path)
		assert.Equal(t, "g-key", r.Header.Get("x-goog-api-key"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		cfg := body["generationConfig"].(map[string]any)
		assert.Equal(t, "application/json", cfg["responseMimeType"])
		assert.NotNil(t, cfg["responseSchema"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"[{\"title\":\"a\"}]"}]}}]}`))
	}))
	defer srv.Close()

	p := NewGeminiModelProvider("gemini:test", &GeminiClient{
		BaseURL:    srv.URL,
		Model:      "gemini-test",
		Credential: staticKey("g-key"),
	})
	out, err := p.Generate(context.Background(), Request{Prompt: "hi", Schema: cardsSchema})
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"a"}]`, out)
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(cardsSchema)
	assert.Equal(t, genai.TypeArray, s.Type)
	require.NotNil(t, s.MaxItems)
	assert.Equal(t, int64(3), *s.MaxItems)
	require.NotNil(t, s.Items)
	assert.Equal(t, genai.TypeObject, s.Items.Type)
	assert.Equal(t, []string{"title"}, s.Items.Required)
	assert.Equal(t, genai.TypeString, s.Items.Properties["title"].Type)
}

func TestBuildProviderFromConfig(t *testing.T) {
	p, err := BuildProviderFromConfig(ModelCfg{Provider: "Gemini", Model: "gemini-2.5-flash", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, "gemini:gemini-2.5-flash", p.ID())
	assert.IsType(t, &GeminiModelProvider{}, p)

	p, err = BuildProviderFromConfig(ModelCfg{ID: "main", Provider: "openai", APIURL: "http://x"})
	require.NoError(t, err)
	assert.Equal(t, "main", p.ID())

	_, err = BuildProviderFromConfig(ModelCfg{Provider: "claude"})
	assert.Error(t, err)
}

type failingProvider struct {
	calls int
	err   error
}

func (f *failingProvider) ID() string { return "fake:model" }

func (f *failingProvider) Generate(ctx context.Context, req Request) (string, error) {
	f.calls++
	return "", f.err
}

func TestGuardedProviderOpensAfterFailures(t *testing.T) {
	inner := &failingProvider{err: errors.New("status=503: overloaded")}
	cb := circuit.NewCircuitBreaker("fake", 2, time.Hour)
	cb.SetStateChangeHandler(func(string, circuit.State, circuit.State) {})
	g := NewGuardedModelProvider(inner, cb)

	for i := 0; i < 2; i++ {
		_, err := g.Generate(context.Background(), Request{})
		require.Error(t, err)
	}
	_, err := g.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, "fake:model", g.ID())
}

func TestGuardedProviderIgnoresMissingCredential(t *testing.T) {
	inner := &failingProvider{err: ErrMissingCredential}
	cb := circuit.NewCircuitBreaker("fake", 1, time.Hour)
	g := NewGuardedModelProvider(inner, cb)
	for i := 0; i < 3; i++ {
		_, err := g.Generate(context.Background(), Request{})
		assert.ErrorIs(t, err, ErrMissingCredential)
	}
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, circuit.StateClosed, cb.State())
}
