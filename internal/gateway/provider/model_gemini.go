package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"apex/internal/logger"

	"google.golang.org/genai"
)

// GeminiClient 通过 google.golang.org/genai 调用 generateContent，
// 并用 ResponseSchema 约束 JSON 输出。
type GeminiClient struct {
	BaseURL      string
	Model        string
	ExtraHeaders map[string]string
	Credential   func() (string, error)
	HTTPClient   *http.Client
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.Credential == nil {
		return "", ErrMissingCredential
	}
	key, err := c.Credential()
	if err != nil {
		return "", err
	}
	cc := &genai.ClientConfig{
		APIKey:     key,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.HTTPClient,
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		cc.HTTPOptions.BaseURL = base
	}
	if len(c.ExtraHeaders) > 0 {
		cc.HTTPOptions.Headers = http.Header{}
		for k, v := range c.ExtraHeaders {
			cc.HTTPOptions.Headers.Set(k, v)
		}
	}
	// key 在每次调用时读取，所以 client 也按调用创建
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return "", fmt.Errorf("create genai client: %w", err)
	}

	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(req.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if len(req.Schema) > 0 {
		gc.ResponseSchema = geminiSchema(req.Schema)
	}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	logger.Debugf("[AI] gemini generateContent model=%s purpose=%s key=%s", c.Model, req.Purpose, maskSecret(key))
	resp, err := client.Models.GenerateContent(ctx, c.Model, genai.Text(req.Prompt), gc)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty candidates")
	}
	return text, nil
}

// geminiSchema converts the JSON-schema subset used for structured output
// into genai's Schema. Keywords genai has no field for are dropped.
func geminiSchema(src map[string]any) *genai.Schema {
	if src == nil {
		return nil
	}
	out := &genai.Schema{}
	switch t, _ := src["type"].(string); t {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "string":
		out.Type = genai.TypeString
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	}
	if d, ok := src["description"].(string); ok {
		out.Description = d
	}
	if props, ok := src["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if child, ok := raw.(map[string]any); ok {
				out.Properties[name] = geminiSchema(child)
			}
		}
	}
	out.Required = stringList(src["required"])
	out.Enum = stringList(src["enum"])
	if items, ok := src["items"].(map[string]any); ok {
		out.Items = geminiSchema(items)
	}
	if n, ok := asInt64(src["minItems"]); ok {
		out.MinItems = genai.Ptr(n)
	}
	if n, ok := asInt64(src["maxItems"]); ok {
		out.MaxItems = genai.Ptr(n)
	}
	return out
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	}
	return 0, false
}

// GeminiModelProvider 实现 ModelProvider。
type GeminiModelProvider struct {
	id     string
	client *GeminiClient
}

func NewGeminiModelProvider(id string, client *GeminiClient) *GeminiModelProvider {
	return &GeminiModelProvider{id: id, client: client}
}

func (p *GeminiModelProvider) ID() string { return p.id }

func (p *GeminiModelProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.client.Complete(ctx, req)
}
