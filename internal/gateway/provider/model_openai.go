package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"apex/internal/logger"
)

// 中文说明：
// OpenAIChatClient：兼容 OpenAI / DeepSeek / Qwen 的聊天补全接口（/v1/chat/completions），
// 通过 response_format=json_schema 约束输出结构。

type OpenAIChatClient struct {
	BaseURL      string
	Model        string
	Timeout      time.Duration
	ExtraHeaders map[string]string
	Credential   func() (string, error)
	HTTPClient   *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

func (c *OpenAIChatClient) endpoint() string {
	// 规范化 BaseURL，避免用户把完整的 /chat/completions 也写进了配置导致重复路径
	url := strings.TrimSpace(c.BaseURL)
	if url == "" {
		url = "https://api.openai.com/v1"
	}
	url = strings.TrimRight(url, "/")
	url = strings.TrimSuffix(url, "/chat/completions")
	return url + "/chat/completions"
}

// Complete sends one chat completion. There is no retry: a failed call is
// surfaced to the caller as is.
func (c *OpenAIChatClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.Credential == nil {
		return "", ErrMissingCredential
	}
	key, err := c.Credential()
	if err != nil {
		return "", err
	}
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})
	body := chatRequest{Model: c.Model, Messages: messages, Temperature: req.Temperature}
	if len(req.Schema) > 0 {
		name := req.SchemaName
		if name == "" {
			name = "response"
		}
		body.ResponseFormat = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": openAISchema(req.Schema),
				"strict": true,
			},
		}
	}
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	url := c.endpoint()

	// 打印请求（授权头做掩码）
	hlog := map[string]string{"Content-Type": "application/json", "Authorization": "Bearer " + maskSecret(key)}
	for k, v := range c.ExtraHeaders {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "key") || strings.Contains(lk, "token") || strings.Contains(lk, "auth") {
			v = maskSecret(v)
		}
		hlog[k] = v
	}
	logger.Debugf("[AI] 请求: POST %s, headers=%v, bytes=%d", url, hlog, len(b))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+key)
	for k, v := range c.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var eresp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&eresp)
		msg := strings.TrimSpace(eresp.Error.Message)
		if msg == "" {
			msg = resp.Status
		}
		return "", fmt.Errorf("status=%d: %s", resp.StatusCode, msg)
	}
	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return r.Choices[0].Message.Content, nil
}

func (c *OpenAIChatClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// strict 模式只接受 JSON Schema 的一个子集；长度、数量类约束只保留在本地校验中。
var openAISchemaKeys = map[string]bool{
	"type":                 true,
	"description":          true,
	"properties":           true,
	"required":             true,
	"additionalProperties": true,
	"items":                true,
	"enum":                 true,
	"const":                true,
}

// openAISchema strips keywords strict json_schema mode rejects and wraps a
// top-level array schema in an object, which strict mode requires.
func openAISchema(schema map[string]any) map[string]any {
	clean := strictSubset(schema)
	if t, _ := clean["type"].(string); t == "object" {
		return clean
	}
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"items": clean},
		"required":             []string{"items"},
		"additionalProperties": false,
	}
}

func strictSubset(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if !openAISchemaKeys[k] {
			continue
		}
		switch k {
		case "properties":
			props, ok := v.(map[string]any)
			if !ok {
				continue
			}
			cleaned := make(map[string]any, len(props))
			for name, raw := range props {
				if child, ok := raw.(map[string]any); ok {
					cleaned[name] = strictSubset(child)
				}
			}
			out[k] = cleaned
		case "items":
			if child, ok := v.(map[string]any); ok {
				out[k] = strictSubset(child)
			}
		default:
			out[k] = v
		}
	}
	return out
}

// OpenAIModelProvider 实现 ModelProvider。
type OpenAIModelProvider struct {
	id     string
	client *OpenAIChatClient
}

func NewOpenAIModelProvider(id string, client *OpenAIChatClient) *OpenAIModelProvider {
	return &OpenAIModelProvider{id: id, client: client}
}

func (p *OpenAIModelProvider) ID() string { return p.id }

func (p *OpenAIModelProvider) Generate(ctx context.Context, req Request) (string, error) {
	return p.client.Complete(ctx, req)
}
