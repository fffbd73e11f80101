package provider

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"apex/internal/logger"
)

type ModelCfg struct {
	ID, Provider, APIURL, Model string
	APIKeyEnv                   string
	Headers                     map[string]string
	Timeout                     time.Duration
}

// BuildProviderFromConfig returns the single analysis provider. A missing
// key is only warned about here; calls fail with ErrMissingCredential.
func BuildProviderFromConfig(m ModelCfg) (ModelProvider, error) {
	kind := strings.ToLower(strings.TrimSpace(m.Provider))
	id := strings.TrimSpace(m.ID)
	if id == "" {
		id = fmt.Sprintf("%s:%s", kind, strings.TrimSpace(m.Model))
	}
	env := strings.TrimSpace(m.APIKeyEnv)
	if env == "" {
		env = "API_KEY"
	}
	if !HasCredential(env) {
		logger.Warnf("环境变量 %s 未设置，报告与挑战生成将返回配置错误", env)
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	switch kind {
	case "openai":
		client := &OpenAIChatClient{
			BaseURL:      m.APIURL,
			Model:        m.Model,
			Timeout:      timeout,
			ExtraHeaders: m.Headers,
			Credential:   EnvCredential(env),
		}
		return NewOpenAIModelProvider(id, client), nil
	case "gemini":
		client := &GeminiClient{
			BaseURL:      m.APIURL,
			Model:        m.Model,
			ExtraHeaders: m.Headers,
			Credential:   EnvCredential(env),
			HTTPClient:   &http.Client{Timeout: timeout},
		}
		return NewGeminiModelProvider(id, client), nil
	default:
		return nil, fmt.Errorf("unsupported ai.provider %q", m.Provider)
	}
}
