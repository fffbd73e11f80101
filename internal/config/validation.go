package config

import (
	"fmt"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if err := c.Flow.validate(); err != nil {
		return err
	}
	return nil
}

func (a *AppConfig) validate() error {
	if strings.TrimSpace(a.HTTPAddr) == "" {
		return fmt.Errorf("app.http_addr cannot be empty")
	}
	if a.SessionTTLMinutes <= 0 {
		return fmt.Errorf("app.session_ttl_minutes must be > 0")
	}
	return nil
}

func (a *AIConfig) validate() error {
	switch a.ProviderName() {
	case "gemini":
	case "openai":
		if strings.TrimSpace(a.APIURL) == "" {
			return fmt.Errorf("ai.api_url is required for provider openai")
		}
	default:
		return fmt.Errorf("ai.provider must be gemini or openai, got %q", a.Provider)
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("ai.model cannot be empty")
	}
	if strings.TrimSpace(a.APIKeyEnv) == "" {
		return fmt.Errorf("ai.api_key_env cannot be empty")
	}
	if a.TimeoutSeconds <= 0 {
		return fmt.Errorf("ai.timeout_seconds must be > 0")
	}
	if a.BreakerThreshold < 0 {
		return fmt.Errorf("ai.breaker_threshold must be >= 0")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be within [0, 2]")
	}
	return nil
}

func (f *FlowConfig) validate() error {
	if f.SplashDelayMS < 0 {
		return fmt.Errorf("flow.splash_delay_ms must be >= 0")
	}
	if f.TypingDelayMS < 0 {
		return fmt.Errorf("flow.typing_delay_ms must be >= 0")
	}
	switch f.CompletionPolicy {
	case CompletionPolicyDays:
		if f.ObservationDays <= 0 {
			return fmt.Errorf("flow.observation_days must be > 0")
		}
	case CompletionPolicyMinTrades:
		if f.MinTrades <= 0 {
			return fmt.Errorf("flow.min_trades must be > 0")
		}
	default:
		return fmt.Errorf("flow.completion_policy must be %q or %q, got %q",
			CompletionPolicyDays, CompletionPolicyMinTrades, f.CompletionPolicy)
	}
	if f.MaxUploadMB <= 0 {
		return fmt.Errorf("flow.max_upload_mb must be > 0")
	}
	return nil
}
