package config

import (
	"strings"
)

// 默认值常量
const (
	defaultAppEnv          = "dev"
	defaultAppLogLevel     = "info"
	defaultAppHTTPAddr     = ":8080"
	defaultSessionTTL      = 240
	defaultAIProvider      = "gemini"
	defaultGeminiModel     = "gemini-2.5-flash"
	defaultOpenAIModel     = "gpt-4o-mini"
	defaultOpenAIURL       = "https://api.openai.com/v1"
	defaultAIKeyEnv        = "API_KEY"
	defaultAITimeout       = 60
	defaultAITemperature   = 0.7
	defaultBreakerCooldown = 30
	defaultBreakerLimit    = 3
	defaultSplashDelayMS   = 2500
	defaultTypingDelayMS   = 1500
	defaultObservationDays = 5
	defaultMinTrades       = 3
	defaultMaxUploadMB     = 10
)

// Default 返回不读取任何文件时的完整配置。
func Default() *Config {
	var cfg Config
	cfg.applyDefaults(make(keySet))
	return &cfg
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Flow.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.session_ttl_minutes", &a.SessionTTLMinutes, defaultSessionTTL),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("ai.provider", &a.Provider, defaultAIProvider),
		stringFieldDefault("ai.api_key_env", &a.APIKeyEnv, defaultAIKeyEnv),
		intFieldDefault("ai.timeout_seconds", &a.TimeoutSeconds, defaultAITimeout),
		intFieldDefault("ai.breaker_threshold", &a.BreakerThreshold, defaultBreakerLimit),
		intFieldDefault("ai.breaker_cooldown_seconds", &a.BreakerCooldownSeconds, defaultBreakerCooldown),
		fieldDefault{
			key:   "ai.temperature",
			need:  func() bool { return a.Temperature <= 0 },
			apply: func() { a.Temperature = defaultAITemperature },
		},
	)
	// model/api_url 的默认值取决于 provider，因此放在 provider 之后。
	switch a.ProviderName() {
	case "openai":
		applyFieldDefaults(keys,
			stringFieldDefault("ai.model", &a.Model, defaultOpenAIModel),
			stringFieldDefault("ai.api_url", &a.APIURL, defaultOpenAIURL),
		)
	default:
		applyFieldDefaults(keys, stringFieldDefault("ai.model", &a.Model, defaultGeminiModel))
	}
}

func (f *FlowConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		// 0 是合法的延迟值，只有未配置时才写入默认值。
		fieldDefault{
			key:   "flow.splash_delay_ms",
			need:  func() bool { return f.SplashDelayMS == 0 },
			apply: func() { f.SplashDelayMS = defaultSplashDelayMS },
		},
		fieldDefault{
			key:   "flow.typing_delay_ms",
			need:  func() bool { return f.TypingDelayMS == 0 },
			apply: func() { f.TypingDelayMS = defaultTypingDelayMS },
		},
		stringFieldDefault("flow.completion_policy", &f.CompletionPolicy, CompletionPolicyDays),
		intFieldDefault("flow.observation_days", &f.ObservationDays, defaultObservationDays),
		intFieldDefault("flow.min_trades", &f.MinTrades, defaultMinTrades),
		intFieldDefault("flow.max_upload_mb", &f.MaxUploadMB, defaultMaxUploadMB),
	)
	f.CompletionPolicy = strings.ToLower(strings.TrimSpace(f.CompletionPolicy))
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
