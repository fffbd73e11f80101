package config

import (
	"strings"
	"time"
)

// Config 是 Apex 引导服务的主配置载体。
type Config struct {
	App    AppConfig    `toml:"app"`
	AI     AIConfig     `toml:"ai"`
	Flow   FlowConfig   `toml:"flow"`
	Prompt PromptConfig `toml:"prompt"`
	Store  StoreConfig  `toml:"store"`
}

type AppConfig struct {
	Env               string `toml:"env"`
	LogLevel          string `toml:"log_level"`
	HTTPAddr          string `toml:"http_addr"`
	LogPath           string `toml:"log_path"`
	LLMLog            string `toml:"llm_log_path"`
	LLMDump           bool   `toml:"llm_dump_payload"`
	SessionTTLMinutes int    `toml:"session_ttl_minutes"`
}

// SessionTTL 返回空闲会话的过期时间。
func (a AppConfig) SessionTTL() time.Duration {
	return time.Duration(a.SessionTTLMinutes) * time.Minute
}

// AIConfig 描述外部分析服务（生成式语言模型）的连接方式。
type AIConfig struct {
	Provider       string            `toml:"provider"` // "gemini" | "openai"
	Model          string            `toml:"model"`
	APIURL         string            `toml:"api_url"`
	APIKeyEnv      string            `toml:"api_key_env"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	Temperature    float64           `toml:"temperature"`
	Headers        map[string]string `toml:"headers"`
	// 连续失败 breaker_threshold 次后暂停调用 breaker_cooldown_seconds 秒；0 表示关闭熔断。
	BreakerThreshold       int `toml:"breaker_threshold"`
	BreakerCooldownSeconds int `toml:"breaker_cooldown_seconds"`
}

func (a AIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (a AIConfig) BreakerCooldown() time.Duration {
	return time.Duration(a.BreakerCooldownSeconds) * time.Second
}

// ProviderName 返回归一化后的 provider 名称。
func (a AIConfig) ProviderName() string {
	return strings.ToLower(strings.TrimSpace(a.Provider))
}

// 观察期完成策略，两者只能启用其一。
const (
	CompletionPolicyDays      = "days"
	CompletionPolicyMinTrades = "min_trades"
)

// FlowConfig 控制引导流程中的时间与完成门槛。
type FlowConfig struct {
	SplashDelayMS    int    `toml:"splash_delay_ms"`
	TypingDelayMS    int    `toml:"typing_delay_ms"`
	CompletionPolicy string `toml:"completion_policy"`
	ObservationDays  int    `toml:"observation_days"`
	MinTrades        int    `toml:"min_trades"`
	MaxUploadMB      int    `toml:"max_upload_mb"`
}

func (f FlowConfig) SplashDelay() time.Duration {
	return time.Duration(f.SplashDelayMS) * time.Millisecond
}

func (f FlowConfig) TypingDelay() time.Duration {
	return time.Duration(f.TypingDelayMS) * time.Millisecond
}

func (f FlowConfig) MaxUploadBytes() int64 {
	return int64(f.MaxUploadMB) << 20
}

// PromptConfig 指向可选的提示词模板文件（YAML），为空则使用内置模板。
type PromptConfig struct {
	TemplatesPath string `toml:"templates_path"`
}

// StoreConfig 描述分析调用审计日志的存放位置，为空表示不落盘。
type StoreConfig struct {
	AuditPath string `toml:"audit_path"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
