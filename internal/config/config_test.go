package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, validate(cfg))

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, "gemini", cfg.AI.ProviderName())
	assert.Equal(t, defaultGeminiModel, cfg.AI.Model)
	assert.Equal(t, "API_KEY", cfg.AI.APIKeyEnv)
	assert.Equal(t, CompletionPolicyDays, cfg.Flow.CompletionPolicy)
	assert.Equal(t, 5, cfg.Flow.ObservationDays)
	assert.Equal(t, 2500*time.Millisecond, cfg.Flow.SplashDelay())
	assert.Equal(t, int64(10<<20), cfg.Flow.MaxUploadBytes())
	assert.Equal(t, 3, cfg.AI.BreakerThreshold)
	assert.Equal(t, 30*time.Second, cfg.AI.BreakerCooldown())
}

func TestLoadAppliesOnlyMissingDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
app:
  http_addr: ":9000"
ai:
  provider: openai
flow:
  splash_delay_ms: 0
  typing_delay_ms: 0
  completion_policy: MIN_TRADES
  min_trades: 4
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.App.HTTPAddr)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, defaultOpenAIModel, cfg.AI.Model)
	assert.Equal(t, defaultOpenAIURL, cfg.AI.APIURL)
	assert.Zero(t, cfg.Flow.SplashDelay())
	assert.Zero(t, cfg.Flow.TypingDelay())
	assert.Equal(t, CompletionPolicyMinTrades, cfg.Flow.CompletionPolicy)
	assert.Equal(t, 4, cfg.Flow.MinTrades)
}

func TestLoadIncludeChain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
ai:
  model: gemini-base
store:
  audit_path: /tmp/audit.db
`)
	path := writeFile(t, dir, "config.yaml", `
include:
  - base.yaml
ai:
  timeout_seconds: 12
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-base", cfg.AI.Model)
	assert.Equal(t, 12*time.Second, cfg.AI.Timeout())
	assert.Equal(t, "/tmp/audit.db", cfg.Store.AuditPath)
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "include: [b.yaml]\n")
	writeFile(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(filepath.Join(dir, "a.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "include cycle")
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"provider": "ai:\n  provider: claude\n",
		"policy":   "flow:\n  completion_policy: weekly\n",
		"delay":    "flow:\n  typing_delay_ms: -5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", body)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, found, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
}
