package app

import (
	"context"
	"fmt"
	"strings"

	apxcfg "apex/internal/config"
	"apex/internal/gateway/provider"
	"apex/internal/journal"
	"apex/internal/logger"
	"apex/internal/prompt"
	"apex/internal/store"
	"apex/internal/synthesis"
	onboardinghttp "apex/internal/transport/http/onboarding"
)

type AppBuilder struct {
	cfg *apxcfg.Config

	promptRegistryFn func(string) (*prompt.Registry, error)
	modelProviderFn  func(apxcfg.AIConfig) (provider.ModelProvider, error)
	auditStoreFn     func(apxcfg.StoreConfig) (store.AuditRepository, error)
	httpServerFn     func(*apxcfg.Config, onboardinghttp.Synthesizer, store.AuditRepository) (*onboardinghttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithModelProvider 替换模型 provider 的构建逻辑（测试用）。
func WithModelProvider(fn func(apxcfg.AIConfig) (provider.ModelProvider, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.modelProviderFn = fn
		}
	}
}

func WithAuditStore(fn func(apxcfg.StoreConfig) (store.AuditRepository, error)) AppBuilderOption {
	return func(b *AppBuilder) {
		if fn != nil {
			b.auditStoreFn = fn
		}
	}
}

func NewAppBuilder(cfg *apxcfg.Config, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:              cfg,
		promptRegistryFn: prompt.NewRegistry,
		modelProviderFn:  buildModelProvider,
		auditStoreFn:     buildAuditStore,
		httpServerFn:     buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg
	logger.SetLevel(cfg.App.LogLevel)

	prompts, err := b.promptRegistryFn(cfg.Prompt.TemplatesPath)
	if err != nil {
		return nil, fmt.Errorf("加载提示词模板失败: %w", err)
	}
	prompts.OnChange(func(s prompt.Snapshot) {
		logger.Infof("提示词模板已重新加载: version=%d source=%s", s.Version, s.Source)
	})

	model, err := b.modelProviderFn(cfg.AI)
	if err != nil {
		return nil, err
	}

	audit, err := b.auditStoreFn(cfg.Store)
	if err != nil {
		return nil, err
	}

	opts := synthesis.Options{
		Temperature: cfg.AI.Temperature,
		Timeout:     cfg.AI.Timeout(),
	}
	if audit != nil {
		opts.Auditor = audit
	}
	svc := synthesis.NewService(model, prompts, opts)

	server, err := b.httpServerFn(cfg, svc, audit)
	if err != nil {
		if audit != nil {
			_ = audit.Close()
		}
		return nil, err
	}

	return &App{
		cfg:     cfg,
		http:    server,
		prompts: prompts,
		audit:   audit,
		Summary: buildSummary(cfg, model, prompts),
	}, nil
}

func buildSummary(cfg *apxcfg.Config, model provider.ModelProvider, prompts *prompt.Registry) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr:     cfg.App.HTTPAddr,
		Provider:     model.ID(),
		Credential:   strings.TrimSpace(cfg.AI.APIKeyEnv),
		Policy:       cfg.Flow.CompletionPolicy,
		Days:         cfg.Flow.ObservationDays,
		MinTrades:    cfg.Flow.MinTrades,
		SessionTTL:   cfg.App.SessionTTL(),
		AuditPath:    cfg.Store.AuditPath,
		PromptSource: "builtin",
	}
	if prompts != nil {
		snap := prompts.Snapshot()
		if snap.Source != "" {
			s.PromptSource = snap.Source
		}
		s.Prompts = prompts.Names()
	}
	return s
}

func buildHTTPServer(cfg *apxcfg.Config, synth onboardinghttp.Synthesizer, audit store.AuditRepository) (*onboardinghttp.Server, error) {
	policy, err := journal.ParsePolicy(cfg.Flow.CompletionPolicy, cfg.Flow.ObservationDays, cfg.Flow.MinTrades)
	if err != nil {
		return nil, err
	}
	server, err := onboardinghttp.NewServer(onboardinghttp.ServerConfig{
		Addr:           cfg.App.HTTPAddr,
		Synth:          synth,
		Audit:          audit,
		Policy:         policy,
		SplashDelay:    cfg.Flow.SplashDelay(),
		TypingDelay:    cfg.Flow.TypingDelay(),
		MaxUploadBytes: cfg.Flow.MaxUploadBytes(),
		SessionTTL:     cfg.App.SessionTTL(),
		SecureCookie:   strings.EqualFold(cfg.App.Env, "prod"),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 onboarding HTTP 失败: %w", err)
	}
	logger.Infof("✓ Onboarding HTTP 接口监听 %s", server.Addr())
	return server, nil
}
