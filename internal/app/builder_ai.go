package app

import (
	"fmt"
	"path/filepath"
	"strings"

	apxcfg "apex/internal/config"
	"apex/internal/gateway/provider"
	"apex/internal/logger"
	"apex/internal/pkg/circuit"
	"apex/internal/store"
	"apex/internal/store/gormstore"
)

// buildModelProvider 按配置构建唯一的分析模型。缺少凭证不会阻止启动，
// 生成报告时才会以配置错误的形式暴露。
func buildModelProvider(cfg apxcfg.AIConfig) (provider.ModelProvider, error) {
	p, err := provider.BuildProviderFromConfig(provider.ModelCfg{
		Provider:  cfg.ProviderName(),
		APIURL:    cfg.APIURL,
		Model:     cfg.Model,
		APIKeyEnv: cfg.APIKeyEnv,
		Headers:   cfg.Headers,
		Timeout:   cfg.Timeout(),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化模型 provider 失败: %w", err)
	}
	logger.Infof("✓ 分析模型: %s", p.ID())
	if cfg.BreakerThreshold <= 0 {
		return p, nil
	}
	cb := circuit.NewCircuitBreaker(p.ID(), cfg.BreakerThreshold, cfg.BreakerCooldown())
	return provider.NewGuardedModelProvider(p, cb), nil
}

// buildAuditStore 在配置了 audit_path 时打开 SQLite 审计日志，否则返回 nil。
func buildAuditStore(cfg apxcfg.StoreConfig) (store.AuditRepository, error) {
	path := strings.TrimSpace(cfg.AuditPath)
	if path == "" {
		return nil, nil
	}
	st, err := gormstore.NewGormStore(path)
	if err != nil {
		return nil, fmt.Errorf("初始化审计日志存储失败: %w", err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	logger.Infof("✓ 分析调用审计日志写入 %s", path)
	return st, nil
}
