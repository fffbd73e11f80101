package app

import (
	"context"
	"fmt"

	apxcfg "apex/internal/config"
	"apex/internal/logger"
	"apex/internal/prompt"
	"apex/internal/store"
	onboardinghttp "apex/internal/transport/http/onboarding"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动引导服务。
type App struct {
	cfg     *apxcfg.Config
	http    *onboardinghttp.Server
	prompts *prompt.Registry
	audit   store.AuditRepository
	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *apxcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动 HTTP 服务，直到 ctx 取消。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.http == nil {
		return fmt.Errorf("onboarding http server not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.http.Start(ctx); err != nil {
			return fmt.Errorf("onboarding http server error: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Server exposes the HTTP server (for tests).
func (a *App) Server() *onboardinghttp.Server {
	if a == nil {
		return nil
	}
	return a.http
}

func (a *App) Close() {
	if a == nil || a.audit == nil {
		return
	}
	if err := a.audit.Close(); err != nil {
		logger.Warnf("关闭审计日志失败: %v", err)
	}
	a.audit = nil
}
