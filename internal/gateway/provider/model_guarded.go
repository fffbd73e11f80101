package provider

import (
	"context"
	"errors"
	"fmt"

	"apex/internal/pkg/circuit"
)

// ErrUnavailable 表示熔断器已打开，暂不调用上游模型。
var ErrUnavailable = errors.New("provider temporarily unavailable")

// GuardedModelProvider 用熔断器包裹另一个 provider。凭证缺失与调用方取消
// 不计入失败次数。
type GuardedModelProvider struct {
	inner   ModelProvider
	breaker *circuit.CircuitBreaker
}

func NewGuardedModelProvider(inner ModelProvider, breaker *circuit.CircuitBreaker) *GuardedModelProvider {
	return &GuardedModelProvider{inner: inner, breaker: breaker}
}

func (g *GuardedModelProvider) ID() string { return g.inner.ID() }

func (g *GuardedModelProvider) Generate(ctx context.Context, req Request) (string, error) {
	if g.breaker == nil {
		return g.inner.Generate(ctx, req)
	}
	var out string
	err := g.breaker.Do(func() error {
		var err error
		out, err = g.inner.Generate(ctx, req)
		return err
	}, countsAsFailure)
	if errors.Is(err, circuit.ErrOpen) {
		return "", fmt.Errorf("%s: %w", g.inner.ID(), ErrUnavailable)
	}
	return out, err
}

func countsAsFailure(err error) bool {
	return !errors.Is(err, ErrMissingCredential) && !errors.Is(err, context.Canceled)
}
