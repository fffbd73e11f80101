package provider

import (
	"context"
	"errors"
	"os"
	"strings"
)

// ErrMissingCredential 表示调用时环境变量中没有 API key。
var ErrMissingCredential = errors.New("provider: missing API credential")

// Request is one structured-output call to the analysis service.
type Request struct {
	Purpose     string
	System      string
	Prompt      string
	SchemaName  string
	Schema      map[string]any
	Temperature float64
}

type ModelProvider interface {
	ID() string
	Generate(ctx context.Context, req Request) (string, error)
}

// EnvCredential reads the key from the environment on every call so a key
// exported after startup is picked up.
func EnvCredential(name string) func() (string, error) {
	return func() (string, error) {
		key := strings.TrimSpace(os.Getenv(name))
		if key == "" {
			return "", ErrMissingCredential
		}
		return key, nil
	}
}

// HasCredential reports whether the named variable is currently set.
func HasCredential(name string) bool {
	_, err := EnvCredential(name)()
	return err == nil
}

func maskSecret(v string) string {
	if len(v) > 4 {
		return "****" + v[len(v)-4:]
	}
	return "****"
}
