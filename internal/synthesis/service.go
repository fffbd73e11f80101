package synthesis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apex/internal/gateway/provider"
	"apex/internal/logger"
	"apex/internal/pkg/jsonutil"
	"apex/internal/pkg/text"
	"apex/internal/prompt"
)

const (
	PurposeReport    = "report"
	PurposeChallenge = "challenge"

	auditErrorLimit = 2000
)

type Options struct {
	Temperature float64
	Timeout     time.Duration
	Auditor     Auditor
}

// Service runs the Report and Challenge synthesizers against one provider.
// Each synthesis issues exactly one request and never retries.
type Service struct {
	provider provider.ModelProvider
	prompts  *prompt.Registry
	opts     Options
}

func NewService(p provider.ModelProvider, prompts *prompt.Registry, opts Options) *Service {
	return &Service{provider: p, prompts: prompts, opts: opts}
}

// IsConfigError reports whether err comes from missing configuration rather
// than from the analysis service or its response.
func IsConfigError(err error) bool {
	return errors.Is(err, provider.ErrMissingCredential)
}

type call struct {
	sessionID string
	purpose   string
	prompt    string
	schema    map[string]any
	name      string
}

func (s *Service) generate(ctx context.Context, c call) (string, time.Duration, error) {
	if s.provider == nil {
		return "", 0, fmt.Errorf("synthesis: no provider configured")
	}
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	id := s.provider.ID()
	logger.LogLLMRequest(id, c.purpose, c.prompt, schemaString(c.schema))
	start := time.Now()
	raw, err := s.provider.Generate(ctx, provider.Request{
		Purpose:     c.purpose,
		Prompt:      c.prompt,
		SchemaName:  c.name,
		Schema:      c.schema,
		Temperature: s.opts.Temperature,
	})
	elapsed := time.Since(start)
	logger.LogLLMResponse(id, c.purpose, jsonutil.Pretty(raw), elapsed, err)
	return raw, elapsed, err
}

func (s *Service) audit(ctx context.Context, c call, raw string, elapsed time.Duration, parsed any, err error) {
	if s.opts.Auditor == nil {
		return
	}
	entry := AuditEntry{
		SessionID: c.sessionID,
		Purpose:   c.purpose,
		Prompt:    c.prompt,
		Response:  raw,
		Parsed:    parsed,
		Duration:  elapsed,
		CreatedAt: time.Now(),
	}
	if s.provider != nil {
		entry.Provider = s.provider.ID()
	}
	if err != nil {
		entry.Error = text.Truncate(err.Error(), auditErrorLimit)
	}
	if aerr := s.opts.Auditor.RecordSynthesis(context.WithoutCancel(ctx), entry); aerr != nil {
		logger.Warnf("synthesis audit write failed purpose=%s: %v", c.purpose, aerr)
	}
}
