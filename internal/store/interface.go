package store

import (
	"context"

	"apex/internal/store/model"
	"apex/internal/synthesis"
)

// AuditRepository persists analysis calls for later inspection.
type AuditRepository interface {
	synthesis.Auditor
	// ListSynthesis returns the newest rows first; an empty sessionID lists all sessions.
	ListSynthesis(ctx context.Context, sessionID string, limit int) ([]model.SynthesisLogModel, error)
	Close() error
}
