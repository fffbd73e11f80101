package synthesis

import (
	"context"
	"time"
)

// AuditEntry records one call to the analysis service.
type AuditEntry struct {
	SessionID string
	Purpose   string
	Provider  string
	Prompt    string
	Response  string
	Error     string
	Parsed    any
	Duration  time.Duration
	CreatedAt time.Time
}

// Auditor persists AuditEntry rows. Failures are logged and never affect
// the synthesis result.
type Auditor interface {
	RecordSynthesis(ctx context.Context, entry AuditEntry) error
}
