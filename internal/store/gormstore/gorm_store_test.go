package gormstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"apex/internal/synthesis"
	"apex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListSynthesis(t *testing.T) {
	s, err := NewGormStore(filepath.Join(t.TempDir(), "nested", "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordSynthesis(ctx, synthesis.AuditEntry{
		SessionID: "a", Purpose: synthesis.PurposeReport, Provider: "mock",
		Prompt: "p1", Response: "r1", Error: errors.New("boom").Error(),
		Duration: 1500 * time.Millisecond, CreatedAt: base,
	}))
	require.NoError(t, s.RecordSynthesis(ctx, synthesis.AuditEntry{
		SessionID: "a", Purpose: synthesis.PurposeChallenge, Provider: "mock",
		Parsed: types.Challenge{FocusSetup: "ORB", Mission: "m"}, CreatedAt: base.Add(time.Minute),
	}))
	require.NoError(t, s.RecordSynthesis(ctx, synthesis.AuditEntry{SessionID: "b", Purpose: synthesis.PurposeReport}))

	rows, err := s.ListSynthesis(ctx, "a", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, synthesis.PurposeChallenge, rows[0].Purpose)
	assert.False(t, rows[0].Failed())
	assert.JSONEq(t, `{"focusSetup":"ORB","mission":"m"}`, string(rows[0].Parsed))
	assert.True(t, rows[1].Failed())
	assert.Equal(t, int64(1500), rows[1].DurationMS)
	assert.NotEmpty(t, rows[1].ID)

	all, err := s.ListSynthesis(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNewGormStoreRequiresPath(t *testing.T) {
	_, err := NewGormStore("  ")
	assert.Error(t, err)
}
