package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"apex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportData struct {
	Interview types.InterviewAnswers
	Reasons   []string
}

type challengeData struct {
	Insights []types.InsightCard
}

func TestBuiltinReport(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)
	assert.Equal(t, []string{NameChallenge, NameReport}, r.Names())

	out, err := r.Render(NameReport, reportData{
		Interview: types.InterviewAnswers{Story: "5 yrs forex", Setups: "ORB", Mistake: "revenge trading", IdealDay: "calm"},
		Reasons:   []string{"breakout", "pullback"},
	})
	require.NoError(t, err)
	for _, want := range []string{"5 yrs forex", "ORB", "revenge trading", "calm", "- Trade 1: breakout", "- Trade 2: pullback"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "no trades")

	out, err = r.Render(NameReport, reportData{})
	require.NoError(t, err)
	assert.Contains(t, out, "\nno trades")
}

func TestBuiltinChallenge(t *testing.T) {
	r, err := NewRegistry("")
	require.NoError(t, err)
	out, err := r.Render(NameChallenge, challengeData{Insights: []types.InsightCard{
		{Type: "Identified Pattern", Title: "Late entries"},
		{Type: "Psychological Loop", Title: "Chasing losses"},
		{Type: "Hidden Strength", Title: "Patient ORB"},
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "1. [Identified Pattern] Late entries")
	assert.Contains(t, out, "3. [Hidden Strength] Patient ORB")

	_, err = r.Render("unknown", nil)
	assert.Error(t, err)
}

func TestFileOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`prompts:
  challenge:
    description: short
    version: 3
    template: "Titles:{{range .Insights}} {{.Title}}{{end}}"
`), 0o644))

	r, err := NewRegistry(path)
	require.NoError(t, err)
	snap := r.Snapshot()
	assert.Equal(t, "prompts.yaml", snap.Source)
	assert.Equal(t, 3, snap.Templates[NameChallenge].Version)

	out, err := r.Render(NameChallenge, challengeData{Insights: []types.InsightCard{{Title: "A"}, {Title: "B"}}})
	require.NoError(t, err)
	assert.Equal(t, "Titles: A B", out)

	// report still falls back to the built-in text
	out, err = r.Render(NameReport, reportData{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "You are an expert trading psychologist"))
}

func TestReloadKeepsPreviousOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  challenge:\n    template: \"v1\"\n"), 0o644))
	r, err := NewRegistry(path)
	require.NoError(t, err)
	before := r.Snapshot().Version

	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  challenge:\n    template: \"{{.Broken\"\n"), 0o644))
	assert.Error(t, r.Reload())
	out, err := r.Render(NameChallenge, nil)
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  challenge:\n    unknown_key: 1\n"), 0o644))
	assert.Error(t, r.Reload())

	require.NoError(t, os.WriteFile(path, []byte("prompts:\n  challenge:\n    template: \"v2\"\n"), 0o644))
	require.NoError(t, r.Reload())
	out, err = r.Render(NameChallenge, nil)
	require.NoError(t, err)
	assert.Equal(t, "v2", out)
	assert.Greater(t, r.Snapshot().Version, before)
}
