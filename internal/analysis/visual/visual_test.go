package visual

import (
	"testing"

	"apex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountReasons(t *testing.T) {
	trades := []types.Trade{
		{Reason: "Breakout"}, {Reason: "pullback"}, {Reason: " breakout "}, {Reason: "  "}, {Reason: "gap  fill"},
	}
	got := CountReasons(trades, 0)
	assert.Equal(t, []ReasonCount{
		{Reason: "breakout", Count: 2},
		{Reason: "pullback", Count: 1},
		{Reason: "gap fill", Count: 1},
	}, got)
	assert.Len(t, CountReasons(trades, 1), 1)
}

func TestRenderObservation(t *testing.T) {
	html, err := RenderObservation(ObservationInput{
		TradesPerDay: []int{1, 0, 2},
		Trades:       []types.Trade{{Reason: "breakout"}},
	})
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, "Trades per observation day")
	assert.Contains(t, page, "Day 3")
	assert.Contains(t, page, "Most logged reasons")
}
