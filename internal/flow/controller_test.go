package flow

import (
	"sync"
	"testing"
	"time"

	"apex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnswers() types.InterviewAnswers {
	return types.InterviewAnswers{Story: "5 yrs forex", Setups: "ORB", Mistake: "revenge trading", IdealDay: "calm"}
}

func TestAdvanceStrictlyIncreasesUntilDashboard(t *testing.T) {
	c := NewController()
	prev := c.Step()
	assert.Equal(t, StepSplash, prev)

	for i := 0; i < int(StepDashboard); i++ {
		c.Advance()
		cur := c.Step()
		assert.Greater(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, StepDashboard, c.Step())

	for i := 0; i < 3; i++ {
		c.Advance()
		assert.Equal(t, StepDashboard, c.Step())
	}
}

func TestGoTo(t *testing.T) {
	c := NewController()
	require.NoError(t, c.GoTo(StepReport))
	assert.Equal(t, StepReport, c.Step())

	require.NoError(t, c.GoTo(StepIntroduction))
	assert.Equal(t, StepIntroduction, c.Step())

	assert.ErrorIs(t, c.GoTo(Step(42)), ErrInvalidStep)
	assert.Equal(t, StepIntroduction, c.Step())
}

func TestCompleteInterview(t *testing.T) {
	c := NewController()
	require.NoError(t, c.GoTo(StepInterview))

	err := c.CompleteInterview(types.InterviewAnswers{Story: "x"})
	assert.ErrorIs(t, err, ErrIncompleteInterview)
	assert.Equal(t, StepInterview, c.Step())
	assert.Nil(t, c.Snapshot().Interview)

	require.NoError(t, c.CompleteInterview(sampleAnswers()))
	assert.Equal(t, StepObservationInstructions, c.Step())
	assert.Equal(t, "ORB", c.Snapshot().Interview.Setups)
}

func TestCompleteObservation(t *testing.T) {
	c := NewController()
	require.NoError(t, c.GoTo(StepDailyLogging))

	assert.False(t, c.CompleteObservation(nil))
	assert.False(t, c.CompleteObservation([]types.Trade{}))
	assert.Equal(t, StepDailyLogging, c.Step())

	trades := []types.Trade{{ID: "t1", Reason: "breakout"}}
	assert.True(t, c.CompleteObservation(trades))
	assert.Equal(t, StepReport, c.Step())

	trades[0].Reason = "mutated"
	assert.Equal(t, "breakout", c.Snapshot().Trades[0].Reason)
}

func TestCompleteReportAndChallenge(t *testing.T) {
	c := NewController()
	require.NoError(t, c.GoTo(StepReport))

	c.CompleteReport([]types.InsightCard{{Title: "a"}, {Title: "b"}, {Title: "c"}})
	assert.Equal(t, StepChallenge, c.Step())
	assert.Len(t, c.Snapshot().Insights, 3)

	c.CompleteChallenge(types.Challenge{FocusSetup: "ORB", Mission: "no revenge trades"})
	assert.Equal(t, StepDashboard, c.Step())
	assert.Equal(t, "ORB", c.Snapshot().Challenge.FocusSetup)
}

func TestPrerequisite(t *testing.T) {
	c := NewController()

	p := c.Prerequisite(StepReport)
	assert.True(t, p.Missing)
	assert.Equal(t, StepIntroduction, p.Recovery)

	require.NoError(t, c.GoTo(StepInterview))
	require.NoError(t, c.CompleteInterview(sampleAnswers()))
	assert.True(t, c.Prerequisite(StepReport).Missing, "trades still missing")

	require.NoError(t, c.GoTo(StepDailyLogging))
	c.CompleteObservation([]types.Trade{{ID: "t1"}})
	assert.False(t, c.Prerequisite(StepReport).Missing)

	p = c.Prerequisite(StepChallenge)
	assert.True(t, p.Missing)
	assert.Equal(t, StepReport, p.Recovery)

	c.CompleteReport([]types.InsightCard{{Type: "error"}})
	assert.False(t, c.Prerequisite(StepChallenge).Missing)
	assert.False(t, c.Prerequisite(StepSplash).Missing)
}

func TestSynthesisGate(t *testing.T) {
	c := NewController()
	require.NoError(t, c.BeginSynthesis())
	assert.True(t, c.Busy())
	assert.ErrorIs(t, c.BeginSynthesis(), ErrBusy)
	c.EndSynthesis()
	assert.False(t, c.Busy())
	assert.NoError(t, c.BeginSynthesis())
}

func TestObserversSeeTransitions(t *testing.T) {
	c := NewController()
	var got [][2]Step
	c.OnStepChange(func(from, to Step) { got = append(got, [2]Step{from, to}) })

	c.Advance()
	require.NoError(t, c.GoTo(StepIntroduction))
	require.NoError(t, c.GoTo(StepSplash))

	assert.Equal(t, [][2]Step{
		{StepSplash, StepIntroduction},
		{StepIntroduction, StepSplash},
	}, got)
}

func TestArmAutoAdvance(t *testing.T) {
	t.Run("zero delay advances immediately", func(t *testing.T) {
		c := NewController()
		assert.True(t, c.ArmAutoAdvance(StepSplash, 0))
		assert.Equal(t, StepIntroduction, c.Step())
	})

	t.Run("fires after delay", func(t *testing.T) {
		c := NewController()
		var wg sync.WaitGroup
		wg.Add(1)
		c.OnStepChange(func(from, to Step) { wg.Done() })
		assert.True(t, c.ArmAutoAdvance(StepSplash, 10*time.Millisecond))
		assert.False(t, c.ArmAutoAdvance(StepSplash, 10*time.Millisecond), "already armed")
		wg.Wait()
		assert.Equal(t, StepIntroduction, c.Step())
	})

	t.Run("navigation tears the timer down", func(t *testing.T) {
		c := NewController()
		assert.True(t, c.ArmAutoAdvance(StepSplash, 20*time.Millisecond))
		require.NoError(t, c.GoTo(StepInterview))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, StepInterview, c.Step())
	})

	t.Run("close cancels", func(t *testing.T) {
		c := NewController()
		assert.True(t, c.ArmAutoAdvance(StepSplash, 20*time.Millisecond))
		c.Close()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, StepSplash, c.Step())
	})

	t.Run("wrong step is ignored", func(t *testing.T) {
		c := NewController()
		assert.False(t, c.ArmAutoAdvance(StepReport, 0))
		assert.Equal(t, StepSplash, c.Step())
	})
}

func TestParseStep(t *testing.T) {
	for s := StepSplash; s <= StepDashboard; s++ {
		got, ok := ParseStep(s.String())
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseStep("nope")
	assert.False(t, ok)
	assert.Equal(t, "unknown", Step(-1).String())
}
