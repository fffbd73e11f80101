package interview

import (
	"testing"
	"time"

	"apex/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorScriptedTurns(t *testing.T) {
	c := NewCollector(0)
	replies := []string{"5 yrs forex", "ORB", "revenge trading", "calm"}

	for i, reply := range replies {
		q, ok := c.Current()
		require.True(t, ok)
		assert.Equal(t, Script[i].Field, q.Field)

		got, done, err := c.Answer(reply)
		require.NoError(t, err)
		if i < len(replies)-1 {
			assert.False(t, done)
			continue
		}
		assert.True(t, done)
		assert.Equal(t, types.InterviewAnswers{
			Story: "5 yrs forex", Setups: "ORB", Mistake: "revenge trading", IdealDay: "calm",
		}, got)
	}

	_, ok := c.Current()
	assert.False(t, ok)
	_, _, err := c.Answer("more")
	assert.ErrorIs(t, err, ErrFinished)

	transcript := c.Transcript()
	require.Len(t, transcript, 8)
	assert.Equal(t, SenderCoach, transcript[0].Sender)
	assert.Equal(t, SenderUser, transcript[7].Sender)
	assert.Equal(t, "calm", transcript[7].Text)
}

func TestCollectorRejectsWhitespace(t *testing.T) {
	c := NewCollector(0)
	_, done, err := c.Answer("   \n\t")
	assert.False(t, done)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldStory, verr.Field)

	q, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, FieldStory, q.Field)
	assert.Len(t, c.Transcript(), 1)
}

func TestCollectorTypingDelay(t *testing.T) {
	c := NewCollector(30 * time.Millisecond)
	t.Cleanup(c.Close)

	_, _, err := c.Answer("story")
	require.NoError(t, err)
	assert.True(t, c.Typing())

	_, _, err = c.Answer("too fast")
	assert.ErrorIs(t, err, ErrTyping)

	assert.Eventually(t, func() bool { return !c.Typing() }, time.Second, 5*time.Millisecond)
	q, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, FieldSetups, q.Field)
}

func TestCollectorSubmitAll(t *testing.T) {
	c := NewCollector(0)

	_, err := c.SubmitAll(types.InterviewAnswers{Story: "a", Setups: "b", Mistake: " ", IdealDay: "d"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, FieldMistake, verr.Field)

	full := types.InterviewAnswers{Story: "a", Setups: "b", Mistake: "c", IdealDay: "d"}
	got, err := c.SubmitAll(full)
	require.NoError(t, err)
	assert.Equal(t, full, got)
	_, ok := c.Current()
	assert.False(t, ok)
}
