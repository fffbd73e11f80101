package flow

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerReplacesPendingCallback(t *testing.T) {
	var tm Timer
	var first, second atomic.Int32
	done := make(chan struct{})

	tm.Schedule(30*time.Millisecond, func() { first.Add(1) })
	tm.Schedule(10*time.Millisecond, func() { second.Add(1); close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
	assert.Equal(t, int32(1), second.Load())
	assert.False(t, tm.Pending())
}

func TestTimerStop(t *testing.T) {
	var tm Timer
	var fired atomic.Bool
	tm.Schedule(10*time.Millisecond, func() { fired.Store(true) })
	assert.True(t, tm.Pending())
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimerZeroDelayRunsInline(t *testing.T) {
	var tm Timer
	ran := false
	tm.Schedule(0, func() { ran = true })
	assert.True(t, ran)
	assert.False(t, tm.Pending())
}
