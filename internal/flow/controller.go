package flow

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"apex/internal/types"
)

var (
	ErrIncompleteInterview = errors.New("flow: interview answers incomplete")
	ErrBusy                = errors.New("flow: synthesis already in progress")
	ErrInvalidStep         = errors.New("flow: invalid step")
)

// Session is the data accumulated across the onboarding sequence. Nil/empty
// fields mean the step that produces them has not completed yet.
type Session struct {
	Interview *types.InterviewAnswers `json:"interview,omitempty"`
	Trades    []types.Trade           `json:"trades"`
	Insights  []types.InsightCard     `json:"insights,omitempty"`
	Challenge *types.Challenge        `json:"challenge,omitempty"`
}

func (s Session) clone() Session {
	out := Session{}
	if s.Interview != nil {
		a := *s.Interview
		out.Interview = &a
	}
	out.Trades = append([]types.Trade(nil), s.Trades...)
	if s.Insights != nil {
		out.Insights = append([]types.InsightCard(nil), s.Insights...)
	}
	if s.Challenge != nil {
		ch := *s.Challenge
		out.Challenge = &ch
	}
	return out
}

// Observer is notified after every step change, outside the controller lock.
type Observer func(from, to Step)

// Controller owns the current step and the session data, and is the only
// place either changes.
type Controller struct {
	mu        sync.Mutex
	step      Step
	data      Session
	busy      bool
	observers []Observer
	auto      Timer
}

func NewController() *Controller {
	return &Controller{step: StepSplash}
}

func (c *Controller) Step() Step {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Snapshot returns a copy of the session data.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.clone()
}

func (c *Controller) OnStepChange(fn Observer) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// Advance moves to the next step. It is a no-op on Dashboard.
func (c *Controller) Advance() {
	c.mu.Lock()
	c.commit(c.step.Next())
}

// GoTo jumps to step unconditionally. Used for explicit recovery actions.
func (c *Controller) GoTo(step Step) error {
	if !step.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidStep, step)
	}
	c.mu.Lock()
	c.commit(step)
	return nil
}

func (c *Controller) CompleteInterview(answers types.InterviewAnswers) error {
	if !answers.Complete() {
		return ErrIncompleteInterview
	}
	c.mu.Lock()
	c.data.Interview = &answers
	c.commit(c.step.Next())
	return nil
}

// CompleteObservation stores trades and advances. An empty list leaves the
// step unchanged and reports false.
func (c *Controller) CompleteObservation(trades []types.Trade) bool {
	if len(trades) == 0 {
		return false
	}
	c.mu.Lock()
	c.data.Trades = append([]types.Trade(nil), trades...)
	c.commit(c.step.Next())
	return true
}

func (c *Controller) CompleteReport(insights []types.InsightCard) {
	c.mu.Lock()
	c.data.Insights = append([]types.InsightCard(nil), insights...)
	c.commit(c.step.Next())
}

func (c *Controller) CompleteChallenge(challenge types.Challenge) {
	c.mu.Lock()
	c.data.Challenge = &challenge
	c.commit(c.step.Next())
}

// BeginSynthesis claims the single synthesis slot of this session.
func (c *Controller) BeginSynthesis() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Controller) EndSynthesis() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// ArmAutoAdvance advances from `from` after d unless the step changes first.
// It returns false when the controller is elsewhere or a timer is already armed.
func (c *Controller) ArmAutoAdvance(from Step, d time.Duration) bool {
	if c.Step() != from || c.auto.Pending() {
		return false
	}
	c.auto.Schedule(d, func() {
		c.mu.Lock()
		if c.step != from {
			c.mu.Unlock()
			return
		}
		c.commit(from.Next())
	})
	return true
}

// Close tears down any pending timer.
func (c *Controller) Close() {
	c.auto.Stop()
}

// commit must be called with mu held; it releases mu before notifying.
func (c *Controller) commit(to Step) {
	from := c.step
	if from == to {
		c.mu.Unlock()
		return
	}
	c.step = to
	observers := append([]Observer(nil), c.observers...)
	c.mu.Unlock()

	c.auto.Stop()
	for _, fn := range observers {
		fn(from, to)
	}
}
