package onboardinghttp

import (
	"context"
	"sync"
	"time"

	"apex/internal/flow"
	"apex/internal/interview"
	"apex/internal/journal"
	"apex/internal/logger"
	"apex/internal/types"

	"github.com/google/uuid"
)

const sessionCookie = "apex_session"

// sessionState is one browser's flow. mu serialises every handler of the
// session; synthesis calls run in the background with mu released.
type sessionState struct {
	mu       sync.Mutex
	id       string
	ctrl     *flow.Controller
	lastSeen time.Time

	// screen-local state, recreated whenever its step is entered again
	mounted   flow.Step
	epoch     uint64 // 每次重新进入某一步时递增
	collector *interview.Collector
	journal   *journal.Store

	report    *reportDraft
	challenge *challengeDraft
}

type reportDraft struct {
	insights []types.InsightCard
	err      error
}

type challengeDraft struct {
	challenge types.Challenge
	err       error
}

type sessionFactory struct {
	typingDelay time.Duration
	policy      journal.Policy
}

// mount resets the screen-local state when the controller has moved to a
// different step since the last request.
func (s *sessionState) mount(f sessionFactory) {
	step := s.ctrl.Step()
	if step == s.mounted {
		return
	}
	s.mounted = step
	s.epoch++
	switch step {
	case flow.StepInterview:
		if s.collector != nil {
			s.collector.Close()
		}
		s.collector = interview.NewCollector(f.typingDelay)
	case flow.StepDailyLogging:
		s.journal = journal.NewStore(f.policy)
	case flow.StepReport:
		s.report = nil
	case flow.StepChallenge:
		s.challenge = nil
	}
}

// current reports whether the session is still on the mount of step that
// was active at epoch, so a late synthesis result can be stored.
func (s *sessionState) current(step flow.Step, epoch uint64) bool {
	return s.ctrl.Step() == step && s.mounted == step && s.epoch == epoch
}

func (s *sessionState) close() {
	s.ctrl.Close()
	if s.collector != nil {
		s.collector.Close()
	}
}

// Registry maps session cookies to flows and expires idle ones.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	ttl      time.Duration
	factory  sessionFactory
	now      func() time.Time
}

func NewRegistry(ttl time.Duration, factory sessionFactory) *Registry {
	return &Registry{
		sessions: make(map[string]*sessionState),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// Acquire returns the session for id, creating a new one when id is unknown
// or expired. The returned session is locked; call release when done.
func (r *Registry) Acquire(id string) (*sessionState, bool) {
	r.mu.Lock()
	st, ok := r.sessions[id]
	created := false
	if !ok {
		st = r.newSessionLocked()
		created = true
	}
	st.lastSeen = r.now()
	r.mu.Unlock()

	st.mu.Lock()
	st.mount(r.factory)
	return st, created
}

func (r *Registry) newSessionLocked() *sessionState {
	id := uuid.NewString()
	ctrl := flow.NewController()
	ctrl.OnStepChange(func(from, to flow.Step) {
		logger.Session(id).Info("step change", "from", from.String(), "to", to.String())
	})
	st := &sessionState{id: id, ctrl: ctrl, mounted: -1}
	r.sessions[id] = st
	logger.Session(id).Info("session created")
	return st
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than the ttl.
func (r *Registry) Sweep() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)
	var expired []*sessionState
	r.mu.Lock()
	for id, st := range r.sessions {
		if st.lastSeen.Before(cutoff) {
			expired = append(expired, st)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, st := range expired {
		st.close()
		logger.Session(st.id).Info("session expired")
	}
	return len(expired)
}

// RunSweeper sweeps periodically until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context) error {
	if r.ttl <= 0 {
		<-ctx.Done()
		return nil
	}
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*sessionState)
	r.mu.Unlock()
	for _, st := range sessions {
		st.close()
	}
}
