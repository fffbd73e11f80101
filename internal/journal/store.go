package journal

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"apex/internal/types"

	"github.com/google/uuid"
)

const timestampLayout = "15:04:05"

// ValidationError is a field-level rejection shown next to the form input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Store is the in-memory trade log of one observation period. Trades are
// never mutated or removed once added.
type Store struct {
	mu     sync.Mutex
	policy Policy
	day    int
	trades []types.Trade

	now   func() time.Time
	newID func() string
}

func NewStore(policy Policy) *Store {
	return &Store{
		policy: policy,
		day:    1,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// AddTrade validates and appends a trade. The screenshot must already be
// decoded; nil means none was uploaded.
func (s *Store) AddTrade(reason string, shot *Screenshot) (types.Trade, error) {
	if shot == nil || strings.TrimSpace(shot.DataURL) == "" {
		return types.Trade{}, &ValidationError{Field: "screenshot", Message: "Please upload a screenshot."}
	}
	if strings.TrimSpace(reason) == "" {
		return types.Trade{}, &ValidationError{Field: "reason", Message: "Please provide a reason for the trade."}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	trade := types.Trade{
		ID:             s.newID(),
		Screenshot:     shot.DataURL,
		ScreenshotName: shot.Name,
		Reason:         reason,
		Timestamp:      s.now().Format(timestampLayout),
		Day:            s.day,
	}
	s.trades = append(s.trades, trade)
	return trade, nil
}

// List returns the trades in insertion order.
func (s *Store) List() []types.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Trade(nil), s.trades...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

func (s *Store) Day() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.day
}

func (s *Store) Policy() Policy {
	return s.policy
}

// EndDay advances the day counter; it stops at the policy bound and does
// nothing when the active policy does not count days.
func (s *Store) EndDay() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.policy.UsesDays() || s.day >= s.policy.Days {
		return false
	}
	s.day++
	return true
}

// Ready reports whether the completion threshold has been met.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.Ready(s.day, len(s.trades))
}

// TradesPerDay counts trades by observation day, index 0 being day 1.
func (s *Store) TradesPerDay() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	days := s.day
	if s.policy.UsesDays() && s.policy.Days > days {
		days = s.policy.Days
	}
	counts := make([]int, days)
	for _, t := range s.trades {
		if t.Day >= 1 && t.Day <= days {
			counts[t.Day-1]++
		}
	}
	return counts
}
