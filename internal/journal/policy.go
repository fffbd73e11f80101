package journal

import "fmt"

// Policy decides when the observation period may be completed. Exactly one
// kind is active per store.
type Policy struct {
	Kind      PolicyKind
	Days      int
	MinTrades int
}

type PolicyKind string

const (
	PolicyDays      PolicyKind = "days"
	PolicyMinTrades PolicyKind = "min_trades"
)

// DayPolicy withholds completion until the day counter reaches days.
func DayPolicy(days int) Policy {
	if days <= 0 {
		days = 1
	}
	return Policy{Kind: PolicyDays, Days: days}
}

// MinTradesPolicy withholds completion until n trades are logged.
func MinTradesPolicy(n int) Policy {
	if n <= 0 {
		n = 1
	}
	return Policy{Kind: PolicyMinTrades, MinTrades: n}
}

// ParsePolicy maps config values onto a Policy.
func ParsePolicy(kind string, days, minTrades int) (Policy, error) {
	switch PolicyKind(kind) {
	case PolicyDays:
		return DayPolicy(days), nil
	case PolicyMinTrades:
		return MinTradesPolicy(minTrades), nil
	default:
		return Policy{}, fmt.Errorf("journal: unknown completion policy %q", kind)
	}
}

// Ready reports whether the threshold is met for the given day and count.
func (p Policy) Ready(day, trades int) bool {
	switch p.Kind {
	case PolicyMinTrades:
		return trades >= p.MinTrades
	default:
		return day >= p.Days
	}
}

// UsesDays reports whether the day counter is meaningful under this policy.
func (p Policy) UsesDays() bool {
	return p.Kind != PolicyMinTrades
}
